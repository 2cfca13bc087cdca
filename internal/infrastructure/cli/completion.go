package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var completionCmd = &cobra.Command{
	Use:       "completion [bash|zsh|fish|powershell]",
	Short:     "Generate shell completion scripts",
	Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"bash", "zsh", "fish", "powershell"},
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return RootCmd.GenBashCompletionV2(out, true)
		case "zsh":
			return RootCmd.GenZshCompletion(out)
		case "fish":
			return RootCmd.GenFishCompletion(out, true)
		case "powershell":
			return RootCmd.GenPowerShellCompletionWithDesc(out)
		}
		return fmt.Errorf("unsupported shell %q", args[0])
	},
}

// specExtensions are the file types the creation endpoint accepts.
var specExtensions = []string{"md", "markdown", "txt", "pdf"}

func completeSpecFile(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return specExtensions, cobra.ShellCompDirectiveFilterFileExt
}

func init() {
	uploadCmd.ValidArgsFunction = completeSpecFile

	RootCmd.AddCommand(completionCmd)
}
