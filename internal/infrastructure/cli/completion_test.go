package cli

import (
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func TestCompletionCmd(t *testing.T) {
	shells := []string{"bash", "zsh", "fish", "powershell"}

	for _, shell := range shells {
		t.Run(shell, func(t *testing.T) {
			out, err := runCLI(t, "completion", shell)
			if err != nil {
				t.Fatalf("completion %s failed: %v", shell, err)
			}
			if !strings.Contains(out, "flowboard") {
				t.Errorf("completion %s does not mention flowboard", shell)
			}
		})
	}
}

func TestCompletionCmd_UnknownShell(t *testing.T) {
	if _, err := runCLI(t, "completion", "tcsh"); err == nil {
		t.Fatal("expected an error for an unsupported shell")
	}
}

func TestCompleteSpecFile(t *testing.T) {
	exts, directive := completeSpecFile(uploadCmd, nil, "")
	if directive != cobra.ShellCompDirectiveFilterFileExt {
		t.Errorf("directive = %v", directive)
	}
	if strings.Join(exts, ",") != "md,markdown,txt,pdf" {
		t.Errorf("extensions = %v", exts)
	}

	if _, directive := completeSpecFile(uploadCmd, []string{"spec.md"}, ""); directive != cobra.ShellCompDirectiveNoFileComp {
		t.Errorf("second argument should not complete files, got %v", directive)
	}
}
