package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/felixgeelhaar/flowboard/internal/infrastructure/upload"
	"github.com/spf13/cobra"
)

var (
	uploadWatch    bool
	uploadDebounce time.Duration
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a project specification to the backend",
	Long: `Upload sends a specification file to the task creation endpoint. The
backend decomposes it into tasks asynchronously; watch them arrive with
'flowboard board' or 'flowboard stream'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		u := s.newUploader()
		path := args[0]
		out := cmd.OutOrStdout()

		if !uploadWatch {
			receipt, err := u.UploadWithReceipt(cmd.Context(), path)
			if err != nil {
				return MapError(err)
			}
			if receipt == nil {
				fmt.Fprintln(out, "Nothing to upload")
				return nil
			}
			fmt.Fprintf(out, "Uploaded %s (project %s)\n", path, receipt.ProjectID)
			return nil
		}

		w, err := upload.NewSpecWatcher(u, path, uploadDebounce, func(r *upload.Receipt, err error) {
			if err != nil {
				fmt.Fprintf(out, "%s upload failed: %v\n", time.Now().Format("15:04:05"), err)
				return
			}
			fmt.Fprintf(out, "%s uploaded %s (project %s)\n", time.Now().Format("15:04:05"), path, r.ProjectID)
		})
		if err != nil {
			return MapError(err)
		}
		fmt.Fprintf(out, "Watching %s for changes... (Ctrl+C to stop)\n", path)
		if err := w.Run(cmd.Context()); err != nil && !errors.Is(err, context.Canceled) {
			return MapError(err)
		}
		return nil
	},
}

func init() {
	uploadCmd.Flags().BoolVarP(&uploadWatch, "watch", "w", false, "re-upload whenever the file changes")
	uploadCmd.Flags().DurationVar(&uploadDebounce, "debounce", 500*time.Millisecond, "quiet period before a changed file is re-uploaded")
	RootCmd.AddCommand(uploadCmd)
}
