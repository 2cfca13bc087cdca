package cli

import (
	"fmt"
	"time"

	"github.com/felixgeelhaar/flowboard/internal/infrastructure/devserver"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/logging"
	"github.com/spf13/cobra"
)

var (
	devAddr string
	devStep time.Duration
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run a local simulator of the task backend",
	Long: `devserver accepts spec uploads on POST /projects, splits them into tasks
and pushes their progress on /ws/tasks, so the board can be tried without
the real backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(cmd.ErrOrStderr(), logLevel, logging.Format(logFormat))
		if err != nil {
			return NewCLIError("invalid logging flags", "Use --log-level debug|info|warn|error and --log-format text|json", err)
		}
		srv := devserver.New(
			devserver.WithStep(devStep),
			devserver.WithLogger(logger.WithField("component", "devserver")),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "Simulated backend on http://%s%s and ws://%s%s\n",
			devAddr, devserver.ProjectsPath, devAddr, devserver.TasksPath)
		return srv.Start(cmd.Context(), devAddr)
	},
}

func init() {
	devserverCmd.Flags().StringVar(&devAddr, "addr", "localhost:8000", "listen address")
	devserverCmd.Flags().DurationVar(&devStep, "step", 2*time.Second, "time each task spends per status")
	RootCmd.AddCommand(devserverCmd)
}
