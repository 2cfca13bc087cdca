package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/felixgeelhaar/flowboard/internal/infrastructure/config"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/live"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/logging"
	"github.com/felixgeelhaar/flowboard/internal/infrastructure/upload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var (
	cfgFile   string
	apiURL    string
	wsURL     string
	logLevel  string
	logFormat string
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:     "flowboard",
	Version: Version,
	Short:   "Live task board for a task-routing workflow backend",
	Long: `flowboard keeps a live board of the tasks a workflow backend creates from
an uploaded project specification. Tasks are routed to an AI agent or a
person and move through queued, in progress and done as the backend
pushes updates.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	setContext(RootCmd, ctx)
	return RootCmd.ExecuteContext(ctx)
}

// setContext hands ctx to every command in the tree. cobra only fills a
// subcommand's context when it is nil, so a second Execute in the same
// process would otherwise run with the first, already cancelled, context.
func setContext(cmd *cobra.Command, ctx context.Context) {
	cmd.SetContext(ctx)
	for _, c := range cmd.Commands() {
		setContext(c, ctx)
	}
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./"+config.FileName+")")
	RootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "task creation endpoint")
	RootCmd.PersistentFlags().StringVar(&wsURL, "ws-url", "", "task push channel")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", string(logging.FormatText), "log format (text or json)")

	_ = RootCmd.RegisterFlagCompletionFunc("log-level", cobra.FixedCompletions(
		[]string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp))
	_ = RootCmd.RegisterFlagCompletionFunc("log-format", cobra.FixedCompletions(
		[]string{string(logging.FormatText), string(logging.FormatJSON)}, cobra.ShellCompDirectiveNoFileComp))
	_ = RootCmd.RegisterFlagCompletionFunc("config", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml"}, cobra.ShellCompDirectiveFilterFileExt
	})
}

// settings is the resolved configuration and logger for one command run.
type settings struct {
	cfg    *config.Config
	logger *logrus.Logger
}

// loadSettings layers command-line flags over the loaded configuration.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, NewCLIError("failed to load configuration", "Check "+config.FileName+" or the --config path", err)
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = apiURL
	}
	if flags.Changed("ws-url") {
		cfg.ChannelURL = wsURL
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, NewCLIError("invalid configuration", "Run 'flowboard config show' to inspect the effective settings", err)
	}

	logger, err := logging.New(cmd.ErrOrStderr(), cfg.LogLevel, logging.Format(logFormat))
	if err != nil {
		return nil, NewCLIError("invalid logging flags", "Use --log-level debug|info|warn|error and --log-format text|json", err)
	}
	return &settings{cfg: cfg, logger: logger}, nil
}

func (s *settings) newStore(opts ...live.Option) (*live.Store, error) {
	base := []live.Option{live.WithLogger(s.logger.WithField("component", "store"))}
	if s.cfg.Reconnect.Enabled {
		base = append(base, live.WithReconnect(s.cfg.Reconnect.MaxAttempts, s.cfg.Reconnect.InitialDelay))
	}
	store, err := live.NewStore(s.cfg.ChannelURL, append(base, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create task store: %w", err)
	}
	return store, nil
}

func (s *settings) newUploader() *upload.Uploader {
	return upload.NewUploader(s.cfg.APIURL,
		upload.WithTimeout(s.cfg.UploadTimeout),
		upload.WithLogger(s.logger.WithField("component", "upload")),
	)
}
