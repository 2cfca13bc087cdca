package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/felixgeelhaar/flowboard/internal/infrastructure/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the flowboard configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to " + config.FileName,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		path := cfgFile
		if path == "" {
			path = config.FileName
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return NewCLIError(fmt.Sprintf("%s already exists", path), "Pass --force to overwrite it", nil)
		} else if err != nil && !errors.Is(err, os.ErrNotExist) {
			return MapError(err)
		}
		if err := config.Save(path, s.cfg); err != nil {
			return MapError(fmt.Errorf("failed to save config: %w", err))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(s.cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "overwrite an existing file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	RootCmd.AddCommand(configCmd)
}
