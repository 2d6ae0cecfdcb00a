package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/benjaminschreck/go-pagestencil/pkg/stencil"
)

const version = "0.1.0"

// app holds state shared by all commands of one invocation.
type app struct {
	configPath string
	logLevel   string

	config   *stencil.Config
	prompter prompter
}

func newRootCmd() *cobra.Command {
	return (&app{prompter: surveyPrompter{}}).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "pagestencil",
		Short:         "Render page templates with typed variables",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error, off)")

	root.AddCommand(
		a.renderCmd(),
		a.bulkCmd(),
		a.validateCmd(),
		a.refsCmd(),
		a.checkCmd(),
		a.historyCmd(),
		a.configCmd(),
		versionCmd(),
	)
	return root
}

// loadConfig resolves the configuration for this run and makes it global so
// the package logger follows the chosen level.
func (a *app) loadConfig() error {
	config := stencil.GetGlobalConfig()
	if a.configPath != "" {
		loaded, err := stencil.LoadConfigFile(a.configPath)
		if err != nil {
			return err
		}
		config = loaded
	}
	if a.logLevel != "" {
		config.LogLevel = a.logLevel
		if err := config.Validate(); err != nil {
			return err
		}
	}
	stencil.SetGlobalConfig(config)
	a.config = config
	return nil
}

func (a *app) engine() *stencil.Engine {
	return stencil.NewWithConfig(a.config)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pagestencil version %s\n", version)
		},
	}
}
