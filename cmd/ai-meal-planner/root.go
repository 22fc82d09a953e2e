package main

import (
	"context"
	"io"
	"log"
	"os"

	"guarded-meal-planner/internal/app"
	"guarded-meal-planner/internal/config"

	"github.com/joho/godotenv"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	cfgFile string
	userID  string
	verbose bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "ai-meal-planner",
		Short:         "Generate and manage weekly meal plans",
		Long:          `Generates schema-validated weekly meal plans with an LLM, and serves them over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := godotenv.Load(); err != nil {
				log.Println("No .env file found, using environment variables")
			}
			cfg, err := config.Load(opts.cfgFile)
			if err != nil {
				return err
			}
			opts.cfg = cfg

			// Plans printed to a terminal stay readable; pipes and cron keep the logs.
			if interactive() && !opts.verbose && cmd.Name() != "serve" {
				log.SetOutput(io.Discard)
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", os.Getenv("CONFIG_FILE"), "YAML tuning file")
	root.PersistentFlags().StringVar(&opts.userID, "user", "cli", "user id the command acts for")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "show logs in interactive terminals")

	root.AddCommand(
		newServeCmd(opts),
		newGenerateCmd(opts),
		newPlansCmd(opts),
		newAlternativesCmd(opts),
		newProfileCmd(opts),
		newTokenCmd(opts),
		newMetricsCmd(opts),
		newMetricsCleanupCmd(opts),
	)
	return root
}

func interactive() bool {
	return isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
}

// withApp builds the application for one command and closes it afterwards.
func withApp(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	a, err := app.NewApp(ctx, opts.cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
