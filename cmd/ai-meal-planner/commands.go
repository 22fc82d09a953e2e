package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"guarded-meal-planner/internal/api"
	"guarded-meal-planner/internal/api/middleware"
	"guarded-meal-planner/internal/app"
	"guarded-meal-planner/internal/database"
	"guarded-meal-planner/internal/logger"
	"guarded-meal-planner/internal/observability"
	"guarded-meal-planner/internal/planner"
	"guarded-meal-planner/internal/profile"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			flush := observability.InitSentry(opts.cfg, version)
			defer flush()

			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				srv := &http.Server{
					Addr:              ":" + opts.cfg.Port,
					Handler:           api.SetupRouter(opts.cfg, a.Planner(), version),
					ReadHeaderTimeout: 10 * time.Second,
				}

				errCh := make(chan error, 1)
				go func() {
					logger.Info("HTTP API listening", logger.Fields{"port": opts.cfg.Port, "version": version})
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						errCh <- err
					}
					close(errCh)
				}()

				select {
				case err := <-errCh:
					return err
				case <-ctx.Done():
				}

				logger.Info("Shutting down server", nil)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(shutdownCtx)
			})
		},
	}
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var week string
	cmd := &cobra.Command{
		Use:   "generate [notes...]",
		Short: "Generate the plan for a week (next week by default)",
		RunE: func(cmd *cobra.Command, args []string) error {
			weekStart, err := parseWeekFlag(week, planner.NextMonday(time.Now()))
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.GenerateMealPlan(ctx, cmd.OutOrStdout(), opts.userID, weekStart, strings.Join(args, " "))
			})
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "any date in the target week (YYYY-MM-DD)")
	return cmd
}

func newPlansCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List stored meal plans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.ShowMealPlans(ctx, cmd.OutOrStdout(), opts.userID)
			})
		},
	}
}

func newAlternativesCmd(opts *rootOptions) *cobra.Command {
	var week string
	cmd := &cobra.Command{
		Use:   "alternatives <day> <breakfast|lunch|dinner>",
		Short: "Suggest replacements for one meal of a stored plan",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, ok := planner.DayOfWeek(args[0])
			if !ok {
				return fmt.Errorf("unknown day %q", args[0])
			}
			mealType, err := planner.ParseMealType(args[1])
			if err != nil {
				return err
			}
			weekStart, err := parseWeekFlag(week, planner.WeekStart(time.Now()))
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.ShowAlternatives(ctx, cmd.OutOrStdout(), opts.userID, weekStart, day, mealType)
			})
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "any date in the plan's week (default: this week)")
	return cmd
}

func newProfileCmd(opts *rootOptions) *cobra.Command {
	var (
		diet      string
		allergies string
		calories  int
	)
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or update dietary preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if !flags.Changed("diet") && !flags.Changed("allergies") && !flags.Changed("calories") {
					return a.ShowProfile(ctx, out, opts.userID)
				}

				p, err := a.Planner().Profiles().Get(ctx, opts.userID)
				if err != nil {
					return err
				}
				if p == nil {
					p = &profile.Profile{UserID: opts.userID}
				}
				if flags.Changed("diet") {
					p.DietType = diet
				}
				if flags.Changed("allergies") {
					p.Allergies = profile.ParseAllergies(allergies)
				}
				if flags.Changed("calories") {
					if calories == 0 {
						p.CalorieGoal = nil
					} else {
						p.CalorieGoal = &calories
					}
				}
				return a.SaveProfile(ctx, out, p)
			})
		},
	}
	cmd.Flags().StringVar(&diet, "diet", "", "diet type, e.g. vegetarian")
	cmd.Flags().StringVar(&allergies, "allergies", "", "comma-separated allergies")
	cmd.Flags().IntVar(&calories, "calories", 0, "daily calorie goal (0 clears it)")
	return cmd
}

func newTokenCmd(opts *rootOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opts.cfg.RequireJWTSecret(); err != nil {
				return err
			}
			tok, err := middleware.IssueToken(opts.cfg.JWTSecret, opts.userID, ttl, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	return cmd
}

func newMetricsCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Report generation usage and outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.ReportMetrics(ctx, cmd.OutOrStdout(), days)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "report the last N days")
	return cmd
}

func newMetricsCleanupCmd(opts *rootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "metrics-cleanup",
		Short: "Remove old metric records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, opts, func(ctx context.Context, a *app.App) error {
				return a.CleanupMetrics(ctx, cmd.OutOrStdout(), days)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 30, "keep records for the last N days")
	return cmd
}

func parseWeekFlag(s string, fallback time.Time) (time.Time, error) {
	if s == "" {
		return fallback, nil
	}
	d, err := database.ParseDate(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("--week must be YYYY-MM-DD: %w", err)
	}
	return d, nil
}
