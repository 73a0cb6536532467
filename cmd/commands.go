package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"jobmate/hh-collector/internal/config"
	"jobmate/hh-collector/internal/db"
	"jobmate/hh-collector/internal/logging"
	"jobmate/hh-collector/internal/menu"
	"jobmate/hh-collector/internal/model"
	"jobmate/hh-collector/internal/notify"
	"jobmate/hh-collector/internal/scheduler"
	"jobmate/hh-collector/internal/scraper"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "hh-collector",
		Short:         "Collect hh.ru vacancies of selected employers into PostgreSQL",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				if err := ingest(ctx, a); err != nil {
					return err
				}
				return menu.New(a.store, os.Stdin, os.Stdout).Run(ctx)
			})
		},
	}
	root.PersistentFlags().Bool("debug", false, "enable debug logging")

	root.AddCommand(
		&cobra.Command{
			Use:   "ingest",
			Short: "Fetch vacancies for every configured employer and store them",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, ingest)
			},
		},
		&cobra.Command{
			Use:   "menu",
			Short: "Open the interactive menu over stored vacancies",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, func(ctx context.Context, a *app) error {
					return menu.New(a.store, os.Stdin, os.Stdout).Run(ctx)
				})
			},
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Sync now and then every HH_REFRESH_INTERVAL_HOURS until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return withApp(cmd, runScheduler)
			},
		},
		newEmployerCmd(),
		newStatusCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version number",
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "hh-collector version %s\n", version)
			},
		},
	)

	return root
}

func ingest(ctx context.Context, a *app) error {
	summary, err := a.worker.Run(ctx, a.cfg.Employers)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}

	fmt.Printf("Data loaded: %d new, %d already stored, %d filtered",
		summary.Inserted, summary.Duplicates, summary.Filtered)
	if n := len(summary.FailedEmployers); n > 0 {
		fmt.Printf(", %d employer(s) could not be fetched", n)
	}
	fmt.Println(".")
	return nil
}

func runScheduler(ctx context.Context, a *app) error {
	s := scheduler.New(a.worker, a.cfg.Employers, a.cfg.RefreshHours, a.log)
	if err := s.Start(ctx); err != nil {
		return err
	}

	<-ctx.Done()
	a.log.Info("Shutting down…")
	s.Stop()
	return nil
}

func newEmployerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "employer ID",
		Short: "Show hh.ru metadata for an employer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hh, err := config.LoadHH()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			debug, _ := cmd.Flags().GetBool("debug")
			level := "warn"
			if debug {
				level = "debug"
			}

			f := scraper.NewHHFetcher(hh.BaseURL, logging.New(level),
				scraper.WithTimeout(hh.Timeout),
				scraper.WithUserAgent(hh.UserAgent),
			)
			info, err := f.FetchEmployer(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			renderEmployer(cmd, info)
			return nil
		},
	}
}

func renderEmployer(cmd *cobra.Command, info *model.EmployerInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"ID", info.ID},
		{"Name", info.Name},
		{"Site", info.SiteURL},
		{"hh.ru page", info.AlternateURL},
		{"Open vacancies", info.OpenVacancies},
	})
	t.Render()
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the summary of the last sync recorded in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			redisURL, err := config.LoadRedisURL()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			rdb, err := db.NewRedisClient(cmd.Context(), redisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			summary, err := notify.NewRedisNotifier(rdb).LastSync(cmd.Context())
			if err != nil {
				return err
			}
			if summary == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "No sync recorded yet.")
				return nil
			}
			renderSummary(cmd, summary)
			return nil
		},
	}
}

func renderSummary(cmd *cobra.Command, s *model.SyncSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendRows([]table.Row{
		{"Started", s.StartedAt},
		{"Finished", s.FinishedAt},
		{"Employers", s.Employers},
		{"Fetched", s.Fetched},
		{"Inserted", s.Inserted},
		{"Duplicates", s.Duplicates},
		{"Filtered", s.Filtered},
		{"Errors", s.Errors},
		{"Failed employers", strings.Join(s.FailedEmployers, ", ")},
	})
	t.Render()
}
