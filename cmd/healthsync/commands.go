package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ehr/healthsync/internal/config"
	"github.com/ehr/healthsync/internal/fhirsync"
	"github.com/ehr/healthsync/internal/platform/db"
)

var errHardFailure = errors.New("sync finished with a hard failure")

// withApp loads config, wires the app and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func patientFlag(cmd *cobra.Command, a *app) (string, error) {
	id, _ := cmd.Flags().GetString("patient")
	if id == "" {
		id = a.cfg.PatientFHIRID
	}
	if id == "" {
		return "", fmt.Errorf("--patient or PATIENT_FHIR_ID is required")
	}
	return id, nil
}

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass for a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			force, _ := cmd.Flags().GetBool("force")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				fhirID, err := patientFlag(cmd, a)
				if err != nil {
					return err
				}
				if !force && a.cfg.SyncInterval() > 0 {
					due, err := a.scheduler.ShouldSync(ctx, fhirID)
					if err != nil {
						return err
					}
					if !due {
						fmt.Fprintf(cmd.OutOrStdout(), "Patient %s synced within the last %s; use --force to sync now.\n", fhirID, a.cfg.SyncInterval())
						return nil
					}
				}

				p, err := a.resolvePatient(ctx, "", fhirID)
				if err != nil {
					return err
				}
				rep, err := a.scheduler.SyncNow(ctx, p)
				if rep != nil {
					printReport(cmd.OutOrStdout(), rep)
				}
				if err != nil {
					return err
				}
				if rep.HardFailure {
					return errHardFailure
				}
				return nil
			})
		},
	}
	cmd.Flags().String("patient", "", "Remote FHIR patient id (defaults to PATIENT_FHIR_ID)")
	cmd.Flags().Bool("force", false, "Ignore the sync cooldown")
	return cmd
}

func bootstrapCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bootstrap",
		Short: "Create the local patient for a user from the remote FHIR server",
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, _ := cmd.Flags().GetString("user")
			if userID == "" {
				return fmt.Errorf("--user is required")
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				fhirID, err := patientFlag(cmd, a)
				if err != nil {
					return err
				}
				p, err := fhirsync.Bootstrap(ctx, a.fetcher, a.patients, userID, fhirID)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Patient %s linked to user %s (id %s).\n", p.RemoteID(), p.UserID, p.ID)
				return nil
			})
		},
	}
	cmd.Flags().String("user", "", "Local user id")
	cmd.Flags().String("patient", "", "Remote FHIR patient id (defaults to PATIENT_FHIR_ID)")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the last sync outcome for a patient",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				fhirID, err := patientFlag(cmd, a)
				if err != nil {
					return err
				}
				st, err := a.scheduler.Status(ctx, fhirID)
				if errors.Is(err, fhirsync.ErrStatusNotFound) {
					fmt.Fprintf(cmd.OutOrStdout(), "Patient %s has never been synced.\n", fhirID)
					return nil
				}
				if err != nil {
					return err
				}
				printStatus(cmd.OutOrStdout(), st)
				return nil
			})
		},
	}
	cmd.Flags().String("patient", "", "Remote FHIR patient id (defaults to PATIENT_FHIR_ID)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	withMigrator := func(cmd *cobra.Command, fn func(ctx context.Context, m *db.Migrator) error) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		dir, _ := cmd.Flags().GetString("dir")
		if dir == "" {
			dir = cfg.MigrationsDir
		}

		ctx := context.Background()
		pool, err := db.NewPool(ctx, db.PoolConfig{URL: cfg.DatabaseURL, MaxConns: cfg.DBMaxConns, MinConns: cfg.DBMinConns})
		if err != nil {
			return err
		}
		defer pool.Close()
		return fn(ctx, newMigrator(pool, dir))
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				applied, err := m.Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				for _, name := range applied {
					fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", len(applied))
				return nil
			})
		},
	}
	upCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(cmd, func(ctx context.Context, m *db.Migrator) error {
				statuses, err := m.Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
				printMigrations(cmd.OutOrStdout(), statuses)
				return nil
			})
		},
	}
	statusCmd.Flags().String("dir", "", "Path to migrations directory (defaults to MIGRATIONS_DIR)")
	cmd.AddCommand(statusCmd)

	return cmd
}

func newMigrator(pool *pgxpool.Pool, dir string) *db.Migrator {
	return db.NewMigrator(pool, os.DirFS(dir))
}

func printReport(w io.Writer, rep *fhirsync.Report) {
	fmt.Fprintf(w, "Patient %s: %s", rep.PatientFHIRID, rep.PatientAction)
	if rep.PatientDeleted {
		fmt.Fprint(w, " (deleted locally)")
	}
	fmt.Fprintf(w, " in %s\n", rep.FinishedAt.Sub(rep.StartedAt).Round(time.Millisecond))

	if len(rep.Types) == 0 {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RESOURCE\tFETCHED\tCREATED\tUPDATED\tDELETED\tSKIPPED\tRESULT")
	for _, t := range rep.Types {
		result := "ok"
		switch {
		case t.Hard:
			result = "HARD FAILURE: " + t.Error
		case t.Failed:
			result = "failed: " + t.Error
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t%d\t%s\n", t.Resource, t.Fetched, t.Created, t.Updated, t.Deleted, t.Skipped, result)
	}
	tw.Flush()
}

func printStatus(w io.Writer, st *fhirsync.SyncStatus) {
	last := "never"
	if st.LastSyncedAt != nil {
		last = st.LastSyncedAt.Format("2006-01-02 15:04:05 MST")
	}
	outcome := "ok"
	if !st.Status {
		outcome = "failed"
	}
	fmt.Fprintf(w, "Patient %s: last synced %s, %s\n", st.PatientFHIRID, last, outcome)
}

func printMigrations(w io.Writer, statuses []db.MigrationStatus) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tNAME\tSTATUS\tAPPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Version, s.Name, status, appliedAt)
	}
	tw.Flush()
}
