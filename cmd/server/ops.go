package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abdulwedud33/intern-finder-v2-sub000/api"
	dbfs "github.com/abdulwedud33/intern-finder-v2-sub000/db"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/backup"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/jobs"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/repository/sqlite"
	"github.com/abdulwedud33/intern-finder-v2-sub000/internal/reviews"
	"github.com/abdulwedud33/intern-finder-v2-sub000/pkg/models"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load directory fixtures (actors, jobs, employments)",
	Long: `Loads a YAML fixture of directory data normally owned by the identity
provider, the job catalog and the employment service. Without --file the
embedded development fixture is used.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDB(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer d.Close()

		var fsys fs.FS = dbfs.SeedFiles
		name := "seed/dev.yaml"
		if seedFile != "" {
			fsys, name = os.DirFS(filepath.Dir(seedFile)), filepath.Base(seedFile)
		}
		f, err := sqlite.New(d, logger).LoadFixtureFile(cmd.Context(), fsys, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d actors, %d jobs, %d employments\n",
			len(f.Actors), len(f.Jobs), len(f.Employments))
		return nil
	},
}

var (
	tokenActorID int64
	tokenRole    string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a bearer token for local testing",
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl := tokenTTL
		if ttl <= 0 {
			ttl = cfg.TokenDuration
		}
		tok, err := api.IssueToken(cfg.JWTSecret, models.Actor{ID: tokenActorID, Role: models.Role(tokenRole)}, ttl)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	},
}

var backupCmd = &cobra.Command{
	Use:   "backup [output-file]",
	Short: "Write a zstd-compressed snapshot of the database",
	Long: `Writes a consistent snapshot of the database to a Zstandard-compressed file.
If no output file is given, internfinder-backup-YYYY-MM-DD.db.zst is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := fmt.Sprintf("internfinder-backup-%s.db.zst", time.Now().Format("2006-01-02"))
		if len(args) == 1 {
			out = args[0]
			if !strings.HasSuffix(out, ".zst") {
				out += ".zst"
			}
		}

		d, err := openDB(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := backup.SnapshotFile(cmd.Context(), d, out); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "backup written to %s\n", out)
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <backup-file>",
	Short: "Replace the database with a snapshot written by backup",
	Long: `Replaces the configured database file with the contents of a snapshot.
Stop the server first; the database must not be open while restoring.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := backup.RestoreFile(args[0], cfg.DatabasePath); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "database %s restored from %s\n", cfg.DatabasePath, args[0])
		return nil
	},
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Operator actions on reviews",
}

var moderateCmd = &cobra.Command{
	Use:   "moderate <review-id> <pending|approved|rejected>",
	Short: "Set a review's moderation status and recompute the target's rating",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid review id %q", args[0])
		}

		d, err := openDB(cmd.Context(), false)
		if err != nil {
			return err
		}
		defer d.Close()

		// a failed recompute is queued for the server's task pool
		svc := reviews.New(sqlite.New(d, logger), cfg.Reviews, logger).
			WithRepair(jobs.NewWorkerPool(jobs.NewRepository(d), logger, 1))
		rv, err := svc.Moderate(cmd.Context(), id, models.ReviewStatus(args[1]))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "review %d is now %s\n", rv.ID, rv.Status)
		return nil
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "fixture YAML file (defaults to the embedded development fixture)")

	tokenCmd.Flags().Int64Var(&tokenActorID, "actor-id", 0, "actor id to embed in the token")
	tokenCmd.Flags().StringVar(&tokenRole, "role", "", "actor role: intern or company")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token lifetime (defaults to token_duration from config)")
	_ = tokenCmd.MarkFlagRequired("actor-id")
	_ = tokenCmd.MarkFlagRequired("role")

	reviewCmd.AddCommand(moderateCmd)
}
