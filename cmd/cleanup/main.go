// Command cleanup deletes downloaded files older than the retention period.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"text/tabwriter"
	"time"

	"downloader/internal/config"
	"downloader/internal/core/retention"
	"downloader/internal/platform/storage"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

const previewRows = 10

type options struct {
	force  bool
	dryRun bool
	hours  int
	dir    string
}

// env bundles what a run needs so tests can substitute a temp store.
type env struct {
	cfg   config.Config
	store storage.BlobStore
}

var loadEnv = func() (env, error) {
	cfg, err := config.Load()
	if err != nil {
		return env{}, err
	}
	store, err := storage.Open(storage.OpenOptions{
		Backend:   cfg.StorageBackend,
		LocalDir:  cfg.DataDir,
		URLPrefix: "/files",
		Supabase: storage.SupabaseConfig{
			URL:        cfg.SupabaseURL,
			ServiceKey: cfg.SupabaseServiceKey,
			Bucket:     cfg.SupabaseBucket,
		},
	})
	if err != nil {
		return env{}, fmt.Errorf("open storage: %w", err)
	}
	return env{cfg: cfg, store: store}, nil
}

var (
	infoColor    = color.New(color.FgCyan)
	successColor = color.New(color.FgHiGreen)
	warnColor    = color.New(color.FgHiYellow)
	errorColor   = color.New(color.FgRed)
)

func newRootCmd() *cobra.Command {
	var o options
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Clean up old downloaded files to free up storage space",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := loadEnv()
			if err != nil {
				return err
			}
			return run(cmd, e, o)
		},
		SilenceUsage: true,
	}
	cmd.Flags().BoolVar(&o.force, "force", false, "Force cleanup without confirmation")
	cmd.Flags().BoolVar(&o.dryRun, "dry-run", false, "Show what would be deleted without actually deleting")
	cmd.Flags().IntVar(&o.hours, "hours", 0, "Custom hours to keep files (default from config)")
	cmd.Flags().StringVar(&o.dir, "dir", "", "Directory to sweep (default from config)")
	return cmd
}

func run(cmd *cobra.Command, e env, o options) error {
	out := cmd.OutOrStdout()
	hours := e.cfg.CleanupHours
	if o.hours > 0 {
		hours = o.hours
	}
	dir := e.cfg.DownloadDir
	if o.dir != "" {
		dir = o.dir
	}
	maxAge := time.Duration(hours) * time.Hour

	infoColor.Fprintln(out, "Starting download cleanup...")

	req := retention.Request{Directory: dir, MaxAge: maxAge, Mode: retention.ModeDryRun}
	if !o.dryRun {
		in := bufio.NewReader(cmd.InOrStdin())
		req.Mode = retention.ModeInteractive
		req.Confirm = func(c []retention.Candidate) bool {
			printSummary(out, c, maxAge)
			return o.force || confirm(out, in, "Do you want to proceed with the cleanup?")
		}
	}

	report, err := retention.NewSweeper(e.store).Sweep(cmd.Context(), req)
	if err != nil {
		return err
	}
	switch {
	case report.MissingDirectory:
		warnColor.Fprintf(out, "Downloads directory does not exist: %s\n", dir)
		return nil
	case report.Eligible == 0:
		successColor.Fprintln(out, "No files need cleanup. All files are within the retention period.")
		return nil
	case o.dryRun:
		printSummary(out, report.Candidates, maxAge)
		warnColor.Fprintln(out, "DRY RUN: No files were actually deleted.")
		return nil
	case report.Cancelled:
		fmt.Fprintln(out, "Cleanup cancelled.")
		return nil
	}

	fmt.Fprintln(out)
	if report.Deleted > 0 {
		successColor.Fprintf(out, "Successfully deleted %d files\n", report.Deleted)
		successColor.Fprintf(out, "Freed up %s of storage space\n", humanize.IBytes(uint64(report.FreedBytes)))
	}
	if len(report.Errors) > 0 {
		warnColor.Fprintln(out, "Some errors occurred:")
		for _, msg := range report.Errors {
			errorColor.Fprintln(out, msg)
		}
	}
	return nil
}

func printSummary(out io.Writer, candidates []retention.Candidate, maxAge time.Duration) {
	fmt.Fprintln(out)
	infoColor.Fprintln(out, "Cleanup Summary:")

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "File\tSize\tAge (hours)")
	for i, c := range candidates {
		if i >= previewRows {
			break
		}
		fmt.Fprintf(tw, "%s\t%s\t%.1f\n", path.Base(c.Path), humanize.IBytes(uint64(c.Size)), float64(c.AgeSeconds)/3600)
	}
	_ = tw.Flush()
	if len(candidates) > previewRows {
		fmt.Fprintf(out, "... and %d more files\n", len(candidates)-previewRows)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Files to delete: %d\n", len(candidates))
	fmt.Fprintf(out, "Total space to free: %s\n", humanize.IBytes(uint64(retention.TotalSize(candidates))))
	fmt.Fprintf(out, "Max age: %.1f hours\n", maxAge.Hours())
}

func confirm(out io.Writer, in *bufio.Reader, question string) bool {
	fmt.Fprintf(out, "%s (yes/no) [no]: ", question)
	answer, _ := in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		errorColor.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
