package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/webtime/internal/config"
	"github.com/goodtune/webtime/internal/report"
	"github.com/goodtune/webtime/internal/storage"
	"github.com/goodtune/webtime/internal/tracking"
	"github.com/spf13/cobra"
)

var checkOffline bool

var checkCmd = &cobra.Command{
	Use:   "check [flags] URL...",
	Short: "Check how URLs are attributed",
	Long: `Check which domain webtime would attribute time to for each URL, the
favicon it would record, and the time already stored for that domain.`,
	Example: `  webtime check https://www.example.com/path
  webtime check --offline chrome://settings http://news.example.org/
  webtime check --server http://127.0.0.1:8765 https://github.com`,
	Args: cobra.MinimumNArgs(1),
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().BoolVar(&checkOffline, "offline", false, "Do not look up stored time for the domain")
	addServerFlag(checkCmd)
	rootCmd.AddCommand(checkCmd)
}

// urlCheck is the attribution outcome for one URL.
type urlCheck struct {
	URL       string
	Domain    string
	Trackable bool
	Reason    string
	Favicon   string
	Record    *storage.DomainRecord
	Today     string
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	favicons, err := tracking.NewServiceFavicons(cfg.Favicon.URLTemplate, cfg.Favicon.CacheSize)
	if err != nil {
		return fmt.Errorf("failed to initialize favicon resolver: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var snap *storage.Snapshot
	today := ""
	if !checkOffline {
		source, err := openDataSource()
		if err != nil {
			return err
		}
		defer source.Close()

		snap, err = source.Data(ctx)
		if err != nil {
			return fmt.Errorf("failed to load tracking data: %w", err)
		}
		today = source.Today()
	}

	for _, rawURL := range args {
		printCheckResult(cmd.OutOrStdout(), checkURL(ctx, rawURL, favicons, snap, today))
	}
	return nil
}

// checkURL resolves a URL the same way the tracker does when a tab becomes
// active. snap may be nil.
func checkURL(ctx context.Context, rawURL string, favicons tracking.FaviconResolver, snap *storage.Snapshot, today string) urlCheck {
	result := urlCheck{URL: rawURL, Today: today}

	domain, err := tracking.NormalizeDomain(rawURL)
	if err != nil {
		result.Reason = err.Error()
		if !errors.Is(err, tracking.ErrUntrackable) {
			result.Reason = "unexpected error: " + result.Reason
		}
		return result
	}
	result.Domain = domain
	result.Trackable = true

	if favicon, err := favicons.Resolve(ctx, domain); err == nil {
		result.Favicon = favicon
	}

	if snap != nil {
		if record, ok := snap.Domains[domain]; ok {
			result.Record = record
		}
	}
	return result
}

// printCheckResult prints the check result with colors
func printCheckResult(w io.Writer, c urlCheck) {
	cyan := color.New(color.FgCyan, color.Bold)
	green := color.New(color.FgGreen, color.Bold)
	yellow := color.New(color.FgYellow, color.Bold)

	fmt.Fprintln(w)
	_, _ = cyan.Fprintln(w, "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Fprintf(w, "URL:        %s\n", c.URL)

	_, _ = cyan.Fprint(w, "Decision:   ")
	if !c.Trackable {
		_, _ = yellow.Fprintln(w, "IGNORE")
		fmt.Fprintf(w, "            → %s\n", c.Reason)
		fmt.Fprintln(w, "            → Tracker goes idle while this page is active")
		return
	}

	_, _ = green.Fprintln(w, "TRACK")
	fmt.Fprintf(w, "Domain:     %s\n", c.Domain)
	if c.Favicon != "" {
		fmt.Fprintf(w, "Favicon:    %s\n", c.Favicon)
	}

	switch {
	case c.Today == "":
	case c.Record == nil:
		fmt.Fprintln(w, "Recorded:   (no time recorded yet)")
	default:
		fmt.Fprintf(w, "Recorded:   %s total, %s today\n",
			report.FormatDuration(c.Record.TotalTime),
			report.FormatDuration(c.Record.DailyTime[c.Today]))
	}
}
