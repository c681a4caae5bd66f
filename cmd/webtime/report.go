package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/goodtune/webtime/internal/report"
	"github.com/spf13/cobra"
)

var (
	reportDays int
	reportTop  int
	reportJSON bool
)

var reportCmd = &cobra.Command{
	Use:   "report [today|daily|alltime]",
	Short: "Show time spent per website",
	Long:  `Show a summary of tracked browsing time for today, the last few days, or all time.`,
	Example: `  webtime report
  webtime report daily --days 14
  webtime report alltime --server http://127.0.0.1:8765`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"today", "daily", "alltime"},
	RunE:      runReport,
}

func init() {
	reportCmd.Flags().IntVar(&reportDays, "days", report.DefaultDays, "Number of days in the daily view")
	reportCmd.Flags().IntVar(&reportTop, "top", 10, "Number of sites to list")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "Print the summary as JSON")
	addServerFlag(reportCmd)
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	view := "today"
	if len(args) > 0 {
		view = args[0]
	}
	if reportTop <= 0 {
		return fmt.Errorf("--top must be positive")
	}

	source, err := openDataSource()
	if err != nil {
		return err
	}
	defer source.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	snap, err := source.Data(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tracking data: %w", err)
	}
	today := source.Today()
	out := cmd.OutOrStdout()

	switch view {
	case "today":
		summary := report.Today(snap, today)
		if reportJSON {
			return writeJSON(out, summary)
		}
		printToday(out, summary, reportTop)
	case "daily":
		summary, err := report.Daily(snap, today, reportDays)
		if err != nil {
			return err
		}
		if reportJSON {
			return writeJSON(out, summary)
		}
		printDaily(out, summary, reportTop)
	case "alltime":
		summary := report.AllTime(snap)
		if reportJSON {
			return writeJSON(out, summary)
		}
		printAllTime(out, summary, reportTop)
	default:
		return fmt.Errorf("unknown report view: %s (must be today, daily, or alltime)", view)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	headingColor = color.New(color.FgCyan, color.Bold)
	labelColor   = color.New(color.Bold)
	valueColor   = color.New(color.FgGreen)
	dimColor     = color.New(color.FgHiBlack)
)

func printStat(w io.Writer, label, value string) {
	_, _ = labelColor.Fprintf(w, "  %-18s", label)
	_, _ = valueColor.Fprintln(w, value)
}

func printSites(w io.Writer, sites []report.Site, top int) {
	if len(sites) == 0 {
		_, _ = dimColor.Fprintln(w, "  No data yet. Start browsing to track website usage.")
		return
	}
	width := 0
	for _, site := range sites {
		if len(site.Domain) > width {
			width = len(site.Domain)
		}
	}
	for _, site := range report.Top(sites, top) {
		bar := strings.Repeat("█", int(site.Percent/5+0.5))
		fmt.Fprintf(w, "  %-*s %9s %5.1f%% ", width, site.Domain, report.FormatDuration(site.Time), site.Percent)
		_, _ = valueColor.Fprintln(w, bar)
	}
}

func printToday(w io.Writer, s report.TodaySummary, top int) {
	_, _ = headingColor.Fprintf(w, "Today (%s)\n", report.FormatDate(s.Date, false))
	printStat(w, "Total time", report.FormatDuration(s.TotalTime))
	printStat(w, "Sites visited", fmt.Sprintf("%d", s.SiteCount))
	printStat(w, "Top site", s.TopSite)
	fmt.Fprintln(w)
	printSites(w, s.Sites, top)
}

func printDaily(w io.Writer, s report.DailySummary, top int) {
	_, _ = headingColor.Fprintf(w, "Last %d days\n", len(s.Days))
	printStat(w, "Daily average", report.FormatDuration(s.AverageTime))
	printStat(w, "Sites per day", fmt.Sprintf("%.1f", s.AverageSites))
	printStat(w, "Most active day", report.FormatDate(s.MostActiveDay, false))
	fmt.Fprintln(w)
	for _, day := range s.Days {
		fmt.Fprintf(w, "  %-8s %9s\n", report.FormatDate(day.Date, true), report.FormatDuration(day.Time))
	}
	fmt.Fprintln(w)
	_, _ = headingColor.Fprintln(w, "Top sites")
	printSites(w, s.TopSites, top)
}

func printAllTime(w io.Writer, s report.AllTimeSummary, top int) {
	_, _ = headingColor.Fprintln(w, "All time")
	printStat(w, "Total time", report.FormatDuration(s.TotalTime))
	printStat(w, "Sites visited", fmt.Sprintf("%d", s.SiteCount))
	printStat(w, "Tracking since", report.FormatDate(s.TrackingSince, false))
	fmt.Fprintln(w)
	printSites(w, s.Sites, top)
}
