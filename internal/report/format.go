package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/goodtune/webtime/internal/storage"
)

// CSVHeader is the first row of an export.
var CSVHeader = []string{"Domain", "Total Time (ms)", "Total Time (formatted)"}

// FormatDuration renders milliseconds at the two most significant units.
// Anything under a second is "0s".
func FormatDuration(ms int64) string {
	if ms < 1000 {
		return "0s"
	}
	seconds := ms / 1000
	minutes := seconds / 60
	hours := minutes / 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes%60)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds%60)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}

// FormatDate renders an ISO date as "Jan 2, 2006", or "Mon 2" when short.
// Values that are not ISO dates are returned unchanged.
func FormatDate(date string, short bool) string {
	t, err := time.Parse(storage.DateLayout, date)
	if err != nil {
		return date
	}
	if short {
		return t.Format("Mon 2")
	}
	return t.Format("Jan 2, 2006")
}

// ExportFilename names the CSV export for the given date.
func ExportFilename(today string) string {
	return fmt.Sprintf("website_time_data_%s.csv", today)
}

// WriteCSV writes one row per domain, sorted by total time descending.
func WriteCSV(w io.Writer, snap *storage.Snapshot) error {
	domains := make([]string, 0, len(snap.Domains))
	for domain := range snap.Domains {
		domains = append(domains, domain)
	}
	sort.Slice(domains, func(i, j int) bool {
		a, b := snap.Domains[domains[i]].TotalTime, snap.Domains[domains[j]].TotalTime
		if a != b {
			return a > b
		}
		return domains[i] < domains[j]
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, domain := range domains {
		total := snap.Domains[domain].TotalTime
		row := []string{domain, strconv.FormatInt(total, 10), FormatDuration(total)}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write csv row for %s: %w", domain, err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
