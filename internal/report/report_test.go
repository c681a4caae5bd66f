package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/goodtune/webtime/internal/storage"
)

func record(favicon string, daily map[string]int64) *storage.DomainRecord {
	rec := storage.NewDomainRecord(favicon)
	for date, ms := range daily {
		rec.Add(date, ms)
	}
	return rec
}

func testSnapshot() *storage.Snapshot {
	snap := storage.NewSnapshot("2023-12-20")
	snap.Domains["a.example"] = record("https://icons.test/a", map[string]int64{
		"2024-01-07": 60000,
		"2024-01-05": 30000,
		"2023-12-31": 99999,
	})
	snap.Domains["b.example"] = record("https://icons.test/b", map[string]int64{
		"2024-01-05": 30000,
	})
	snap.Domains["c.example"] = record("", map[string]int64{
		"2024-01-07": 500,
	})
	return snap
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "0s"},
		{999, "0s"},
		{1000, "1s"},
		{59999, "59s"},
		{60000, "1m 0s"},
		{3599999, "59m 59s"},
		{3600000, "1h 0m"},
		{5430000, "1h 30m"},
		{90061000, "25h 1m"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.ms); got != tt.want {
			t.Errorf("FormatDuration(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestFormatDate(t *testing.T) {
	if got := FormatDate("2023-05-15", false); got != "May 15, 2023" {
		t.Errorf("expected May 15, 2023, got %q", got)
	}
	if got := FormatDate("2023-05-15", true); got != "Mon 15" {
		t.Errorf("expected Mon 15, got %q", got)
	}
	if got := FormatDate("-", false); got != "-" {
		t.Errorf("expected non-dates unchanged, got %q", got)
	}
}

func TestToday(t *testing.T) {
	summary := Today(testSnapshot(), "2024-01-07")

	if summary.TotalTime != 60500 {
		t.Errorf("expected total 60500, got %d", summary.TotalTime)
	}
	if summary.SiteCount != 2 {
		t.Errorf("expected 2 sites, got %d", summary.SiteCount)
	}
	if summary.TopSite != "a.example" {
		t.Errorf("expected top site a.example, got %s", summary.TopSite)
	}
	if len(summary.Sites) != 2 || summary.Sites[0].Domain != "a.example" || summary.Sites[1].Domain != "c.example" {
		t.Fatalf("unexpected site order %+v", summary.Sites)
	}
	if summary.Sites[0].Favicon != "https://icons.test/a" {
		t.Errorf("expected favicon carried through, got %q", summary.Sites[0].Favicon)
	}
}

func TestTodayEmpty(t *testing.T) {
	summary := Today(testSnapshot(), "2024-02-01")

	if summary.TotalTime != 0 || summary.SiteCount != 0 {
		t.Errorf("expected empty summary, got %+v", summary)
	}
	if summary.TopSite != NoValue {
		t.Errorf("expected top site %q, got %q", NoValue, summary.TopSite)
	}
	if summary.Sites == nil {
		t.Error("expected empty, non-nil site list")
	}
}

func TestDaily(t *testing.T) {
	summary, err := Daily(testSnapshot(), "2024-01-07", 7)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}

	if len(summary.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(summary.Days))
	}
	if summary.Days[0].Date != "2024-01-01" || summary.Days[6].Date != "2024-01-07" {
		t.Errorf("unexpected day range %s..%s", summary.Days[0].Date, summary.Days[6].Date)
	}
	if summary.TotalTime != 120500 {
		t.Errorf("expected total 120500, got %d", summary.TotalTime)
	}
	if summary.ActiveDays != 2 {
		t.Errorf("expected 2 active days, got %d", summary.ActiveDays)
	}
	if summary.AverageTime != 60250 {
		t.Errorf("expected average 60250, got %d", summary.AverageTime)
	}
	if summary.AverageSites != 1.5 {
		t.Errorf("expected 1.5 sites per day, got %v", summary.AverageSites)
	}
	if summary.MostActiveDay != "2024-01-07" {
		t.Errorf("expected most active 2024-01-07, got %s", summary.MostActiveDay)
	}

	// Time before the window is excluded
	if len(summary.TopSites) != 3 || summary.TopSites[0].Domain != "a.example" || summary.TopSites[0].Time != 90000 {
		t.Fatalf("unexpected top sites %+v", summary.TopSites)
	}
}

func TestDailyEmpty(t *testing.T) {
	summary, err := Daily(storage.NewSnapshot("2024-01-01"), "2024-01-07", 0)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if len(summary.Days) != DefaultDays {
		t.Errorf("expected default window, got %d days", len(summary.Days))
	}
	if summary.AverageTime != 0 || summary.AverageSites != 0 {
		t.Errorf("expected zero averages, got %+v", summary)
	}
	if summary.MostActiveDay != NoValue {
		t.Errorf("expected %q, got %q", NoValue, summary.MostActiveDay)
	}
}

func TestDailyRejectsBadDate(t *testing.T) {
	if _, err := Daily(testSnapshot(), "yesterday", 7); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestAllTime(t *testing.T) {
	summary := AllTime(testSnapshot())

	if summary.TrackingSince != "2023-12-20" {
		t.Errorf("expected tracking since 2023-12-20, got %s", summary.TrackingSince)
	}
	if summary.SiteCount != 3 {
		t.Errorf("expected 3 sites, got %d", summary.SiteCount)
	}
	if summary.TotalTime != 220499 {
		t.Errorf("expected total 220499, got %d", summary.TotalTime)
	}
	if summary.Sites[0].Domain != "a.example" || summary.Sites[0].Time != 189999 {
		t.Errorf("unexpected first site %+v", summary.Sites[0])
	}
}

func TestTop(t *testing.T) {
	sites := []Site{
		{Domain: "a", Time: 50, Percent: 50},
		{Domain: "b", Time: 30, Percent: 30},
		{Domain: "c", Time: 15, Percent: 15},
		{Domain: "d", Time: 5, Percent: 5},
	}

	top := Top(sites, 2)
	if len(top) != 3 {
		t.Fatalf("expected 2 sites plus Other, got %+v", top)
	}
	if top[2].Domain != "Other" || top[2].Time != 20 || top[2].Percent != 20 {
		t.Errorf("unexpected Other entry %+v", top[2])
	}

	if got := Top(sites, 10); len(got) != 4 {
		t.Errorf("expected all sites when under the limit, got %d", len(got))
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, testSnapshot()); err != nil {
		t.Fatalf("write csv: %v", err)
	}

	want := strings.Join([]string{
		"Domain,Total Time (ms),Total Time (formatted)",
		"a.example,189999,3m 9s",
		"b.example,30000,30s",
		"c.example,500,0s",
		"",
	}, "\n")
	if got := buf.String(); got != want {
		t.Fatalf("unexpected csv:\n%s\nwant:\n%s", got, want)
	}
}

func TestWriteCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, storage.NewSnapshot("2024-01-01")); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if got := buf.String(); got != "Domain,Total Time (ms),Total Time (formatted)\n" {
		t.Fatalf("expected header only, got %q", got)
	}
}

func TestExportFilename(t *testing.T) {
	if got := ExportFilename("2024-01-07"); got != "website_time_data_2024-01-07.csv" {
		t.Errorf("unexpected filename %s", got)
	}
}
