// Package report derives the summaries shown to the user from a snapshot:
// today's usage, the last week, all time, and the CSV export.
package report

import (
	"fmt"
	"sort"
	"time"

	"github.com/goodtune/webtime/internal/storage"
)

// DefaultDays is the window of the daily view.
const DefaultDays = 7

// NoValue is shown where a summary has nothing to report.
const NoValue = "-"

// Site is one domain's share of a period.
type Site struct {
	Domain  string  `json:"domain"`
	Time    int64   `json:"time"`
	Favicon string  `json:"favicon"`
	Percent float64 `json:"percent"`
}

// TodaySummary covers the current calendar date.
type TodaySummary struct {
	Date      string `json:"date"`
	TotalTime int64  `json:"totalTime"`
	SiteCount int    `json:"siteCount"`
	TopSite   string `json:"topSite"`
	Sites     []Site `json:"sites"`
}

// DayTotal is the time tracked on one date.
type DayTotal struct {
	Date string `json:"date"`
	Time int64  `json:"time"`
}

// DailySummary covers the last N dates including today.
type DailySummary struct {
	Days          []DayTotal `json:"days"`
	TotalTime     int64      `json:"totalTime"`
	ActiveDays    int        `json:"activeDays"`
	AverageTime   int64      `json:"averageTime"`
	AverageSites  float64    `json:"averageSites"`
	MostActiveDay string     `json:"mostActiveDay"`
	TopSites      []Site     `json:"topSites"`
}

// AllTimeSummary covers everything since the start date.
type AllTimeSummary struct {
	TrackingSince string `json:"trackingSince"`
	TotalTime     int64  `json:"totalTime"`
	SiteCount     int    `json:"siteCount"`
	Sites         []Site `json:"sites"`
}

// Today summarizes the given date.
func Today(snap *storage.Snapshot, today string) TodaySummary {
	summary := TodaySummary{Date: today, TopSite: NoValue}

	var top int64
	for domain, rec := range snap.Domains {
		ms := rec.DailyTime[today]
		if ms <= 0 {
			continue
		}
		summary.SiteCount++
		summary.TotalTime += ms
		summary.Sites = append(summary.Sites, Site{Domain: domain, Time: ms, Favicon: rec.Favicon})
		if ms > top || (ms == top && domain < summary.TopSite) {
			top = ms
			summary.TopSite = domain
		}
	}

	summary.Sites = rank(summary.Sites, summary.TotalTime)
	return summary
}

// Daily summarizes the n dates ending on today. Averages are taken over the
// days that have any time, and never divide by less than one.
func Daily(snap *storage.Snapshot, today string, n int) (DailySummary, error) {
	if n <= 0 {
		n = DefaultDays
	}
	dates, err := LastNDays(today, n)
	if err != nil {
		return DailySummary{}, err
	}

	totals := make(map[string]int64, n)
	perSite := make(map[string]*Site)
	for domain, rec := range snap.Domains {
		for _, date := range dates {
			ms := rec.DailyTime[date]
			if ms <= 0 {
				continue
			}
			totals[date] += ms
			site, ok := perSite[domain]
			if !ok {
				site = &Site{Domain: domain, Favicon: rec.Favicon}
				perSite[domain] = site
			}
			site.Time += ms
		}
	}

	summary := DailySummary{MostActiveDay: NoValue}

	// dates runs newest first; ties go to the most recent day
	var best int64
	for _, date := range dates {
		ms := totals[date]
		summary.TotalTime += ms
		if ms > 0 {
			summary.ActiveDays++
		}
		if ms > best {
			best = ms
			summary.MostActiveDay = date
		}
	}
	for i := len(dates) - 1; i >= 0; i-- {
		summary.Days = append(summary.Days, DayTotal{Date: dates[i], Time: totals[dates[i]]})
	}

	divisor := summary.ActiveDays
	if divisor == 0 {
		divisor = 1
	}
	summary.AverageTime = summary.TotalTime / int64(divisor)
	summary.AverageSites = float64(len(perSite)) / float64(divisor)

	sites := make([]Site, 0, len(perSite))
	for _, site := range perSite {
		sites = append(sites, *site)
	}
	summary.TopSites = rank(sites, summary.TotalTime)

	return summary, nil
}

// AllTime summarizes every record in the snapshot.
func AllTime(snap *storage.Snapshot) AllTimeSummary {
	summary := AllTimeSummary{
		TrackingSince: snap.StartDate,
		SiteCount:     len(snap.Domains),
	}
	sites := make([]Site, 0, len(snap.Domains))
	for domain, rec := range snap.Domains {
		summary.TotalTime += rec.TotalTime
		sites = append(sites, Site{Domain: domain, Time: rec.TotalTime, Favicon: rec.Favicon})
	}
	summary.Sites = rank(sites, summary.TotalTime)
	return summary
}

// LastNDays returns n ISO dates ending on today, newest first.
func LastNDays(today string, n int) ([]string, error) {
	day, err := time.Parse(storage.DateLayout, today)
	if err != nil {
		return nil, fmt.Errorf("parse date %q: %w", today, err)
	}
	dates := make([]string, n)
	for i := range dates {
		dates[i] = day.AddDate(0, 0, -i).Format(storage.DateLayout)
	}
	return dates, nil
}

// Top returns the first n sites, folding the rest into a single "Other"
// entry when any remain.
func Top(sites []Site, n int) []Site {
	if len(sites) <= n {
		return sites
	}
	out := make([]Site, n, n+1)
	copy(out, sites[:n])

	other := Site{Domain: "Other"}
	for _, site := range sites[n:] {
		other.Time += site.Time
		other.Percent += site.Percent
	}
	if other.Time > 0 {
		out = append(out, other)
	}
	return out
}

// rank sorts sites by time descending, then by domain, and fills in each
// site's share of total.
func rank(sites []Site, total int64) []Site {
	sort.Slice(sites, func(i, j int) bool {
		if sites[i].Time != sites[j].Time {
			return sites[i].Time > sites[j].Time
		}
		return sites[i].Domain < sites[j].Domain
	})
	if total > 0 {
		for i := range sites {
			sites[i].Percent = float64(sites[i].Time) / float64(total) * 100
		}
	}
	if sites == nil {
		sites = []Site{}
	}
	return sites
}
