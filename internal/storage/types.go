package storage

import (
	"encoding/json"
	"fmt"
	"sort"
)

// DateLayout is the ISO calendar date format used for daily keys.
const DateLayout = "2006-01-02"

// DomainRecord holds the accumulated time for one domain. Times are in
// milliseconds.
type DomainRecord struct {
	TotalTime int64            `json:"totalTime"`
	DailyTime map[string]int64 `json:"dailyTime"`
	Favicon   string           `json:"favicon"`
}

// NewDomainRecord creates an empty record with the given favicon.
func NewDomainRecord(favicon string) *DomainRecord {
	return &DomainRecord{
		DailyTime: make(map[string]int64),
		Favicon:   favicon,
	}
}

// Add attributes ms to the record on the given date. Total and daily time
// always move together.
func (r *DomainRecord) Add(date string, ms int64) {
	if r.DailyTime == nil {
		r.DailyTime = make(map[string]int64)
	}
	r.DailyTime[date] += ms
	r.TotalTime += ms
}

// DailySum returns the sum of all daily entries.
func (r *DomainRecord) DailySum() int64 {
	var sum int64
	for _, ms := range r.DailyTime {
		sum += ms
	}
	return sum
}

// Consistent reports whether the total equals the sum of the daily entries.
func (r *DomainRecord) Consistent() bool {
	return r.TotalTime == r.DailySum()
}

// Dates returns the record's dates in ascending order.
func (r *DomainRecord) Dates() []string {
	dates := make([]string, 0, len(r.DailyTime))
	for date := range r.DailyTime {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates
}

// Snapshot is the whole aggregate, stored as one blob.
type Snapshot struct {
	Domains   map[string]*DomainRecord `json:"domains"`
	StartDate string                   `json:"startDate"`
}

// NewSnapshot returns an empty snapshot that started on the given date.
func NewSnapshot(startDate string) *Snapshot {
	return &Snapshot{
		Domains:   make(map[string]*DomainRecord),
		StartDate: startDate,
	}
}

// Record returns the record for domain, creating it with favicon when absent.
// The favicon of an existing record is never replaced.
func (s *Snapshot) Record(domain, favicon string) *DomainRecord {
	if s.Domains == nil {
		s.Domains = make(map[string]*DomainRecord)
	}
	rec, ok := s.Domains[domain]
	if !ok {
		rec = NewDomainRecord(favicon)
		s.Domains[domain] = rec
	}
	return rec
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	out := NewSnapshot(s.StartDate)
	for domain, rec := range s.Domains {
		cp := NewDomainRecord(rec.Favicon)
		cp.TotalTime = rec.TotalTime
		for date, ms := range rec.DailyTime {
			cp.DailyTime[date] = ms
		}
		out.Domains[domain] = cp
	}
	return out
}

// Encode serializes the snapshot for a blob store.
func Encode(snap *Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a serialized snapshot.
func Decode(data []byte) (*Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if snap.Domains == nil {
		snap.Domains = make(map[string]*DomainRecord)
	}
	for domain, rec := range snap.Domains {
		if rec == nil {
			delete(snap.Domains, domain)
			continue
		}
		if rec.DailyTime == nil {
			rec.DailyTime = make(map[string]int64)
		}
	}
	return &snap, nil
}
