package storage

import "testing"

func TestDomainRecordTotalsFollowDailyTime(t *testing.T) {
	rec := NewDomainRecord("")
	rec.Add("2024-01-01", 60000)
	rec.Add("2024-01-02", 30000)

	if rec.TotalTime != 90000 {
		t.Fatalf("expected total 90000, got %d", rec.TotalTime)
	}
	if !rec.Consistent() {
		t.Fatalf("total %d does not match daily sum %d", rec.TotalTime, rec.DailySum())
	}

	dates := rec.Dates()
	if len(dates) != 2 || dates[0] != "2024-01-01" || dates[1] != "2024-01-02" {
		t.Fatalf("unexpected dates %v", dates)
	}
}

func TestSnapshotRecordKeepsFavicon(t *testing.T) {
	snap := NewSnapshot("2024-01-01")
	first := snap.Record("example.com", "https://icons.test/first")
	first.Add("2024-01-01", 1000)

	again := snap.Record("example.com", "https://icons.test/second")
	if again != first {
		t.Fatal("expected the existing record to be returned")
	}
	if again.Favicon != "https://icons.test/first" {
		t.Fatalf("favicon was overwritten: %q", again.Favicon)
	}
}

func TestSnapshotCloneIsDeep(t *testing.T) {
	snap := NewSnapshot("2024-01-01")
	snap.Record("a.com", "").Add("2024-01-01", 2000)

	cp := snap.Clone()
	cp.Domains["a.com"].Add("2024-01-01", 5000)

	if snap.Domains["a.com"].TotalTime != 2000 {
		t.Fatalf("clone mutated original: %d", snap.Domains["a.com"].TotalTime)
	}
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		domains int
		wantErr bool
	}{
		{"empty object", `{}`, 0, false},
		{"camelCase layout", `{"domains":{"example.com":{"totalTime":90000,"dailyTime":{"2024-01-01":60000,"2024-01-02":30000},"favicon":""}},"startDate":"2024-01-01"}`, 1, false},
		{"null record dropped", `{"domains":{"a.com":null},"startDate":"2024-01-01"}`, 0, false},
		{"missing daily map", `{"domains":{"a.com":{"totalTime":0}},"startDate":"2024-01-01"}`, 1, false},
		{"invalid json", `{`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap, err := Decode([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(snap.Domains) != tt.domains {
				t.Fatalf("expected %d domains, got %d", tt.domains, len(snap.Domains))
			}
			for domain, rec := range snap.Domains {
				if rec.DailyTime == nil {
					t.Fatalf("%s: daily map not initialized", domain)
				}
			}
		})
	}
}
