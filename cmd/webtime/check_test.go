package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/goodtune/webtime/internal/storage"
	"github.com/goodtune/webtime/internal/tracking"
)

func TestCheckURL(t *testing.T) {
	favicons, err := tracking.NewServiceFavicons("https://icons.example/%s.png", 8)
	if err != nil {
		t.Fatalf("NewServiceFavicons: %v", err)
	}

	snap := storage.NewSnapshot("2024-01-01")
	rec := storage.NewDomainRecord("")
	rec.Add("2024-01-07", 65000)
	snap.Domains["example.com"] = rec

	tests := []struct {
		name      string
		url       string
		trackable bool
		domain    string
		recorded  bool
	}{
		{"www stripped", "https://www.Example.com/path", true, "example.com", true},
		{"unseen domain", "http://news.example.org/", true, "news.example.org", false},
		{"browser page", "chrome://settings", false, "", false},
		{"garbage", "::not a url", false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := checkURL(context.Background(), tt.url, favicons, snap, "2024-01-07")
			if c.Trackable != tt.trackable {
				t.Fatalf("Trackable = %v, want %v", c.Trackable, tt.trackable)
			}
			if c.Domain != tt.domain {
				t.Errorf("Domain = %q, want %q", c.Domain, tt.domain)
			}
			if (c.Record != nil) != tt.recorded {
				t.Errorf("Record present = %v, want %v", c.Record != nil, tt.recorded)
			}
			if tt.trackable && c.Favicon == "" {
				t.Error("expected favicon for trackable URL")
			}
			if !tt.trackable && c.Reason == "" {
				t.Error("expected a reason for ignored URL")
			}
		})
	}
}

func TestPrintCheckResult(t *testing.T) {
	rec := storage.NewDomainRecord("")
	rec.Add("2024-01-07", 65000)

	var buf bytes.Buffer
	printCheckResult(&buf, urlCheck{
		URL:       "https://example.com",
		Domain:    "example.com",
		Trackable: true,
		Record:    rec,
		Today:     "2024-01-07",
	})
	if !strings.Contains(buf.String(), "Recorded:   1m 5s total, 1m 5s today") {
		t.Errorf("unexpected output:\n%s", buf.String())
	}

	buf.Reset()
	printCheckResult(&buf, urlCheck{URL: "chrome://settings", Reason: "only http and https pages are tracked"})
	if !strings.Contains(buf.String(), "IGNORE") {
		t.Errorf("expected IGNORE:\n%s", buf.String())
	}
}
