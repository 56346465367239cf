package config

import (
	"testing"
	"time"
)

func TestGetEnvFloat(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want float64
	}{
		{"empty uses fallback", "", 9},
		{"decimal", "0.25", 0.25},
		{"negative fraction", "-1/3", -1.0 / 3.0},
		{"zero denominator", "1/0", 9},
		{"garbage", "abc", 9},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TEST_MARK", tt.raw)
			if got := getEnvFloat("TEST_MARK", 9); got != tt.want {
				t.Errorf("getEnvFloat(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestParseOrigins(t *testing.T) {
	if got := parseOrigins(""); got != nil {
		t.Errorf("parseOrigins(\"\") = %v, want nil", got)
	}
	got := parseOrigins(" https://a.test , ,https://b.test")
	if len(got) != 2 || got[0] != "https://a.test" || got[1] != "https://b.test" {
		t.Errorf("parseOrigins() = %v", got)
	}
}

func TestLoadDurations(t *testing.T) {
	t.Setenv("PREFETCH_TTL_MINUTES", "5")
	t.Setenv("RESULT_RETENTION_MINUTES", "not-a-number")

	cfg := Load()
	if cfg.PrefetchTTL != 5*time.Minute {
		t.Errorf("PrefetchTTL = %v", cfg.PrefetchTTL)
	}
	if cfg.ResultRetention != time.Hour {
		t.Errorf("ResultRetention = %v, want default 1h", cfg.ResultRetention)
	}
}

func TestCacheKeys(t *testing.T) {
	if got := CacheKey.PaperPrefetchKey("p1"); got != "paper:p1:prefetch" {
		t.Errorf("PaperPrefetchKey = %q", got)
	}
	if got := CacheKey.AttemptEventsChannel("a1"); got != "attempt:a1:events" {
		t.Errorf("AttemptEventsChannel = %q", got)
	}
}
