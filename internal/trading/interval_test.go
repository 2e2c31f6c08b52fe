package trading

import (
	"testing"
	"time"
)

// TestNextCandleWait tests alignment to the candle boundary plus buffer
func TestNextCandleWait(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 30, 30, 0, time.UTC)

	cases := []struct {
		timeframe string
		expected  time.Duration
	}{
		{"1h", 29*time.Minute + 30*time.Second + boundaryBuffer},
		{"15m", 14*time.Minute + 30*time.Second + boundaryBuffer},
		{"5m", 4*time.Minute + 30*time.Second + boundaryBuffer},
		{"1m", 30*time.Second + boundaryBuffer},
	}

	for _, tc := range cases {
		if got := NextCandleWait(now, tc.timeframe); got != tc.expected {
			t.Errorf("%s: expected %v, got %v", tc.timeframe, tc.expected, got)
		}
	}
}

// TestNextCandleWaitAtBoundary tests that a cycle landing exactly on the
// boundary waits a full interval
func TestNextCandleWaitAtBoundary(t *testing.T) {
	now := time.Date(2025, 3, 10, 13, 0, 0, 0, time.UTC)

	if got := NextCandleWait(now, "1h"); got != time.Hour+boundaryBuffer {
		t.Errorf("Expected full hour plus buffer, got %v", got)
	}
}

// TestTimeframeDurationFallback tests the unknown-interval fallback
func TestTimeframeDurationFallback(t *testing.T) {
	if d := timeframeDuration("bogus"); d != time.Hour {
		t.Errorf("Expected 1h fallback, got %v", d)
	}
	if d := timeframeDuration("1d"); d != 24*time.Hour {
		t.Errorf("Expected 24h for 1d, got %v", d)
	}
}
