package config

import "testing"

// TestDefaultSnapshotIsValid tests that the defaults pass validation
func TestDefaultSnapshotIsValid(t *testing.T) {
	snap := DefaultSnapshot()
	if err := snap.Validate(); err != nil {
		t.Errorf("Default snapshot should validate, got %v", err)
	}
}

// TestSnapshotValidation tests individual field rejections
func TestSnapshotValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Snapshot)
	}{
		{"bad timeframe", func(s *Snapshot) { s.Timeframe = "2h" }},
		{"zero position size", func(s *Snapshot) { s.PositionSize = 0 }},
		{"negative leverage", func(s *Snapshot) { s.Leverage = -1 }},
		{"zero max positions", func(s *Snapshot) { s.MaxPositions = 0 }},
		{"zero top coins", func(s *Snapshot) { s.TopCoinsToScan = 0 }},
		{"zero sma period", func(s *Snapshot) { s.SMAPeriod = 0 }},
		{"zero ema period", func(s *Snapshot) { s.EMAPeriod = 0 }},
		{"zero scale multiplier", func(s *Snapshot) { s.ScaleMultiplier = 0 }},
		{"empty quote asset", func(s *Snapshot) { s.QuoteAsset = "" }},
	}

	for _, tc := range cases {
		snap := DefaultSnapshot()
		tc.mutate(&snap)
		if err := snap.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tc.name)
		}
	}
}

// TestValidTimeframe tests the supported interval whitelist
func TestValidTimeframe(t *testing.T) {
	for _, tf := range []string{"1m", "5m", "15m", "30m", "1h", "4h", "1d"} {
		if !ValidTimeframe(tf) {
			t.Errorf("Expected %s to be valid", tf)
		}
	}
	for _, tf := range []string{"", "2h", "1w", "60"} {
		if ValidTimeframe(tf) {
			t.Errorf("Expected %s to be invalid", tf)
		}
	}
}

// TestLoadAppliesEnvOverrides tests the environment override path
func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("BLOFIN_API_KEY", "test-key")
	t.Setenv("BLOFIN_API_SECRET", "test-secret")
	t.Setenv("TIMEFRAME", "15m")
	t.Setenv("POSITION_SIZE", "250")
	t.Setenv("PORT", "9090")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Blofin.APIKey != "test-key" {
		t.Errorf("Expected API key override, got %s", cfg.Blofin.APIKey)
	}
	if cfg.Trading.Timeframe != "15m" {
		t.Errorf("Expected timeframe 15m, got %s", cfg.Trading.Timeframe)
	}
	if cfg.Trading.PositionSize != 250 {
		t.Errorf("Expected position size 250, got %f", cfg.Trading.PositionSize)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
}

// TestLoadRequiresCredentials tests that missing API keys are fatal
func TestLoadRequiresCredentials(t *testing.T) {
	t.Setenv("BLOFIN_API_KEY", "")
	t.Setenv("BLOFIN_API_SECRET", "")

	if _, err := Load(""); err == nil {
		t.Error("Expected error when credentials are missing")
	}
}
