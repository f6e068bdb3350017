package config

import "testing"

func TestNewDefaultsColorOnAndWarningsNonFatal(t *testing.T) {
	cfg := New()
	if !cfg.Color {
		t.Error("Color = false, want true")
	}
	if cfg.WarnAsError {
		t.Error("WarnAsError = true, want false")
	}
	if cfg.OutDir != "" {
		t.Errorf("OutDir = %q, want empty", cfg.OutDir)
	}
}
