package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VIDTRACE_SEED", "")
	t.Setenv("VIDTRACE_HASH_BITS", "")
	t.Setenv("VIDTRACE_MAX_FRAMES", "")
	t.Setenv("VIDTRACE_MATCH_THRESHOLD", "")

	cfg := Load()

	if cfg.Hash.Seed != 42 {
		t.Errorf("default seed = %d; want 42", cfg.Hash.Seed)
	}
	if cfg.Hash.HashBits != 256 {
		t.Errorf("default hash bits = %d; want 256", cfg.Hash.HashBits)
	}
	if cfg.Hash.MaxFrames != 60 {
		t.Errorf("default max frames = %d; want 60", cfg.Hash.MaxFrames)
	}
	if cfg.Hash.MatchThreshold != 30 {
		t.Errorf("default match threshold = %d; want 30", cfg.Hash.MatchThreshold)
	}
	if cfg.Store.Driver != "sqlite" {
		t.Errorf("default store driver = %q; want sqlite", cfg.Store.Driver)
	}
	if len(cfg.Harness.Qualities) == 0 {
		t.Error("embedded quality presets should not be empty")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VIDTRACE_SEED", "1234")
	t.Setenv("VIDTRACE_HASH_BITS", "128")
	t.Setenv("VIDTRACE_MAX_FRAMES", "10")
	t.Setenv("VIDTRACE_WORKERS", "3")

	cfg := Load()

	if cfg.Hash.Seed != 1234 {
		t.Errorf("seed = %d; want 1234", cfg.Hash.Seed)
	}
	if cfg.Hash.HashBits != 128 {
		t.Errorf("hash bits = %d; want 128", cfg.Hash.HashBits)
	}
	if cfg.Hash.MaxFrames != 10 {
		t.Errorf("max frames = %d; want 10", cfg.Hash.MaxFrames)
	}
	if cfg.Harness.Workers != 3 {
		t.Errorf("workers = %d; want 3", cfg.Harness.Workers)
	}
}

func TestSeedFromLabel(t *testing.T) {
	tests := []struct {
		name    string
		label   string
		numeric bool
		want    int64
	}{
		{"numeric", "42", true, 42},
		{"negative numeric", "-7", true, -7},
		{"string label", "private-verification-key", false, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SeedFromLabel(tc.label)
			if tc.numeric && got != tc.want {
				t.Errorf("SeedFromLabel(%q) = %d; want %d", tc.label, got, tc.want)
			}
			if !tc.numeric {
				// Non-numeric labels must hash deterministically and not
				// collide with the raw numeric interpretation of "0".
				again := SeedFromLabel(tc.label)
				if got != again {
					t.Errorf("SeedFromLabel(%q) not deterministic: %d vs %d", tc.label, got, again)
				}
				if got == 0 {
					t.Errorf("SeedFromLabel(%q) = 0; expected folded hash", tc.label)
				}
			}
		})
	}
}

func TestInvalidEnvFallsBack(t *testing.T) {
	t.Setenv("VIDTRACE_HASH_BITS", "not-a-number")
	t.Setenv("VIDTRACE_IO_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Hash.HashBits != 256 {
		t.Errorf("hash bits = %d; want default 256 on invalid input", cfg.Hash.HashBits)
	}
}
