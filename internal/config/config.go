package config

import (
	_ "embed"
	"hash/fnv"
	"os"
	"runtime"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed qualities.yaml
var qualitiesYAML []byte

type Config struct {
	Hash    HashConfig
	Store   StoreConfig
	Encoder EncoderConfig
	Harness HarnessConfig
}

type HashConfig struct {
	Seed           int64  // derived from VIDTRACE_SEED
	SeedLabel      string // raw VIDTRACE_SEED value, kept for display
	HashBits       int    // fingerprint length in bits (default 256)
	MaxFrames      int    // sampling bound per video (default 60)
	MatchThreshold int    // Hamming distance below which two videos match (default 30)
}

type StoreConfig struct {
	Driver       string // sqlite, postgres or mysql
	DSN          string // file path (sqlite), URL (postgres) or DSN (mysql)
	MaxOpenConns int    // maximum open connections (default 25, sqlite always uses 1)
	MaxIdleConns int    // maximum idle connections (default 5)
}

type EncoderConfig struct {
	FFmpegPath string        // defaults to "ffmpeg" on PATH
	Timeout    time.Duration // bound on a single external encode/decode call
}

type HarnessConfig struct {
	Qualities []int // compression quality levels, higher = lossier
	Workers   int   // parallel (video, quality) items
}

type qualityPresets struct {
	Qualities []int `yaml:"qualities"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envDuration reads an environment variable as a time.Duration.
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

// envString reads an environment variable with a default.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// SeedFromLabel converts a seed label to the int64 fed to the projection
// generator. Numeric labels are used directly so published integer seeds stay
// reproducible across tools; any other string is folded through FNV-1a.
func SeedFromLabel(label string) int64 {
	if n, err := strconv.ParseInt(label, 10, 64); err == nil {
		return n
	}
	h := fnv.New64a()
	h.Write([]byte(label))
	return int64(h.Sum64())
}

func Load() *Config {
	var presets qualityPresets
	if err := yaml.Unmarshal(qualitiesYAML, &presets); err != nil {
		// Embedded file, so this should never happen in practice.
		panic("failed to unmarshal embedded qualities.yaml: " + err.Error())
	}

	seedLabel := envString("VIDTRACE_SEED", "42")

	return &Config{
		Hash: HashConfig{
			Seed:           SeedFromLabel(seedLabel),
			SeedLabel:      seedLabel,
			HashBits:       envInt("VIDTRACE_HASH_BITS", 256),
			MaxFrames:      envInt("VIDTRACE_MAX_FRAMES", 60),
			MatchThreshold: envInt("VIDTRACE_MATCH_THRESHOLD", 30),
		},
		Store: StoreConfig{
			Driver:       envString("VIDTRACE_STORE_DRIVER", "sqlite"),
			DSN:          envString("VIDTRACE_STORE_DSN", "vidtrace.db"),
			MaxOpenConns: envInt("VIDTRACE_STORE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("VIDTRACE_STORE_MAX_IDLE_CONNS", 5),
		},
		Encoder: EncoderConfig{
			FFmpegPath: envString("VIDTRACE_FFMPEG", "ffmpeg"),
			Timeout:    envDuration("VIDTRACE_IO_TIMEOUT", 5*time.Minute),
		},
		Harness: HarnessConfig{
			Qualities: presets.Qualities,
			Workers:   envInt("VIDTRACE_WORKERS", runtime.NumCPU()),
		},
	}
}
