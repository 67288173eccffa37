package cmd

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/vidtrace/vidtrace/internal/config"
	"github.com/vidtrace/vidtrace/internal/fingerprint"
	"github.com/vidtrace/vidtrace/internal/store"
	"github.com/vidtrace/vidtrace/internal/video"
)

// newLogger builds the CLI logger; --verbose switches it to debug output.
func newLogger() *zap.Logger {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	}
	logger, err := cfg.Build()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: building logger:", err)
		os.Exit(2)
	}
	return logger
}

func hashParams(cfg *config.Config) fingerprint.Params {
	return fingerprint.Params{Seed: cfg.Hash.Seed, Bits: cfg.Hash.HashBits}
}

// fingerprintFile runs the full hashing pipeline for one input: a video file
// decoded via ffmpeg, or a directory of already-extracted frames. The
// configured I/O timeout bounds the ffmpeg subprocess.
func fingerprintFile(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string) (*fingerprint.Fingerprint, *fingerprint.Info, error) {
	return fingerprintInput(ctx, cfg, logger, path, cfg.Hash.MaxFrames)
}

func fingerprintInput(ctx context.Context, cfg *config.Config, logger *zap.Logger, path string, maxFrames int) (*fingerprint.Fingerprint, *fingerprint.Info, error) {
	var src video.Source
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		dirSrc, err := video.NewDirSource(path)
		if err != nil {
			return nil, nil, err
		}
		src = dirSrc
	} else {
		decoder := video.NewDecoder(cfg.Encoder.FFmpegPath, video.WithLogger(logger))

		decodeCtx, cancel := context.WithTimeout(ctx, cfg.Encoder.Timeout)
		defer cancel()

		fileSrc, cleanup, err := decoder.Open(decodeCtx, path)
		if err != nil {
			return nil, nil, err
		}
		defer cleanup()
		src = fileSrc
	}

	return fingerprint.Compute(ctx, src, fingerprint.Options{
		Params:    hashParams(cfg),
		MaxFrames: maxFrames,
		Workers:   cfg.Harness.Workers,
	})
}

// resolveFingerprint turns a CLI argument into a fingerprint: either by
// hashing a video file, or by parsing a binary/hex string when hashInput is
// set.
func resolveFingerprint(ctx context.Context, cfg *config.Config, logger *zap.Logger, arg string, hashInput bool) (*fingerprint.Fingerprint, error) {
	if hashInput {
		fp, err := fingerprint.Parse(arg, hashParams(cfg))
		if err != nil {
			return nil, fmt.Errorf("parsing fingerprint %q: %w", arg, err)
		}
		return fp, nil
	}
	fp, _, err := fingerprintFile(ctx, cfg, logger, arg)
	return fp, err
}

// openStore connects to the configured store backend under the current hash
// params.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	s, err := store.Open(ctx, cfg.Store, hashParams(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening store (%s): %w", cfg.Store.Driver, err)
	}
	return s, nil
}
