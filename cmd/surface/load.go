package main

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/vango-dev/surface/internal/config"
	"github.com/vango-dev/surface/internal/errors"
	"github.com/vango-dev/surface/internal/pageload"
)

// loadConfig reads the config named by --config, or the nearest
// surface.json / surface.yaml. Without a config file the defaults are used
// when page is given. page overrides the configured page.
func loadConfig(flags *globalFlags, page string) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flags.configPath != "" {
		cfg, err = config.LoadFile(flags.configPath)
	} else {
		cfg, err = config.LoadFromWorkingDir()
		var se *errors.SurfaceError
		if stderrors.As(err, &se) && se.Code == "S001" {
			cfg, err = config.New(), nil
		}
	}
	if err != nil {
		return nil, err
	}

	if page != "" {
		// Command-line paths are relative to the working directory.
		if !strings.Contains(page, "://") {
			if abs, err := filepath.Abs(page); err == nil {
				page = abs
			}
		}
		cfg.Page = page
	}
	if flags.debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger returns a text logger on w at info level, or debug level with
// debug set.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func loadPage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*pageload.Page, error) {
	loader := pageload.New(
		pageload.WithLogger(logger),
		pageload.WithS3Config(cfg.S3),
	)
	return loader.Load(ctx, cfg.PageSource())
}

// firstArg returns args[0] or "".
func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
