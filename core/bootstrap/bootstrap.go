// Package bootstrap initializes the infrastructure shared by bot entry points.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	coreconfig "github.com/m3rciful/infobot/core/config"
	"github.com/m3rciful/infobot/core/logger"
	"github.com/m3rciful/infobot/core/menu/content"
	"github.com/m3rciful/infobot/core/menu/nav"
	"github.com/m3rciful/infobot/core/menu/render"
)

// Options control the bootstrap pipeline.
type Options struct {
	Config *coreconfig.Config

	LoggerInit  func(*coreconfig.Config) error
	LoadContent func(path, backToken string) (*content.Registry, error)
}

// Result exposes infrastructure initialized by the bootstrap pipeline.
type Result struct {
	Content  *content.Registry
	Machine  *nav.Machine
	Renderer *render.Renderer
}

// Run initializes the logger, loads the screen catalogue and builds the
// navigation machine and renderer on top of it.
func Run(opts Options) (*Result, error) {
	cfg := opts.Config
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: nil config provided")
	}

	loggerInit := opts.LoggerInit
	if loggerInit == nil {
		loggerInit = logger.InitLogger
	}
	if err := loggerInit(cfg); err != nil {
		return nil, fmt.Errorf("bootstrap: logger init failed: %w", err)
	}

	load := opts.LoadContent
	if load == nil {
		load = content.Load
	}
	reg, err := load(cfg.Menu.ContentFile, cfg.Menu.BackToken)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: content registry: %w", err)
	}

	machine, err := nav.NewMachine(reg, cfg.Menu.EntryCommand)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: navigation: %w", err)
	}

	renderer, err := render.New(reg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: render: %w", err)
	}

	source := cfg.Menu.ContentFile
	if source == "" {
		source = "builtin"
	}
	logger.Info(context.Background(), "app", "content.loaded",
		slog.String("status", "ok"),
		slog.Int("screens", reg.Len()),
		slog.String("source", source),
		slog.String("entry", machine.EntryCommand()),
	)

	return &Result{
		Content:  reg,
		Machine:  machine,
		Renderer: renderer,
	}, nil
}
