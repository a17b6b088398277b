// Package app wires the information menu into the Telegram runtime.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/infobot/core/bootstrap"
	"github.com/m3rciful/infobot/core/buildinfo"
	corecmd "github.com/m3rciful/infobot/core/cmd"
	coreconfig "github.com/m3rciful/infobot/core/config"
	"github.com/m3rciful/infobot/core/logger"
	"github.com/m3rciful/infobot/core/menu/dispatch"
	"github.com/m3rciful/infobot/core/metrics"
	coretelegram "github.com/m3rciful/infobot/core/telegram"
	"github.com/m3rciful/infobot/core/telegram/commands"
	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"
	"github.com/m3rciful/infobot/core/telegram/router"
	tgsender "github.com/m3rciful/infobot/core/telegram/sender"
)

const (
	entryDescription = "Показать информацию о проекте"
	versionCommand   = "/version"
	limitedNotice    = "Слишком много запросов, попробуйте чуть позже"

	// Telegram allows about 30 messages per second per bot.
	outboundPerSecond = 25
)

// Config carries the bot configuration; the menu adds no sections beyond the core ones.
type Config struct {
	Core *coreconfig.Config
}

// CoreConfig implements cmd.ConfigCarrier.
func (c *Config) CoreConfig() *coreconfig.Config { return c.Core }

// LoadConfig reads and validates the configuration file at path.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	cfg, err := coreconfig.Load(path)
	if err != nil {
		return nil, err
	}
	return &Config{Core: cfg}, nil
}

// App holds everything needed to serve the menu.
type App struct {
	cfg     *coreconfig.Config
	menu    *bootstrap.Result
	prom    *prometheus.Registry
	metrics *metrics.Menu

	newBot func(*coreconfig.Config) (*tele.Bot, error)
}

// Bootstrap implements the cmd.Options hook: it initializes logging, loads
// the screen catalogue and registers the menu metrics.
func Bootstrap(carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	a, err := New(carrier.CoreConfig(), bootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// New builds an App from cfg. Zero-valued fields of opts use the defaults.
func New(cfg *coreconfig.Config, opts bootstrap.Options) (*App, error) {
	opts.Config = cfg
	res, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}
	prom := metrics.NewRegistry()
	m, err := metrics.NewMenu(prom)
	if err != nil {
		return nil, fmt.Errorf("app: metrics: %w", err)
	}
	return &App{
		cfg:     cfg,
		menu:    res,
		prom:    prom,
		metrics: m,
		newBot:  coretelegram.NewBot,
	}, nil
}

// TelegramRunOptions implements cmd.TelegramApp.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	bot, err := a.newBot(a.cfg)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	d, err := dispatch.New(a.menu.Machine, a.menu.Renderer, dispatch.NewTelebotOutput(bot), a.metrics)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	reg, err := a.registry(d)
	if err != nil {
		return coretelegram.RunOptions{}, err
	}

	sender := tgsender.NewDispatcher(tgsender.Options{MaxRetries: 2, PerSecond: outboundPerSecond})
	if err := metrics.RegisterSender(a.prom, sender.Stats); err != nil {
		sender.Close()
		return coretelegram.RunOptions{}, fmt.Errorf("app: metrics: %w", err)
	}

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: a.cfg.Telegram.AdminID})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.TextRoutes(reg, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      a.cfg,
		Registry:    reg,
		Bot:         bot,
		Dispatcher:  sender,
		Middlewares: coretelegram.DefaultMiddlewares(a.cfg, onLimited),
		Routes:      routes,
		OnStart:     a.onStart,
	}, nil
}

// registry binds the entry command and every control token to the dispatcher.
// Tokens nobody registered still reach it through the not-found fallback.
func (a *App) registry(d *dispatch.Dispatcher) (*coretelegram.Registry, error) {
	reg := coretelegram.NewRegistry()
	if err := reg.RegisterCommand(a.menu.Machine.EntryCommand(), commands.Command{
		Handler:     d.HandleText,
		Description: entryDescription,
	}); err != nil {
		return nil, err
	}
	if err := reg.RegisterCommand(versionCommand, commands.Command{
		Handler:     handleVersion,
		Description: "Build information",
		AdminOnly:   true,
		Hidden:      true,
	}); err != nil {
		return nil, err
	}

	for _, s := range a.menu.Content.Screens() {
		if err := reg.RegisterCallback(s.Token, d.HandleCallback); err != nil {
			return nil, err
		}
	}
	if err := reg.RegisterCallback(a.menu.Content.BackToken(), d.HandleCallback); err != nil {
		return nil, err
	}
	reg.SetCallbackNotFound(d.HandleCallback)
	return reg, nil
}

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	listen := a.cfg.Metrics.Listen
	if listen == "" {
		return nil
	}
	go func() {
		// Serve logs its own failures; the bot keeps running without metrics.
		_ = metrics.Serve(ctx, listen, a.prom)
	}()
	return nil
}

// Gatherer exposes the metrics registry.
func (a *App) Gatherer() prometheus.Gatherer { return a.prom }

func handleVersion(c tele.Context) error {
	return tghelpers.SendText(c, "infobot "+buildinfo.String())
}

func onLimited(c tele.Context) error {
	if err := tghelpers.Notice(c, limitedNotice); err != nil {
		logger.Warn(tghelpers.BuildContext(c), "app", "rate_limit.notice",
			slog.String("status", "fail"),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
		return err
	}
	return nil
}
