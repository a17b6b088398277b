// Package metrics exposes prometheus counters for menu dispatch and an
// optional /metrics HTTP listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/infobot/core/telegram/sender"

	"github.com/m3rciful/infobot/core/logger"
)

const namespace = "infobot"

// Menu groups counters recorded by the menu dispatcher. A nil *Menu is valid
// and records nothing.
type Menu struct {
	renders   *prometheus.CounterVec
	unknown   prometheus.Counter
	discarded *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewMenu creates the menu counters and registers them with reg.
func NewMenu(reg prometheus.Registerer) (*Menu, error) {
	m := &Menu{
		renders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_renders_total",
			Help:      "Screens rendered, by screen and display mode.",
		}, []string{"screen", "mode"}),
		unknown: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_unknown_controls_total",
			Help:      "Control activations whose token did not resolve to a screen.",
		}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_discarded_events_total",
			Help:      "Inbound events dropped during classification, by reason.",
		}, []string{"reason"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "menu_dispatch_failures_total",
			Help:      "Dispatch cycles that ended in an error, by kind.",
		}, []string{"kind"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.renders, m.unknown, m.discarded, m.failures} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// NewRegistry returns a registry preloaded with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// RegisterSender exposes the outbound queue counters read from stats.
func RegisterSender(reg prometheus.Registerer, stats func() sender.Stats) error {
	funcs := []struct {
		name, help string
		value      func(sender.Stats) uint64
	}{
		{"sender_sent_total", "Asynchronous Telegram sends that succeeded.", func(s sender.Stats) uint64 { return s.Sent }},
		{"sender_retries_total", "Retry attempts of asynchronous Telegram sends.", func(s sender.Stats) uint64 { return s.Retried }},
		{"sender_failed_jobs_total", "Asynchronous Telegram sends that failed after retries.", func(s sender.Stats) uint64 { return s.Failed }},
	}
	for _, f := range funcs {
		value := f.value
		c := prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      f.name,
			Help:      f.help,
		}, func() float64 { return float64(value(stats())) })
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Rendered counts a successful display update.
func (m *Menu) Rendered(screen, mode string) {
	if m == nil {
		return
	}
	m.renders.WithLabelValues(screen, mode).Inc()
}

// UnknownControl counts an unresolved control token.
func (m *Menu) UnknownControl() {
	if m == nil {
		return
	}
	m.unknown.Inc()
}

// Discarded counts an event dropped before reaching the state machine.
func (m *Menu) Discarded(reason string) {
	if m == nil {
		return
	}
	m.discarded.WithLabelValues(reason).Inc()
}

// Failed counts a failed dispatch cycle.
func (m *Menu) Failed(kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(kind).Inc()
}

// Serve exposes gatherer on listen under /metrics until ctx is done.
func Serve(ctx context.Context, listen string, gatherer prometheus.Gatherer) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info(ctx, "metrics", "metrics.listen",
		slog.String("status", "ok"),
		slog.String("listen", listen),
	)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error(ctx, "metrics", "metrics.listen",
			slog.String("status", "fail"),
			slog.String("listen", listen),
			slog.String("err", err.Error()),
		)
		return err
	}
}
