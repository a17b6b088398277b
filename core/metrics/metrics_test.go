package metrics

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/infobot/core/telegram/sender"
)

func TestMenuCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMenu(reg)
	require.NoError(t, err)

	m.Rendered("Menu", "new")
	m.Rendered("Menu", "new")
	m.Rendered("TaskBoard", "edit")
	m.UnknownControl()
	m.Discarded("no_token")
	m.Failed("gateway")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.renders.WithLabelValues("Menu", "new")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.renders.WithLabelValues("TaskBoard", "edit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unknown))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.discarded.WithLabelValues("no_token")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("gateway")))

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)
}

func TestNewMenuDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewMenu(reg)
	require.NoError(t, err)
	_, err = NewMenu(reg)
	require.Error(t, err)
}

func TestNilMenuIsNoop(t *testing.T) {
	var m *Menu
	assert.NotPanics(t, func() {
		m.Rendered("Menu", "new")
		m.UnknownControl()
		m.Discarded("x")
		m.Failed("x")
	})
}

func TestNewRegistryGathersRuntime(t *testing.T) {
	families, err := NewRegistry().Gather()
	require.NoError(t, err)

	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "go_goroutines")
}

func TestRegisterSender(t *testing.T) {
	reg := prometheus.NewRegistry()
	stats := sender.Stats{Sent: 5, Retried: 2, Failed: 3}
	require.NoError(t, RegisterSender(reg, func() sender.Stats { return stats }))

	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(`
# HELP infobot_sender_failed_jobs_total Asynchronous Telegram sends that failed after retries.
# TYPE infobot_sender_failed_jobs_total counter
infobot_sender_failed_jobs_total 3
# HELP infobot_sender_retries_total Retry attempts of asynchronous Telegram sends.
# TYPE infobot_sender_retries_total counter
infobot_sender_retries_total 2
`), "infobot_sender_failed_jobs_total", "infobot_sender_retries_total"))

	count, err := testutil.GatherAndCount(reg, "infobot_sender_sent_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	assert.Error(t, RegisterSender(reg, func() sender.Stats { return stats }))
}

func TestServeExposesMetrics(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	reg := prometheus.NewRegistry()
	m, err := NewMenu(reg)
	require.NoError(t, err)
	m.Rendered("Menu", "new")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, reg) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, _ := io.ReadAll(resp.Body)
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, `infobot_menu_renders_total{mode="new",screen="Menu"} 1`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not stop")
	}
}
