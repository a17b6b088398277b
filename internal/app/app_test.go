package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/infobot/core/bootstrap"
	coreconfig "github.com/m3rciful/infobot/core/config"
	coretelegram "github.com/m3rciful/infobot/core/telegram"
)

type feedPoller struct {
	updates []tele.Update
}

func (p *feedPoller) Poll(_ *tele.Bot, dest chan tele.Update, stop chan struct{}) {
	for _, u := range p.updates {
		dest <- u
	}
	<-stop
}

type call struct {
	method string
	body   string
}

// botAPI answers like the Bot API for the methods the menu uses.
type botAPI struct {
	mu    sync.Mutex
	calls []call
}

func (a *botAPI) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	method := req.URL.Path[strings.LastIndex(req.URL.Path, "/")+1:]
	body, _ := io.ReadAll(req.Body)
	a.mu.Lock()
	a.calls = append(a.calls, call{method: method, body: string(body)})
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch method {
	case "sendMessage", "editMessageText":
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":5,"date":0,"chat":{"id":3,"type":"private"}}}`))
	default:
		_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
	}
}

func (a *botAPI) menuCalls() []call {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []call
	for _, c := range a.calls {
		switch c.method {
		case "sendMessage", "editMessageText", "answerCallbackQuery":
			out = append(out, c)
		}
	}
	return out
}

func testConfig() *coreconfig.Config {
	return &coreconfig.Config{
		Telegram: coreconfig.TelegramConfig{Token: "123:abc", RunMode: coreconfig.RunModeLongpoll},
		Menu:     coreconfig.MenuConfig{EntryCommand: "/info"},
	}
}

func newTestApp(t *testing.T, cfg *coreconfig.Config) *App {
	t.Helper()
	a, err := New(cfg, bootstrap.Options{LoggerInit: func(*coreconfig.Config) error { return nil }})
	require.NoError(t, err)
	return a
}

func TestTelegramRunOptionsRegistersMenu(t *testing.T) {
	a := newTestApp(t, testConfig())
	a.newBot = func(*coreconfig.Config) (*tele.Bot, error) {
		return tele.NewBot(tele.Settings{Token: "123:abc", Offline: true})
	}

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	defer opts.Dispatcher.Close()

	_, entry, ok := opts.Registry.LookupCommand("/info")
	require.True(t, ok)
	assert.False(t, entry.AdminOnly)

	_, version, ok := opts.Registry.LookupCommand("/version")
	require.True(t, ok)
	assert.True(t, version.AdminOnly)
	assert.Equal(t, []tele.Command{{Text: "info", Description: entryDescription}}, opts.Registry.ListCommands(true))

	assert.ElementsMatch(t,
		[]string{"github_info", "repository", "board", "project_info", "back_to_menu"},
		opts.Registry.ListCallbacks(),
	)
	assert.NotNil(t, opts.Registry.CallbackNotFound())
	assert.NotEmpty(t, opts.Routes)
	assert.Len(t, opts.Middlewares, 3)
	require.NoError(t, opts.OnStart(context.Background(), coretelegram.Runtime{}))

	families, err := a.Gatherer().Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "infobot_sender_failed_jobs_total")
}

func TestTelegramRunOptionsBotFailure(t *testing.T) {
	a := newTestApp(t, testConfig())
	a.newBot = func(*coreconfig.Config) (*tele.Bot, error) { return nil, assert.AnError }
	_, err := a.TelegramRunOptions()
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMenuConversation(t *testing.T) {
	api := &botAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()

	user := &tele.User{ID: 3}
	chat := &tele.Chat{ID: 3, Type: tele.ChatPrivate}
	poller := &feedPoller{updates: []tele.Update{
		{ID: 1, Message: &tele.Message{ID: 4, Text: "/info", Chat: chat, Sender: user}},
		{ID: 2, Callback: &tele.Callback{ID: "cb1", Data: "\fgithub_info", Sender: user,
			Message: &tele.Message{ID: 5, Chat: chat}}},
		{ID: 3, Callback: &tele.Callback{ID: "cb2", Data: "\fno_such_control", Sender: user,
			Message: &tele.Message{ID: 5, Chat: chat}}},
	}}

	a := newTestApp(t, testConfig())
	a.newBot = func(*coreconfig.Config) (*tele.Bot, error) {
		return tele.NewBot(tele.Settings{
			URL:         srv.URL,
			Token:       "123:abc",
			Offline:     true,
			Synchronous: true,
			Poller:      poller,
		})
	}
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errCh := make(chan error, 1)
	go func() { errCh <- coretelegram.RunTelegram(ctx, opts) }()

	require.Eventually(t, func() bool { return len(api.menuCalls()) >= 5 }, 5*time.Second, 10*time.Millisecond)
	cancel()
	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("bot did not stop")
	}

	calls := api.menuCalls()
	var methods []string
	for _, c := range calls {
		methods = append(methods, c.method)
	}
	assert.Equal(t, []string{
		"sendMessage",
		"answerCallbackQuery", "editMessageText",
		"answerCallbackQuery", "editMessageText",
	}, methods)

	assert.Contains(t, calls[0].body, "MarkdownV2")
	assert.Contains(t, calls[0].body, "github_info")
	assert.Contains(t, calls[2].body, "back_to_menu")
	assert.Contains(t, calls[4].body, "Неизвестная команда")
}
