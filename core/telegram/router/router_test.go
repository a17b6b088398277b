package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	tg "github.com/m3rciful/infobot/core/telegram"
	"github.com/m3rciful/infobot/core/telegram/commands"
)

type fakeContext struct {
	tele.Context
	update   tele.Update
	store    map[string]any
	responds int
}

func newFakeContext(u tele.Update) *fakeContext {
	return &fakeContext{update: u, store: map[string]any{}}
}

func (f *fakeContext) Update() tele.Update      { return f.update }
func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }
func (f *fakeContext) Get(key string) any       { return f.store[key] }
func (f *fakeContext) Set(key string, val any)  { f.store[key] = val }

func (f *fakeContext) Sender() *tele.User {
	switch {
	case f.update.Callback != nil:
		return f.update.Callback.Sender
	case f.update.Message != nil:
		return f.update.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if f.update.Message != nil {
		return f.update.Message.Chat
	}
	return nil
}

func (f *fakeContext) Text() string {
	if f.update.Message != nil {
		return f.update.Message.Text
	}
	return ""
}

func (f *fakeContext) Respond(...*tele.CallbackResponse) error {
	f.responds++
	return nil
}

func callbackUpdate(data string) tele.Update {
	return tele.Update{ID: 1, Callback: &tele.Callback{
		ID:      "cb",
		Data:    data,
		Sender:  &tele.User{ID: 2},
		Message: &tele.Message{ID: 3, Chat: &tele.Chat{ID: 4}},
	}}
}

func textUpdate(userID int64, text string) tele.Update {
	return tele.Update{ID: 5, Message: &tele.Message{
		ID:     6,
		Text:   text,
		Sender: &tele.User{ID: userID},
		Chat:   &tele.Chat{ID: userID},
	}}
}

func TestCallbackRouteDispatchesByToken(t *testing.T) {
	reg := tg.NewRegistry()
	var got string
	require.NoError(t, reg.RegisterCallback("board", func(c tele.Context) error {
		got = "board"
		return nil
	}))

	route := CallbackRoute(reg, CallbackOptions{})
	assert.Equal(t, tele.OnCallback, route.Endpoint)

	fc := newFakeContext(callbackUpdate("\fboard"))
	require.NoError(t, route.Handler(fc))
	assert.Equal(t, "board", got)
	assert.Zero(t, fc.responds, "the route leaves the answer to the handler")
}

func TestCallbackRouteFallsBack(t *testing.T) {
	reg := tg.NewRegistry()
	route := CallbackRoute(reg, CallbackOptions{})

	fc := newFakeContext(callbackUpdate("\fnope"))
	require.NoError(t, route.Handler(fc))
	assert.Equal(t, 1, fc.responds, "default fallback answers the callback")

	var fallback int
	reg.SetCallbackNotFound(func(tele.Context) error {
		fallback++
		return nil
	})
	fc = newFakeContext(callbackUpdate("\fnope"))
	require.NoError(t, route.Handler(fc))
	assert.Equal(t, 1, fallback)
	assert.Zero(t, fc.responds)
}

func TestCallbackRoutePropagatesErrors(t *testing.T) {
	reg := tg.NewRegistry()
	boom := errors.New("boom")
	require.NoError(t, reg.RegisterCallback("board", func(tele.Context) error { return boom }))

	err := CallbackRoute(reg, CallbackOptions{}).Handler(newFakeContext(callbackUpdate("\fboard")))
	assert.ErrorIs(t, err, boom)
}

func TestCommandRoutes(t *testing.T) {
	reg := tg.NewRegistry()
	var info, version int
	require.NoError(t, reg.RegisterCommand("/info", commands.Command{
		Description: "info",
		Aliases:     []string{"about"},
		Handler: func(tele.Context) error {
			info++
			return nil
		},
	}))
	require.NoError(t, reg.RegisterCommand("/version", commands.Command{
		Description: "version",
		AdminOnly:   true,
		Hidden:      true,
		Handler: func(tele.Context) error {
			version++
			return nil
		},
	}))

	var rejected int
	routes := CommandRoutes(reg, CommandRouteOptions{
		AdminID: 100,
		OnAdminReject: func(tele.Context) error {
			rejected++
			return nil
		},
	})
	byEndpoint := map[any]tele.HandlerFunc{}
	for _, r := range routes {
		byEndpoint[r.Endpoint] = r.Handler
	}
	require.Len(t, byEndpoint, 3)
	require.Contains(t, byEndpoint, "/about")

	require.NoError(t, byEndpoint["/about"](newFakeContext(textUpdate(1, "/about"))))
	assert.Equal(t, 1, info)

	require.NoError(t, byEndpoint["/version"](newFakeContext(textUpdate(1, "/version"))))
	require.NoError(t, byEndpoint["/version"](newFakeContext(textUpdate(100, "/version"))))
	assert.Equal(t, 1, version)
	assert.Equal(t, 1, rejected)
}

func TestTextRoutes(t *testing.T) {
	reg := tg.NewRegistry()
	var info, unknown int
	require.NoError(t, reg.RegisterCommand("/info", commands.Command{
		Description: "info",
		Handler: func(tele.Context) error {
			info++
			return nil
		},
	}))
	routes := TextRoutes(reg, TextOptions{UnknownText: func(tele.Context) error {
		unknown++
		return nil
	}})
	require.Len(t, routes, 1)
	h := routes[0].Handler

	require.NoError(t, h(newFakeContext(textUpdate(1, "/info"))))
	require.NoError(t, h(newFakeContext(textUpdate(1, "hello"))))
	assert.Equal(t, 1, info)
	assert.Equal(t, 1, unknown)

	// Without the slash the text is not a command, even though "/info" exists.
	require.NoError(t, h(newFakeContext(textUpdate(1, "info"))))
	assert.Equal(t, 1, info)
	assert.Equal(t, 2, unknown)
}

type codedErr struct{}

func (codedErr) Error() string { return "coded" }
func (codedErr) Code() string  { return "gateway edit" }

type plainErr struct{}

func (*plainErr) Error() string { return "plain" }

func TestDeriveErrorCode(t *testing.T) {
	assert.Empty(t, deriveErrorCode(nil))
	assert.Equal(t, "GATEWAY_EDIT", deriveErrorCode(codedErr{}))
	assert.Equal(t, "GATEWAY_EDIT", deriveErrorCode(fmt.Errorf("wrapped: %w", codedErr{})))
	assert.Equal(t, "GATEWAY_EDIT", deriveErrorCode(errors.Join(errors.New("x"), codedErr{})))
	assert.Equal(t, "PLAINERR", deriveErrorCode(&plainErr{}))
}

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "unknown", normalizeHandlerName(" "))
	assert.Equal(t, "info", normalizeHandlerName("/Info"))
	assert.Equal(t, "two_words", normalizeHandlerName("two words"))
}
