package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/infobot/core/telegram/commands"
)

func noop(tele.Context) error { return nil }

func TestRegisterCommandValidation(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/info", commands.Command{Handler: noop, Description: "Показать информацию о проекте"}))

	assert.ErrorIs(t, reg.RegisterCommand("info", commands.Command{Handler: noop, Description: "x"}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/x", commands.Command{Description: "x"}), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCommand("/y", commands.Command{Handler: noop}), ErrInvalidRegistration)
	assert.Error(t, reg.RegisterCommand("/info", commands.Command{Handler: noop, Description: "again"}))
	assert.Len(t, reg.Commands(), 1)
}

func TestListCommandsHidesPrivate(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/info", commands.Command{Handler: noop, Description: "Показать информацию о проекте"}))
	require.NoError(t, reg.RegisterCommand("/version", commands.Command{Handler: noop, Description: "build", AdminOnly: true}))
	require.NoError(t, reg.RegisterCommand("/debug", commands.Command{Handler: noop, Description: "debug", Hidden: true}))

	assert.Equal(t, []tele.Command{{Text: "info", Description: "Показать информацию о проекте"}}, reg.ListCommands(true))
	assert.Len(t, reg.ListCommands(false), 3)
}

func TestLookupCommand(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCommand("/info", commands.Command{Handler: noop, Description: "x", Aliases: []string{"about"}}))

	key, _, ok := reg.LookupCommand("info")
	require.True(t, ok)
	assert.Equal(t, "/info", key)

	key, _, ok = reg.LookupCommand("/about")
	require.True(t, ok)
	assert.Equal(t, "/info", key)

	_, _, ok = reg.LookupCommand("/missing")
	assert.False(t, ok)
}

func TestRegisterCallback(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterCallback("board", noop))
	require.NoError(t, reg.RegisterCallback("back_to_menu", noop))
	assert.Error(t, reg.RegisterCallback("board", noop))
	assert.ErrorIs(t, reg.RegisterCallback("", noop), ErrInvalidRegistration)
	assert.ErrorIs(t, reg.RegisterCallback("x", nil), ErrInvalidRegistration)

	_, ok := reg.GetCallback("board")
	assert.True(t, ok)
	assert.Equal(t, []string{"back_to_menu", "board"}, reg.ListCallbacks())
}

func TestFallbacks(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg.CallbackNotFound())
	reg.SetCallbackNotFound(nil)
	require.NotNil(t, reg.CallbackNotFound(), "nil keeps the previous fallback")
}

type fakeSetter struct {
	got []interface{}
	err error
}

func (f *fakeSetter) SetCommands(opts ...interface{}) error {
	f.got = opts
	return f.err
}

func TestSetupCommands(t *testing.T) {
	reg := NewRegistry()
	setter := &fakeSetter{}
	require.NoError(t, SetupCommands(context.Background(), setter, reg))
	assert.Nil(t, setter.got, "nothing to publish")

	require.NoError(t, reg.RegisterCommand("/info", commands.Command{Handler: noop, Description: "Показать информацию о проекте"}))
	require.NoError(t, SetupCommands(context.Background(), setter, reg))
	require.Len(t, setter.got, 1)
	assert.Equal(t, reg.ListCommands(true), setter.got[0])

	setter.err = errors.New("403")
	assert.Error(t, SetupCommands(context.Background(), setter, reg))
}
