package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/infobot/core/logger"
	"github.com/m3rciful/infobot/core/telegram/sender"
)

var outbox atomic.Pointer[sender.Dispatcher]

// SetDispatcher installs the queue used by SendText and Notice; nil sends inline.
func SetDispatcher(d *sender.Dispatcher) {
	outbox.Store(d)
}

// enqueue hands run to the installed queue. A full or closed queue degrades
// to a synchronous call on the handler goroutine.
func enqueue(c tele.Context, action, endpoint string, run func() error) error {
	d := outbox.Load()
	if d == nil {
		return run()
	}
	ctx := BuildContext(c)
	err := d.Enqueue(ctx, action, endpoint, run)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sender.ErrQueueFull), errors.Is(err, sender.ErrQueueClosed):
		logger.Warn(ctx, "tg.sender", "queue.bypass",
			slog.String("action", action),
			slog.String("reason", err.Error()),
		)
		return run()
	default:
		return err
	}
}

// SendText sends plain text to the chat of c.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	args := make([]interface{}, 0, 1)
	if len(opts) > 0 && opts[0] != nil {
		args = append(args, opts[0])
	}
	return enqueue(c, "send.text", "sendMessage", func() error {
		return c.Send(text, args...)
	})
}

// Notice shows a short text: a toast when c is a button press, otherwise a message.
// The toast is answered inline because callbacks expire quickly.
func Notice(c tele.Context, text string) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: text})
	}
	return SendText(c, text)
}
