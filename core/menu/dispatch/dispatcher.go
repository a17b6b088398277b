// Package dispatch classifies Telegram updates into navigation events, runs
// them through the state machine and hands the rendered payload to an output.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/infobot/core/logger"
	"github.com/m3rciful/infobot/core/menu/nav"
	"github.com/m3rciful/infobot/core/menu/render"
	"github.com/m3rciful/infobot/core/metrics"
	"github.com/m3rciful/infobot/core/telegram/callbacks"
	tghelpers "github.com/m3rciful/infobot/core/telegram/helpers"
	"github.com/m3rciful/infobot/core/telegram/middleware"
)

// Discard reasons reported to metrics and logs.
const (
	reasonNoToken   = "no_token"
	reasonNoMessage = "no_message"
	reasonNoChat    = "no_chat"
)

// Dispatcher is the entry point for menu updates. It keeps no per-chat state.
type Dispatcher struct {
	machine  *nav.Machine
	renderer *render.Renderer
	out      Output
	metrics  *metrics.Menu
}

// New wires a dispatcher. m may be nil to disable metrics.
func New(machine *nav.Machine, renderer *render.Renderer, out Output, m *metrics.Menu) (*Dispatcher, error) {
	if machine == nil || renderer == nil || out == nil {
		return nil, fmt.Errorf("dispatch: machine, renderer and output are required")
	}
	return &Dispatcher{machine: machine, renderer: renderer, out: out, metrics: m}, nil
}

// HandleText handles text messages. Only the exact entry command is acted upon.
func (d *Dispatcher) HandleText(c tele.Context) error {
	ev, ok := ClassifyText(c.Text(), d.machine.EntryCommand())
	if !ok {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	chat := c.Chat()
	if chat == nil {
		d.discard(ctx, reasonNoChat, "")
		return nil
	}
	return d.counted(c, d.Dispatch(ctx, ev, chat, nil))
}

// HandleCallback handles inline control presses.
func (d *Dispatcher) HandleCallback(c tele.Context) error {
	cb := c.Callback()
	if cb == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)

	ev, ok := ClassifyCallback(cb)
	if !ok {
		if ev.Token == "" {
			d.discard(ctx, reasonNoToken, "")
			return nil
		}
		// Detached from any message: nothing to edit, but the press still needs an answer.
		d.discard(ctx, reasonNoMessage, ev.Token)
		if err := d.out.Ack(ctx, cb); err != nil {
			d.metrics.Failed("gateway")
			return err
		}
		return nil
	}
	return d.counted(c, d.Dispatch(ctx, ev, c.Chat(), cb))
}

// counted feeds the per-update message counters read by the handler summary.
func (d *Dispatcher) counted(c tele.Context, err error) error {
	if err == nil {
		middleware.RecordSent(c, true)
	}
	return err
}

// ClassifyText turns text into a Command when it matches entry exactly.
func ClassifyText(text, entry string) (nav.Command, bool) {
	if text == "" || text != entry {
		return nav.Command{}, false
	}
	return nav.Command{Name: text}, true
}

// ClassifyCallback extracts the routing token and hosting message of cb.
// When ok is false the returned token, if any, is still set.
func ClassifyCallback(cb *tele.Callback) (nav.ControlActivation, bool) {
	if cb == nil {
		return nav.ControlActivation{}, false
	}
	token, _ := callbacks.ParseCallbackData(cb)
	ev := nav.ControlActivation{Token: token}
	if token == "" {
		return ev, false
	}
	msg := cb.Message
	if msg == nil || msg.Chat == nil || msg.ID == 0 {
		return ev, false
	}
	ev.Ref = nav.MessageRef{ChatID: msg.Chat.ID, MessageID: msg.ID}
	return ev, true
}

// Dispatch runs one cycle for ev. cb is acknowledged exactly once when non-nil,
// whatever the outcome of the display update.
func (d *Dispatcher) Dispatch(ctx context.Context, ev nav.Event, to tele.Recipient, cb *tele.Callback) error {
	start := time.Now()

	in, err := d.machine.Next(ev)
	if errors.Is(err, nav.ErrNotHandled) {
		if cb != nil {
			return d.ack(ctx, cb)
		}
		return nil
	}
	if err != nil {
		d.metrics.Failed("decide")
		return errors.Join(err, d.ackIf(ctx, cb))
	}

	if in.Signal == nav.SignalUnknownControl {
		d.metrics.UnknownControl()
		token := ""
		if a, ok := ev.(nav.ControlActivation); ok {
			token = a.Token
		}
		logger.Warn(ctx, "menu", "menu.unknown_control",
			slog.String("status", "ok"),
			slog.String("token", logger.SanitizeLimit(token, 64)),
		)
	}

	p, err := d.renderer.Render(in)
	if err != nil {
		d.metrics.Failed("render")
		d.logCycle(ctx, in, start, err)
		return errors.Join(err, d.ackIf(ctx, cb))
	}

	var errs []error
	if cb != nil {
		if err := d.ack(ctx, cb); err != nil {
			errs = append(errs, err)
		}
	}
	if err := d.out.Display(ctx, to, p); err != nil {
		d.metrics.Failed("gateway")
		errs = append(errs, err)
	} else {
		d.metrics.Rendered(string(p.Screen), p.Mode.String())
	}

	err = errors.Join(errs...)
	d.logCycle(ctx, in, start, err)
	return err
}

func (d *Dispatcher) ack(ctx context.Context, cb *tele.Callback) error {
	if err := d.out.Ack(ctx, cb); err != nil {
		d.metrics.Failed("gateway")
		return err
	}
	return nil
}

func (d *Dispatcher) ackIf(ctx context.Context, cb *tele.Callback) error {
	if cb == nil {
		return nil
	}
	return d.ack(ctx, cb)
}

func (d *Dispatcher) discard(ctx context.Context, reason, token string) {
	d.metrics.Discarded(reason)
	attrs := []slog.Attr{
		slog.String("status", "skip"),
		slog.String("reason", reason),
	}
	if token != "" {
		attrs = append(attrs, slog.String("token", logger.SanitizeLimit(token, 64)))
	}
	logger.Debug(ctx, "menu", "menu.discard", attrs...)
}

func (d *Dispatcher) logCycle(ctx context.Context, in nav.Instruction, start time.Time, err error) {
	attrs := []slog.Attr{
		slog.String("screen", string(in.Target)),
		slog.String("mode", in.Mode.String()),
		slog.Duration("duration", logger.Took(start)),
	}
	if in.Signal != nav.SignalNone {
		attrs = append(attrs, slog.String("signal", in.Signal.String()))
	}
	if err != nil {
		attrs = append([]slog.Attr{slog.String("status", "fail")}, attrs...)
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(err.Error(), 256)))
		logger.Error(ctx, "menu", "menu.dispatch", attrs...)
		return
	}
	attrs = append([]slog.Attr{slog.String("status", "ok")}, attrs...)
	logger.Debug(ctx, "menu", "menu.dispatch", attrs...)
}
