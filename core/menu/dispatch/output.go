package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/infobot/core/menu/nav"
	"github.com/m3rciful/infobot/core/menu/render"
	"github.com/m3rciful/infobot/core/telegram/keyboard"
)

// Gateway is the subset of the Telegram client used for display updates.
// *tele.Bot satisfies it.
type Gateway interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
	Edit(msg tele.Editable, what interface{}, opts ...interface{}) (*tele.Message, error)
	Respond(c *tele.Callback, resp ...*tele.CallbackResponse) error
}

// Output performs display updates and callback acknowledgments.
type Output interface {
	Display(ctx context.Context, to tele.Recipient, p render.Payload) error
	Ack(ctx context.Context, cb *tele.Callback) error
}

// GatewayError wraps a failed outbound call.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("gateway %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Code is picked up by the handler summary log as err_code.
func (e *GatewayError) Code() string {
	return "GATEWAY_" + strings.ToUpper(e.Op)
}

// ErrNoRecipient is returned when a new display has no chat to go to.
var ErrNoRecipient = errors.New("dispatch: no recipient for new display")

// TelebotOutput renders payloads as MarkdownV2 messages with inline keyboards.
type TelebotOutput struct {
	gw Gateway
}

// NewTelebotOutput returns an output adapter bound to gw.
func NewTelebotOutput(gw Gateway) *TelebotOutput {
	return &TelebotOutput{gw: gw}
}

// Display sends a new message or edits p.Ref in place depending on p.Mode.
func (o *TelebotOutput) Display(_ context.Context, to tele.Recipient, p render.Payload) error {
	opts := &tele.SendOptions{
		ParseMode:   tele.ModeMarkdownV2,
		ReplyMarkup: Markup(p.Rows),
	}
	switch p.Mode {
	case nav.ModeNew:
		if to == nil {
			return &GatewayError{Op: "send", Err: ErrNoRecipient}
		}
		if _, err := o.gw.Send(to, p.Text, opts); err != nil {
			return &GatewayError{Op: "send", Err: err}
		}
	case nav.ModeEdit:
		if _, err := o.gw.Edit(p.Ref, p.Text, opts); err != nil {
			// Pressing a control that leads to the screen already shown.
			if errors.Is(err, tele.ErrSameMessageContent) {
				return nil
			}
			return &GatewayError{Op: "edit", Err: err}
		}
	default:
		return &GatewayError{Op: "display", Err: fmt.Errorf("unsupported display mode %s", p.Mode)}
	}
	return nil
}

// Ack answers the callback so the client stops its progress indicator.
func (o *TelebotOutput) Ack(_ context.Context, cb *tele.Callback) error {
	if err := o.gw.Respond(cb); err != nil {
		return &GatewayError{Op: "ack", Err: err}
	}
	return nil
}

// Markup converts control rows into an inline keyboard, preserving order.
func Markup(rows [][]nav.Control) *tele.ReplyMarkup {
	btnRows := make([][]keyboard.InlineBtn, 0, len(rows))
	for _, row := range rows {
		btns := make([]keyboard.InlineBtn, 0, len(row))
		for _, c := range row {
			btns = append(btns, keyboard.InlineBtn{Text: c.Label, Unique: c.Token})
		}
		btnRows = append(btnRows, btns)
	}
	return keyboard.InlineButtonsRows(btnRows...)
}
