package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

func TestParseCallbackData(t *testing.T) {
	cases := []struct {
		name    string
		cb      *tele.Callback
		key     string
		payload string
	}{
		{name: "nil", cb: nil},
		{name: "empty", cb: &tele.Callback{}},
		{name: "telebot unique", cb: &tele.Callback{Data: "\fboard"}, key: "board"},
		{name: "telebot unique with payload", cb: &tele.Callback{Data: "\fboard|7"}, key: "board", payload: "7"},
		{name: "plain data", cb: &tele.Callback{Data: "github_info"}, key: "github_info"},
		{name: "already split", cb: &tele.Callback{Unique: "repository", Data: "x"}, key: "repository", payload: "x"},
		{name: "only prefix", cb: &tele.Callback{Data: "\f"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			key, payload := ParseCallbackData(tc.cb)
			assert.Equal(t, tc.key, key)
			assert.Equal(t, tc.payload, payload)
		})
	}
}
