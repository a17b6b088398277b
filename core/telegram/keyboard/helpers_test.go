package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRowsKeepsOrder(t *testing.T) {
	m := InlineButtonsRows(
		[]InlineBtn{{Text: "Как работать в github", Unique: "github_info"}},
		[]InlineBtn{{Text: "Репозиторий", Unique: "repository"}, {Text: "Доска YouGile", Unique: "board", Data: "p"}},
	)
	require.Len(t, m.InlineKeyboard, 2)
	require.Len(t, m.InlineKeyboard[1], 2)

	assert.Equal(t, "Как работать в github", m.InlineKeyboard[0][0].Text)
	assert.Equal(t, "github_info", m.InlineKeyboard[0][0].Unique)
	assert.Empty(t, m.InlineKeyboard[0][0].Data)
	assert.Equal(t, "board", m.InlineKeyboard[1][1].Unique)
	assert.Equal(t, "p", m.InlineKeyboard[1][1].Data)
}
