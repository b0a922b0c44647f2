package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSelection(t *testing.T) {
	sel := ParseSelection("job.apply:42")
	if assert.NotNil(t, sel) {
		assert.Equal(t, "job.apply", sel.Action)
		assert.Equal(t, "42", sel.Value)
		assert.Equal(t, uint(42), sel.ID())
		assert.True(t, sel.Is("job.apply"))
		assert.True(t, sel.Is("job.apply", "42"))
		assert.False(t, sel.Is("job.apply", "7"))
	}

	sel = ParseSelection("confirm")
	if assert.NotNil(t, sel) {
		assert.Equal(t, "confirm", sel.Action)
		assert.Empty(t, sel.Value)
		assert.Zero(t, sel.ID())
	}

	assert.Equal(t, "note:a:b", ParseSelection("note:a:b").String())
	assert.Nil(t, ParseSelection(""))
	assert.Nil(t, ParseSelection(":42"))

	var none *Selection
	assert.False(t, none.Is(ActionNav))
	assert.Empty(t, none.String())
	assert.Zero(t, none.ID())
}

func TestSelectBuilders(t *testing.T) {
	assert.Equal(t, "nav:menu", Select(ActionNav, NavMenu))
	assert.Equal(t, "confirm", Select(ActionConfirm))
	assert.Equal(t, "confirm", Select(ActionConfirm, ""))
	assert.Equal(t, "job.view:17", SelectID("job.view", 17))
}

func TestNavigatorMatch(t *testing.T) {
	n := NewNavigator()

	tests := []struct {
		name string
		in   IncomingMessage
		want Command
	}{
		{"menu text", IncomingMessage{Type: MessageText, Text: " MENU "}, CommandMenu},
		{"hash", IncomingMessage{Type: MessageText, Text: "#"}, CommandMenu},
		{"cancel text", IncomingMessage{Type: MessageText, Text: "Cancel"}, CommandCancel},
		{"retry text", IncomingMessage{Type: MessageText, Text: "again"}, CommandRetry},
		{"nav button", IncomingMessage{Type: MessageButtonReply, Selection: ParseSelection("nav:cancel")}, CommandCancel},
		{"skip is not navigation", IncomingMessage{Type: MessageButtonReply, Selection: ParseSelection("nav:skip")}, CommandNone},
		{"flow button", IncomingMessage{Type: MessageButtonReply, Selection: ParseSelection("menu:form")}, CommandNone},
		{"plain answer", IncomingMessage{Type: MessageText, Text: "menu please"}, CommandNone},
		{"caption ignored", IncomingMessage{Type: MessageImage, Caption: "menu"}, CommandNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Match(tt.in))
		})
	}
}

func TestNavigatorAddPhrases(t *testing.T) {
	n := NewNavigator()
	n.AddPhrases(CommandMenu, "Thudakkam")

	assert.Equal(t, CommandMenu, n.Match(IncomingMessage{Type: MessageText, Text: "thudakkam"}))
	assert.Equal(t, "menu", CommandMenu.String())
	assert.Equal(t, "none", CommandNone.String())
}
