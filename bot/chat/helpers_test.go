package chat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr error
	}{
		{in: "500", want: 500},
		{in: " 1,200 ", want: 1200},
		{in: "₹750", want: 750},
		{in: "Rs. 900/-", want: 900},
		{in: "rs 1500", want: 1500},
		{in: "INR 2000", want: 2000},
		{in: "1.5k", want: 1500},
		{in: "2K", want: 2000},
		{in: "99", wantErr: ErrAmountTooLow},
		{in: "200000", wantErr: ErrAmountTooHigh},
		{in: "abc", wantErr: ErrNotAmount},
		{in: "", wantErr: ErrNotAmount},
		{in: "-500", wantErr: ErrNotAmount},
		{in: "k", wantErr: ErrNotAmount},
		{in: "1e3", wantErr: ErrNotAmount},
		{in: "0x1p10", wantErr: ErrNotAmount},
		{in: "1e300", wantErr: ErrNotAmount},
		{in: "Inf", wantErr: ErrNotAmount},
		{in: "1_000", wantErr: ErrNotAmount},
		{in: "99999999999999999999999", wantErr: ErrAmountTooHigh},
		{in: "1250.6", want: 1251},
	}

	for _, tt := range tests {
		got, err := ParseAmount(tt.in, 100, 100000)
		if tt.wantErr != nil {
			assert.ErrorIs(t, err, tt.wantErr, "input %q", tt.in)
			continue
		}
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.want, got, "input %q", tt.in)
	}
}

func TestIsSkip(t *testing.T) {
	assert.True(t, IsSkip(IncomingMessage{Type: MessageText, Text: " Skip "}))
	assert.True(t, IsSkip(IncomingMessage{Type: MessageText, Text: "venda"}))
	assert.True(t, IsSkip(IncomingMessage{Type: MessageButtonReply, Selection: ParseSelection("nav:skip")}))

	assert.False(t, IsSkip(IncomingMessage{Type: MessageText, Text: "skipping rope"}))
	assert.False(t, IsSkip(IncomingMessage{Type: MessageButtonReply, Selection: ParseSelection("nav:menu")}))
	assert.False(t, IsSkip(IncomingMessage{Type: MessageImage, Caption: "skip"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", Truncate("hello", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
	assert.Equal(t, "നന്", Truncate("നന്ദി", 3))
	assert.Equal(t, "hello", Truncate("hello", 0))
}

func TestPhoneHelpers(t *testing.T) {
	assert.Equal(t, "+919876543210", NormalizePhone("+91 98765-43210"))
	assert.Equal(t, "", NormalizePhone("n/a"))

	assert.True(t, IsValidPhone("+91 98765 43210"))
	assert.True(t, IsValidPhone("9876543210"))
	assert.False(t, IsValidPhone("12345"))
	assert.False(t, IsValidPhone("+1234567890123456"))
}

func TestChoice(t *testing.T) {
	options := []Button{
		{ID: "cat:plumber", Title: "Plumber"},
		{ID: "cat:electrician", Title: "Electrician"},
	}

	assert.Equal(t, "cat:electrician", Choice(IncomingMessage{Type: MessageText, Text: "2"}, options).String())
	assert.Equal(t, "cat:plumber", Choice(IncomingMessage{Type: MessageText, Text: "plumber"}, options).String())
	assert.Equal(t, "cat:plumber", Choice(IncomingMessage{Type: MessageListReply, Selection: ParseSelection("cat:plumber")}, options).String())

	assert.Nil(t, Choice(IncomingMessage{Type: MessageText, Text: "3"}, options))
	assert.Nil(t, Choice(IncomingMessage{Type: MessageListReply, Selection: ParseSelection("cat:mason")}, options))
	assert.Nil(t, Choice(IncomingMessage{Type: MessageText, Text: "  "}, options))

	sections := []Section{{Title: "Trades", Rows: []Row{{ID: "cat:mason", Title: "Mason"}}}}
	assert.Equal(t, "cat:mason", RowChoice(IncomingMessage{Type: MessageText, Text: "1"}, sections).String())
}

func TestSessionAccessors(t *testing.T) {
	s := NewSession(phone)
	s.Set("count", int32(4))
	s.Set("pay", 850.0)
	s.Set("title", "Fix tap")
	s.Set("note", nil)

	assert.Equal(t, int64(4), s.GetInt("count"))
	assert.Equal(t, int64(850), s.GetInt("pay"))
	assert.Equal(t, 850.0, s.GetFloat("pay"))
	assert.Equal(t, "Fix tap", s.GetString("title"))
	assert.Equal(t, "", s.GetString("count"))
	assert.True(t, s.Has("note"))
	assert.False(t, s.Has("missing"))
	assert.Equal(t, "def", s.Get("missing", "def"))
}

func TestSessionBindAndFields(t *testing.T) {
	type draft struct {
		Title string `json:"title"`
		Pay   int64  `json:"pay"`
		Note  string `json:"note,omitempty"`
	}

	fields, err := Fields(draft{Title: "Paint wall", Pay: 1200})
	require.NoError(t, err)
	assert.Equal(t, "Paint wall", fields["title"])
	assert.NotContains(t, fields, "note")

	s := NewSession(phone)
	s.Merge(fields)

	var got draft
	require.NoError(t, s.Bind(&got))
	assert.Equal(t, draft{Title: "Paint wall", Pay: 1200}, got)
}

func TestCheckpointRestore(t *testing.T) {
	s := NewSession(phone)
	s.FlowType = flowForm
	s.CurrentStep = stepAmount
	s.Set("name", "Asha")

	cp := s.checkpoint()
	s.Set("name", "Other")
	s.Set("extra", 1)
	s.CurrentStep = stepConfirm
	s.ReturnStep = stepConfirm

	s.restore(cp)
	assert.Equal(t, stepAmount, s.CurrentStep)
	assert.Empty(t, s.ReturnStep)
	assert.Equal(t, map[string]any{"name": "Asha"}, s.TempData)
}
