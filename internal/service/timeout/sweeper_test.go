package timeout

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/chattest"
)

type askStep struct{ id chat.StepID }

func (a askStep) ID() chat.StepID          { return a.id }
func (a askStep) Accepts() chat.InputKind { return chat.InputText }
func (a askStep) Prompt(_ context.Context, m chat.Messenger, s *chat.Session) error {
	return m.SendText(s.Phone, "question "+string(a.id))
}
func (a askStep) HandleInput(context.Context, chat.Messenger, *chat.Session, chat.IncomingMessage) chat.StepResult {
	return chat.StepResult{NextStep: "second", UpdateState: map[string]any{"answer": "x"}}
}

func flows() (chat.Flow, chat.Flow) {
	menu := chat.NewSequence("menu").Add(askStep{id: "menu"}).Terminal("menu")
	form := chat.NewSequence("form").Add(askStep{id: "first"}, askStep{id: "second"}).Terminal("second")
	return menu, form
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSweepResetsIdleSessions(t *testing.T) {
	menu, form := flows()
	c := chattest.New(t, menu, form)
	c.Start("form")
	c.Text("hello")
	require.Equal(t, chat.StepID("second"), c.Session().CurrentStep)

	sweeper := NewSweeper(c.Storage, c.Engine, c.Messenger, 30*time.Minute, time.Minute, discard())

	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)

	sweeper.now = func() time.Time { return time.Now().Add(time.Hour) }
	n, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	s := c.Session()
	assert.True(t, s.Idle())
	assert.Empty(t, s.TempData)
	assert.True(t, c.Messenger.Saw("timed out"))
}

func TestSweepSkipsDefaultFlow(t *testing.T) {
	menu, form := flows()
	c := chattest.New(t, menu, form)
	c.Text("hi")
	require.Equal(t, chat.FlowID("menu"), c.Session().FlowType)

	sweeper := NewSweeper(c.Storage, c.Engine, c.Messenger, time.Minute, time.Minute, discard())
	sweeper.now = func() time.Time { return time.Now().Add(time.Hour) }

	n, err := sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, chat.FlowID("menu"), c.Session().FlowType)
}

type failingEngine struct{ calls int }

func (f *failingEngine) HandleTimeout(context.Context, chat.Messenger, *chat.Session) error {
	f.calls++
	return errors.New("messenger down")
}

func (f *failingEngine) DefaultFlow() chat.FlowID { return "" }

func TestSweepContinuesPastFailures(t *testing.T) {
	storage := chat.NewMemoryStorage()
	ctx := context.Background()
	for _, phone := range []string{"+911111111111", "+912222222222"} {
		s := chat.NewSession(phone)
		s.FlowType, s.CurrentStep = "form", "first"
		s.UpdatedAt = time.Now().Add(-time.Hour)
		require.NoError(t, storage.Save(ctx, s))
	}

	engine := &failingEngine{}
	sweeper := NewSweeper(storage, engine, nil, time.Minute, time.Minute, discard())

	n, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, 2, engine.calls)
}

func TestRunStopsWithContext(t *testing.T) {
	menu, form := flows()
	c := chattest.New(t, menu, form)
	sweeper := NewSweeper(c.Storage, c.Engine, c.Messenger, time.Minute, 5*time.Millisecond, discard())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
