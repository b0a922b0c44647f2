package chat

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarioNameAmountConfirm(t *testing.T) {
	h := newHarness()

	require.NoError(t, h.text("hello"))
	s := h.session()
	require.NotNil(t, s)
	assert.Equal(t, flowMenu, s.FlowType)
	assert.Equal(t, promptMenu, h.m.last().body)

	require.NoError(t, h.press("menu:form"))
	s = h.session()
	assert.Equal(t, flowForm, s.FlowType)
	assert.Equal(t, stepName, s.CurrentStep)
	assert.Empty(t, s.TempData)
	assert.Equal(t, promptName, h.m.last().body)

	require.NoError(t, h.text("Rahul"))
	s = h.session()
	assert.Equal(t, stepAmount, s.CurrentStep)
	assert.Equal(t, "Rahul", s.GetString("name"))

	require.NoError(t, h.text("abc"))
	s = h.session()
	assert.Equal(t, stepAmount, s.CurrentStep)
	assert.Equal(t, map[string]any{"name": "Rahul"}, s.TempData)
	assert.Equal(t, promptAmount, h.m.last().body)
	assert.True(t, contains(h.m.bodies(), "between 100 and 100000"))

	require.NoError(t, h.text("500"))
	s = h.session()
	assert.Equal(t, stepNote, s.CurrentStep)
	assert.Equal(t, int64(500), s.GetInt("amount"))

	require.NoError(t, h.text("skip"))
	s = h.session()
	assert.Equal(t, stepConfirm, s.CurrentStep)

	require.NoError(t, h.press("confirm"))
	s = h.session()
	assert.Equal(t, 1, h.records.created)
	assert.True(t, s.Idle())
	assert.Empty(t, s.TempData)
}

func TestStartIsIdempotent(t *testing.T) {
	ctx := context.Background()
	for _, step := range []StepID{stepName, stepAmount, stepNote, stepConfirm} {
		h := newHarness()
		h.seed(flowForm, step, map[string]any{"name": "Asha", "amount": int64(900), "stale": true})

		s := h.session()
		require.NoError(t, h.engine.Start(ctx, h.m, s, flowForm))
		require.NoError(t, h.engine.Start(ctx, h.m, s, flowForm))

		stored := h.session()
		assert.Equal(t, stepName, stored.CurrentStep, "from %s", step)
		assert.Empty(t, stored.TempData, "from %s", step)
		assert.Empty(t, stored.ReturnStep)
	}
}

func TestInvalidInputNeverAdvances(t *testing.T) {
	temp := map[string]any{"name": "Asha", "amount": int64(900)}
	cases := []struct {
		step StepID
		in   IncomingMessage
	}{
		{stepName, IncomingMessage{Type: MessageText, Text: "A"}},
		{stepName, IncomingMessage{Type: MessageImage, MediaID: "m1"}},
		{stepAmount, IncomingMessage{Type: MessageText, Text: "abc"}},
		{stepAmount, IncomingMessage{Type: MessageText, Text: "5"}},
		{stepAmount, IncomingMessage{Type: MessageText, Text: "9999999"}},
		{stepNote, IncomingMessage{Type: MessageLocation, Location: &Location{Latitude: 10, Longitude: 76}}},
		{stepConfirm, IncomingMessage{Type: MessageText, Text: "maybe"}},
		{stepConfirm, IncomingMessage{Type: MessageButtonReply, SelectionID: "edit:unknown"}},
	}

	for _, tc := range cases {
		h := newHarness()
		h.seed(flowForm, tc.step, temp)

		tc.in.From = phone
		require.NoError(t, h.engine.HandleMessage(context.Background(), h.m, tc.in))

		s := h.session()
		assert.Equal(t, tc.step, s.CurrentStep, "step %s input %+v", tc.step, tc.in)
		assert.Equal(t, temp, s.TempData, "step %s input %+v", tc.step, tc.in)
		assert.Zero(t, h.records.created)
	}
}

func TestTerminalSideEffectRunsOnce(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepConfirm, map[string]any{"name": "Asha", "amount": int64(900)})

	s := h.session()
	step, _ := newFormFlow(h.records, nil).GetStep(stepDone)
	done := step.(Enterer)

	first := done.Enter(context.Background(), h.m, s)
	second := done.Enter(context.Background(), h.m, s)
	assert.True(t, first.Complete)
	assert.True(t, second.Complete)
	assert.Equal(t, 1, h.records.created)
}

func TestDuplicateConfirmCreatesOnce(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepConfirm, map[string]any{"name": "Asha", "amount": int64(900)})

	require.NoError(t, h.press("confirm"))
	require.NoError(t, h.press("confirm"))

	assert.Equal(t, 1, h.records.created)
}

func TestMenuAlwaysWins(t *testing.T) {
	for _, step := range []StepID{stepName, stepAmount, stepNote, stepConfirm} {
		for _, send := range []func(h *harness) error{
			func(h *harness) error { return h.text("menu") },
			func(h *harness) error { return h.text("Main Menu") },
			func(h *harness) error { return h.press("nav:menu") },
		} {
			h := newHarness()
			h.seed(flowForm, step, map[string]any{"name": "Asha"})

			require.NoError(t, send(h))

			s := h.session()
			assert.Equal(t, flowMenu, s.FlowType, "from %s", step)
			assert.Empty(t, s.TempData)
			assert.Equal(t, promptMenu, h.m.last().body)
		}
	}
}

func TestSkipStoresDefault(t *testing.T) {
	for _, send := range []func(h *harness) error{
		func(h *harness) error { return h.text("Skip") },
		func(h *harness) error { return h.text("later") },
		func(h *harness) error { return h.press("nav:skip") },
	} {
		h := newHarness()
		h.seed(flowForm, stepNote, map[string]any{"name": "Asha", "amount": int64(900)})

		require.NoError(t, send(h))

		s := h.session()
		assert.Equal(t, stepConfirm, s.CurrentStep)
		assert.True(t, s.Has("note"))
		assert.Nil(t, s.Get("note", "unset"))
		assert.Equal(t, "Asha", s.GetString("name"))
	}
}

func TestEditRoundTrip(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepConfirm, map[string]any{"name": "Asha", "amount": int64(900), "note": "gate 2"})

	require.NoError(t, h.press("edit:amount"))
	s := h.session()
	assert.Equal(t, stepAmount, s.CurrentStep)
	assert.Equal(t, stepConfirm, s.ReturnStep)
	assert.Equal(t, promptAmount, h.m.last().body)

	require.NoError(t, h.text("oops"))
	s = h.session()
	assert.Equal(t, stepAmount, s.CurrentStep)
	assert.True(t, s.Editing())

	require.NoError(t, h.text("1,250"))
	s = h.session()
	assert.Equal(t, stepConfirm, s.CurrentStep)
	assert.False(t, s.Editing())
	assert.Equal(t, int64(1250), s.GetInt("amount"))
	assert.Equal(t, "Asha", s.GetString("name"))
	assert.Equal(t, "gate 2", s.GetString("note"))
	assert.Equal(t, promptConfirm, h.m.last().body)
}

func TestTypedEditChoice(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepConfirm, map[string]any{"name": "Asha", "amount": int64(900)})

	require.NoError(t, h.text("2"))

	s := h.session()
	assert.Equal(t, stepName, s.CurrentStep)
	assert.Equal(t, stepConfirm, s.ReturnStep)

	require.NoError(t, h.text("Asha K"))
	s = h.session()
	assert.Equal(t, stepConfirm, s.CurrentStep)
	assert.Equal(t, "Asha K", s.GetString("name"))
	assert.Equal(t, int64(900), s.GetInt("amount"))
}

func TestStaleStepRestartsFlow(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, "ask_age", map[string]any{"name": "Asha"})

	require.NoError(t, h.text("42"))

	s := h.session()
	assert.Equal(t, flowForm, s.FlowType)
	assert.Equal(t, stepName, s.CurrentStep)
	assert.Empty(t, s.TempData)
}

func TestStaleFlowFallsBackToDefault(t *testing.T) {
	h := newHarness()
	h.seed("legacy_flow", "anything", map[string]any{"x": 1})

	require.NoError(t, h.text("hello"))

	s := h.session()
	assert.Equal(t, flowMenu, s.FlowType)
	assert.Empty(t, s.TempData)
}

func TestRetryRepromptsWithoutMutation(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepAmount, map[string]any{"name": "Asha"})

	require.NoError(t, h.text("retry"))

	s := h.session()
	assert.Equal(t, stepAmount, s.CurrentStep)
	assert.Equal(t, map[string]any{"name": "Asha"}, s.TempData)
	assert.Equal(t, promptAmount, h.m.last().body)
}

func TestCancelCleansUpAndReturnsToMenu(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepNote, map[string]any{"name": "Asha"})

	require.NoError(t, h.press("nav:cancel"))

	s := h.session()
	assert.Equal(t, flowMenu, s.FlowType)
	assert.Empty(t, s.TempData)
	assert.Equal(t, 1, h.cleaned)
	assert.True(t, contains(h.m.bodies(), textCancelled))
}

func TestNavigationPanicDegradesToDispatch(t *testing.T) {
	h := newHarness()
	h.m.panicButtons = true
	h.seed(flowForm, stepName, nil)

	assert.NotPanics(t, func() {
		require.NoError(t, h.text("menu"))
	})

	s := h.session()
	assert.Equal(t, flowForm, s.FlowType)
	assert.Equal(t, stepAmount, s.CurrentStep)
	assert.Equal(t, "menu", s.GetString("name"))
}

func TestBusinessFailureKeepsState(t *testing.T) {
	h := newHarness()
	h.records.fail = errBoom
	temp := map[string]any{"name": "Asha", "amount": int64(900)}
	h.seed(flowForm, stepConfirm, temp)

	require.NoError(t, h.press("confirm"))

	s := h.session()
	assert.Equal(t, stepConfirm, s.CurrentStep)
	assert.Equal(t, temp, s.TempData)

	last := h.m.last()
	assert.Equal(t, "buttons", last.kind)
	assert.Equal(t, textFailure, last.body)
	require.Len(t, last.buttons, 2)
	assert.Equal(t, "nav:retry", last.buttons[0].ID)
	assert.Equal(t, "nav:menu", last.buttons[1].ID)

	h.records.fail = nil
	require.NoError(t, h.press("nav:retry"))
	assert.Equal(t, promptConfirm, h.m.last().body)

	require.NoError(t, h.press("confirm"))
	assert.Equal(t, 1, h.records.created)
	assert.True(t, h.session().Idle())
}

func TestCollaboratorFailurePropagates(t *testing.T) {
	mem := NewMemoryStorage()
	engine := NewEngine(failingStorage{MemoryStorage: mem, err: errBoom}, discardLogger())
	require.NoError(t, engine.RegisterFlow(newMenuFlow()))
	require.NoError(t, engine.SetDefaultFlow(flowMenu))

	err := engine.HandleMessage(context.Background(), &fakeMessenger{}, IncomingMessage{From: phone, Type: MessageText, Text: "hi"})
	assert.ErrorIs(t, err, errBoom)
}

func TestMessengerFailurePropagates(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepAmount, map[string]any{"name": "Asha"})
	h.m.failText = errBoom

	err := h.text("abc")
	assert.ErrorIs(t, err, errBoom)
}

func TestHandleTimeout(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepConfirm, map[string]any{"name": "Asha"})

	s := h.session()
	require.NoError(t, h.engine.HandleTimeout(context.Background(), h.m, s))

	stored := h.session()
	assert.True(t, stored.Idle())
	assert.Empty(t, stored.TempData)
	assert.Equal(t, 1, h.cleaned)
	assert.Equal(t, textTimeout, h.m.last().body)

	count := len(h.m.bodies())
	require.NoError(t, h.engine.HandleTimeout(context.Background(), h.m, stored))
	assert.Len(t, h.m.bodies(), count)
}

func TestHandleTimeoutSkipsStaleSnapshot(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepName, nil)

	snapshot := h.session()
	snapshot.UpdatedAt = snapshot.UpdatedAt.Add(-time.Second)
	require.NoError(t, h.text("Rahul"))
	count := len(h.m.bodies())

	require.NoError(t, h.engine.HandleTimeout(context.Background(), h.m, snapshot))

	stored := h.session()
	assert.Equal(t, flowForm, stored.FlowType)
	assert.Equal(t, stepAmount, stored.CurrentStep)
	assert.Equal(t, "Rahul", stored.GetString("name"))
	assert.Zero(t, h.cleaned)
	assert.Len(t, h.m.bodies(), count)
}

func TestHandleTimeoutWaitsForInflightMessage(t *testing.T) {
	h := newHarness()
	h.seed(flowForm, stepName, nil)
	snapshot := h.session()

	unlock := h.engine.locks.Lock(phone)
	done := make(chan error, 1)
	go func() {
		done <- h.engine.HandleTimeout(context.Background(), h.m, snapshot)
	}()

	select {
	case <-done:
		t.Fatal("timeout ran while the phone was locked")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	require.NoError(t, <-done)
	assert.True(t, h.session().Idle())
}

func TestMessageWithoutSender(t *testing.T) {
	h := newHarness()
	assert.Error(t, h.engine.HandleMessage(context.Background(), h.m, IncomingMessage{Type: MessageText, Text: "hi"}))
}

type recordingObserver struct {
	outcomes    []string
	completions []string
	failures    []string
}

func (r *recordingObserver) ObserveMessage(flow, outcome string) {
	r.outcomes = append(r.outcomes, flow+":"+outcome)
}
func (r *recordingObserver) ObserveTransition(string, string) {}
func (r *recordingObserver) ObserveCompletion(flow string) {
	r.completions = append(r.completions, flow)
}
func (r *recordingObserver) ObserveFailure(flow, kind string) {
	r.failures = append(r.failures, flow+":"+kind)
}

type recordingListener struct {
	changes []Session
}

func (r *recordingListener) SessionChanged(s Session) {
	r.changes = append(r.changes, s)
}

func TestObserverAndListener(t *testing.T) {
	h := newHarness()
	obs := &recordingObserver{}
	lis := &recordingListener{}
	h.engine.SetObserver(obs)
	h.engine.SetListener(lis)
	h.seed(flowForm, stepConfirm, map[string]any{"name": "Asha", "amount": int64(900)})

	require.NoError(t, h.press("confirm"))

	assert.Contains(t, obs.completions, string(flowForm))
	require.NotEmpty(t, lis.changes)
	assert.True(t, lis.changes[len(lis.changes)-1].Idle())
}
