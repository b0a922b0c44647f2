package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Panikkar/bot/chat"
	"Panikkar/bot/chat/chattest"
	"Panikkar/entity"
)

const poster = "+919000000001"

type fakeMarket struct {
	workers  map[string]*entity.Worker
	jobs     []entity.Job
	applied  []string
	applyErr error
	// filled jobs still appear in listings but load as no longer open
	filled map[uint]bool
}

func (f *fakeMarket) WorkerByPhone(_ context.Context, phone string) (*entity.Worker, error) {
	return f.workers[phone], nil
}

func (f *fakeMarket) OpenJobs(_ context.Context, category string, offset, limit int) ([]entity.Job, error) {
	var open []entity.Job
	for _, j := range f.jobs {
		if j.IsOpen() && (category == "" || j.Category == category) {
			open = append(open, j)
		}
	}
	if offset >= len(open) {
		return nil, nil
	}
	open = open[offset:]
	if len(open) > limit {
		open = open[:limit]
	}
	return open, nil
}

func (f *fakeMarket) JobByID(_ context.Context, id uint) (*entity.Job, error) {
	for i := range f.jobs {
		if f.jobs[i].ID == id {
			j := f.jobs[i]
			if f.filled[id] {
				j.Status = entity.JobStatusFilled
			}
			return &j, nil
		}
	}
	return nil, nil
}

func (f *fakeMarket) Apply(_ context.Context, jobID uint, phone, note string) (*entity.Application, error) {
	if f.applyErr != nil {
		return nil, f.applyErr
	}
	f.applied = append(f.applied, fmt.Sprintf("%d:%s:%s", jobID, phone, note))
	return &entity.Application{ID: uint(len(f.applied)), JobID: jobID, WorkerPhone: phone, Note: note}, nil
}

func job(id uint, category, title string) entity.Job {
	j := entity.NewJob(poster, category, title, 1500)
	j.ID = id
	return *j
}

func setup(t *testing.T, market *fakeMarket) *chattest.Conversation {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := chattest.New(t, NewApplicationWorkflow(market, market, 50, log))
	c.Start(WorkflowID)
	return c
}

func registered(phone, category string) map[string]*entity.Worker {
	return map[string]*entity.Worker{phone: {Phone: phone, Name: "Asha", Category: category}}
}

func TestApplyHappyPath(t *testing.T) {
	market := &fakeMarket{
		workers: registered("+919876543210", "plumber"),
		jobs: []entity.Job{
			job(1, "plumber", "Fix kitchen tap"),
			job(2, "electrician", "Rewire bedroom"),
			job(3, "plumber", "Install water tank"),
		},
	}
	lat, lng := 10.0261, 76.3083
	market.jobs[0].Latitude, market.jobs[0].Longitude = &lat, &lng
	c := setup(t, market)

	list := c.Messenger.Last()
	assert.Contains(t, list.Body, "Plumber work")
	assert.Equal(t, []string{"job.view:1", "job.view:3"}, list.Options())

	c.Press("job.view:1")
	view := c.Messenger.Last()
	assert.Equal(t, []string{"job.apply:1", "back"}, view.Options())
	assert.Contains(t, view.Body, "Fix kitchen tap")
	assert.Contains(t, view.Body, "₹1,500")
	assert.True(t, hasKind(c.Messenger, "location"))

	c.Press("job.apply:1")
	assert.Equal(t, StepNote, c.Session().CurrentStep)

	c.Text("10 years with pipes")
	assert.Equal(t, StepConfirm, c.Session().CurrentStep)
	assert.Contains(t, c.Messenger.Last().Body, "10 years with pipes")

	c.Press(chat.ActionConfirm)
	assert.Equal(t, []string{"1:+919876543210:10 years with pipes"}, market.applied)
	assert.True(t, c.Session().Idle())
	assert.True(t, c.Messenger.Saw("Application sent"))

	var notified bool
	for _, s := range c.Messenger.All() {
		if s.To == poster && strings.Contains(s.Body, "New applicant") && strings.Contains(s.Body, "Asha (Plumber)") {
			notified = true
		}
	}
	assert.True(t, notified)
}

func hasKind(m *chattest.Messenger, kind string) bool {
	for _, s := range m.All() {
		if s.Kind == kind {
			return true
		}
	}
	return false
}

func TestApplyRequiresRegistration(t *testing.T) {
	market := &fakeMarket{jobs: []entity.Job{job(1, "plumber", "Fix tap"), job(2, "cook", "Sadya")}}
	c := setup(t, market)

	assert.Len(t, c.Messenger.Last().Options(), 2)

	c.Text("2")
	assert.Equal(t, StepView, c.Session().CurrentStep)
	assert.Equal(t, int64(2), c.Session().GetInt(KeyJobID))

	c.Press("job.apply:2")
	assert.Equal(t, StepView, c.Session().CurrentStep)
	assert.True(t, c.Messenger.Saw("Only registered workers can apply"))
	assert.Empty(t, market.applied)
}

func TestApplyOwnJobRefused(t *testing.T) {
	market := &fakeMarket{
		workers: registered("+919876543210", "plumber"),
		jobs:    []entity.Job{job(1, "plumber", "Fix tap")},
	}
	market.jobs[0].PosterPhone = "+919876543210"
	c := setup(t, market)

	c.Press("job.view:1")
	c.Press("job.apply:1")
	assert.Equal(t, StepView, c.Session().CurrentStep)
	assert.True(t, c.Messenger.Saw("your own job"))
}

func TestBrowsePaging(t *testing.T) {
	market := &fakeMarket{workers: registered("+919876543210", "helper")}
	for i := 1; i <= 10; i++ {
		market.jobs = append(market.jobs, job(uint(i), "helper", fmt.Sprintf("Shifting job %d", i)))
	}
	c := setup(t, market)

	first := c.Messenger.Last().Options()
	require.Len(t, first, pageSize+1)
	assert.Equal(t, "page:next", first[pageSize])

	c.Press("page:next")
	second := c.Messenger.Last().Options()
	assert.Equal(t, []string{"job.view:9", "job.view:10", "page:first"}, second)
	assert.Equal(t, int64(1), c.Session().GetInt(KeyPage))

	c.Press("page:first")
	assert.Equal(t, first, c.Messenger.Last().Options())
}

func TestBrowseWithoutJobs(t *testing.T) {
	c := setup(t, &fakeMarket{})

	last := c.Messenger.Last()
	assert.Contains(t, last.Body, "no open jobs")
	assert.Equal(t, []string{"nav:menu"}, last.Options())

	c.Text("hello")
	assert.Equal(t, StepBrowse, c.Session().CurrentStep)
	assert.True(t, c.Messenger.Saw("pick a job"))
}

func TestViewClosedJobReturnsToList(t *testing.T) {
	market := &fakeMarket{
		workers: registered("+919876543210", "plumber"),
		jobs:    []entity.Job{job(1, "plumber", "Fix tap"), job(2, "plumber", "Fix tank")},
	}
	c := setup(t, market)

	market.filled = map[uint]bool{1: true}
	c.Press("job.view:1")

	s := c.Session()
	assert.Equal(t, StepBrowse, s.CurrentStep)
	assert.Nil(t, s.Get(KeyJobID, nil))
	assert.True(t, c.Messenger.Saw("no longer available"))
	assert.Equal(t, "list", c.Messenger.Last().Kind)
}

func TestViewBack(t *testing.T) {
	market := &fakeMarket{jobs: []entity.Job{job(1, "plumber", "Fix tap")}}
	c := setup(t, market)

	c.Press("job.view:1")
	c.Text("back")
	assert.Equal(t, StepBrowse, c.Session().CurrentStep)
}

func TestApplyBusinessOutcomes(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{entity.ErrAlreadyApplied, "already applied"},
		{entity.ErrJobClosed, "no longer open"},
		{entity.ErrJobNotFound, "no longer open"},
		{entity.ErrOwnJob, "your own job"},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			market := &fakeMarket{
				workers:  registered("+919876543210", "plumber"),
				jobs:     []entity.Job{job(1, "plumber", "Fix tap")},
				applyErr: fmt.Errorf("apply: %w", tt.err),
			}
			c := setup(t, market)
			c.Press("job.view:1")
			c.Press("job.apply:1")
			c.Text("skip")
			c.Press(chat.ActionConfirm)

			assert.True(t, c.Messenger.Saw(tt.want))
			assert.True(t, c.Session().Idle())
		})
	}
}

func TestApplyFailureKeepsConfirm(t *testing.T) {
	market := &fakeMarket{
		workers:  registered("+919876543210", "plumber"),
		jobs:     []entity.Job{job(1, "plumber", "Fix tap")},
		applyErr: errors.New("db down"),
	}
	c := setup(t, market)
	c.Press("job.view:1")
	c.Press("job.apply:1")
	c.Text("skip")
	c.Press(chat.ActionConfirm)

	assert.Equal(t, StepConfirm, c.Session().CurrentStep)
	assert.Equal(t, []string{"nav:retry", "nav:menu"}, c.Messenger.Last().Options())

	market.applyErr = nil
	c.Text("yes")
	assert.Len(t, market.applied, 1)
}

func TestApplyEditNote(t *testing.T) {
	market := &fakeMarket{
		workers: registered("+919876543210", "plumber"),
		jobs:    []entity.Job{job(1, "plumber", "Fix tap")},
	}
	c := setup(t, market)
	c.Press("job.view:1")
	c.Press("job.apply:1")
	c.Text("Free on Sunday")

	c.Text("edit note")
	assert.Equal(t, StepNote, c.Session().CurrentStep)
	c.Text("Free on Monday")
	assert.Equal(t, StepConfirm, c.Session().CurrentStep)

	c.Press(chat.ActionConfirm)
	assert.Equal(t, []string{"1:+919876543210:Free on Monday"}, market.applied)
}

func TestApplySendFailureAfterApplyCompletesOnce(t *testing.T) {
	market := &fakeMarket{
		workers: registered("+919876543210", "plumber"),
		jobs:    []entity.Job{job(1, "plumber", "Fix kitchen tap")},
	}
	c := setup(t, market)
	c.Press("job.view:1")
	c.Press("job.apply:1")
	c.Text("skip")
	require.Equal(t, StepConfirm, c.Session().CurrentStep)

	c.Messenger.FailOn = "Application sent"
	err := c.Deliver(chat.IncomingMessage{Type: chat.MessageButtonReply, SelectionID: chat.ActionConfirm})
	assert.ErrorIs(t, err, chattest.ErrSend)
	assert.Len(t, market.applied, 1)
	assert.True(t, c.Session().Idle())
}
