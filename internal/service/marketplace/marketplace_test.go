package marketplace

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"Panikkar/entity"
)

// newTestService connects to the database named by PANIKKAR_TEST_POSTGRES_DSN.
func newTestService(t *testing.T) *Service {
	t.Helper()
	dsn := os.Getenv("PANIKKAR_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PANIKKAR_TEST_POSTGRES_DSN not set, skipping postgres test")
	}

	db, err := Connect(dsn)
	require.NoError(t, err)

	svc := New(db, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, svc.Migrate())
	require.NoError(t, db.Exec("TRUNCATE applications, jobs, workers RESTART IDENTITY").Error)
	return svc
}

func TestRegisterWorkerUpserts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	missing, err := svc.WorkerByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	assert.Nil(t, missing)

	_, err = svc.RegisterWorker(ctx, &entity.Worker{Phone: "+919876543210", Name: "Asha", Category: "plumber"})
	require.NoError(t, err)
	_, err = svc.RegisterWorker(ctx, &entity.Worker{Phone: "+919876543210", Name: "Asha K", Category: "painter"})
	require.NoError(t, err)

	w, err := svc.WorkerByPhone(ctx, "+919876543210")
	require.NoError(t, err)
	require.NotNil(t, w)
	assert.Equal(t, "Asha K", w.Name)
	assert.Equal(t, "painter", w.Category)
}

func TestRegisterWorkerRejectsInvalid(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.RegisterWorker(context.Background(), &entity.Worker{Phone: "+919876543210", Name: "A", Category: "plumber"})
	assert.Error(t, err)
}

func TestApply(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	job, err := svc.PostJob(ctx, entity.NewJob("+911111111111", "mason", "Tile bathroom", 4000))
	require.NoError(t, err)

	open, err := svc.OpenJobs(ctx, "mason", 0, 10)
	require.NoError(t, err)
	require.Len(t, open, 1)

	app, err := svc.Apply(ctx, job.ID, "+919876543210", "Available tomorrow")
	require.NoError(t, err)
	assert.Equal(t, entity.ApplicationPending, app.Status)

	_, err = svc.Apply(ctx, job.ID, "+919876543210", "again")
	assert.ErrorIs(t, err, ErrAlreadyApplied)

	_, err = svc.Apply(ctx, job.ID, "+911111111111", "")
	assert.ErrorIs(t, err, ErrOwnJob)

	_, err = svc.Apply(ctx, 9999, "+919876543210", "")
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, svc.CloseJob(ctx, job.ID))
	_, err = svc.Apply(ctx, job.ID, "+918888888888", "")
	assert.ErrorIs(t, err, ErrJobClosed)

	n, err := svc.ApplicationCount(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	missing, err := svc.JobByID(ctx, 9999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
