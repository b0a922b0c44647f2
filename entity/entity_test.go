package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerValidate(t *testing.T) {
	lat, lng := 9.93, 76.26
	w := &Worker{Phone: "+919876543210", Name: "Asha", Category: "plumber", Latitude: &lat, Longitude: &lng}
	require.NoError(t, w.Validate())
	assert.True(t, w.HasLocation())

	w.Category = "astronaut"
	assert.Error(t, w.Validate())

	w.Category = "plumber"
	w.Phone = "98765"
	assert.Error(t, w.Validate())

	bad := 120.0
	w.Phone = "+919876543210"
	w.Latitude = &bad
	assert.Error(t, w.Validate())
}

func TestJob(t *testing.T) {
	j := NewJob("+919876543210", "painter", "Paint two rooms", 2500)
	require.NoError(t, j.Validate())
	assert.True(t, j.IsOpen())
	assert.Len(t, j.ShortRef(), 8)
	assert.Equal(t, j.ShortRef(), j.ShortRef())

	j.Pay = 0
	assert.Error(t, j.Validate())

	j.Pay = 100
	j.Status = "archived"
	assert.Error(t, j.Validate())
}

func TestApplicationValidate(t *testing.T) {
	a := &Application{JobID: 1, WorkerPhone: "+919876543210", Status: ApplicationPending}
	require.NoError(t, a.Validate())

	a.JobID = 0
	assert.Error(t, a.Validate())
}

func TestCategories(t *testing.T) {
	all := Categories()
	require.NotEmpty(t, all)
	all[0].Title = "changed"
	assert.NotEqual(t, "changed", Categories()[0].Title)

	assert.Nil(t, CategoryByID("unknown"))
	assert.Equal(t, "Mason", CategoryTitle("mason"))
	assert.Equal(t, "unknown", CategoryTitle("unknown"))
}
