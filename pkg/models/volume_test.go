package models_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mangashelf/pkg/models"
)

func TestSetOwned_StampsAndClearsPurchaseDate(t *testing.T) {
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	v := models.Volume{VolumeNumber: 1}

	v.SetOwned(true, now)
	assert.True(t, v.Owned)
	if assert.NotNil(t, v.PurchaseDate) {
		assert.Equal(t, now, *v.PurchaseDate)
	}

	v.SetOwned(false, now.Add(time.Hour))
	assert.False(t, v.Owned)
	assert.Nil(t, v.PurchaseDate)
}

func TestSetOwned_UnowningClearsRead(t *testing.T) {
	now := time.Now().UTC()
	v := models.Volume{VolumeNumber: 1}
	v.SetOwned(true, now)
	v.SetRead(true, now)

	v.SetOwned(false, now)

	assert.False(t, v.Read, "un-owned volume cannot stay read")
	assert.Nil(t, v.ReadDate)
	assert.Nil(t, v.PurchaseDate)
}

func TestSetRead_ImpliesOwned(t *testing.T) {
	now := time.Now().UTC()
	v := models.Volume{VolumeNumber: 3}

	v.SetRead(true, now)

	assert.True(t, v.Read)
	assert.True(t, v.Owned, "reading a volume implies owning it")
	assert.NotNil(t, v.ReadDate)
	assert.NotNil(t, v.PurchaseDate)
}

func TestSetRead_UnreadKeepsOwnership(t *testing.T) {
	now := time.Now().UTC()
	v := models.Volume{VolumeNumber: 3}
	v.SetOwned(true, now)
	v.SetRead(true, now)

	v.SetRead(false, now)

	assert.False(t, v.Read)
	assert.Nil(t, v.ReadDate)
	assert.True(t, v.Owned)
	assert.NotNil(t, v.PurchaseDate)
}
