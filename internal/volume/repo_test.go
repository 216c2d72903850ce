package volume_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangashelf/internal/series"
	"mangashelf/internal/volume"
	"mangashelf/pkg/database"
	"mangashelf/pkg/models"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.OpenMemory()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedUser(t *testing.T, db *sql.DB, id string) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO users (id, username, email, password_hash)
		VALUES (?, ?, ?, 'x')
	`, id, "user-"+id, id+"@example.com")
	require.NoError(t, err)
}

// seedSeries creates an owned series with total placeholder volumes.
func seedSeries(t *testing.T, db *sql.DB, userID string, total int) *models.Series {
	t.Helper()
	repo := series.NewRepo(db)
	s := &models.Series{
		UserID:       userID,
		Title:        "Test Series",
		Status:       models.StatusReading,
		TotalVolumes: &total,
	}
	require.NoError(t, repo.CreateWithVolumes(context.Background(), s, total))
	return s
}

func volumesOf(t *testing.T, db *sql.DB, seriesID, userID string) []models.Volume {
	t.Helper()
	got, err := series.NewRepo(db).GetByID(context.Background(), seriesID, userID)
	require.NoError(t, err)
	require.NotNil(t, got)
	return got.Volumes
}

func TestMarkOwnedUpTo(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	s := seedSeries(t, db, "u1", 3)

	require.NoError(t, repo.MarkOwnedUpTo(ctx, s.ID, 2, time.Now().UTC()))

	vols := volumesOf(t, db, s.ID, "u1")
	assert.True(t, vols[0].Owned)
	assert.NotNil(t, vols[0].PurchaseDate)
	assert.True(t, vols[1].Owned)
	assert.NotNil(t, vols[1].PurchaseDate)
	assert.False(t, vols[2].Owned, "volume 3 unchanged")
	assert.Nil(t, vols[2].PurchaseDate)
}

func TestMarkRead_SkipsUnowned(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	s := seedSeries(t, db, "u1", 3)

	require.NoError(t, repo.MarkOwnedUpTo(ctx, s.ID, 2, time.Now().UTC()))
	require.NoError(t, repo.MarkRead(ctx, s.ID, []int{1, 2, 3}, true, time.Now().UTC()))

	vols := volumesOf(t, db, s.ID, "u1")
	assert.True(t, vols[0].Read)
	assert.True(t, vols[1].Read)
	assert.False(t, vols[2].Read, "unowned volume silently excluded")
	assert.Nil(t, vols[2].ReadDate)
}

func TestMarkOwnedFalse_ForcesUnread(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	s := seedSeries(t, db, "u1", 3)

	now := time.Now().UTC()
	require.NoError(t, repo.MarkOwnedUpTo(ctx, s.ID, 2, now))
	require.NoError(t, repo.MarkRead(ctx, s.ID, []int{1, 2}, true, now))

	require.NoError(t, repo.MarkOwned(ctx, s.ID, []int{1}, false, now))

	vols := volumesOf(t, db, s.ID, "u1")
	assert.False(t, vols[0].Owned)
	assert.False(t, vols[0].Read, "read cleared when ownership is removed")
	assert.Nil(t, vols[0].PurchaseDate)
	assert.Nil(t, vols[0].ReadDate)

	assert.True(t, vols[1].Owned, "volume 2 unaffected")
	assert.True(t, vols[1].Read)
}

func TestReadImpliesOwned_AfterEveryBulkPath(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	s := seedSeries(t, db, "u1", 5)
	now := time.Now().UTC()

	require.NoError(t, repo.MarkOwnedUpTo(ctx, s.ID, 4, now))
	require.NoError(t, repo.MarkRead(ctx, s.ID, []int{1, 2, 3, 4, 5}, true, now))
	require.NoError(t, repo.MarkOwned(ctx, s.ID, []int{2, 3}, false, now))
	require.NoError(t, repo.MarkAllOwnedRead(ctx, s.ID, now))

	for _, v := range volumesOf(t, db, s.ID, "u1") {
		if v.Read {
			assert.True(t, v.Owned, "volume %d read but not owned", v.VolumeNumber)
		}
	}
}

func TestMarkAllOwnedRead(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	s := seedSeries(t, db, "u1", 4)

	now := time.Now().UTC()
	require.NoError(t, repo.MarkOwned(ctx, s.ID, []int{1, 3}, true, now))
	require.NoError(t, repo.MarkAllOwnedRead(ctx, s.ID, now))

	vols := volumesOf(t, db, s.ID, "u1")
	assert.True(t, vols[0].Read)
	assert.False(t, vols[1].Read)
	assert.True(t, vols[2].Read)
	assert.False(t, vols[3].Read)
}

func TestCreate_DuplicateNumberRejected(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	s := seedSeries(t, db, "u1", 2)

	err := repo.Create(ctx, &models.Volume{
		SeriesID:     s.ID,
		VolumeNumber: 1,
		Condition:    models.ConditionNew,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "UNIQUE constraint")
}

func TestUpdate_PatchAndOwnerScope(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")
	s := seedSeries(t, db, "u1", 1)

	vols := volumesOf(t, db, s.ID, "u1")
	id := vols[0].ID

	price := decimal.NullDecimal{Decimal: decimal.NewFromFloat(6.5), Valid: true}
	cond := models.ConditionLikeNew
	updated, err := repo.Update(ctx, id, "u1", volume.Patch{
		PricePaid: &price,
		Condition: &cond,
	})
	require.NoError(t, err)
	require.True(t, updated.PricePaid.Valid)
	assert.True(t, updated.PricePaid.Decimal.Equal(decimal.NewFromFloat(6.5)))
	assert.Equal(t, models.ConditionLikeNew, updated.Condition)

	// a different user cannot touch it
	_, err = repo.Update(ctx, id, "u2", volume.Patch{Condition: &cond})
	assert.ErrorIs(t, err, volume.ErrNotFound)
}

func TestToggleFlow_SaveFlagsRoundTrip(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	s := seedSeries(t, db, "u1", 1)

	vols := volumesOf(t, db, s.ID, "u1")
	v := &vols[0]
	now := time.Now().UTC()

	v.SetOwned(true, now)
	require.NoError(t, repo.SaveFlags(ctx, v, "u1"))

	got, err := repo.GetByID(ctx, v.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Owned)
	require.NotNil(t, got.PurchaseDate)

	got.SetOwned(false, now)
	require.NoError(t, repo.SaveFlags(ctx, got, "u1"))

	got, err = repo.GetByID(ctx, v.ID, "u1")
	require.NoError(t, err)
	assert.False(t, got.Owned)
	assert.Nil(t, got.PurchaseDate)
}

func TestBulkOps_OwnershipIsolation(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "owner")
	seedUser(t, db, "intruder")
	s := seedSeries(t, db, "owner", 3)

	owned, err := repo.SeriesOwned(ctx, s.ID, "intruder")
	require.NoError(t, err)
	assert.False(t, owned, "handlers refuse bulk ops on foreign series")

	owned, err = repo.SeriesOwned(ctx, s.ID, "owner")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestDelete_OwnerScoped(t *testing.T) {
	db := newTestDB(t)
	repo := volume.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")
	seedUser(t, db, "u2")
	s := seedSeries(t, db, "u1", 1)
	id := volumesOf(t, db, s.ID, "u1")[0].ID

	ok, err := repo.Delete(ctx, id, "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Delete(ctx, id, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
}
