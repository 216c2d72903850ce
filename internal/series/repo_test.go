package series_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mangashelf/internal/series"
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

func intPtr(n int) *int { return &n }

func retail(f float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(f), Valid: true}
}

func TestCreateWithVolumes_ShapesPlaceholders(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	s := &models.Series{
		UserID:       "u1",
		Title:        "Berserk",
		Status:       models.StatusReading,
		TotalVolumes: intPtr(3),
	}
	require.NoError(t, repo.CreateWithVolumes(ctx, s, 3))

	got, err := repo.GetByID(ctx, s.ID, "u1")
	require.NoError(t, err)
	require.NotNil(t, got)

	require.Len(t, got.Volumes, 3)
	for i, v := range got.Volumes {
		assert.Equal(t, i+1, v.VolumeNumber, "volumes ordered by number")
		assert.False(t, v.Owned)
		assert.False(t, v.Read)
		assert.Nil(t, v.PurchaseDate)
		assert.Nil(t, v.ReadDate)
	}
}

func TestUpdate_BackfillOnTotalIncrease(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	s := &models.Series{UserID: "u1", Title: "One Piece", Status: models.StatusReading, TotalVolumes: intPtr(3)}
	require.NoError(t, repo.CreateWithVolumes(ctx, s, 3))

	// mark volume 2 so we can check it is untouched by the backfill
	_, err := db.Exec(`UPDATE volumes SET owned = 1 WHERE series_id = ? AND volume_number = 2`, s.ID)
	require.NoError(t, err)

	updated, err := repo.Update(ctx, s.ID, "u1", series.Patch{TotalVolumes: intPtr(5)})
	require.NoError(t, err)

	require.Len(t, updated.Volumes, 5)
	assert.True(t, updated.Volumes[1].Owned, "existing volume untouched")
	for _, n := range []int{4, 5} {
		v := updated.Volumes[n-1]
		assert.Equal(t, n, v.VolumeNumber)
		assert.False(t, v.Owned)
		assert.False(t, v.Read)
	}
}

func TestUpdate_BackfillIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	s := &models.Series{UserID: "u1", Title: "Monster", Status: models.StatusReading, TotalVolumes: intPtr(3)}
	require.NoError(t, repo.CreateWithVolumes(ctx, s, 3))

	// simulate a double submit with the same raised total
	_, err := repo.Update(ctx, s.ID, "u1", series.Patch{TotalVolumes: intPtr(6)})
	require.NoError(t, err)
	again, err := repo.Update(ctx, s.ID, "u1", series.Patch{TotalVolumes: intPtr(6)})
	require.NoError(t, err)

	require.Len(t, again.Volumes, 6)
	seen := map[int]bool{}
	for _, v := range again.Volumes {
		assert.False(t, seen[v.VolumeNumber], "no duplicate volume numbers")
		seen[v.VolumeNumber] = true
	}
}

func TestUpdate_ShrinkingTotalKeepsVolumes(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	s := &models.Series{UserID: "u1", Title: "Akira", Status: models.StatusCompleted, TotalVolumes: intPtr(6)}
	require.NoError(t, repo.CreateWithVolumes(ctx, s, 6))

	updated, err := repo.Update(ctx, s.ID, "u1", series.Patch{TotalVolumes: intPtr(2)})
	require.NoError(t, err)

	assert.Len(t, updated.Volumes, 6, "decreasing the total never deletes rows")
	require.NotNil(t, updated.TotalVolumes)
	assert.Equal(t, 2, *updated.TotalVolumes)
}

func TestOwnershipIsolation(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "owner")
	seedUser(t, db, "intruder")

	s := &models.Series{UserID: "owner", Title: "Vagabond", Status: models.StatusOnHold}
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID, "intruder")
	require.NoError(t, err)
	assert.Nil(t, got, "existence is not revealed to non-owners")

	_, err = repo.Update(ctx, s.ID, "intruder", series.Patch{TotalVolumes: intPtr(10)})
	assert.ErrorIs(t, err, series.ErrNotFound)

	ok, err := repo.Delete(ctx, s.ID, "intruder")
	require.NoError(t, err)
	assert.False(t, ok)

	// nothing leaked through
	still, err := repo.GetByID(ctx, s.ID, "owner")
	require.NoError(t, err)
	require.NotNil(t, still)
	assert.Empty(t, still.Volumes)
}

func TestListByUser_FilterAndOrder(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	a := &models.Series{UserID: "u1", Title: "A", Status: models.StatusReading}
	b := &models.Series{UserID: "u1", Title: "B", Status: models.StatusCompleted}
	require.NoError(t, repo.Create(ctx, a))
	require.NoError(t, repo.Create(ctx, b))

	// bump A so it sorts first
	_, err := db.Exec(`UPDATE series SET updated_at = datetime('now', '+1 hour') WHERE id = ?`, a.ID)
	require.NoError(t, err)

	all, err := repo.ListByUser(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "A", all[0].Title, "most recently updated first")

	completed, err := repo.ListByUser(ctx, "u1", models.StatusCompleted)
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "B", completed[0].Title)
}

func TestDelete_CascadesToVolumes(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	s := &models.Series{UserID: "u1", Title: "Slam Dunk", Status: models.StatusCompleted, TotalVolumes: intPtr(4)}
	require.NoError(t, repo.CreateWithVolumes(ctx, s, 4))

	ok, err := repo.Delete(ctx, s.ID, "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM volumes WHERE series_id = ?`, s.ID).Scan(&n))
	assert.Zero(t, n, "volumes cannot outlive their series")
}

func TestUpdate_PatchFields(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	ctx := context.Background()
	seedUser(t, db, "u1")

	s := &models.Series{UserID: "u1", Title: "20th Century Boys", Status: models.StatusReading}
	require.NoError(t, repo.Create(ctx, s))

	author := "Naoki Urasawa"
	status := models.StatusCompleted
	price := retail(9.95)
	updated, err := repo.Update(ctx, s.ID, "u1", series.Patch{
		Author:      &author,
		Status:      &status,
		RetailPrice: &price,
	})
	require.NoError(t, err)

	assert.Equal(t, author, updated.Author)
	assert.Equal(t, status, updated.Status)
	require.True(t, updated.RetailPrice.Valid)
	assert.True(t, updated.RetailPrice.Decimal.Equal(decimal.NewFromFloat(9.95)))
	assert.Equal(t, "20th Century Boys", updated.Title, "unset patch fields stay untouched")
}

func TestCreate_GeneratesID(t *testing.T) {
	db := newTestDB(t)
	repo := series.NewRepo(db)
	seedUser(t, db, "u1")

	s := &models.Series{UserID: "u1", Title: "Dorohedoro", Status: models.StatusReading}
	require.NoError(t, repo.Create(context.Background(), s))

	_, err := uuid.Parse(s.ID)
	assert.NoError(t, err)
}
