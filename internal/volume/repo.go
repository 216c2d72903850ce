package volume

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mangashelf/pkg/models"
)

// ErrNotFound covers a missing row and a row the caller does not own.
var ErrNotFound = errors.New("volume not found")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// SeriesOwned reports whether the series exists and belongs to the
// user. Bulk operations call this before their set-oriented update so a
// foreign series id fails as not-found instead of silently matching
// nothing.
func (r *Repo) SeriesOwned(ctx context.Context, seriesID, userID string) (bool, error) {
	var one int
	err := r.DB.QueryRowContext(ctx, `
		SELECT 1 FROM series WHERE id = ? AND user_id = ?
	`, seriesID, userID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check series owner: %w", err)
	}
	return true, nil
}

func (r *Repo) Create(ctx context.Context, v *models.Volume) error {
	if v.ID == "" {
		v.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO volumes (id, series_id, volume_number, title, isbn, owned, read,
			price_paid, condition, store, purchase_date, read_date, notes, cover_url)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, ?, NULLIF(?, ''), ?, ?, NULLIF(?, ''), NULLIF(?, ''))
	`, v.ID, v.SeriesID, v.VolumeNumber, v.Title, v.ISBN, v.Owned, v.Read,
		v.PricePaid, v.Condition, v.Store, v.PurchaseDate, v.ReadDate, v.Notes, v.CoverURL)
	if err != nil {
		return fmt.Errorf("create volume: %w", err)
	}
	return nil
}

// GetByID loads one volume; the join against series bakes the owner
// check into the query itself. Returns (nil, nil) when absent.
func (r *Repo) GetByID(ctx context.Context, id, userID string) (*models.Volume, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT v.id, v.series_id, v.volume_number, v.title, v.isbn, v.owned, v.read,
			v.price_paid, v.condition, v.store, v.purchase_date, v.read_date,
			v.notes, v.cover_url, v.created_at, v.updated_at
		FROM volumes v
		JOIN series s ON s.id = v.series_id
		WHERE v.id = ? AND s.user_id = ?
	`, id, userID)

	v, err := scanVolume(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// Patch carries optional field updates. Flags and their paired dates
// are applied exactly as given; the toggle and bulk paths own the
// owned/read invariant.
type Patch struct {
	Title        *string
	ISBN         *string
	Owned        *bool
	Read         *bool
	PricePaid    *decimal.NullDecimal
	Condition    *string
	Store        *string
	PurchaseDate *sql.NullTime
	ReadDate     *sql.NullTime
	Notes        *string
	CoverURL     *string
}

func (r *Repo) Update(ctx context.Context, id, userID string, p Patch) (*models.Volume, error) {
	set := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}

	add := func(clause string, v any) {
		set = append(set, clause)
		args = append(args, v)
	}
	if p.Title != nil {
		add("title = NULLIF(?, '')", *p.Title)
	}
	if p.ISBN != nil {
		add("isbn = NULLIF(?, '')", *p.ISBN)
	}
	if p.Owned != nil {
		add("owned = ?", *p.Owned)
	}
	if p.Read != nil {
		add("read = ?", *p.Read)
	}
	if p.PricePaid != nil {
		add("price_paid = ?", *p.PricePaid)
	}
	if p.Condition != nil {
		add("condition = ?", *p.Condition)
	}
	if p.Store != nil {
		add("store = NULLIF(?, '')", *p.Store)
	}
	if p.PurchaseDate != nil {
		add("purchase_date = ?", *p.PurchaseDate)
	}
	if p.ReadDate != nil {
		add("read_date = ?", *p.ReadDate)
	}
	if p.Notes != nil {
		add("notes = NULLIF(?, '')", *p.Notes)
	}
	if p.CoverURL != nil {
		add("cover_url = NULLIF(?, '')", *p.CoverURL)
	}

	query := `
		UPDATE volumes SET ` + strings.Join(set, ", ") + `
		WHERE id = ? AND series_id IN (SELECT id FROM series WHERE user_id = ?)`
	args = append(args, id, userID)

	res, err := r.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update volume: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, ErrNotFound
	}

	return r.GetByID(ctx, id, userID)
}

// SaveFlags persists the owned/read flags and their paired dates after
// an in-memory mutation through the models helpers.
func (r *Repo) SaveFlags(ctx context.Context, v *models.Volume, userID string) error {
	res, err := r.DB.ExecContext(ctx, `
		UPDATE volumes
		SET owned = ?, read = ?, purchase_date = ?, read_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND series_id IN (SELECT id FROM series WHERE user_id = ?)
	`, v.Owned, v.Read, v.PurchaseDate, v.ReadDate, v.ID, userID)
	if err != nil {
		return fmt.Errorf("save volume flags: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) Delete(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM volumes
		WHERE id = ? AND series_id IN (SELECT id FROM series WHERE user_id = ?)
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete volume: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// MarkOwned bulk-sets the owned flag for the given numbers in one
// set-oriented update. Un-owning also clears read and both dates, so
// "read implies owned" survives the bulk path.
func (r *Repo) MarkOwned(ctx context.Context, seriesID string, numbers []int, owned bool, now time.Time) error {
	if len(numbers) == 0 {
		return nil
	}
	in, args := inClause(numbers)

	var query string
	if owned {
		query = `
			UPDATE volumes
			SET owned = 1, purchase_date = ?, updated_at = CURRENT_TIMESTAMP
			WHERE series_id = ? AND volume_number IN (` + in + `)`
		args = append([]any{now, seriesID}, args...)
	} else {
		query = `
			UPDATE volumes
			SET owned = 0, purchase_date = NULL, read = 0, read_date = NULL,
				updated_at = CURRENT_TIMESTAMP
			WHERE series_id = ? AND volume_number IN (` + in + `)`
		args = append([]any{seriesID}, args...)
	}

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark volumes owned: %w", err)
	}
	return nil
}

// MarkRead bulk-sets the read flag for the given numbers. Only volumes
// that are currently owned match; the rest are silently excluded.
func (r *Repo) MarkRead(ctx context.Context, seriesID string, numbers []int, read bool, now time.Time) error {
	if len(numbers) == 0 {
		return nil
	}
	in, args := inClause(numbers)

	var query string
	if read {
		query = `
			UPDATE volumes
			SET read = 1, read_date = ?, updated_at = CURRENT_TIMESTAMP
			WHERE series_id = ? AND owned = 1 AND volume_number IN (` + in + `)`
		args = append([]any{now, seriesID}, args...)
	} else {
		query = `
			UPDATE volumes
			SET read = 0, read_date = NULL, updated_at = CURRENT_TIMESTAMP
			WHERE series_id = ? AND owned = 1 AND volume_number IN (` + in + `)`
		args = append([]any{seriesID}, args...)
	}

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("mark volumes read: %w", err)
	}
	return nil
}

// MarkOwnedUpTo sets owned on every volume numbered <= upTo, stamping
// the purchase date on all affected regardless of prior state.
func (r *Repo) MarkOwnedUpTo(ctx context.Context, seriesID string, upTo int, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE volumes
		SET owned = 1, purchase_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE series_id = ? AND volume_number <= ?
	`, now, seriesID, upTo)
	if err != nil {
		return fmt.Errorf("mark volumes owned up to: %w", err)
	}
	return nil
}

// MarkAllOwnedRead marks every currently-owned volume read.
func (r *Repo) MarkAllOwnedRead(ctx context.Context, seriesID string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE volumes
		SET read = 1, read_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE series_id = ? AND owned = 1
	`, now, seriesID)
	if err != nil {
		return fmt.Errorf("mark all owned read: %w", err)
	}
	return nil
}

// TouchSeries bumps the parent's updated_at so the series list keeps
// most-recent-activity ordering after volume mutations.
func (r *Repo) TouchSeries(ctx context.Context, seriesID string) {
	_, _ = r.DB.ExecContext(ctx, `
		UPDATE series SET updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, seriesID)
}

func inClause(numbers []int) (string, []any) {
	holes := make([]string, len(numbers))
	args := make([]any, len(numbers))
	for i, n := range numbers {
		holes[i] = "?"
		args[i] = n
	}
	return strings.Join(holes, ", "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVolume(row rowScanner) (*models.Volume, error) {
	var (
		v            models.Volume
		title        sql.NullString
		isbn         sql.NullString
		store        sql.NullString
		purchaseDate sql.NullTime
		readDate     sql.NullTime
		notes        sql.NullString
		coverURL     sql.NullString
	)
	if err := row.Scan(&v.ID, &v.SeriesID, &v.VolumeNumber, &title, &isbn,
		&v.Owned, &v.Read, &v.PricePaid, &v.Condition, &store,
		&purchaseDate, &readDate, &notes, &coverURL,
		&v.CreatedAt, &v.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scan volume: %w", err)
	}
	v.Title = title.String
	v.ISBN = isbn.String
	v.Store = store.String
	if purchaseDate.Valid {
		t := purchaseDate.Time
		v.PurchaseDate = &t
	}
	if readDate.Valid {
		t := readDate.Time
		v.ReadDate = &t
	}
	v.Notes = notes.String
	v.CoverURL = coverURL.String
	return &v, nil
}
