package series

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mangashelf/pkg/models"
)

// ErrNotFound covers both a missing row and a row owned by someone
// else; callers never learn which.
var ErrNotFound = errors.New("series not found")

type Repo struct {
	DB *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db}
}

// Patch carries the optional field updates for a series. Nil means
// "leave unchanged".
type Patch struct {
	Title        *string
	Author       *string
	Editorial    *string
	Status       *string
	Publishing   *bool
	TotalVolumes *int
	CoverURL     *string
	Description  *string
	RetailPrice  *decimal.NullDecimal
	MalID        *int64
}

func (r *Repo) Create(ctx context.Context, s *models.Series) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO series (id, user_id, title, author, editorial, status, publishing,
			total_volumes, cover_url, description, retail_price, mal_id)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)
	`, s.ID, s.UserID, s.Title, s.Author, s.Editorial, s.Status, s.Publishing,
		s.TotalVolumes, s.CoverURL, s.Description, s.RetailPrice, s.MalID)
	if err != nil {
		return fmt.Errorf("create series: %w", err)
	}
	return nil
}

// CreateWithVolumes creates the series together with placeholder
// volumes numbered 1..total, all unowned and unread, in one
// transaction. Either everything becomes visible or nothing does.
func (r *Repo) CreateWithVolumes(ctx context.Context, s *models.Series, total int) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create series: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO series (id, user_id, title, author, editorial, status, publishing,
			total_volumes, cover_url, description, retail_price, mal_id)
		VALUES (?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?)
	`, s.ID, s.UserID, s.Title, s.Author, s.Editorial, s.Status, s.Publishing,
		s.TotalVolumes, s.CoverURL, s.Description, s.RetailPrice, s.MalID)
	if err != nil {
		return fmt.Errorf("create series: %w", err)
	}

	for n := 1; n <= total; n++ {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO volumes (id, series_id, volume_number, owned, read)
			VALUES (?, ?, ?, 0, 0)
		`, uuid.NewString(), s.ID, n); err != nil {
			return fmt.Errorf("create volume %d: %w", n, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create series: %w", err)
	}
	return nil
}

// GetByID loads one series with its volumes ordered by volume number.
// Returns (nil, nil) when the series does not exist for this owner.
func (r *Repo) GetByID(ctx context.Context, id, userID string) (*models.Series, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, user_id, title, author, editorial, status, publishing,
			total_volumes, cover_url, description, retail_price, mal_id,
			created_at, updated_at
		FROM series
		WHERE id = ? AND user_id = ?
	`, id, userID)

	s, err := scanSeries(row)
	if err != nil || s == nil {
		return s, err
	}

	vols, err := r.volumesFor(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Volumes = vols
	return s, nil
}

// ListByUser loads every series of the user, optionally filtered to one
// status, most recently updated first, with volumes attached.
func (r *Repo) ListByUser(ctx context.Context, userID, status string) ([]models.Series, error) {
	query := `
		SELECT id, user_id, title, author, editorial, status, publishing,
			total_volumes, cover_url, description, retail_price, mal_id,
			created_at, updated_at
		FROM series
		WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}
	query += " ORDER BY updated_at DESC"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	out := make([]models.Series, 0, 16)
	index := make(map[string]int)
	for rows.Next() {
		s, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		index[s.ID] = len(out)
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	if len(out) == 0 {
		return out, nil
	}

	// one pass over all of the user's volumes, grouped in memory
	vrows, err := r.DB.QueryContext(ctx, `
		SELECT v.id, v.series_id, v.volume_number, v.title, v.isbn, v.owned, v.read,
			v.price_paid, v.condition, v.store, v.purchase_date, v.read_date,
			v.notes, v.cover_url, v.created_at, v.updated_at
		FROM volumes v
		JOIN series s ON s.id = v.series_id
		WHERE s.user_id = ?
		ORDER BY v.series_id, v.volume_number
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list volumes: %w", err)
	}
	defer vrows.Close()

	for vrows.Next() {
		v, err := scanVolume(vrows)
		if err != nil {
			return nil, err
		}
		if i, ok := index[v.SeriesID]; ok {
			out[i].Volumes = append(out[i].Volumes, *v)
		}
	}
	if err := vrows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}

	return out, nil
}

// Update applies the patch to an owned series and backfills placeholder
// volumes when the declared total grows. The backfill inserts with
// INSERT OR IGNORE against the (series_id, volume_number) unique index,
// so a concurrent double-submit cannot create duplicates or fail.
func (r *Repo) Update(ctx context.Context, id, userID string, p Patch) (*models.Series, error) {
	current, err := r.GetByID(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, ErrNotFound
	}

	set := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []any{}

	add := func(clause string, v any) {
		set = append(set, clause)
		args = append(args, v)
	}
	if p.Title != nil {
		add("title = ?", *p.Title)
	}
	if p.Author != nil {
		add("author = NULLIF(?, '')", *p.Author)
	}
	if p.Editorial != nil {
		add("editorial = NULLIF(?, '')", *p.Editorial)
	}
	if p.Status != nil {
		add("status = ?", *p.Status)
	}
	if p.Publishing != nil {
		add("publishing = ?", *p.Publishing)
	}
	if p.TotalVolumes != nil {
		add("total_volumes = ?", *p.TotalVolumes)
	}
	if p.CoverURL != nil {
		add("cover_url = NULLIF(?, '')", *p.CoverURL)
	}
	if p.Description != nil {
		add("description = NULLIF(?, '')", *p.Description)
	}
	if p.RetailPrice != nil {
		add("retail_price = ?", *p.RetailPrice)
	}
	if p.MalID != nil {
		add("mal_id = ?", *p.MalID)
	}

	query := "UPDATE series SET " + strings.Join(set, ", ") + " WHERE id = ? AND user_id = ?"
	args = append(args, id, userID)

	if _, err := r.DB.ExecContext(ctx, query, args...); err != nil {
		return nil, fmt.Errorf("update series: %w", err)
	}

	// Backfill missing volume rows when the declared total grows past
	// the previous total (or past the existing rows when no total was
	// declared). Shrinking never deletes.
	if p.TotalVolumes != nil {
		prev := len(current.Volumes)
		if current.TotalVolumes != nil {
			prev = *current.TotalVolumes
		}
		if *p.TotalVolumes > prev {
			if err := r.backfill(ctx, id, *p.TotalVolumes, current.Volumes); err != nil {
				return nil, err
			}
		}
	}

	return r.GetByID(ctx, id, userID)
}

func (r *Repo) backfill(ctx context.Context, seriesID string, total int, existing []models.Volume) error {
	have := make(map[int]struct{}, len(existing))
	for i := range existing {
		have[existing[i].VolumeNumber] = struct{}{}
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin backfill: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for n := 1; n <= total; n++ {
		if _, ok := have[n]; ok {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO volumes (id, series_id, volume_number, owned, read)
			VALUES (?, ?, ?, 0, 0)
		`, uuid.NewString(), seriesID, n); err != nil {
			return fmt.Errorf("backfill volume %d: %w", n, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit backfill: %w", err)
	}
	return nil
}

// Delete removes an owned series; the volumes go with it via the FK
// cascade.
func (r *Repo) Delete(ctx context.Context, id, userID string) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `
		DELETE FROM series
		WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return false, fmt.Errorf("delete series: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *Repo) volumesFor(ctx context.Context, seriesID string) ([]models.Volume, error) {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, series_id, volume_number, title, isbn, owned, read,
			price_paid, condition, store, purchase_date, read_date,
			notes, cover_url, created_at, updated_at
		FROM volumes
		WHERE series_id = ?
		ORDER BY volume_number ASC
	`, seriesID)
	if err != nil {
		return nil, fmt.Errorf("volumes for series: %w", err)
	}
	defer rows.Close()

	out := make([]models.Volume, 0, 16)
	for rows.Next() {
		v, err := scanVolume(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSeries(row rowScanner) (*models.Series, error) {
	var (
		s           models.Series
		author      sql.NullString
		editorial   sql.NullString
		totalVols   sql.NullInt64
		coverURL    sql.NullString
		description sql.NullString
		malID       sql.NullInt64
	)
	if err := row.Scan(&s.ID, &s.UserID, &s.Title, &author, &editorial, &s.Status,
		&s.Publishing, &totalVols, &coverURL, &description, &s.RetailPrice, &malID,
		&s.CreatedAt, &s.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan series: %w", err)
	}
	s.Author = author.String
	s.Editorial = editorial.String
	if totalVols.Valid {
		n := int(totalVols.Int64)
		s.TotalVolumes = &n
	}
	s.CoverURL = coverURL.String
	s.Description = description.String
	if malID.Valid {
		s.MalID = &malID.Int64
	}
	return &s, nil
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

// Touch bumps updated_at; volume mutations call it so the series list
// ordering reflects recent activity.
func (r *Repo) Touch(ctx context.Context, seriesID string) {
	_, _ = r.DB.ExecContext(ctx, `
		UPDATE series SET updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, seriesID)
}
