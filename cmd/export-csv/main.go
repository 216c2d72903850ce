package main

import (
	"context"
	"database/sql"
	"encoding/csv"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"mangashelf/pkg/database"
)

func main() {
	var (
		seriesOut  = flag.String("series", "data/series.csv", "output CSV path for series")
		volumesOut = flag.String("volumes", "data/volumes.csv", "output CSV path for volumes")
		userID     = flag.String("user", "", "only export this user's collection (default: all)")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db := database.MustOpen(database.DefaultConfig())
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("db migrate failed: %v", err)
	}

	if err := exportSeries(ctx, db, *seriesOut, *userID); err != nil {
		log.Fatalf("export series failed: %v", err)
	}
	if err := exportVolumes(ctx, db, *volumesOut, *userID); err != nil {
		log.Fatalf("export volumes failed: %v", err)
	}

	log.Printf("exported series to %s and volumes to %s", *seriesOut, *volumesOut)
}

func exportSeries(ctx context.Context, db *sql.DB, outPath, userID string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "user_id", "title", "author", "editorial", "status", "publishing",
		"total_volumes", "retail_price", "mal_id", "updated_at",
	}); err != nil {
		return err
	}

	query := `
        SELECT id, user_id, title, author, editorial, status, publishing,
               total_volumes, retail_price, mal_id, updated_at
        FROM series`
	args := []any{}
	if userID != "" {
		query += " WHERE user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY title"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id          string
			owner       string
			title       string
			author      sql.NullString
			editorial   sql.NullString
			status      string
			publishing  bool
			totalVols   sql.NullInt64
			retailPrice sql.NullString
			malID       sql.NullInt64
			updatedAt   sql.NullTime
		)

		if err := rows.Scan(&id, &owner, &title, &author, &editorial, &status,
			&publishing, &totalVols, &retailPrice, &malID, &updatedAt); err != nil {
			return err
		}

		total := ""
		if totalVols.Valid {
			total = strconv.FormatInt(totalVols.Int64, 10)
		}
		mal := ""
		if malID.Valid {
			mal = strconv.FormatInt(malID.Int64, 10)
		}
		updated := ""
		if updatedAt.Valid {
			updated = updatedAt.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			id,
			owner,
			title,
			author.String,
			editorial.String,
			status,
			strconv.FormatBool(publishing),
			total,
			retailPrice.String,
			mal,
			updated,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}

func exportVolumes(ctx context.Context, db *sql.DB, outPath, userID string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{
		"id", "series_id", "volume_number", "title", "owned", "read",
		"price_paid", "condition", "store", "purchase_date", "read_date",
	}); err != nil {
		return err
	}

	query := `
        SELECT v.id, v.series_id, v.volume_number, v.title, v.owned, v.read,
               v.price_paid, v.condition, v.store, v.purchase_date, v.read_date
        FROM volumes v
        JOIN series s ON s.id = v.series_id`
	args := []any{}
	if userID != "" {
		query += " WHERE s.user_id = ?"
		args = append(args, userID)
	}
	query += " ORDER BY v.series_id, v.volume_number"

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id           string
			seriesID     string
			number       int
			title        sql.NullString
			owned        bool
			read         bool
			pricePaid    sql.NullString
			condition    string
			store        sql.NullString
			purchaseDate sql.NullTime
			readDate     sql.NullTime
		)

		if err := rows.Scan(&id, &seriesID, &number, &title, &owned, &read,
			&pricePaid, &condition, &store, &purchaseDate, &readDate); err != nil {
			return err
		}

		purchase := ""
		if purchaseDate.Valid {
			purchase = purchaseDate.Time.Format(time.RFC3339)
		}
		readAt := ""
		if readDate.Valid {
			readAt = readDate.Time.Format(time.RFC3339)
		}

		if err := w.Write([]string{
			id,
			seriesID,
			strconv.Itoa(number),
			title.String,
			strconv.FormatBool(owned),
			strconv.FormatBool(read),
			pricePaid.String,
			condition,
			store.String,
			purchase,
			readAt,
		}); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	w.Flush()
	return w.Error()
}
