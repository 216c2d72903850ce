package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Volume is one numbered unit of a series. volume_number is unique
// within the parent series.
type Volume struct {
	ID           string              `json:"id"`
	SeriesID     string              `json:"series_id"`
	VolumeNumber int                 `json:"volume_number"`
	Title        string              `json:"title,omitempty"`
	ISBN         string              `json:"isbn,omitempty"`
	Owned        bool                `json:"owned"`
	Read         bool                `json:"read"`
	PricePaid    decimal.NullDecimal `json:"price_paid,omitempty"`
	Condition    string              `json:"condition"`
	Store        string              `json:"store,omitempty"`
	PurchaseDate *time.Time          `json:"purchase_date,omitempty"`
	ReadDate     *time.Time          `json:"read_date,omitempty"`
	Notes        string              `json:"notes,omitempty"`
	CoverURL     string              `json:"cover_url,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// SetOwned flips the owned flag and keeps the dependent fields
// consistent: purchase_date exists iff owned, and a volume that is no
// longer owned cannot stay read. Every write path that touches owned
// goes through here (or through the equivalent set-oriented SQL).
func (v *Volume) SetOwned(owned bool, now time.Time) {
	v.Owned = owned
	if owned {
		t := now
		v.PurchaseDate = &t
		return
	}
	v.PurchaseDate = nil
	v.Read = false
	v.ReadDate = nil
}

// SetRead flips the read flag with read_date kept in lockstep. Marking
// an unowned volume read also marks it owned, keeping "read implies
// owned" true on every path.
func (v *Volume) SetRead(read bool, now time.Time) {
	v.Read = read
	if !read {
		v.ReadDate = nil
		return
	}
	t := now
	v.ReadDate = &t
	if !v.Owned {
		v.Owned = true
		v.PurchaseDate = &t
	}
}
