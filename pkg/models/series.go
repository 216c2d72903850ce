package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Series is one tracked title. A series belongs to exactly one user
// and every query that touches it is scoped by that user id.
type Series struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Title        string              `json:"title"`
	Author       string              `json:"author,omitempty"`
	Editorial    string              `json:"editorial,omitempty"`
	Status       string              `json:"status"`
	Publishing   bool                `json:"publishing"`
	TotalVolumes *int                `json:"total_volumes,omitempty"`
	CoverURL     string              `json:"cover_url,omitempty"`
	Description  string              `json:"description,omitempty"`
	RetailPrice  decimal.NullDecimal `json:"retail_price,omitempty"`
	MalID        *int64              `json:"mal_id,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`

	Volumes []Volume `json:"volumes,omitempty"`
}

// ExpectedTotal is the declared volume count when known, otherwise the
// number of volume rows that exist. Denominator for progress ratios.
func (s *Series) ExpectedTotal() int {
	if s.TotalVolumes != nil && *s.TotalVolumes > 0 {
		return *s.TotalVolumes
	}
	return len(s.Volumes)
}

func (s *Series) OwnedCount() int {
	n := 0
	for i := range s.Volumes {
		if s.Volumes[i].Owned {
			n++
		}
	}
	return n
}

func (s *Series) ReadCount() int {
	n := 0
	for i := range s.Volumes {
		if s.Volumes[i].Read {
			n++
		}
	}
	return n
}

// SpentTotal sums price_paid across volumes, treating unset as zero.
func (s *Series) SpentTotal() decimal.Decimal {
	total := decimal.Zero
	for i := range s.Volumes {
		if s.Volumes[i].PricePaid.Valid {
			total = total.Add(s.Volumes[i].PricePaid.Decimal)
		}
	}
	return total
}

// RetailValue is owned count times the series retail price, a valuation
// independent of what was actually paid.
func (s *Series) RetailValue() decimal.Decimal {
	if !s.RetailPrice.Valid {
		return decimal.Zero
	}
	return s.RetailPrice.Decimal.Mul(decimal.NewFromInt(int64(s.OwnedCount())))
}
