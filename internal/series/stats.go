package series

import (
	"github.com/shopspring/decimal"

	"mangashelf/pkg/models"
)

// CollectionStats are the dashboard aggregates over everything a user
// tracks. They are derived at read time from the fetched series and
// never persisted.
type CollectionStats struct {
	TotalSeries          int             `json:"total_series"`
	TotalVolumesOwned    int             `json:"total_volumes_owned"`
	TotalVolumesRead     int             `json:"total_volumes_read"`
	TotalSpent           decimal.Decimal `json:"total_spent"`
	TotalRetailValue     decimal.Decimal `json:"total_retail_value"`
	TotalSavings         decimal.Decimal `json:"total_savings"`
	SavingsPercentage    float64         `json:"savings_percentage"`
	TotalExpectedVolumes int             `json:"total_expected_volumes"`
	AveragePrice         decimal.Decimal `json:"average_price"`
	ByStatus             map[string]int  `json:"by_status"`
	CollectionProgress   float64         `json:"collection_progress"`
	ReadingProgress      float64         `json:"reading_progress"`
}

// SeriesStats are the same rollups scoped to one series.
type SeriesStats struct {
	Owned             int             `json:"owned"`
	Read              int             `json:"read"`
	Missing           int             `json:"missing"`
	Total             int             `json:"total"`
	TotalSpent        decimal.Decimal `json:"total_spent"`
	TotalRetailValue  decimal.Decimal `json:"total_retail_value"`
	AveragePrice      decimal.Decimal `json:"average_price"`
	Savings           decimal.Decimal `json:"savings"`
	SavingsPercentage float64         `json:"savings_percentage"`
	OwnedProgress     float64         `json:"owned_progress"`
	ReadProgress      float64         `json:"read_progress"`
}

// ComputeSeriesStats derives the per-series aggregate from a series
// with volumes attached.
func ComputeSeriesStats(s *models.Series) SeriesStats {
	stats := SeriesStats{
		Owned:            s.OwnedCount(),
		Read:             s.ReadCount(),
		Total:            s.ExpectedTotal(),
		TotalSpent:       s.SpentTotal(),
		TotalRetailValue: s.RetailValue(),
		AveragePrice:     decimal.Zero,
	}
	stats.Missing = stats.Total - stats.Owned
	stats.Savings = stats.TotalRetailValue.Sub(stats.TotalSpent)

	if stats.Owned > 0 {
		stats.AveragePrice = stats.TotalSpent.
			Div(decimal.NewFromInt(int64(stats.Owned))).
			Round(2)
	}
	if stats.TotalRetailValue.IsPositive() {
		stats.SavingsPercentage = stats.Savings.
			Div(stats.TotalRetailValue).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
	}
	if stats.Total > 0 {
		stats.OwnedProgress = float64(stats.Owned) / float64(stats.Total) * 100
	}
	if stats.Owned > 0 {
		stats.ReadProgress = float64(stats.Read) / float64(stats.Owned) * 100
	}

	return stats
}

// ComputeStats folds the user's series (volumes attached) into the
// dashboard aggregate. Every ratio is 0 when its denominator is 0.
func ComputeStats(all []models.Series) CollectionStats {
	stats := CollectionStats{
		TotalSeries:      len(all),
		TotalSpent:       decimal.Zero,
		TotalRetailValue: decimal.Zero,
		AveragePrice:     decimal.Zero,
		ByStatus:         make(map[string]int, len(models.SeriesStatuses)),
	}
	for _, st := range models.SeriesStatuses {
		stats.ByStatus[st] = 0
	}

	for i := range all {
		s := &all[i]
		stats.TotalVolumesOwned += s.OwnedCount()
		stats.TotalVolumesRead += s.ReadCount()
		stats.TotalSpent = stats.TotalSpent.Add(s.SpentTotal())
		stats.TotalRetailValue = stats.TotalRetailValue.Add(s.RetailValue())
		stats.TotalExpectedVolumes += s.ExpectedTotal()
		if _, ok := stats.ByStatus[s.Status]; ok {
			stats.ByStatus[s.Status]++
		}
	}

	stats.TotalSavings = stats.TotalRetailValue.Sub(stats.TotalSpent)
	if stats.TotalRetailValue.IsPositive() {
		stats.SavingsPercentage = stats.TotalSavings.
			Div(stats.TotalRetailValue).
			Mul(decimal.NewFromInt(100)).
			InexactFloat64()
	}
	if stats.TotalVolumesOwned > 0 {
		stats.AveragePrice = stats.TotalSpent.
			Div(decimal.NewFromInt(int64(stats.TotalVolumesOwned))).
			Round(2)
	}
	if stats.TotalExpectedVolumes > 0 {
		stats.CollectionProgress = float64(stats.TotalVolumesOwned) / float64(stats.TotalExpectedVolumes) * 100
	}
	if stats.TotalVolumesOwned > 0 {
		stats.ReadingProgress = float64(stats.TotalVolumesRead) / float64(stats.TotalVolumesOwned) * 100
	}

	return stats
}
