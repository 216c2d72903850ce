package series_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"mangashelf/internal/series"
	"mangashelf/pkg/models"
)

func paid(f float64) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.NewFromFloat(f), Valid: true}
}

func TestComputeStats_EmptyCollection(t *testing.T) {
	stats := series.ComputeStats(nil)

	assert.Zero(t, stats.TotalSeries)
	assert.Zero(t, stats.TotalVolumesOwned)
	assert.True(t, stats.TotalSpent.IsZero())
	assert.Zero(t, stats.SavingsPercentage, "0 when retail value is 0, never NaN")
	assert.Zero(t, stats.CollectionProgress)
	assert.Zero(t, stats.ReadingProgress)
	assert.True(t, stats.AveragePrice.IsZero())

	// every status reports, even at zero
	assert.Len(t, stats.ByStatus, 5)
	for _, st := range models.SeriesStatuses {
		assert.Contains(t, stats.ByStatus, st)
	}
}

func TestComputeStats_Rollups(t *testing.T) {
	ten := 10
	five := 5
	all := []models.Series{
		{
			Status:       models.StatusReading,
			TotalVolumes: &ten,
			RetailPrice:  paid(8),
			Volumes: []models.Volume{
				{VolumeNumber: 1, Owned: true, Read: true, PricePaid: paid(6)},
				{VolumeNumber: 2, Owned: true, Read: false, PricePaid: paid(7.5)},
				{VolumeNumber: 3},
			},
		},
		{
			Status:       models.StatusCompleted,
			TotalVolumes: &five,
			RetailPrice:  paid(10),
			Volumes: []models.Volume{
				{VolumeNumber: 1, Owned: true, Read: true, PricePaid: paid(4)},
				{VolumeNumber: 2, Owned: true, Read: true}, // no price recorded
			},
		},
		{
			// no declared total: expected = existing rows
			Status:  models.StatusPlanToRead,
			Volumes: []models.Volume{{VolumeNumber: 1}},
		},
	}

	stats := series.ComputeStats(all)

	assert.Equal(t, 3, stats.TotalSeries)
	assert.Equal(t, 4, stats.TotalVolumesOwned)
	assert.Equal(t, 3, stats.TotalVolumesRead)
	assert.Equal(t, 16, stats.TotalExpectedVolumes) // 10 + 5 + 1
	assert.True(t, stats.TotalSpent.Equal(decimal.NewFromFloat(17.5)))

	// 2 owned * 8 + 2 owned * 10
	assert.True(t, stats.TotalRetailValue.Equal(decimal.NewFromInt(36)))
	assert.True(t, stats.TotalSavings.Equal(decimal.NewFromFloat(18.5)))
	assert.InDelta(t, 18.5/36*100, stats.SavingsPercentage, 0.0001)

	// 17.5 / 4, rounded to cents
	assert.True(t, stats.AveragePrice.Equal(decimal.NewFromFloat(4.38)))

	assert.InDelta(t, 4.0/16*100, stats.CollectionProgress, 0.0001)
	assert.InDelta(t, 3.0/4*100, stats.ReadingProgress, 0.0001)

	assert.Equal(t, 1, stats.ByStatus[models.StatusReading])
	assert.Equal(t, 1, stats.ByStatus[models.StatusCompleted])
	assert.Equal(t, 1, stats.ByStatus[models.StatusPlanToRead])
	assert.Equal(t, 0, stats.ByStatus[models.StatusDropped])
	assert.Equal(t, 0, stats.ByStatus[models.StatusOnHold])
}

func TestComputeStats_ReadNeverExceedsOwned(t *testing.T) {
	three := 3
	all := []models.Series{{
		Status:       models.StatusReading,
		TotalVolumes: &three,
		Volumes: []models.Volume{
			{VolumeNumber: 1, Owned: true, Read: true},
			{VolumeNumber: 2, Owned: true},
			{VolumeNumber: 3},
		},
	}}

	stats := series.ComputeStats(all)
	assert.LessOrEqual(t, stats.TotalVolumesRead, stats.TotalVolumesOwned)
}

func TestComputeSeriesStats_Scenario(t *testing.T) {
	// series with totalVolumes=3, retailPrice=10, volumes 1-2 owned
	three := 3
	s := &models.Series{
		TotalVolumes: &three,
		RetailPrice:  paid(10),
		Volumes: []models.Volume{
			{VolumeNumber: 1, Owned: true, Read: true, PricePaid: paid(7)},
			{VolumeNumber: 2, Owned: true, PricePaid: paid(8)},
			{VolumeNumber: 3},
		},
	}

	stats := series.ComputeSeriesStats(s)

	assert.Equal(t, 2, stats.Owned)
	assert.Equal(t, 1, stats.Read)
	assert.Equal(t, 1, stats.Missing)
	assert.Equal(t, 3, stats.Total)
	assert.True(t, stats.TotalRetailValue.Equal(decimal.NewFromInt(20)))
	assert.True(t, stats.TotalSpent.Equal(decimal.NewFromInt(15)))
	assert.True(t, stats.Savings.Equal(decimal.NewFromInt(5)))
	assert.InDelta(t, 25.0, stats.SavingsPercentage, 0.0001)
	assert.True(t, stats.AveragePrice.Equal(decimal.NewFromFloat(7.5)))
	assert.InDelta(t, 2.0/3*100, stats.OwnedProgress, 0.0001)
	assert.InDelta(t, 50.0, stats.ReadProgress, 0.0001)
}

func TestComputeSeriesStats_ZeroGuards(t *testing.T) {
	stats := series.ComputeSeriesStats(&models.Series{})

	assert.Zero(t, stats.Owned)
	assert.Zero(t, stats.Total)
	assert.Zero(t, stats.OwnedProgress)
	assert.Zero(t, stats.ReadProgress)
	assert.Zero(t, stats.SavingsPercentage)
	assert.True(t, stats.AveragePrice.IsZero())
}
