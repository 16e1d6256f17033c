package analytics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmarkovic/fieldops-api/internal/models"
)

func TestAnalyzeCancellationsEmpty(t *testing.T) {
	breakdown := AnalyzeCancellations(nil)
	assert.Zero(t, breakdown.TotalOrders)
	assert.Zero(t, breakdown.CancelRate)
	assert.Empty(t, breakdown.TopReason)
	assert.Empty(t, breakdown.ByReason)
}

func TestAnalyzeCancellations(t *testing.T) {
	day := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) // a Monday
	records := []models.ActivityRecord{
		record(day, withTechnician("Marko")),
		record(day, withTechnician("Marko")),
		record(day, withTechnician("Marko"), withStatus(models.StatusCancelled), withReason("Korisnik odsutan"), withMunicipality("Novi Sad")),
		record(day, withTechnician("Marko"), withStatus(models.StatusCancelled), withReason("korisnik odsutan"), withMunicipality("Novi Sad")),
		record(day.AddDate(0, 0, 1), withTechnician("Jovana"), withStatus(models.StatusCancelled), withMunicipality("Beograd")),
		record(day, withTechnician("Jovana")),
	}

	breakdown := AnalyzeCancellations(records)
	assert.Equal(t, 6, breakdown.TotalOrders)
	assert.Equal(t, 3, breakdown.CancelledCount)
	assert.InDelta(t, 50.0, breakdown.CancelRate, 1e-9)

	// reasons are case-folded before grouping
	require.NotEmpty(t, breakdown.ByReason)
	assert.Equal(t, "korisnik odsutan", breakdown.TopReason)
	assert.Equal(t, 2, breakdown.ByReason[0].Count)
	assert.InDelta(t, 66.7, breakdown.ByReason[0].Percent, 0.05)

	// a missing reason groups under the unspecified bucket
	var sawUnspecified bool
	for _, rc := range breakdown.ByReason {
		if rc.Key == "unspecified" {
			sawUnspecified = true
			assert.Equal(t, 1, rc.Count)
		}
	}
	assert.True(t, sawUnspecified)

	require.Len(t, breakdown.ByTechnician, 2)
	assert.Equal(t, "Marko", breakdown.ByTechnician[0].Key)

	require.Len(t, breakdown.ByDay, 2)
	assert.Equal(t, "Monday", breakdown.ByDay[0].Key)
}
