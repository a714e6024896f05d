package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crm-insights/internal/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		r, f, m int
		want    models.CustomerSegment
	}{
		{5, 5, 5, models.SegmentChampions},
		{4, 4, 4, models.SegmentChampions},
		{3, 3, 3, models.SegmentLoyal},
		{5, 5, 3, models.SegmentLoyal},
		{3, 1, 5, models.SegmentAtRisk},
		{5, 2, 5, models.SegmentAtRisk},
		{3, 2, 1, models.SegmentAtRisk},
		{4, 2, 1, models.SegmentAtRisk},
		{1, 1, 1, models.SegmentLost},
		{2, 2, 5, models.SegmentLost},
		{4, 1, 1, models.SegmentNew},
		{5, 1, 5, models.SegmentNew},
		{2, 3, 2, models.SegmentPotential},
		{1, 5, 5, models.SegmentPotential},
		{3, 3, 2, models.SegmentPotential},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.r, tt.f, tt.m), "r=%d f=%d m=%d", tt.r, tt.f, tt.m)
	}
}

func TestClassify_EveryScoreHasASegment(t *testing.T) {
	seen := map[models.CustomerSegment]bool{}
	for r := 1; r <= 5; r++ {
		for f := 1; f <= 5; f++ {
			for m := 1; m <= 5; m++ {
				seen[Classify(r, f, m)] = true
			}
		}
	}
	for _, s := range models.Segments {
		assert.True(t, seen[s], "segment %s is unreachable", s)
	}
}

func TestRollup(t *testing.T) {
	customers := []models.CustomerRFM{
		{CustomerID: "c1", RecencyScore: 5, FrequencyScore: 5, MonetaryScore: 5, TotalSpent: 600},
		{CustomerID: "c2", RecencyScore: 4, FrequencyScore: 5, MonetaryScore: 4, TotalSpent: 200},
		{CustomerID: "c3", RecencyScore: 1, FrequencyScore: 1, MonetaryScore: 1, TotalSpent: 200},
	}

	got := Rollup(customers)

	require.Len(t, got, len(models.Segments))
	for i, s := range models.Segments {
		assert.Equal(t, s, got[i].Segment)
	}

	champions := got[0]
	assert.Equal(t, 2, champions.CustomerCount)
	assert.InDelta(t, 800, champions.Revenue, 0.001)
	assert.InDelta(t, 400, champions.AverageRevenue, 0.001)
	assert.InDelta(t, 0.8, champions.RevenueShare, 0.001)

	lost := got[3]
	assert.Equal(t, models.SegmentLost, lost.Segment)
	assert.Equal(t, 1, lost.CustomerCount)
	assert.InDelta(t, 0.2, lost.RevenueShare, 0.001)

	assert.Zero(t, got[1].CustomerCount)
	assert.Zero(t, got[1].AverageRevenue)
}

func TestRollup_Empty(t *testing.T) {
	got := Rollup(nil)

	require.Len(t, got, len(models.Segments))
	for _, row := range got {
		assert.Zero(t, row.CustomerCount)
		assert.Zero(t, row.RevenueShare)
	}
}
