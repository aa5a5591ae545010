package frbc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/xKoRx/cem/sdk/s2"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestResample_ConstantRate(t *testing.T) {
	start, values := Resample(t0, []float64{100}, []time.Duration{2 * time.Hour}, time.Hour, StrategyMean)

	assert.Equal(t, t0, start)
	assert.Equal(t, []float64{100, 100}, values)
}

func TestResample_UnevenSegments(t *testing.T) {
	start, values := Resample(t0,
		[]float64{10, 20},
		[]time.Duration{30 * time.Minute, 30 * time.Minute},
		15*time.Minute, StrategyMean)

	assert.Equal(t, t0, start)
	assert.Equal(t, []float64{10, 10, 20, 20}, values)
}

func TestResample_UnalignedStartBackfills(t *testing.T) {
	start, values := Resample(t0.Add(7*time.Minute),
		[]float64{5},
		[]time.Duration{30 * time.Minute},
		15*time.Minute, StrategyMean)

	assert.Equal(t, t0, start, "start must floor to the resolution")
	assert.Equal(t, []float64{5, 5, 5}, values, "leading gap backfills, trailing gap extends")
}

func TestResample_MinMaxStrategies(t *testing.T) {
	durations := []time.Duration{15 * time.Minute, 15 * time.Minute}

	_, minima := Resample(t0, []float64{2, 8}, durations, 30*time.Minute, StrategyMin)
	_, maxima := Resample(t0, []float64{2, 8}, durations, 30*time.Minute, StrategyMax)

	assert.Equal(t, []float64{2}, minima)
	assert.Equal(t, []float64{8}, maxima)
}

func TestResample_EmptyInput(t *testing.T) {
	_, values := Resample(t0, nil, nil, 15*time.Minute, StrategyMean)
	assert.Empty(t, values)
}

func TestResampleTargetProfile(t *testing.T) {
	profile := &s2.FRBCFillLevelTargetProfile{
		StartTime: t0,
		Elements: []s2.FRBCFillLevelTargetProfileElement{
			{Duration: s2.DurationFrom(time.Hour), FillLevelRange: s2.NumberRange{StartOfRange: 2, EndOfRange: 8}},
			{Duration: s2.DurationFrom(time.Hour), FillLevelRange: s2.NumberRange{StartOfRange: 4, EndOfRange: 6}},
		},
	}

	start, minima, maxima := ResampleTargetProfile(profile, time.Hour)

	assert.Equal(t, t0, start)
	assert.Equal(t, []float64{2, 4}, minima)
	assert.Equal(t, []float64{8, 6}, maxima)
}

func TestStorageEfficiencyFromLeakage(t *testing.T) {
	leakage := &s2.FRBCLeakageBehaviour{
		Elements: []s2.FRBCLeakageBehaviourElement{
			{FillLevelRange: s2.NumberRange{StartOfRange: 0, EndOfRange: 9}, LeakageRate: 0.001},
		},
	}

	eff := StorageEfficiencyFromLeakage(leakage, 15*time.Minute)
	assert.InDelta(t, 0.9, eff, 1e-9)
}

func TestStorageEfficiencyFromLeakage_NoElements(t *testing.T) {
	assert.Equal(t, 1.0, StorageEfficiencyFromLeakage(&s2.FRBCLeakageBehaviour{}, 15*time.Minute))
}
