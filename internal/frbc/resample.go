package frbc

import (
	"math"
	"time"

	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/utils"
)

// Strategy agregación por bucket al remuestrear.
type Strategy int

const (
	// StrategyMean promedio del bucket, para magnitudes tipo tasa.
	StrategyMean Strategy = iota
	// StrategyMin mínimo del bucket, para cotas inferiores.
	StrategyMin
	// StrategyMax máximo del bucket, para cotas superiores.
	StrategyMax
)

// Resample convierte tramos de duración variable en una serie de resolución
// fija.
//
// El inicio se redondea hacia abajo a la resolución y el fin hacia arriba,
// de modo que la serie cubre todos los tramos. Cada bucket se llena por
// forward-fill sobre una grilla fina intermedia y se agrega con la
// estrategia pedida; el último valor se extiende hasta el fin redondeado.
// Con al menos un tramo de entrada, ningún bucket queda sin valor.
//
// Retorna el inicio alineado y los valores por bucket.
func Resample(start time.Time, values []float64, durations []time.Duration, resolution time.Duration, strategy Strategy) (time.Time, []float64) {
	if len(values) == 0 || len(values) != len(durations) || resolution <= 0 {
		return utils.FloorTime(start, resolution), nil
	}

	var total time.Duration
	fine := resolution
	for _, d := range durations {
		total += d
		if d > 0 && d < fine {
			fine = d
		}
	}

	alignedStart := utils.FloorTime(start, resolution)
	alignedEnd := utils.CeilTime(start.Add(total), resolution)

	// Offsets acumulados de cada tramo respecto del inicio real
	offsets := make([]time.Duration, len(durations)+1)
	for i, d := range durations {
		offsets[i+1] = offsets[i] + d
	}

	valueAt := func(t time.Time) (float64, bool) {
		delta := t.Sub(start)
		if delta < 0 {
			return 0, false
		}
		if delta >= total {
			// el último valor se extiende hasta el fin alineado
			return values[len(values)-1], true
		}
		for i := len(values) - 1; i >= 0; i-- {
			if delta >= offsets[i] {
				return values[i], true
			}
		}
		return 0, false
	}

	buckets := int(alignedEnd.Sub(alignedStart) / resolution)
	out := make([]float64, buckets)
	defined := make([]bool, buckets)

	for b := 0; b < buckets; b++ {
		bucketStart := alignedStart.Add(time.Duration(b) * resolution)
		bucketEnd := bucketStart.Add(resolution)

		var sum float64
		var count int
		agg := math.NaN()

		for t := bucketStart; t.Before(bucketEnd); t = t.Add(fine) {
			v, ok := valueAt(t)
			if !ok {
				continue
			}
			switch strategy {
			case StrategyMin:
				if math.IsNaN(agg) || v < agg {
					agg = v
				}
			case StrategyMax:
				if math.IsNaN(agg) || v > agg {
					agg = v
				}
			default:
				sum += v
				count++
			}
		}

		if strategy == StrategyMean && count > 0 {
			agg = sum / float64(count)
		}
		if !math.IsNaN(agg) {
			out[b] = agg
			defined[b] = true
		}
	}

	// Forward-fill entre buckets y backfill del hueco inicial
	for b := 1; b < buckets; b++ {
		if !defined[b] && defined[b-1] {
			out[b] = out[b-1]
			defined[b] = true
		}
	}
	for b := buckets - 2; b >= 0; b-- {
		if !defined[b] && defined[b+1] {
			out[b] = out[b+1]
			defined[b] = true
		}
	}

	return alignedStart, out
}

// ResampleUsageForecast remuestrea el usage rate esperado de un forecast.
func ResampleUsageForecast(forecast *s2.FRBCUsageForecast, resolution time.Duration) (time.Time, []float64) {
	values := make([]float64, len(forecast.Elements))
	durations := make([]time.Duration, len(forecast.Elements))
	for i, elem := range forecast.Elements {
		values[i] = elem.UsageRateExpected
		durations[i] = elem.Duration.ToDuration()
	}
	return Resample(forecast.StartTime, values, durations, resolution, StrategyMean)
}

// ResampleTargetProfile traduce un perfil objetivo de fill level en series
// de mínimos y máximos de SoC.
func ResampleTargetProfile(profile *s2.FRBCFillLevelTargetProfile, resolution time.Duration) (time.Time, []float64, []float64) {
	minima := make([]float64, len(profile.Elements))
	maxima := make([]float64, len(profile.Elements))
	durations := make([]time.Duration, len(profile.Elements))
	for i, elem := range profile.Elements {
		minima[i] = elem.FillLevelRange.StartOfRange
		maxima[i] = elem.FillLevelRange.EndOfRange
		durations[i] = elem.Duration.ToDuration()
	}

	start, socMinima := Resample(profile.StartTime, minima, durations, resolution, StrategyMin)
	_, socMaxima := Resample(profile.StartTime, maxima, durations, resolution, StrategyMax)
	return start, socMinima, socMaxima
}

// StorageEfficiencyFromLeakage convierte un leakage behaviour en la
// eficiencia de almacenamiento por período de resolución: fracción del
// fill level que sobrevive al período.
func StorageEfficiencyFromLeakage(leakage *s2.FRBCLeakageBehaviour, resolution time.Duration) float64 {
	if len(leakage.Elements) == 0 {
		return 1
	}

	last := leakage.Elements[len(leakage.Elements)-1]
	if last.FillLevelRange.EndOfRange == 0 {
		return 1
	}

	return 1 - resolution.Seconds()*last.LeakageRate/last.FillLevelRange.EndOfRange
}
