package utils

import (
	"time"
)

// FloorTime trunca t hacia abajo al múltiplo de resolution más cercano.
//
// Example:
//
//	t := time.Date(2024, 1, 1, 10, 2, 0, 0, time.UTC)
//	utils.FloorTime(t, 5*time.Minute)
//	// => 10:00
func FloorTime(t time.Time, resolution time.Duration) time.Time {
	return t.Truncate(resolution)
}

// CeilTime redondea t hacia arriba al múltiplo de resolution más cercano.
// Si t ya está alineado, se retorna sin cambios.
func CeilTime(t time.Time, resolution time.Duration) time.Time {
	floored := t.Truncate(resolution)
	if floored.Equal(t) {
		return t
	}
	return floored.Add(resolution)
}

// NextBoundary retorna el siguiente tick de period estrictamente posterior
// a t, medido desde el inicio de la hora (p. ej. period de 5 minutos →
// :00, :05, :10, …). Evita el drift de "now + period".
func NextBoundary(t time.Time, period time.Duration) time.Time {
	return t.Truncate(period).Add(period)
}

// ElapsedMsSince calcula los milisegundos transcurridos desde un time.Time.
//
// Example:
//
//	start := time.Now()
//	// ... operación ...
//	elapsed := utils.ElapsedMsSince(start)
func ElapsedMsSince(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
