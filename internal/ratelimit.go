package internal

import (
	"sync"
	"time"

	"github.com/xKoRx/cem/sdk/utils"
)

// RateLimiter limita la frecuencia de operaciones nombradas.
//
// Cada nombre mantiene su propio vencimiento. La primera consulta de un
// nombre siempre está habilitada; al dispararse, el próximo vencimiento se
// alinea al siguiente múltiplo del período (10:02 con período de 5m vence
// a las 10:05, no a las 10:07). Thread-safe.
type RateLimiter struct {
	nextDue map[string]time.Time
	mu      sync.Mutex

	// now inyectable para tests
	now func() time.Time
}

// NewRateLimiter crea un rate limiter vacío.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{
		nextDue: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Due consulta si la operación nombrada está habilitada para el período dado.
//
// Si está habilitada, arma el próximo vencimiento y retorna true.
func (r *RateLimiter) Due(name string, period time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	due, known := r.nextDue[name]
	if known && now.Before(due) {
		return false
	}

	r.nextDue[name] = utils.NextBoundary(now, period)
	return true
}

// Reset olvida el vencimiento de un nombre. La próxima consulta estará
// habilitada.
func (r *RateLimiter) Reset(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nextDue, name)
}
