package s2

import (
	"fmt"
	"regexp"
	"time"
)

// idPattern valida identificadores del protocolo (UUIDs incluidos).
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9\-_:]{2,64}$`)

// ID identifica mensajes, actuadores, operation modes e instrucciones.
// Válido durante la vida de la sesión que lo generó.
type ID string

// Valid indica si el identificador cumple el patrón del protocolo.
func (id ID) Valid() bool {
	return idPattern.MatchString(string(id))
}

func (id ID) String() string {
	return string(id)
}

// Duration es una duración del protocolo expresada en milisegundos.
type Duration int64

// ToDuration convierte a time.Duration.
func (d Duration) ToDuration() time.Duration {
	return time.Duration(d) * time.Millisecond
}

// DurationFrom construye una Duration del protocolo desde time.Duration.
func DurationFrom(d time.Duration) Duration {
	return Duration(d.Milliseconds())
}

// NumberRange define un rango numérico [start, end].
type NumberRange struct {
	StartOfRange float64 `json:"start_of_range"`
	EndOfRange   float64 `json:"end_of_range"`
}

// Width retorna el ancho del rango.
func (r NumberRange) Width() float64 {
	return r.EndOfRange - r.StartOfRange
}

// Contains indica si v cae dentro del rango (bordes incluidos).
func (r NumberRange) Contains(v float64) bool {
	return v >= r.StartOfRange && v <= r.EndOfRange
}

// Interpolate evalúa el rango en el factor f ∈ [0,1].
func (r NumberRange) Interpolate(f float64) float64 {
	return r.StartOfRange + r.Width()*f
}

// PowerRange define un rango de potencia asociado a una magnitud.
type PowerRange struct {
	StartOfRange      float64           `json:"start_of_range"`
	EndOfRange        float64           `json:"end_of_range"`
	CommodityQuantity CommodityQuantity `json:"commodity_quantity"`
}

// PowerValue es una medición puntual de potencia.
type PowerValue struct {
	CommodityQuantity CommodityQuantity `json:"commodity_quantity"`
	Value             float64           `json:"value"`
}

// PowerForecastValue es un valor esperado con bandas de confianza opcionales.
type PowerForecastValue struct {
	ValueUpperLimit   *float64          `json:"value_upper_limit,omitempty"`
	ValueUpper95PPR   *float64          `json:"value_upper_95PPR,omitempty"`
	ValueUpper68PPR   *float64          `json:"value_upper_68PPR,omitempty"`
	ValueExpected     float64           `json:"value_expected"`
	ValueLower68PPR   *float64          `json:"value_lower_68PPR,omitempty"`
	ValueLower95PPR   *float64          `json:"value_lower_95PPR,omitempty"`
	ValueLowerLimit   *float64          `json:"value_lower_limit,omitempty"`
	CommodityQuantity CommodityQuantity `json:"commodity_quantity"`
}

// PowerForecastElement es un tramo del forecast con duración propia.
type PowerForecastElement struct {
	Duration    Duration             `json:"duration"`
	PowerValues []PowerForecastValue `json:"power_values"`
}

// Role describe la función energética del RM para un commodity.
type Role struct {
	Role      RoleType  `json:"role"`
	Commodity Commodity `json:"commodity"`
}

// ProtocolTimer describe un timer expuesto por el actuador del RM.
// No confundir con el rate limiter interno del engine.
type ProtocolTimer struct {
	ID              ID       `json:"id"`
	DiagnosticLabel string   `json:"diagnostic_label,omitempty"`
	Duration        Duration `json:"duration"`
}

// Transition describe una transición permitida entre operation modes.
type Transition struct {
	ID                  ID        `json:"id"`
	From                ID        `json:"from"`
	To                  ID        `json:"to"`
	StartTimers         []ID      `json:"start_timers"`
	BlockingTimers      []ID      `json:"blocking_timers"`
	TransitionCosts     *float64  `json:"transition_costs,omitempty"`
	TransitionDuration  *Duration `json:"transition_duration,omitempty"`
	AbnormalConditionOnly bool    `json:"abnormal_condition_only"`
}

func validateID(field string, id ID) error {
	if !id.Valid() {
		return fmt.Errorf("%s: %w (%q)", field, ErrInvalidID, id)
	}
	return nil
}
