package frbc

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/telemetry"
	"github.com/xKoRx/cem/sdk/telemetry/semconv"
	"github.com/xKoRx/cem/sdk/utils"
)

// closeEnough tolerancia para comparar potencias y factores.
const closeEnough = 1e-9

// AlignedSchedule tabla alineada que consume el traductor: todas las series
// comparten inicio y resolución. Usage, StorageEfficiency y
// ChargingEfficiency pueden ser nil o más cortas que Power; los pasos sin
// muestra usan "sin uso" / "sin fuga" (eficiencia 1).
type AlignedSchedule struct {
	Start      time.Time
	Resolution time.Duration

	// Power potencia planificada por paso.
	Power []float64

	// Usage tasa de uso esperada por paso.
	Usage []float64

	// StorageEfficiency fracción del fill level que sobrevive cada paso.
	StorageEfficiency []float64

	// ChargingEfficiency eficiencia de conversión potencia → fill rate.
	ChargingEfficiency []float64
}

// Translator convierte schedules en instrucciones FRBC.
type Translator struct {
	telemetry *telemetry.Client
}

// NewTranslator crea un traductor.
func NewTranslator(tel *telemetry.Client) *Translator {
	return &Translator{telemetry: tel}
}

// Translate recorre la tabla alineada simulando el fill level y emite una
// instrucción por cada cambio de (operation mode, factor).
//
// Sistemas con más de un actuador no están soportados: el error se propaga
// en lugar de emitir instrucciones posiblemente incorrectas.
func (t *Translator) Translate(ctx context.Context, sched AlignedSchedule, sd *s2.FRBCSystemDescription, initialFill float64) ([]*s2.FRBCInstruction, error) {
	if len(sched.Power) == 0 {
		return nil, nil
	}

	if len(sd.Actuators) != 1 {
		return nil, fmt.Errorf("exactly 1 actuator supported, got %d", len(sd.Actuators))
	}

	actuator := sd.Actuators[0]
	modes := actuator.OperationModes

	idleMode := findIdleMode(modes)
	if idleMode == nil {
		t.telemetry.Warn(ctx, "No idle operation mode in system description, translation skipped",
			semconv.CEM.ActuatorID.String(string(actuator.ID)),
		)
		return nil, nil
	}

	fillBounds := sd.Storage.FillLevelRange
	fill := clamp(initialFill, fillBounds)

	var instructions []*s2.FRBCInstruction
	var prevMode s2.ID
	var prevFactor float64
	havePrev := false

	executionTime := sched.Start
	stepHours := sched.Resolution.Hours()

	for i, power := range sched.Power {
		usage := sampleOr(sched.Usage, i, 0)
		storageEff := sampleOr(sched.StorageEfficiency, i, 1)
		chargingEff := sampleOr(sched.ChargingEfficiency, i, 1)

		var mode *s2.FRBCOperationMode
		var factor float64

		if math.Abs(power) < closeEnough {
			mode = idleMode
			factor = 0
			chargingEff = 1
		} else {
			var err error
			mode, factor, err = t.selectMode(ctx, modes, fill, power)
			if err != nil {
				t.telemetry.Warn(ctx, "No operation mode covers fill level, step skipped",
					semconv.CEM.FillLevel.Float64(fill),
				)
				executionTime = executionTime.Add(sched.Resolution)
				fill = advanceFill(fill, power, usage, storageEff, chargingEff, stepHours, fillBounds)
				continue
			}
		}

		if !havePrev || mode.ID != prevMode || math.Abs(factor-prevFactor) > closeEnough {
			instructions = append(instructions, &s2.FRBCInstruction{
				MessageID:           s2.ID(utils.GenerateID()),
				InstructionID:       s2.ID(utils.GenerateID()),
				ActuatorID:          actuator.ID,
				OperationMode:       mode.ID,
				OperationModeFactor: factor,
				ExecutionTime:       executionTime,
				AbnormalCondition:   false,
			})
			prevMode = mode.ID
			prevFactor = factor
			havePrev = true
		}

		executionTime = executionTime.Add(sched.Resolution)
		fill = advanceFill(fill, power, usage, storageEff, chargingEff, stepHours, fillBounds)
	}

	return instructions, nil
}

// selectMode elige el operation mode y factor para la potencia pedida al
// fill level actual.
//
// La potencia se escala a fill rate con la mejor relación de conversión
// entre los modes válidos y se recorta al fill rate máximo alcanzable.
// Entre los elementos que cubren el fill level gana el de menor eficiencia
// de conversión.
func (t *Translator) selectMode(ctx context.Context, modes []s2.FRBCOperationMode, fill, power float64) (*s2.FRBCOperationMode, float64, error) {
	var valid []*s2.FRBCOperationMode
	for i := range modes {
		if modes[i].FillLevelRange().Contains(fill) {
			valid = append(valid, &modes[i])
		}
	}
	if len(valid) == 0 {
		return nil, 0, fmt.Errorf("no operation mode covers fill level %g", fill)
	}

	// Potencia → fill rate con la mejor relación de conversión disponible
	bestRatio := 0.0
	for _, mode := range valid {
		if r := modeConversionRatio(mode); r > bestRatio {
			bestRatio = r
		}
	}
	fillRate := power
	if bestRatio > 0 {
		fillRate = power * bestRatio
	}

	maxFillRate := 0.0
	for _, mode := range valid {
		if r := mode.MaxFillRate(); r > maxFillRate {
			maxFillRate = r
		}
	}
	if fillRate > maxFillRate {
		t.telemetry.Warn(ctx, "Scheduled fill rate above maximum, clamping",
			semconv.CEM.FillRate.Float64(fillRate),
			semconv.CEM.Reason.String(fmt.Sprintf("max %g", maxFillRate)),
		)
		fillRate = maxFillRate
	}

	// Descartar modes que no alcanzan el fill rate pedido
	reachable := valid[:0]
	for _, mode := range valid {
		if mode.MaxFillRate() >= fillRate {
			reachable = append(reachable, mode)
		}
	}

	var selMode *s2.FRBCOperationMode
	var selElem *s2.FRBCOperationModeElement
	selEfficiency := math.Inf(1)

	for _, mode := range reachable {
		for j := range mode.Elements {
			elem := &mode.Elements[j]
			if !elem.FillLevelRange.Contains(fill) {
				continue
			}
			if eff := elementEfficiency(elem); eff < selEfficiency {
				selEfficiency = eff
				selMode = mode
				selElem = elem
			}
		}
	}
	if selMode == nil {
		return nil, 0, fmt.Errorf("no operation mode element covers fill level %g", fill)
	}

	factor := t.activationFactor(ctx, selElem, fillRate)
	return selMode, factor, nil
}

// activationFactor interpola el fill rate contra el rango del elemento.
//
// El fill rate se recorta solo en la cota inferior del rango; un factor
// fuera de [0,1] se registra como anomalía pero no aborta la emisión.
// Un rango de ancho cero da factor exactamente 1.
func (t *Translator) activationFactor(ctx context.Context, elem *s2.FRBCOperationModeElement, fillRate float64) float64 {
	r := elem.FillRate
	if math.Abs(r.Width()) < closeEnough {
		return 1
	}

	if fillRate < r.StartOfRange {
		fillRate = r.StartOfRange
	}

	factor := (fillRate - r.StartOfRange) / r.Width()
	if factor < 0 || factor > 1 {
		t.telemetry.Warn(ctx, "Activation factor outside [0,1]",
			semconv.CEM.Factor.Float64(factor),
			semconv.CEM.FillRate.Float64(fillRate),
		)
	}
	return factor
}

// advanceFill integra un paso del fill level con pérdida exponencial de
// almacenamiento y lo recorta a los límites del sistema.
func advanceFill(fill, power, usage, storageEff, chargingEff, stepHours float64, bounds s2.NumberRange) float64 {
	next := fill*storageEff + power*chargingEff*stepHours*storageEff - usage*stepHours
	return clamp(next, bounds)
}

// isIdleMode reconoce el operation mode de reposo por su diagnostic label.
func isIdleMode(mode *s2.FRBCOperationMode) bool {
	return strings.Contains(strings.ToLower(mode.DiagnosticLabel), "idle")
}

// findIdleMode busca el operation mode de reposo.
func findIdleMode(modes []s2.FRBCOperationMode) *s2.FRBCOperationMode {
	for i := range modes {
		if isIdleMode(&modes[i]) {
			return &modes[i]
		}
	}
	return nil
}

// modeConversionRatio relación fill rate / potencia máxima del mode.
func modeConversionRatio(mode *s2.FRBCOperationMode) float64 {
	best := 0.0
	for i := range mode.Elements {
		elem := &mode.Elements[i]
		if len(elem.PowerRanges) == 0 || elem.PowerRanges[0].EndOfRange == 0 {
			continue
		}
		if r := elem.FillRate.EndOfRange / elem.PowerRanges[0].EndOfRange; r > best {
			best = r
		}
	}
	return best
}

// elementEfficiency potencia consumida por unidad de fill rate del elemento.
func elementEfficiency(elem *s2.FRBCOperationModeElement) float64 {
	if elem.FillRate.EndOfRange == 0 || len(elem.PowerRanges) == 0 {
		return math.Inf(1)
	}
	return elem.PowerRanges[0].EndOfRange / elem.FillRate.EndOfRange
}

// ConversionEfficiency eficiencia porcentual de conversión del operation
// mode, calculada sobre su último elemento.
func ConversionEfficiency(mode *s2.FRBCOperationMode) float64 {
	if len(mode.Elements) == 0 {
		return 0
	}
	last := &mode.Elements[len(mode.Elements)-1]
	if len(last.PowerRanges) == 0 || last.PowerRanges[0].EndOfRange == 0 {
		return 0
	}
	return 100 * last.FillRate.EndOfRange / last.PowerRanges[0].EndOfRange
}

// maxChargingCapacity potencia máxima entre los operation modes no idle
// de la descripción.
func maxChargingCapacity(sd *s2.FRBCSystemDescription) float64 {
	best := 0.0
	for a := range sd.Actuators {
		for i := range sd.Actuators[a].OperationModes {
			mode := &sd.Actuators[a].OperationModes[i]
			if isIdleMode(mode) {
				continue
			}
			for j := range mode.Elements {
				elem := &mode.Elements[j]
				if len(elem.PowerRanges) == 0 {
					continue
				}
				if p := elem.PowerRanges[0].EndOfRange; p > best {
					best = p
				}
			}
		}
	}
	return best
}

func sampleOr(series []float64, i int, fallback float64) float64 {
	if i < len(series) {
		return series[i]
	}
	return fallback
}

func clamp(v float64, r s2.NumberRange) float64 {
	if v < r.StartOfRange {
		return r.StartOfRange
	}
	if v > r.EndOfRange {
		return r.EndOfRange
	}
	return v
}
