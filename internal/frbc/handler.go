// Package frbc implementa el tipo de control FILL_RATE_BASED_CONTROL.
//
// El handler recibe las descripciones y estados del RM, los publica como
// series temporales en el scheduler externo y traduce los schedules de
// potencia resultantes en instrucciones de operation mode.
package frbc

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/xKoRx/cem/internal"
	"github.com/xKoRx/cem/internal/scheduler"
	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/telemetry"
	"github.com/xKoRx/cem/sdk/telemetry/metricbundle"
	"github.com/xKoRx/cem/sdk/telemetry/semconv"
	"github.com/xKoRx/cem/sdk/utils"
)

// Nombres de las acciones rate-limited del handler.
const (
	actionFlexModel         = "flex_model"
	actionEfficiencies      = "conversion_efficiencies"
	actionStorageEfficiency = "storage_efficiency"
	actionFillLevel         = "fill_level"
	actionActuatorStatus    = "actuator_status"
	actionUsageForecast     = "usage_forecast"
	actionTargetProfile     = "target_profile"
	actionSchedule          = "trigger_schedule"
)

// Handler manejador del tipo de control FRBC.
//
// El procesamiento de mensajes es síncrono y barato: guardar, acusar. Todo
// lo que toca al scheduler corre en tareas de fondo; un fallo del
// colaborador se registra y el ciclo se abandona, el próximo mensaje
// elegible vuelve a intentar.
type Handler struct {
	*internal.ControlTypeBase

	cfg        Config
	scheduler  scheduler.Client
	limiter    *internal.RateLimiter
	translator *Translator
	group      *internal.TaskGroup

	descriptions   *internal.BoundedHistory[*s2.FRBCSystemDescription]
	storageStatus  *internal.BoundedHistory[*s2.FRBCStorageStatus]
	actuatorStatus *internal.BoundedHistory[*s2.FRBCActuatorStatus]
	usageForecasts *internal.BoundedHistory[*s2.FRBCUsageForecast]
	targetProfiles *internal.BoundedHistory[*s2.FRBCFillLevelTargetProfile]
	leakage        *internal.BoundedHistory[*s2.FRBCLeakageBehaviour]
	timerStatus    *internal.BoundedHistory[*s2.FRBCTimerStatus]

	mu                  sync.Mutex
	lastDescriptionHash string
	latestDescription   *s2.FRBCSystemDescription
	latestStorage       *s2.FRBCStorageStatus
	storageEfficiency   float64
	outstanding         []s2.ID
}

// NewHandler crea el manejador FRBC.
func NewHandler(cfg Config, tel *telemetry.Client, metrics *metricbundle.CEMMetrics, sched scheduler.Client) *Handler {
	cfg.withDefaults()

	h := &Handler{
		ControlTypeBase: internal.NewControlTypeBase(s2.ControlFillRateBased, tel, metrics, cfg.HistorySize),

		cfg:        cfg,
		scheduler:  sched,
		limiter:    internal.NewRateLimiter(),
		translator: NewTranslator(tel),
		group:      internal.NewTaskGroup(context.Background(), tel),

		descriptions:   internal.NewBoundedHistory[*s2.FRBCSystemDescription](cfg.HistorySize),
		storageStatus:  internal.NewBoundedHistory[*s2.FRBCStorageStatus](cfg.HistorySize),
		actuatorStatus: internal.NewBoundedHistory[*s2.FRBCActuatorStatus](cfg.HistorySize),
		usageForecasts: internal.NewBoundedHistory[*s2.FRBCUsageForecast](cfg.HistorySize),
		targetProfiles: internal.NewBoundedHistory[*s2.FRBCFillLevelTargetProfile](cfg.HistorySize),
		leakage:        internal.NewBoundedHistory[*s2.FRBCLeakageBehaviour](cfg.HistorySize),
		timerStatus:    internal.NewBoundedHistory[*s2.FRBCTimerStatus](cfg.HistorySize),

		storageEfficiency: 1,
	}

	h.Register(s2.TypeFRBCSystemDescription, h.handleSystemDescription)
	h.Register(s2.TypeFRBCStorageStatus, h.handleStorageStatus)
	h.Register(s2.TypeFRBCActuatorStatus, h.handleActuatorStatus)
	h.Register(s2.TypeFRBCLeakageBehaviour, h.handleLeakageBehaviour)
	h.Register(s2.TypeFRBCUsageForecast, h.handleUsageForecast)
	h.Register(s2.TypeFRBCFillLevelTargetProfile, h.handleFillLevelTargetProfile)
	h.Register(s2.TypeFRBCTimerStatus, h.handleTimerStatus)

	return h
}

// Close detiene las tareas de fondo del handler.
func (h *Handler) Close() {
	h.group.Stop()
}

// Activate implementa internal.ControlTypeHandler.
func (h *Handler) Activate(ctx context.Context) {
	h.Telemetry().Info(ctx, "FRBC control activated",
		semconv.CEM.Component.String(semconv.ComponentValues.FRBC),
	)
}

// Deactivate implementa internal.ControlTypeHandler.
func (h *Handler) Deactivate(ctx context.Context) {
	h.Telemetry().Info(ctx, "FRBC control deactivated",
		semconv.CEM.Component.String(semconv.ComponentValues.FRBC),
	)
}

// SystemDescription retorna una descripción previa por message_id.
func (h *Handler) SystemDescription(id s2.ID) (*s2.FRBCSystemDescription, bool) {
	return h.descriptions.Get(string(id))
}

// Outstanding retorna los ids de las instrucciones vigentes.
func (h *Handler) Outstanding() []s2.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]s2.ID(nil), h.outstanding...)
}

// handleSystemDescription procesa FRBC.SystemDescription.
//
// El RM reenvía la descripción periódicamente aunque no cambie; el hash de
// contenido (sin message_id) evita repetir el ciclo completo en cada
// reenvío. Una descripción nueva dispara la actualización del flex model,
// la publicación de las eficiencias de conversión y un nuevo schedule.
func (h *Handler) handleSystemDescription(ctx context.Context, msg s2.Message) {
	sd, ok := msg.(*s2.FRBCSystemDescription)
	if !ok {
		return
	}

	hash := descriptionHash(sd)

	h.mu.Lock()
	unchanged := hash == h.lastDescriptionHash
	if !unchanged {
		h.lastDescriptionHash = hash
		h.latestDescription = sd
	}
	h.mu.Unlock()

	if unchanged {
		h.Telemetry().Debug(ctx, "System description unchanged, skipping",
			semconv.CEM.MessageID.String(string(sd.MessageID)),
		)
		h.Ack(ctx, msg, s2.ReceptionOK)
		return
	}

	h.descriptions.Put(string(sd.MessageID), sd)
	h.Telemetry().Info(ctx, "System description updated",
		semconv.CEM.MessageID.String(string(sd.MessageID)),
	)
	h.Ack(ctx, msg, s2.ReceptionOK)

	if h.limiter.Due(actionFlexModel, h.cfg.MeasurementPeriod) {
		h.group.Go("frbc-flex-model", func(ctx context.Context) {
			h.updateFlexModel(ctx, sd)
		})
	}
	if h.limiter.Due(actionEfficiencies, h.cfg.MeasurementPeriod) {
		h.group.Go("frbc-efficiencies", func(ctx context.Context) {
			h.sendConversionEfficiencies(ctx, sd)
		})
	}
	h.maybeTriggerSchedule()
}

// handleStorageStatus procesa FRBC.StorageStatus.
//
// El fill level presente se publica al sensor correspondiente y, como el
// estado del almacenamiento cambia el punto de partida del plan, vuelve a
// disparar el ciclo de scheduling.
func (h *Handler) handleStorageStatus(ctx context.Context, msg s2.Message) {
	ss, ok := msg.(*s2.FRBCStorageStatus)
	if !ok {
		return
	}

	h.storageStatus.Put(string(ss.MessageID), ss)
	h.mu.Lock()
	h.latestStorage = ss
	h.mu.Unlock()

	h.Ack(ctx, msg, s2.ReceptionOK)

	if h.cfg.FillLevelSensorID != 0 && h.limiter.Due(actionFillLevel, h.cfg.MeasurementPeriod) {
		h.group.Go("frbc-fill-level", func(ctx context.Context) {
			err := h.scheduler.PostMeasurements(ctx, h.cfg.FillLevelSensorID,
				utils.FloorTime(time.Now(), h.cfg.Resolution), h.cfg.Resolution,
				[]float64{ss.PresentFillLevel}, "")
			if err != nil {
				h.Telemetry().Error(ctx, "Failed to post fill level", err,
					semconv.CEM.FillLevel.Float64(ss.PresentFillLevel),
					semconv.CEM.SensorID.Int(h.cfg.FillLevelSensorID),
				)
			}
		})
	}

	h.maybeTriggerSchedule()
}

// handleActuatorStatus procesa FRBC.ActuatorStatus.
//
// El factor reportado se traduce a fill rate con el primer elemento del
// operation mode activo y se publica al sensor del mode y al agregado.
func (h *Handler) handleActuatorStatus(ctx context.Context, msg s2.Message) {
	as, ok := msg.(*s2.FRBCActuatorStatus)
	if !ok {
		return
	}

	h.actuatorStatus.Put(string(as.MessageID), as)
	h.Ack(ctx, msg, s2.ReceptionOK)

	if h.limiter.Due(actionActuatorStatus, h.cfg.MeasurementPeriod) {
		h.group.Go("frbc-actuator-status", func(ctx context.Context) {
			h.forwardActuatorStatus(ctx, as)
		})
	}
}

// handleLeakageBehaviour procesa FRBC.LeakageBehaviour.
//
// La fuga se condensa en la eficiencia de almacenamiento por período, que
// alimenta la simulación de fill level del traductor y se publica como
// serie para que el scheduler la use vía la referencia del flex model.
func (h *Handler) handleLeakageBehaviour(ctx context.Context, msg s2.Message) {
	lb, ok := msg.(*s2.FRBCLeakageBehaviour)
	if !ok {
		return
	}

	h.leakage.Put(string(lb.MessageID), lb)

	eff := StorageEfficiencyFromLeakage(lb, h.cfg.Resolution)
	h.mu.Lock()
	h.storageEfficiency = eff
	h.mu.Unlock()

	h.Telemetry().Debug(ctx, "Storage efficiency updated from leakage behaviour",
		semconv.CEM.FillRate.Float64(eff),
	)
	h.Ack(ctx, msg, s2.ReceptionOK)

	if h.cfg.StorageEfficiencySensorID != 0 && h.limiter.Due(actionStorageEfficiency, h.cfg.MeasurementPeriod) {
		h.group.Go("frbc-storage-efficiency", func(ctx context.Context) {
			h.postConstantPercentage(ctx, h.cfg.StorageEfficiencySensorID, eff*100)
		})
	}
}

// handleUsageForecast procesa FRBC.UsageForecast.
func (h *Handler) handleUsageForecast(ctx context.Context, msg s2.Message) {
	uf, ok := msg.(*s2.FRBCUsageForecast)
	if !ok {
		return
	}

	h.usageForecasts.Put(string(uf.MessageID), uf)
	h.Ack(ctx, msg, s2.ReceptionOK)

	if h.cfg.UsageForecastSensorID == 0 || !h.limiter.Due(actionUsageForecast, h.cfg.MeasurementPeriod) {
		return
	}

	h.group.Go("frbc-usage-forecast", func(ctx context.Context) {
		start, values := ResampleUsageForecast(uf, h.cfg.Resolution)
		if len(values) == 0 {
			return
		}

		duration := time.Duration(len(values)) * h.cfg.Resolution
		err := h.scheduler.PostMeasurements(ctx, h.cfg.UsageForecastSensorID,
			start, duration, values, "")
		if err != nil {
			h.Telemetry().Error(ctx, "Failed to post usage forecast", err,
				semconv.CEM.SensorID.Int(h.cfg.UsageForecastSensorID),
			)
		}
	})
}

// handleFillLevelTargetProfile procesa FRBC.FillLevelTargetProfile.
//
// El perfil se separa en series de mínimos y máximos de SoC que el
// scheduler usa como restricciones del flex model.
func (h *Handler) handleFillLevelTargetProfile(ctx context.Context, msg s2.Message) {
	tp, ok := msg.(*s2.FRBCFillLevelTargetProfile)
	if !ok {
		return
	}

	h.targetProfiles.Put(string(tp.MessageID), tp)
	h.Ack(ctx, msg, s2.ReceptionOK)

	if !h.limiter.Due(actionTargetProfile, h.cfg.MeasurementPeriod) {
		return
	}

	h.group.Go("frbc-target-profile", func(ctx context.Context) {
		start, minima, maxima := ResampleTargetProfile(tp, h.cfg.Resolution)
		if len(minima) == 0 {
			return
		}
		duration := time.Duration(len(minima)) * h.cfg.Resolution

		if h.cfg.SOCMinimaSensorID != 0 {
			if err := h.scheduler.PostMeasurements(ctx, h.cfg.SOCMinimaSensorID, start, duration, minima, ""); err != nil {
				h.Telemetry().Error(ctx, "Failed to post SoC minima", err,
					semconv.CEM.SensorID.Int(h.cfg.SOCMinimaSensorID),
				)
			}
		}
		if h.cfg.SOCMaximaSensorID != 0 {
			if err := h.scheduler.PostMeasurements(ctx, h.cfg.SOCMaximaSensorID, start, duration, maxima, ""); err != nil {
				h.Telemetry().Error(ctx, "Failed to post SoC maxima", err,
					semconv.CEM.SensorID.Int(h.cfg.SOCMaximaSensorID),
				)
			}
		}
	})
}

// handleTimerStatus procesa FRBC.TimerStatus.
func (h *Handler) handleTimerStatus(ctx context.Context, msg s2.Message) {
	ts, ok := msg.(*s2.FRBCTimerStatus)
	if !ok {
		return
	}

	h.timerStatus.Put(string(ts.MessageID), ts)
	h.Telemetry().Debug(ctx, "Timer finished",
		semconv.CEM.TimerName.String(string(ts.TimerID)),
		semconv.CEM.ActuatorID.String(string(ts.ActuatorID)),
	)
	h.Ack(ctx, msg, s2.ReceptionOK)
}

// flexModelAttrs arma los atributos del flex model: límites de SoC,
// referencias a las series publicadas y capacidad de carga del sistema.
func (h *Handler) flexModelAttrs(sd *s2.FRBCSystemDescription) map[string]any {
	bounds := sd.Storage.FillLevelRange
	attrs := map[string]any{
		"soc-min": bounds.StartOfRange,
		"soc-max": bounds.EndOfRange,
	}

	if h.cfg.UsageForecastSensorID != 0 {
		attrs["soc-usage"] = []map[string]any{{"sensor": h.cfg.UsageForecastSensorID}}
	}
	if h.cfg.StorageEfficiencySensorID != 0 {
		attrs["storage-efficiency"] = map[string]any{"sensor": h.cfg.StorageEfficiencySensorID}
	}
	if h.cfg.ChargingEfficiencySensorID != 0 {
		attrs["charging-efficiency"] = map[string]any{"sensor": h.cfg.ChargingEfficiencySensorID}
	}
	if capacity := maxChargingCapacity(sd); capacity > 0 {
		attrs["power-capacity"] = fmt.Sprintf("%gW", capacity)
	}

	return attrs
}

// updateFlexModel publica los límites y referencias del almacenamiento
// como flex model del asset.
func (h *Handler) updateFlexModel(ctx context.Context, sd *s2.FRBCSystemDescription) {
	if h.cfg.AssetID == 0 {
		return
	}

	if err := h.scheduler.UpdateFlexModel(ctx, h.cfg.AssetID, h.flexModelAttrs(sd)); err != nil {
		h.Telemetry().Error(ctx, "Failed to update flex model", err,
			semconv.CEM.ResourceID.String(fmt.Sprintf("%d", h.cfg.AssetID)),
		)
	}
}

// sendConversionEfficiencies publica la eficiencia de conversión de cada
// operation mode como serie constante sobre el horizonte configurado, y la
// del mejor modo no idle al sensor agregado de eficiencia de carga.
func (h *Handler) sendConversionEfficiencies(ctx context.Context, sd *s2.FRBCSystemDescription) {
	if len(sd.Actuators) != 1 {
		return
	}

	best := 0.0
	for i, mode := range sd.Actuators[0].OperationModes {
		eff := ConversionEfficiency(&mode)
		if eff > best && !isIdleMode(&mode) {
			best = eff
		}

		if i >= len(h.cfg.ModeEfficiencySensorIDs) || h.cfg.ModeEfficiencySensorIDs[i] == 0 {
			continue
		}
		h.postConstantPercentage(ctx, h.cfg.ModeEfficiencySensorIDs[i], eff)
	}

	if h.cfg.ChargingEfficiencySensorID != 0 && best > 0 {
		h.postConstantPercentage(ctx, h.cfg.ChargingEfficiencySensorID, best)
	}
}

// postConstantPercentage publica una serie constante en "%" sobre el
// horizonte de eficiencias.
func (h *Handler) postConstantPercentage(ctx context.Context, sensorID int, value float64) {
	samples := int(h.cfg.EfficiencyHorizon / h.cfg.Resolution)
	if samples <= 0 {
		return
	}

	values := make([]float64, samples)
	for i := range values {
		values[i] = value
	}

	start := utils.FloorTime(time.Now(), h.cfg.Resolution)
	err := h.scheduler.PostMeasurements(ctx, sensorID, start, h.cfg.EfficiencyHorizon, values, "%")
	if err != nil {
		h.Telemetry().Error(ctx, "Failed to post efficiency series", err,
			semconv.CEM.SensorID.Int(sensorID),
		)
	}
}

// forwardActuatorStatus publica el fill rate implicado por el estado del
// actuador.
func (h *Handler) forwardActuatorStatus(ctx context.Context, as *s2.FRBCActuatorStatus) {
	h.mu.Lock()
	sd := h.latestDescription
	h.mu.Unlock()
	if sd == nil || len(sd.Actuators) != 1 {
		return
	}

	modePos := -1
	var mode *s2.FRBCOperationMode
	for i := range sd.Actuators[0].OperationModes {
		if sd.Actuators[0].OperationModes[i].ID == as.ActiveOperationModeID {
			modePos = i
			mode = &sd.Actuators[0].OperationModes[i]
			break
		}
	}
	if mode == nil || len(mode.Elements) == 0 {
		h.Telemetry().Warn(ctx, "Actuator status references unknown operation mode",
			semconv.CEM.OperationModeID.String(string(as.ActiveOperationModeID)),
		)
		return
	}

	fillRate := mode.Elements[0].FillRate.Interpolate(as.OperationModeFactor)

	when := time.Now()
	if as.TransitionTimestamp != nil {
		when = *as.TransitionTimestamp
	}
	start := utils.FloorTime(when, h.cfg.Resolution)

	if modePos < len(h.cfg.ModeFillRateSensorIDs) && h.cfg.ModeFillRateSensorIDs[modePos] != 0 {
		sensorID := h.cfg.ModeFillRateSensorIDs[modePos]
		if err := h.scheduler.PostMeasurements(ctx, sensorID, start, h.cfg.Resolution, []float64{fillRate}, ""); err != nil {
			h.Telemetry().Error(ctx, "Failed to post operation mode fill rate", err,
				semconv.CEM.SensorID.Int(sensorID),
			)
		}
	}
	if h.cfg.FillRateSensorID != 0 {
		if err := h.scheduler.PostMeasurements(ctx, h.cfg.FillRateSensorID, start, h.cfg.Resolution, []float64{fillRate}, ""); err != nil {
			h.Telemetry().Error(ctx, "Failed to post aggregate fill rate", err,
				semconv.CEM.SensorID.Int(h.cfg.FillRateSensorID),
			)
		}
	}
}

// maybeTriggerSchedule lanza el ciclo de scheduling si está habilitado por
// el rate limiter y hay descripción de sistema.
func (h *Handler) maybeTriggerSchedule() {
	h.mu.Lock()
	ready := h.latestDescription != nil
	h.mu.Unlock()

	if !ready || !h.limiter.Due(actionSchedule, h.cfg.MeasurementPeriod) {
		return
	}

	h.group.Go("frbc-schedule", h.runScheduleCycle)
}

// runScheduleCycle ejecuta un ciclo completo de scheduling: solicitar el
// schedule, recuperarlo, traducirlo y reemplazar las instrucciones
// vigentes.
//
// Cualquier fallo del colaborador aborta el ciclo; el rate limiter se
// resetea para que el próximo mensaje elegible reintente sin esperar el
// período completo.
func (h *Handler) runScheduleCycle(ctx context.Context) {
	h.mu.Lock()
	sd := h.latestDescription
	ss := h.latestStorage
	storageEff := h.storageEfficiency
	h.mu.Unlock()

	if sd == nil {
		return
	}

	initialFill := sd.Storage.FillLevelRange.StartOfRange
	if ss != nil {
		initialFill = ss.PresentFillLevel
	}

	start := sd.ValidFrom.Add(h.cfg.ValidFromShift)

	flexModel := h.flexModelAttrs(sd)
	flexModel["soc-at-start"] = initialFill

	var flexContext map[string]any
	if h.cfg.PriceSensorID != 0 || h.cfg.SitePowerCapacity != "" {
		flexContext = map[string]any{}
		if h.cfg.PriceSensorID != 0 {
			flexContext["consumption-price-sensor"] = h.cfg.PriceSensorID
		}
		if h.cfg.SitePowerCapacity != "" {
			flexContext["site-power-capacity"] = h.cfg.SitePowerCapacity
		}
	}

	callStart := time.Now()
	scheduleID, err := h.scheduler.TriggerSchedule(ctx, h.cfg.PowerSensorID,
		start, h.cfg.PlanningHorizon, flexModel, flexContext)
	if err != nil {
		h.Telemetry().Error(ctx, "Failed to trigger schedule", err,
			semconv.CEM.SensorID.Int(h.cfg.PowerSensorID),
		)
		h.limiter.Reset(actionSchedule)
		return
	}
	h.Metrics().RecordScheduleTriggered(ctx,
		semconv.CEM.ScheduleID.String(scheduleID),
	)

	sched, err := h.scheduler.GetSchedule(ctx, h.cfg.PowerSensorID, scheduleID, h.cfg.ExecutionDuration)
	if err != nil {
		h.Telemetry().Error(ctx, "Failed to fetch schedule", err,
			semconv.CEM.ScheduleID.String(scheduleID),
		)
		h.limiter.Reset(actionSchedule)
		return
	}
	h.Metrics().RecordSchedulerLatency(ctx, float64(utils.ElapsedMsSince(callStart)))

	if len(sched.Values) == 0 {
		h.Telemetry().Warn(ctx, "Scheduler returned empty schedule",
			semconv.CEM.ScheduleID.String(scheduleID),
		)
		return
	}

	resolution := sched.Duration / time.Duration(len(sched.Values))
	if resolution <= 0 {
		resolution = h.cfg.Resolution
	}

	aligned := AlignedSchedule{
		Start:      sched.Start,
		Resolution: resolution,
		Power:      sched.Values,
	}

	if h.cfg.UsageForecastSensorID != 0 {
		usage, err := h.scheduler.GetSeries(ctx, h.cfg.UsageForecastSensorID,
			sched.Start, sched.Duration, "", resolution)
		if err != nil {
			h.Telemetry().Warn(ctx, "Usage series unavailable, assuming zero usage",
				semconv.CEM.SensorID.Int(h.cfg.UsageForecastSensorID),
			)
		} else {
			aligned.Usage = usage
		}
	}

	// La misma grilla que la trayectoria de potencia; sin serie publicada,
	// la eficiencia de almacenamiento cae al escalar de la última fuga y la
	// de carga al default del traductor.
	aligned.StorageEfficiency = h.fetchEfficiencySeries(ctx,
		h.cfg.StorageEfficiencySensorID, sched.Start, sched.Duration, resolution)
	if aligned.StorageEfficiency == nil {
		storageSeries := make([]float64, len(sched.Values))
		for i := range storageSeries {
			storageSeries[i] = storageEff
		}
		aligned.StorageEfficiency = storageSeries
	}
	aligned.ChargingEfficiency = h.fetchEfficiencySeries(ctx,
		h.cfg.ChargingEfficiencySensorID, sched.Start, sched.Duration, resolution)

	translateStart := time.Now()
	instructions, err := h.translator.Translate(ctx, aligned, sd, initialFill)
	if err != nil {
		h.Telemetry().Error(ctx, "Schedule translation failed", err,
			semconv.CEM.ScheduleID.String(scheduleID),
		)
		return
	}
	h.Metrics().RecordTranslationLatency(ctx, float64(utils.ElapsedMsSince(translateStart)))

	h.replaceInstructions(ctx, instructions)
}

// fetchEfficiencySeries recupera una serie porcentual del scheduler y la
// convierte a fracción. Retorna nil si el sensor no está configurado o la
// serie no está disponible.
func (h *Handler) fetchEfficiencySeries(ctx context.Context, sensorID int, start time.Time, duration, resolution time.Duration) []float64 {
	if sensorID == 0 {
		return nil
	}

	values, err := h.scheduler.GetSeries(ctx, sensorID, start, duration, "%", resolution)
	if err != nil || len(values) == 0 {
		h.Telemetry().Warn(ctx, "Efficiency series unavailable",
			semconv.CEM.SensorID.Int(sensorID),
		)
		return nil
	}

	for i := range values {
		values[i] /= 100
	}
	return values
}

// replaceInstructions revoca las instrucciones vigentes y encola las
// nuevas. El orden importa: las revocaciones salen primero por la misma
// cola FIFO, así el RM nunca ve dos planes superpuestos.
func (h *Handler) replaceInstructions(ctx context.Context, instructions []*s2.FRBCInstruction) {
	h.mu.Lock()
	previous := h.outstanding
	next := make([]s2.ID, 0, len(instructions))
	for _, in := range instructions {
		next = append(next, in.InstructionID)
	}
	h.outstanding = next
	h.mu.Unlock()

	for _, id := range previous {
		h.Send(ctx, &s2.RevokeObject{
			MessageID:  s2.ID(utils.GenerateID()),
			ObjectType: s2.RevokeFRBCInstruction,
			ObjectID:   id,
		})
		h.Metrics().RecordInstructionRevoked(ctx,
			semconv.CEM.InstructionID.String(string(id)),
		)
	}

	for _, in := range instructions {
		h.Send(ctx, in)
		h.Metrics().RecordInstructionEmitted(ctx,
			semconv.CEM.InstructionID.String(string(in.InstructionID)),
			semconv.CEM.OperationModeID.String(string(in.OperationMode)),
			semconv.CEM.Factor.Float64(in.OperationModeFactor),
		)
	}

	h.Telemetry().Info(ctx, "Instructions replaced",
		semconv.CEM.Component.String(semconv.ComponentValues.FRBC),
	)
}

// descriptionHash hash de contenido de la descripción, ignorando la
// identidad del mensaje.
func descriptionHash(sd *s2.FRBCSystemDescription) string {
	clone := *sd
	clone.MessageType = ""
	clone.MessageID = ""

	raw, err := json.Marshal(&clone)
	if err != nil {
		return string(sd.MessageID)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
