package metricbundle

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// CEMMetrics bundle de métricas para el Customer Energy Manager.
//
// Incluye métricas del ciclo completo de una sesión:
// - Mensajes recibidos/enviados
// - Fallos de validación
// - Instrucciones emitidas y revocadas
// - Solicitudes de schedule
// - Latencia de traducción schedule → instrucciones
//
// # Métricas de Conteo
//
//   - cem.message.received: Mensajes entrantes ruteados
//   - cem.message.sent: Mensajes encolados hacia el RM
//   - cem.message.rejected: Mensajes rechazados en validación
//   - cem.instruction.emitted: Instrucciones enviadas al RM
//   - cem.instruction.revoked: Instrucciones revocadas
//   - cem.schedule.triggered: Schedules solicitados al scheduler
//
// # Métricas de Latencia
//
//   - cem.translation.latency: Tiempo de schedule → instrucciones (ms)
//   - cem.scheduler.latency: Tiempo de ida y vuelta al scheduler (ms)
type CEMMetrics struct {
	// Counters
	MessageReceived    metric.Int64Counter
	MessageSent        metric.Int64Counter
	MessageRejected    metric.Int64Counter
	InstructionEmitted metric.Int64Counter
	InstructionRevoked metric.Int64Counter
	ScheduleTriggered  metric.Int64Counter

	// Histograms
	TranslationLatency metric.Float64Histogram
	SchedulerLatency   metric.Float64Histogram
}

// NewCEMMetrics crea un nuevo bundle de métricas CEM.
func NewCEMMetrics(meter metric.Meter) (*CEMMetrics, error) {
	messageReceived, err := meter.Int64Counter(
		"cem.message.received",
		metric.WithDescription("Mensajes de protocolo recibidos del RM"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	messageSent, err := meter.Int64Counter(
		"cem.message.sent",
		metric.WithDescription("Mensajes de protocolo encolados hacia el RM"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	messageRejected, err := meter.Int64Counter(
		"cem.message.rejected",
		metric.WithDescription("Mensajes rechazados en validación"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, err
	}

	instructionEmitted, err := meter.Int64Counter(
		"cem.instruction.emitted",
		metric.WithDescription("Instrucciones enviadas al RM"),
		metric.WithUnit("{instruction}"),
	)
	if err != nil {
		return nil, err
	}

	instructionRevoked, err := meter.Int64Counter(
		"cem.instruction.revoked",
		metric.WithDescription("Instrucciones revocadas"),
		metric.WithUnit("{instruction}"),
	)
	if err != nil {
		return nil, err
	}

	scheduleTriggered, err := meter.Int64Counter(
		"cem.schedule.triggered",
		metric.WithDescription("Schedules solicitados al scheduler"),
		metric.WithUnit("{schedule}"),
	)
	if err != nil {
		return nil, err
	}

	translationLatency, err := meter.Float64Histogram(
		"cem.translation.latency",
		metric.WithDescription("Latencia de traducción schedule a instrucciones"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	schedulerLatency, err := meter.Float64Histogram(
		"cem.scheduler.latency",
		metric.WithDescription("Latencia de llamadas al scheduler"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &CEMMetrics{
		MessageReceived:    messageReceived,
		MessageSent:        messageSent,
		MessageRejected:    messageRejected,
		InstructionEmitted: instructionEmitted,
		InstructionRevoked: instructionRevoked,
		ScheduleTriggered:  scheduleTriggered,
		TranslationLatency: translationLatency,
		SchedulerLatency:   schedulerLatency,
	}, nil
}

// RecordMessageReceived registra un mensaje entrante.
func (m *CEMMetrics) RecordMessageReceived(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.MessageReceived.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMessageSent registra un mensaje saliente.
func (m *CEMMetrics) RecordMessageSent(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.MessageSent.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordMessageRejected registra un mensaje rechazado en validación.
func (m *CEMMetrics) RecordMessageRejected(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.MessageRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInstructionEmitted registra una instrucción enviada al RM.
func (m *CEMMetrics) RecordInstructionEmitted(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.InstructionEmitted.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordInstructionRevoked registra una instrucción revocada.
func (m *CEMMetrics) RecordInstructionRevoked(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.InstructionRevoked.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordScheduleTriggered registra una solicitud de schedule.
func (m *CEMMetrics) RecordScheduleTriggered(ctx context.Context, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.ScheduleTriggered.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordTranslationLatency registra la latencia de traducción en milisegundos.
func (m *CEMMetrics) RecordTranslationLatency(ctx context.Context, latencyMs float64, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.TranslationLatency.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
}

// RecordSchedulerLatency registra la latencia de una llamada al scheduler.
func (m *CEMMetrics) RecordSchedulerLatency(ctx context.Context, latencyMs float64, attrs ...attribute.KeyValue) {
	if m == nil {
		return
	}
	m.SchedulerLatency.Record(ctx, latencyMs, metric.WithAttributes(attrs...))
}
