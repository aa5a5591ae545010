package internal

import (
	"context"

	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/telemetry"
	"github.com/xKoRx/cem/sdk/telemetry/metricbundle"
	"github.com/xKoRx/cem/sdk/telemetry/semconv"
)

// HandlerFunc procesa un mensaje entrante ya validado.
type HandlerFunc func(ctx context.Context, msg s2.Message)

// Sender encola mensajes salientes hacia el RM.
//
// La cola es FIFO y única por sesión: todas las respuestas y mensajes
// propios salen por el mismo camino, en orden.
type Sender interface {
	Enqueue(ctx context.Context, msg s2.Message)
}

// MessageHandler núcleo compartido de los manejadores de protocolo.
//
// Mantiene la tabla estática de ruteo tag → handler, los historiales de
// mensajes entrantes y salientes, el historial de estados de recepción y
// los callbacks pendientes de acuse. El CEM y cada manejador de tipo de
// control lo embeben.
type MessageHandler struct {
	telemetry *telemetry.Client
	metrics   *metricbundle.CEMMetrics

	handlers map[string]HandlerFunc

	incoming       *BoundedHistory[s2.Message]
	outgoing       *BoundedHistory[s2.Message]
	outgoingStatus *BoundedHistory[s2.ReceptionStatusValue]
	callbacks      *CallbackRegistry

	sender Sender
}

// NewMessageHandler crea un manejador base.
//
// Registra el handler de ReceptionStatus; el resto de la tabla la arma
// cada componente en su constructor.
func NewMessageHandler(tel *telemetry.Client, metrics *metricbundle.CEMMetrics, historySize int) *MessageHandler {
	h := &MessageHandler{
		telemetry:      tel,
		metrics:        metrics,
		handlers:       make(map[string]HandlerFunc),
		incoming:       NewBoundedHistory[s2.Message](historySize),
		outgoing:       NewBoundedHistory[s2.Message](historySize),
		outgoingStatus: NewBoundedHistory[s2.ReceptionStatusValue](historySize),
		callbacks:      NewCallbackRegistry(),
	}

	h.Register(s2.TypeReceptionStatus, h.handleReceptionStatus)

	return h
}

// Telemetry retorna el cliente de telemetría del manejador.
func (h *MessageHandler) Telemetry() *telemetry.Client {
	return h.telemetry
}

// Metrics retorna el bundle de métricas. Puede ser nil.
func (h *MessageHandler) Metrics() *metricbundle.CEMMetrics {
	return h.metrics
}

// Callbacks retorna el registro de callbacks pendientes de acuse.
func (h *MessageHandler) Callbacks() *CallbackRegistry {
	return h.callbacks
}

// SetSender conecta el manejador a la cola de salida de la sesión.
func (h *MessageHandler) SetSender(s Sender) {
	h.sender = s
}

// Register registra el handler para un tag de mensaje. Reemplaza el
// handler previo si existía.
func (h *MessageHandler) Register(tag string, fn HandlerFunc) {
	h.handlers[tag] = fn
}

// Supports indica si hay handler registrado para el tag.
func (h *MessageHandler) Supports(tag string) bool {
	_, ok := h.handlers[tag]
	return ok
}

// Dispatch rutea un mensaje a su handler registrado.
//
// Registra el mensaje en el historial de entrantes. Retorna false si no
// hay handler para su tag.
func (h *MessageHandler) Dispatch(ctx context.Context, msg s2.Message) bool {
	fn, ok := h.handlers[msg.Type()]
	if !ok {
		return false
	}

	h.incoming.Put(string(msg.ID()), msg)
	h.metrics.RecordMessageReceived(ctx,
		semconv.CEM.MessageType.String(msg.Type()),
	)

	fn(ctx, msg)
	return true
}

// Incoming retorna un mensaje entrante previo por message_id.
func (h *MessageHandler) Incoming(id s2.ID) (s2.Message, bool) {
	return h.incoming.Get(string(id))
}

// Outgoing retorna un mensaje saliente previo por message_id.
func (h *MessageHandler) Outgoing(id s2.ID) (s2.Message, bool) {
	return h.outgoing.Get(string(id))
}

// OutgoingStatus retorna el estado de recepción acusado para un mensaje
// saliente.
func (h *MessageHandler) OutgoingStatus(id s2.ID) (s2.ReceptionStatusValue, bool) {
	return h.outgoingStatus.Get(string(id))
}

// Send encola un mensaje saliente y lo registra en el historial.
func (h *MessageHandler) Send(ctx context.Context, msg s2.Message) {
	h.outgoing.Put(string(msg.ID()), msg)
	h.metrics.RecordMessageSent(ctx,
		semconv.CEM.MessageType.String(msg.Type()),
	)

	if h.sender == nil {
		h.telemetry.Warn(ctx, "No sender attached, message dropped",
			semconv.CEM.MessageType.String(msg.Type()),
			semconv.CEM.MessageID.String(string(msg.ID())),
		)
		return
	}
	h.sender.Enqueue(ctx, msg)
}

// SendWithCallbacks encola un mensaje y registra callbacks a invocar al
// llegar su ReceptionStatus.
func (h *MessageHandler) SendWithCallbacks(ctx context.Context, msg s2.Message, onSuccess, onFailure Callback) {
	h.callbacks.OnSuccess(string(msg.ID()), onSuccess)
	h.callbacks.OnFailure(string(msg.ID()), onFailure)
	h.Send(ctx, msg)
}

// Ack encola el ReceptionStatus para un mensaje entrante.
//
// No-op si el mensaje es a su vez un ReceptionStatus: los acuses no se
// acusan.
func (h *MessageHandler) Ack(ctx context.Context, subject s2.Message, status s2.ReceptionStatusValue) {
	if subject.Type() == s2.TypeReceptionStatus {
		return
	}
	h.Send(ctx, s2.NewReceptionStatus(subject.ID(), status))
}

// handleReceptionStatus procesa el acuse de un mensaje saliente.
//
// Guarda el estado en el historial de acuses y consume el callback
// correspondiente. Un estado de fallo descarta el callback de éxito.
func (h *MessageHandler) handleReceptionStatus(ctx context.Context, msg s2.Message) {
	rs, ok := msg.(*s2.ReceptionStatus)
	if !ok {
		return
	}

	subjectID := string(rs.SubjectMessageID)
	h.outgoingStatus.Put(subjectID, rs.Status)

	if !rs.Status.IsOK() {
		h.telemetry.Warn(ctx, "Message rejected by RM",
			semconv.CEM.SubjectMessageID.String(subjectID),
			semconv.CEM.Status.String(string(rs.Status)),
			semconv.CEM.Reason.String(rs.DiagnosticLabel),
		)
	}

	if cb := h.callbacks.Resolve(subjectID, rs.Status.IsOK()); cb != nil {
		cb(ctx)
	}
}
