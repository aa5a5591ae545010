package internal

import (
	"context"

	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/telemetry"
	"github.com/xKoRx/cem/sdk/telemetry/metricbundle"
	"github.com/xKoRx/cem/sdk/telemetry/semconv"
)

// ControlTypeHandler manejador de mensajes de un paradigma de control.
//
// El CEM rutea primero al handler del tipo de control activo; el resto
// de los mensajes los procesa él mismo.
type ControlTypeHandler interface {
	// ControlType retorna el paradigma que implementa el handler.
	ControlType() s2.ControlType

	// Supports indica si el handler procesa el tag.
	Supports(tag string) bool

	// Dispatch rutea un mensaje al handler. Retorna false si el tag no
	// está soportado.
	Dispatch(ctx context.Context, msg s2.Message) bool

	// Callbacks expone el registro de callbacks del handler, donde el
	// CEM registra el callback de activación cuando este handler está
	// activo y se pide cambiar a otro.
	Callbacks() *CallbackRegistry

	// SetSender conecta el handler a la cola de salida de la sesión.
	SetSender(s Sender)

	// Activate notifica que el RM confirmó este tipo de control.
	Activate(ctx context.Context)

	// Deactivate notifica que el tipo de control dejó de estar activo.
	Deactivate(ctx context.Context)

	// Revoke registra que el RM revocó uno de sus propios objetos.
	Revoke(ctx context.Context, objectID s2.ID)
}

// ControlTypeBase comportamiento común de los manejadores de tipo de
// control: historial de estados de instrucción y registro de objetos
// revocados por el RM.
type ControlTypeBase struct {
	*MessageHandler

	controlType s2.ControlType

	instructionStatus *BoundedHistory[s2.InstructionStatus]
	revokedByRM       *BoundedHistory[struct{}]
}

// NewControlTypeBase crea la base para un tipo de control.
func NewControlTypeBase(ct s2.ControlType, tel *telemetry.Client, metrics *metricbundle.CEMMetrics, historySize int) *ControlTypeBase {
	b := &ControlTypeBase{
		MessageHandler:    NewMessageHandler(tel, metrics, historySize),
		controlType:       ct,
		instructionStatus: NewBoundedHistory[s2.InstructionStatus](historySize),
		revokedByRM:       NewBoundedHistory[struct{}](historySize),
	}

	b.Register(s2.TypeInstructionStatusUpdate, b.handleInstructionStatusUpdate)

	return b
}

// ControlType implementa ControlTypeHandler.
func (b *ControlTypeBase) ControlType() s2.ControlType {
	return b.controlType
}

// Activate implementa ControlTypeHandler. Default no-op.
func (b *ControlTypeBase) Activate(ctx context.Context) {}

// Deactivate implementa ControlTypeHandler. Default no-op.
func (b *ControlTypeBase) Deactivate(ctx context.Context) {}

// Revoke registra un objeto revocado por el RM.
func (b *ControlTypeBase) Revoke(ctx context.Context, objectID s2.ID) {
	b.revokedByRM.Put(string(objectID), struct{}{})
	b.Telemetry().Info(ctx, "Object revoked by RM",
		semconv.CEM.ControlType.String(string(b.controlType)),
		semconv.CEM.InstructionID.String(string(objectID)),
	)
}

// RevokedByRM indica si el RM revocó el objeto.
func (b *ControlTypeBase) RevokedByRM(objectID s2.ID) bool {
	_, ok := b.revokedByRM.Get(string(objectID))
	return ok
}

// InstructionStatus retorna el último estado reportado de una instrucción.
func (b *ControlTypeBase) InstructionStatus(instructionID s2.ID) (s2.InstructionStatus, bool) {
	return b.instructionStatus.Get(string(instructionID))
}

// handleInstructionStatusUpdate guarda el estado de la instrucción y acusa OK.
func (b *ControlTypeBase) handleInstructionStatusUpdate(ctx context.Context, msg s2.Message) {
	update, ok := msg.(*s2.InstructionStatusUpdate)
	if !ok {
		return
	}

	b.instructionStatus.Put(string(update.InstructionID), update.StatusType)
	b.Telemetry().Debug(ctx, "Instruction status updated",
		semconv.CEM.InstructionID.String(string(update.InstructionID)),
		semconv.CEM.Status.String(string(update.StatusType)),
	)

	b.Ack(ctx, msg, s2.ReceptionOK)
}
