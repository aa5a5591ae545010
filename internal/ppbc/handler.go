// Package ppbc implementa el tipo de control POWER_PROFILE_BASED_CONTROL.
//
// Variante simple: el handler mantiene los perfiles publicados por el RM y
// expone la emisión de schedule instructions; no hay optimización propia
// sobre las secuencias.
package ppbc

import (
	"context"
	"time"

	"github.com/xKoRx/cem/internal"
	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/telemetry"
	"github.com/xKoRx/cem/sdk/telemetry/metricbundle"
	"github.com/xKoRx/cem/sdk/telemetry/semconv"
	"github.com/xKoRx/cem/sdk/utils"
)

// Handler manejador del tipo de control PPBC.
type Handler struct {
	*internal.ControlTypeBase

	profiles *internal.BoundedHistory[*s2.PPBCPowerProfileDefinition]
	statuses *internal.BoundedHistory[*s2.PPBCPowerProfileStatus]
}

// NewHandler crea el manejador PPBC.
func NewHandler(tel *telemetry.Client, metrics *metricbundle.CEMMetrics, historySize int) *Handler {
	h := &Handler{
		ControlTypeBase: internal.NewControlTypeBase(s2.ControlPowerProfileBased, tel, metrics, historySize),

		profiles: internal.NewBoundedHistory[*s2.PPBCPowerProfileDefinition](historySize),
		statuses: internal.NewBoundedHistory[*s2.PPBCPowerProfileStatus](historySize),
	}

	h.Register(s2.TypePPBCPowerProfileDefinition, h.handlePowerProfileDefinition)
	h.Register(s2.TypePPBCPowerProfileStatus, h.handlePowerProfileStatus)

	return h
}

// Profile retorna una definición de perfil previa por message_id.
func (h *Handler) Profile(id s2.ID) (*s2.PPBCPowerProfileDefinition, bool) {
	return h.profiles.Get(string(id))
}

// SequenceStatus retorna el último estado reportado de una secuencia.
func (h *Handler) SequenceStatus(sequenceID s2.ID) (s2.PPBCSequenceStatus, bool) {
	for _, st := range h.statuses.Values() {
		if st.SequenceID == sequenceID {
			return st.Status, true
		}
	}
	return "", false
}

// ScheduleSequence emite la instrucción de ejecutar una secuencia de un
// perfil publicado. Retorna el id de la instrucción.
func (h *Handler) ScheduleSequence(ctx context.Context, profileID, containerID, sequenceID s2.ID, executionTime time.Time) s2.ID {
	instructionID := s2.ID(utils.GenerateID())

	h.Send(ctx, &s2.PPBCScheduleInstruction{
		MessageID:           s2.ID(utils.GenerateID()),
		InstructionID:       instructionID,
		PowerProfileID:      profileID,
		SequenceContainerID: containerID,
		PowerSequenceID:     sequenceID,
		ExecutionTime:       executionTime,
	})
	h.Metrics().RecordInstructionEmitted(ctx,
		semconv.CEM.InstructionID.String(string(instructionID)),
	)

	return instructionID
}

// EndInterruption emite la instrucción de reanudar una secuencia
// interrumpida.
func (h *Handler) EndInterruption(ctx context.Context, profileID, sequenceID s2.ID, executionTime time.Time) s2.ID {
	instructionID := s2.ID(utils.GenerateID())

	h.Send(ctx, &s2.PPBCEndInterruptionInstruction{
		MessageID:       s2.ID(utils.GenerateID()),
		InstructionID:   instructionID,
		PowerProfileID:  profileID,
		PowerSequenceID: sequenceID,
		ExecutionTime:   executionTime,
	})
	h.Metrics().RecordInstructionEmitted(ctx,
		semconv.CEM.InstructionID.String(string(instructionID)),
	)

	return instructionID
}

// handlePowerProfileDefinition guarda el perfil y acusa OK.
func (h *Handler) handlePowerProfileDefinition(ctx context.Context, msg s2.Message) {
	def, ok := msg.(*s2.PPBCPowerProfileDefinition)
	if !ok {
		return
	}

	h.profiles.Put(string(def.MessageID), def)
	h.Telemetry().Info(ctx, "Power profile definition received",
		semconv.CEM.MessageID.String(string(def.MessageID)),
	)
	h.Ack(ctx, msg, s2.ReceptionOK)
}

// handlePowerProfileStatus guarda el estado de la secuencia y acusa OK.
func (h *Handler) handlePowerProfileStatus(ctx context.Context, msg s2.Message) {
	st, ok := msg.(*s2.PPBCPowerProfileStatus)
	if !ok {
		return
	}

	h.statuses.Put(string(st.SequenceID), st)
	h.Telemetry().Debug(ctx, "Power sequence status updated",
		semconv.CEM.InstructionID.String(string(st.SequenceID)),
		semconv.CEM.Status.String(string(st.Status)),
	)
	h.Ack(ctx, msg, s2.ReceptionOK)
}
