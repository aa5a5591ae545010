package s2

import "time"

// PPBCPowerSequenceElement es un tramo de potencia de una secuencia.
type PPBCPowerSequenceElement struct {
	Duration    Duration             `json:"duration"`
	PowerValues []PowerForecastValue `json:"power_values"`
}

// PPBCPowerSequence es una secuencia ininterrumpible de tramos de potencia.
type PPBCPowerSequence struct {
	ID              ID                         `json:"id"`
	Elements        []PPBCPowerSequenceElement `json:"elements"`
	IsInterruptible bool                       `json:"is_interruptible"`
}

// PPBCPowerSequenceContainer agrupa alternativas de una misma secuencia.
type PPBCPowerSequenceContainer struct {
	ID        ID                  `json:"id"`
	Sequences []PPBCPowerSequence `json:"sequences"`
}

// PPBCPowerProfileDefinition publica el perfil de potencia planificable
// del RM bajo control PPBC.
type PPBCPowerProfileDefinition struct {
	MessageType string                       `json:"message_type"`
	MessageID   ID                           `json:"message_id"`
	StartTime   time.Time                    `json:"start_time"`
	EndTime     time.Time                    `json:"end_time"`
	Containers  []PPBCPowerSequenceContainer `json:"power_sequences_containers"`
}

func (m *PPBCPowerProfileDefinition) Type() string { return TypePPBCPowerProfileDefinition }
func (m *PPBCPowerProfileDefinition) ID() ID       { return m.MessageID }

// PPBCSequenceStatus enumera los estados de una power sequence.
type PPBCSequenceStatus string

const (
	PPBCSequenceNotScheduled PPBCSequenceStatus = "NOT_SCHEDULED"
	PPBCSequenceScheduled    PPBCSequenceStatus = "SCHEDULED"
	PPBCSequenceStarted      PPBCSequenceStatus = "STARTED"
	PPBCSequenceInterrupted  PPBCSequenceStatus = "INTERRUPTED"
	PPBCSequenceFinished     PPBCSequenceStatus = "FINISHED"
	PPBCSequenceAborted      PPBCSequenceStatus = "ABORTED"
)

// PPBCPowerProfileStatus reporta el estado de las secuencias de un perfil.
type PPBCPowerProfileStatus struct {
	MessageType       string             `json:"message_type"`
	MessageID         ID                 `json:"message_id"`
	PowerProfileID    ID                 `json:"power_profile_id"`
	SequenceID        ID                 `json:"sequence_id"`
	Status            PPBCSequenceStatus `json:"status"`
	StartTime         *time.Time         `json:"start_time,omitempty"`
}

func (m *PPBCPowerProfileStatus) Type() string { return TypePPBCPowerProfileStatus }
func (m *PPBCPowerProfileStatus) ID() ID       { return m.MessageID }

// PPBCScheduleInstruction ordena al RM ejecutar una secuencia planificada.
type PPBCScheduleInstruction struct {
	MessageType         string    `json:"message_type"`
	MessageID           ID        `json:"message_id"`
	InstructionID       ID        `json:"id"`
	PowerProfileID      ID        `json:"power_profile_id"`
	SequenceContainerID ID        `json:"sequence_container_id"`
	PowerSequenceID     ID        `json:"power_sequence_id"`
	ExecutionTime       time.Time `json:"execution_time"`
	AbnormalCondition   bool      `json:"abnormal_condition"`
}

func (m *PPBCScheduleInstruction) Type() string { return TypePPBCScheduleInstruction }
func (m *PPBCScheduleInstruction) ID() ID       { return m.MessageID }

// PPBCEndInterruptionInstruction ordena reanudar una secuencia interrumpida.
type PPBCEndInterruptionInstruction struct {
	MessageType         string    `json:"message_type"`
	MessageID           ID        `json:"message_id"`
	InstructionID       ID        `json:"id"`
	PowerProfileID      ID        `json:"power_profile_id"`
	PowerSequenceID     ID        `json:"power_sequence_id"`
	ExecutionTime       time.Time `json:"execution_time"`
	AbnormalCondition   bool      `json:"abnormal_condition"`
}

func (m *PPBCEndInterruptionInstruction) Type() string {
	return TypePPBCEndInterruptionInstruction
}
func (m *PPBCEndInterruptionInstruction) ID() ID { return m.MessageID }
