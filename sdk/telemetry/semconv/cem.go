package semconv

import "go.opentelemetry.io/otel/attribute"

// CEM contiene atributos semánticos específicos del Customer Energy Manager.
//
// # Identificadores
//
//   - cem.message_type: Tipo del mensaje de protocolo (Handshake, FRBC.Instruction, etc.)
//   - cem.message_id: ID del mensaje
//   - cem.subject_message_id: ID del mensaje al que responde un ReceptionStatus
//   - cem.resource_id: ID del Resource Manager
//   - cem.actuator_id: ID del actuador
//   - cem.operation_mode_id: ID del modo de operación
//   - cem.instruction_id: ID de la instrucción emitida
//
// # Dominio
//
//   - cem.control_type: Tipo de control activo (FILL_RATE_BASED_CONTROL, etc.)
//   - cem.fill_level: Nivel de llenado reportado
//   - cem.fill_rate: Tasa de llenado calculada
//   - cem.factor: Factor de operación de una instrucción
//   - cem.sensor_id: ID del sensor asociado en el scheduler
//   - cem.schedule_id: ID del schedule solicitado
//
// # Estado
//
//   - cem.status: Estado de recepción o de instrucción
//   - cem.session_state: Estado de la sesión (no_session/handshaken/selected)
//   - cem.component: Componente emisor (cem/frbc/ppbc/scheduler)
//
// # Uso
//
//	import "github.com/xKoRx/cem/sdk/telemetry/semconv"
//
//	client.Info(ctx, "Message received",
//	    semconv.CEM.MessageType.String("FRBC.StorageStatus"),
//	    semconv.CEM.FillLevel.Float64(0.42),
//	)
var CEM = cemAttributes{
	// Identificadores
	MessageType:      attribute.Key("cem.message_type"),
	MessageID:        attribute.Key("cem.message_id"),
	SubjectMessageID: attribute.Key("cem.subject_message_id"),
	ResourceID:       attribute.Key("cem.resource_id"),
	ActuatorID:       attribute.Key("cem.actuator_id"),
	OperationModeID:  attribute.Key("cem.operation_mode_id"),
	InstructionID:    attribute.Key("cem.instruction_id"),

	// Dominio
	ControlType: attribute.Key("cem.control_type"),
	FillLevel:   attribute.Key("cem.fill_level"),
	FillRate:    attribute.Key("cem.fill_rate"),
	Factor:      attribute.Key("cem.factor"),
	SensorID:    attribute.Key("cem.sensor_id"),
	ScheduleID:  attribute.Key("cem.schedule_id"),

	// Estado
	Status:       attribute.Key("cem.status"),
	SessionState: attribute.Key("cem.session_state"),
	Component:    attribute.Key("cem.component"),

	// Adicionales
	ProtocolVersion: attribute.Key("cem.protocol_version"),
	Reason:          attribute.Key("cem.reason"),
	Attempt:         attribute.Key("cem.attempt"),
	TimerName:       attribute.Key("cem.timer_name"),
}

type cemAttributes struct {
	// Identificadores
	MessageType      attribute.Key // Tipo de mensaje de protocolo
	MessageID        attribute.Key // ID del mensaje
	SubjectMessageID attribute.Key // ID del mensaje referido por un ReceptionStatus
	ResourceID       attribute.Key // ID del Resource Manager
	ActuatorID       attribute.Key // ID del actuador
	OperationModeID  attribute.Key // ID del modo de operación
	InstructionID    attribute.Key // ID de instrucción

	// Dominio
	ControlType attribute.Key // Tipo de control (FRBC/PPBC/...)
	FillLevel   attribute.Key // Nivel de llenado
	FillRate    attribute.Key // Tasa de llenado
	Factor      attribute.Key // Factor de operación [0,1]
	SensorID    attribute.Key // ID de sensor en el scheduler
	ScheduleID  attribute.Key // ID de schedule

	// Estado
	Status       attribute.Key // Estado (OK/INVALID_DATA/...)
	SessionState attribute.Key // Estado de la sesión
	Component    attribute.Key // Componente (cem/frbc/ppbc/scheduler)

	// Adicionales
	ProtocolVersion attribute.Key // Versión de protocolo negociada
	Reason          attribute.Key // Razón asociada a una decisión
	Attempt         attribute.Key // Número de intento (reintentos)
	TimerName       attribute.Key // Nombre del timer de rate limiting
}

// Values pre-definidos para atributos comunes

// ComponentValues valores válidos para cem.component
var ComponentValues = struct {
	CEM       string
	FRBC      string
	PPBC      string
	Scheduler string
	Transport string
}{
	CEM:       "cem",
	FRBC:      "frbc",
	PPBC:      "ppbc",
	Scheduler: "scheduler",
	Transport: "transport",
}

// SessionStateValues valores válidos para cem.session_state
var SessionStateValues = struct {
	NoSession  string
	Handshaken string
	Selected   string
	Closed     string
}{
	NoSession:  "no_session",
	Handshaken: "handshaken",
	Selected:   "selected",
	Closed:     "closed",
}

// MessageAttributes crea un conjunto de atributos para un mensaje de protocolo.
//
// Example:
//
//	attrs := semconv.MessageAttributes("FRBC.Instruction", "a1b2c3")
//	client.Info(ctx, "Instruction queued", attrs...)
func MessageAttributes(messageType, messageID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		CEM.MessageType.String(messageType),
		CEM.MessageID.String(messageID),
	}
}
