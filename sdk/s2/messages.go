package s2

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Tags de mensaje (discriminante `message_type`, namespace por punto).
const (
	TypeHandshake               = "Handshake"
	TypeHandshakeResponse       = "HandshakeResponse"
	TypeResourceManagerDetails  = "ResourceManagerDetails"
	TypeSelectControlType       = "SelectControlType"
	TypeReceptionStatus         = "ReceptionStatus"
	TypeRevokeObject            = "RevokeObject"
	TypeSessionRequest          = "SessionRequest"
	TypeInstructionStatusUpdate = "InstructionStatusUpdate"
	TypePowerMeasurement        = "PowerMeasurement"
	TypePowerForecast           = "PowerForecast"

	TypeFRBCSystemDescription     = "FRBC.SystemDescription"
	TypeFRBCStorageStatus         = "FRBC.StorageStatus"
	TypeFRBCActuatorStatus        = "FRBC.ActuatorStatus"
	TypeFRBCInstruction           = "FRBC.Instruction"
	TypeFRBCUsageForecast         = "FRBC.UsageForecast"
	TypeFRBCLeakageBehaviour      = "FRBC.LeakageBehaviour"
	TypeFRBCFillLevelTargetProfile = "FRBC.FillLevelTargetProfile"
	TypeFRBCTimerStatus           = "FRBC.TimerStatus"

	TypePPBCPowerProfileDefinition   = "PPBC.PowerProfileDefinition"
	TypePPBCPowerProfileStatus       = "PPBC.PowerProfileStatus"
	TypePPBCScheduleInstruction      = "PPBC.ScheduleInstruction"
	TypePPBCEndInterruptionInstruction = "PPBC.EndInterruptionInstruction"
)

// Message es la unión cerrada sobre los mensajes del protocolo.
//
// ID retorna message_id, o subject_message_id para ReceptionStatus (único
// mensaje sin message_id propio).
type Message interface {
	Type() string
	ID() ID
	Validate() error
}

// Handshake abre la sesión; lo envía el RM con sus versiones soportadas.
type Handshake struct {
	MessageType               string               `json:"message_type"`
	MessageID                 ID                   `json:"message_id"`
	Role                      EnergyManagementRole `json:"role"`
	SupportedProtocolVersions []string             `json:"supported_protocol_versions,omitempty"`
}

func (m *Handshake) Type() string { return TypeHandshake }
func (m *Handshake) ID() ID       { return m.MessageID }

// HandshakeResponse comunica la versión de protocolo seleccionada por el CEM.
type HandshakeResponse struct {
	MessageType             string `json:"message_type"`
	MessageID               ID     `json:"message_id"`
	SelectedProtocolVersion string `json:"selected_protocol_version"`
}

func (m *HandshakeResponse) Type() string { return TypeHandshakeResponse }
func (m *HandshakeResponse) ID() ID       { return m.MessageID }

// ResourceManagerDetails describe las capacidades del RM.
type ResourceManagerDetails struct {
	MessageType                  string              `json:"message_type"`
	MessageID                    ID                  `json:"message_id"`
	ResourceID                   ID                  `json:"resource_id"`
	Name                         string              `json:"name,omitempty"`
	Roles                        []Role              `json:"roles"`
	Manufacturer                 string              `json:"manufacturer,omitempty"`
	Model                        string              `json:"model,omitempty"`
	SerialNumber                 string              `json:"serial_number,omitempty"`
	FirmwareVersion              string              `json:"firmware_version,omitempty"`
	InstructionProcessingDelay   Duration            `json:"instruction_processing_delay"`
	AvailableControlTypes        []ControlType       `json:"available_control_types"`
	Currency                     Currency            `json:"currency,omitempty"`
	ProvidesForecast             bool                `json:"provides_forecast"`
	ProvidesPowerMeasurementTypes []CommodityQuantity `json:"provides_power_measurement_types"`
}

func (m *ResourceManagerDetails) Type() string { return TypeResourceManagerDetails }
func (m *ResourceManagerDetails) ID() ID       { return m.MessageID }

// SupportsControlType indica si el RM declaró soporte para el control type.
func (m *ResourceManagerDetails) SupportsControlType(ct ControlType) bool {
	for _, available := range m.AvailableControlTypes {
		if available == ct {
			return true
		}
	}
	return false
}

// SelectControlType solicita al RM activar un paradigma de control.
type SelectControlType struct {
	MessageType string      `json:"message_type"`
	MessageID   ID          `json:"message_id"`
	ControlType ControlType `json:"control_type"`
}

func (m *SelectControlType) Type() string { return TypeSelectControlType }
func (m *SelectControlType) ID() ID       { return m.MessageID }

// ReceptionStatus acusa recibo de un mensaje previo. Se espera exactamente
// uno por cada mensaje saliente acusable.
type ReceptionStatus struct {
	MessageType      string               `json:"message_type"`
	SubjectMessageID ID                   `json:"subject_message_id"`
	Status           ReceptionStatusValue `json:"status"`
	DiagnosticLabel  string               `json:"diagnostic_label,omitempty"`
}

func (m *ReceptionStatus) Type() string { return TypeReceptionStatus }

// ID retorna subject_message_id: ReceptionStatus no lleva message_id propio.
func (m *ReceptionStatus) ID() ID { return m.SubjectMessageID }

// RevokeObject invalida un objeto previamente enviado (p. ej. una instrucción).
type RevokeObject struct {
	MessageType string          `json:"message_type"`
	MessageID   ID              `json:"message_id"`
	ObjectType  RevokableObject `json:"object_type"`
	ObjectID    ID              `json:"object_id"`
}

func (m *RevokeObject) Type() string { return TypeRevokeObject }
func (m *RevokeObject) ID() ID       { return m.MessageID }

// SessionRequest permite al RM pedir reconexión o terminación de la sesión.
type SessionRequest struct {
	MessageType     string             `json:"message_type"`
	MessageID       ID                 `json:"message_id"`
	Request         SessionRequestType `json:"request"`
	DiagnosticLabel string             `json:"diagnostic_label,omitempty"`
}

func (m *SessionRequest) Type() string { return TypeSessionRequest }
func (m *SessionRequest) ID() ID       { return m.MessageID }

// InstructionStatusUpdate notifica el cambio de estado de una instrucción.
type InstructionStatusUpdate struct {
	MessageType   string            `json:"message_type"`
	MessageID     ID                `json:"message_id"`
	InstructionID ID                `json:"instruction_id"`
	StatusType    InstructionStatus `json:"status_type"`
	Timestamp     time.Time         `json:"timestamp"`
}

func (m *InstructionStatusUpdate) Type() string { return TypeInstructionStatusUpdate }
func (m *InstructionStatusUpdate) ID() ID       { return m.MessageID }

// PowerMeasurement reporta mediciones de potencia del RM.
type PowerMeasurement struct {
	MessageType          string       `json:"message_type"`
	MessageID            ID           `json:"message_id"`
	MeasurementTimestamp time.Time    `json:"measurement_timestamp"`
	Values               []PowerValue `json:"values"`
}

func (m *PowerMeasurement) Type() string { return TypePowerMeasurement }
func (m *PowerMeasurement) ID() ID       { return m.MessageID }

// PowerForecast es la previsión de potencia publicada por el RM.
type PowerForecast struct {
	MessageType string                 `json:"message_type"`
	MessageID   ID                     `json:"message_id"`
	StartTime   time.Time              `json:"start_time"`
	Elements    []PowerForecastElement `json:"elements"`
}

func (m *PowerForecast) Type() string { return TypePowerForecast }
func (m *PowerForecast) ID() ID       { return m.MessageID }

// factories registra el constructor de cada tipo de mensaje. Tabla estática,
// verificable en compilación: no hay descubrimiento por reflexión.
var factories = map[string]func() Message{
	TypeHandshake:               func() Message { return &Handshake{} },
	TypeHandshakeResponse:       func() Message { return &HandshakeResponse{} },
	TypeResourceManagerDetails:  func() Message { return &ResourceManagerDetails{} },
	TypeSelectControlType:       func() Message { return &SelectControlType{} },
	TypeReceptionStatus:         func() Message { return &ReceptionStatus{} },
	TypeRevokeObject:            func() Message { return &RevokeObject{} },
	TypeSessionRequest:          func() Message { return &SessionRequest{} },
	TypeInstructionStatusUpdate: func() Message { return &InstructionStatusUpdate{} },
	TypePowerMeasurement:        func() Message { return &PowerMeasurement{} },
	TypePowerForecast:           func() Message { return &PowerForecast{} },

	TypeFRBCSystemDescription:      func() Message { return &FRBCSystemDescription{} },
	TypeFRBCStorageStatus:          func() Message { return &FRBCStorageStatus{} },
	TypeFRBCActuatorStatus:         func() Message { return &FRBCActuatorStatus{} },
	TypeFRBCInstruction:            func() Message { return &FRBCInstruction{} },
	TypeFRBCUsageForecast:          func() Message { return &FRBCUsageForecast{} },
	TypeFRBCLeakageBehaviour:       func() Message { return &FRBCLeakageBehaviour{} },
	TypeFRBCFillLevelTargetProfile: func() Message { return &FRBCFillLevelTargetProfile{} },
	TypeFRBCTimerStatus:            func() Message { return &FRBCTimerStatus{} },

	TypePPBCPowerProfileDefinition:     func() Message { return &PPBCPowerProfileDefinition{} },
	TypePPBCPowerProfileStatus:         func() Message { return &PPBCPowerProfileStatus{} },
	TypePPBCScheduleInstruction:        func() Message { return &PPBCScheduleInstruction{} },
	TypePPBCEndInterruptionInstruction: func() Message { return &PPBCEndInterruptionInstruction{} },
}

// envelope extrae el mínimo necesario de un frame crudo para enrutar.
type envelope struct {
	MessageType string `json:"message_type"`
	MessageID   ID     `json:"message_id"`
}

// PeekType retorna el message_type de un frame sin parsear el payload
// completo. Un frame sin tag reconocible retorna ErrUnknownType.
func PeekType(raw []byte) (string, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", fmt.Errorf("peek message_type: %w", err)
	}
	if env.MessageType == "" {
		return "", ErrUnknownType
	}
	return env.MessageType, nil
}

// PeekID retorna el message_id de un frame crudo, aun cuando el resto del
// payload no valide. Útil para sintetizar el ReceptionStatus negativo.
func PeekID(raw []byte) ID {
	var env envelope
	_ = json.Unmarshal(raw, &env)
	return env.MessageID
}

// Parse convierte un frame crudo en su mensaje concreto, validándolo.
//
// El decode es estricto: campos desconocidos son un error de esquema, igual
// que un tag no registrado o una validación fallida.
func Parse(raw []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	factory, ok := factories[env.MessageType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.MessageType)
	}

	msg := factory()
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(msg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidPayload, env.MessageType, err)
	}

	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return msg, nil
}

// Marshal serializa un mensaje rellenando su discriminante message_type.
func Marshal(msg Message) ([]byte, error) {
	setMessageType(msg)
	return json.Marshal(msg)
}

// setMessageType garantiza que el campo message_type refleja el tag del tipo.
func setMessageType(msg Message) {
	switch m := msg.(type) {
	case *Handshake:
		m.MessageType = TypeHandshake
	case *HandshakeResponse:
		m.MessageType = TypeHandshakeResponse
	case *ResourceManagerDetails:
		m.MessageType = TypeResourceManagerDetails
	case *SelectControlType:
		m.MessageType = TypeSelectControlType
	case *ReceptionStatus:
		m.MessageType = TypeReceptionStatus
	case *RevokeObject:
		m.MessageType = TypeRevokeObject
	case *SessionRequest:
		m.MessageType = TypeSessionRequest
	case *InstructionStatusUpdate:
		m.MessageType = TypeInstructionStatusUpdate
	case *PowerMeasurement:
		m.MessageType = TypePowerMeasurement
	case *PowerForecast:
		m.MessageType = TypePowerForecast
	case *FRBCSystemDescription:
		m.MessageType = TypeFRBCSystemDescription
	case *FRBCStorageStatus:
		m.MessageType = TypeFRBCStorageStatus
	case *FRBCActuatorStatus:
		m.MessageType = TypeFRBCActuatorStatus
	case *FRBCInstruction:
		m.MessageType = TypeFRBCInstruction
	case *FRBCUsageForecast:
		m.MessageType = TypeFRBCUsageForecast
	case *FRBCLeakageBehaviour:
		m.MessageType = TypeFRBCLeakageBehaviour
	case *FRBCFillLevelTargetProfile:
		m.MessageType = TypeFRBCFillLevelTargetProfile
	case *FRBCTimerStatus:
		m.MessageType = TypeFRBCTimerStatus
	case *PPBCPowerProfileDefinition:
		m.MessageType = TypePPBCPowerProfileDefinition
	case *PPBCPowerProfileStatus:
		m.MessageType = TypePPBCPowerProfileStatus
	case *PPBCScheduleInstruction:
		m.MessageType = TypePPBCScheduleInstruction
	case *PPBCEndInterruptionInstruction:
		m.MessageType = TypePPBCEndInterruptionInstruction
	}
}

// NewReceptionStatus construye el acuse para un mensaje recibido.
func NewReceptionStatus(subject ID, status ReceptionStatusValue) *ReceptionStatus {
	return &ReceptionStatus{
		MessageType:      TypeReceptionStatus,
		SubjectMessageID: subject,
		Status:           status,
	}
}
