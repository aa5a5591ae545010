package s2

import (
	"errors"
	"fmt"
)

// Errores de esquema. Un error de validación nunca debe tumbar el
// dispatcher: se traduce en ReceptionStatus(INVALID_DATA).
var (
	ErrInvalidPayload = errors.New("payload is not a valid message")
	ErrUnknownType    = errors.New("unknown message_type")
	ErrInvalidID      = errors.New("invalid protocol identifier")
	ErrMissingField   = errors.New("missing required field")
	ErrOutOfRange     = errors.New("value out of range")
)

func missing(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}

// Validate verifica el Handshake contra su esquema.
func (m *Handshake) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if m.Role != RoleCEM && m.Role != RoleRM {
		return fmt.Errorf("role: %w (%q)", ErrOutOfRange, m.Role)
	}
	// supported_protocol_versions es obligatorio para el RM.
	if m.Role == RoleRM && len(m.SupportedProtocolVersions) == 0 {
		return missing("supported_protocol_versions")
	}
	return nil
}

// Validate verifica el HandshakeResponse contra su esquema.
func (m *HandshakeResponse) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if m.SelectedProtocolVersion == "" {
		return missing("selected_protocol_version")
	}
	return nil
}

// Validate verifica el ResourceManagerDetails contra su esquema.
func (m *ResourceManagerDetails) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if err := validateID("resource_id", m.ResourceID); err != nil {
		return err
	}
	if len(m.Roles) == 0 {
		return missing("roles")
	}
	if len(m.AvailableControlTypes) == 0 {
		return missing("available_control_types")
	}
	for _, ct := range m.AvailableControlTypes {
		if !ct.Valid() {
			return fmt.Errorf("available_control_types: %w (%q)", ErrOutOfRange, ct)
		}
	}
	if len(m.ProvidesPowerMeasurementTypes) == 0 {
		return missing("provides_power_measurement_types")
	}
	return nil
}

// Validate verifica el SelectControlType contra su esquema.
func (m *SelectControlType) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if !m.ControlType.Valid() {
		return fmt.Errorf("control_type: %w (%q)", ErrOutOfRange, m.ControlType)
	}
	return nil
}

// Validate verifica el ReceptionStatus contra su esquema.
func (m *ReceptionStatus) Validate() error {
	if err := validateID("subject_message_id", m.SubjectMessageID); err != nil {
		return err
	}
	if !m.Status.Valid() {
		return fmt.Errorf("status: %w (%q)", ErrOutOfRange, m.Status)
	}
	return nil
}

// Validate verifica el RevokeObject contra su esquema.
func (m *RevokeObject) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if m.ObjectType == "" {
		return missing("object_type")
	}
	return validateID("object_id", m.ObjectID)
}

// Validate verifica el SessionRequest contra su esquema.
func (m *SessionRequest) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if m.Request != SessionReconnect && m.Request != SessionTerminate {
		return fmt.Errorf("request: %w (%q)", ErrOutOfRange, m.Request)
	}
	return nil
}

// Validate verifica el InstructionStatusUpdate contra su esquema.
func (m *InstructionStatusUpdate) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if err := validateID("instruction_id", m.InstructionID); err != nil {
		return err
	}
	if !m.StatusType.Valid() {
		return fmt.Errorf("status_type: %w (%q)", ErrOutOfRange, m.StatusType)
	}
	return nil
}

// Validate verifica el PowerMeasurement contra su esquema.
func (m *PowerMeasurement) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if len(m.Values) == 0 {
		return missing("values")
	}
	return nil
}

// Validate verifica el PowerForecast contra su esquema.
func (m *PowerForecast) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if len(m.Elements) == 0 {
		return missing("elements")
	}
	for i, elem := range m.Elements {
		if len(elem.PowerValues) == 0 {
			return fmt.Errorf("elements[%d].power_values: %w", i, ErrMissingField)
		}
	}
	return nil
}

// Validate verifica el FRBCSystemDescription contra su esquema.
func (m *FRBCSystemDescription) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if len(m.Actuators) == 0 {
		return missing("actuators")
	}
	for i, act := range m.Actuators {
		if err := validateID(fmt.Sprintf("actuators[%d].id", i), act.ID); err != nil {
			return err
		}
		if len(act.OperationModes) == 0 {
			return fmt.Errorf("actuators[%d].operation_modes: %w", i, ErrMissingField)
		}
		for j, om := range act.OperationModes {
			if len(om.Elements) == 0 {
				return fmt.Errorf("actuators[%d].operation_modes[%d].elements: %w",
					i, j, ErrMissingField)
			}
			for k, elem := range om.Elements {
				if len(elem.PowerRanges) == 0 {
					return fmt.Errorf(
						"actuators[%d].operation_modes[%d].elements[%d].power_ranges: %w",
						i, j, k, ErrMissingField)
				}
			}
		}
	}
	if m.Storage.FillLevelRange.StartOfRange > m.Storage.FillLevelRange.EndOfRange {
		return fmt.Errorf("storage.fill_level_range: %w (start > end)", ErrOutOfRange)
	}
	return nil
}

// Validate verifica el FRBCStorageStatus contra su esquema.
func (m *FRBCStorageStatus) Validate() error {
	return validateID("message_id", m.MessageID)
}

// Validate verifica el FRBCActuatorStatus contra su esquema.
func (m *FRBCActuatorStatus) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if err := validateID("actuator_id", m.ActuatorID); err != nil {
		return err
	}
	if err := validateID("active_operation_mode_id", m.ActiveOperationModeID); err != nil {
		return err
	}
	if m.OperationModeFactor < 0 || m.OperationModeFactor > 1 {
		return fmt.Errorf("operation_mode_factor: %w (%v)", ErrOutOfRange, m.OperationModeFactor)
	}
	return nil
}

// Validate verifica el FRBCInstruction contra su esquema.
func (m *FRBCInstruction) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if err := validateID("id", m.InstructionID); err != nil {
		return err
	}
	if err := validateID("actuator_id", m.ActuatorID); err != nil {
		return err
	}
	return validateID("operation_mode", m.OperationMode)
}

// Validate verifica el FRBCUsageForecast contra su esquema.
func (m *FRBCUsageForecast) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if len(m.Elements) == 0 {
		return missing("elements")
	}
	return nil
}

// Validate verifica el FRBCLeakageBehaviour contra su esquema.
func (m *FRBCLeakageBehaviour) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if len(m.Elements) == 0 {
		return missing("elements")
	}
	return nil
}

// Validate verifica el FRBCFillLevelTargetProfile contra su esquema.
func (m *FRBCFillLevelTargetProfile) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if len(m.Elements) == 0 {
		return missing("elements")
	}
	for i, elem := range m.Elements {
		if elem.FillLevelRange.StartOfRange > elem.FillLevelRange.EndOfRange {
			return fmt.Errorf("elements[%d].fill_level_range: %w (start > end)",
				i, ErrOutOfRange)
		}
	}
	return nil
}

// Validate verifica el FRBCTimerStatus contra su esquema.
func (m *FRBCTimerStatus) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if err := validateID("timer_id", m.TimerID); err != nil {
		return err
	}
	return validateID("actuator_id", m.ActuatorID)
}

// Validate verifica el PPBCPowerProfileDefinition contra su esquema.
func (m *PPBCPowerProfileDefinition) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if len(m.Containers) == 0 {
		return missing("power_sequences_containers")
	}
	for i, container := range m.Containers {
		if len(container.Sequences) == 0 {
			return fmt.Errorf("power_sequences_containers[%d].sequences: %w",
				i, ErrMissingField)
		}
	}
	return nil
}

// Validate verifica el PPBCPowerProfileStatus contra su esquema.
func (m *PPBCPowerProfileStatus) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if err := validateID("power_profile_id", m.PowerProfileID); err != nil {
		return err
	}
	return validateID("sequence_id", m.SequenceID)
}

// Validate verifica el PPBCScheduleInstruction contra su esquema.
func (m *PPBCScheduleInstruction) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if err := validateID("id", m.InstructionID); err != nil {
		return err
	}
	return validateID("power_profile_id", m.PowerProfileID)
}

// Validate verifica el PPBCEndInterruptionInstruction contra su esquema.
func (m *PPBCEndInterruptionInstruction) Validate() error {
	if err := validateID("message_id", m.MessageID); err != nil {
		return err
	}
	if err := validateID("id", m.InstructionID); err != nil {
		return err
	}
	return validateID("power_profile_id", m.PowerProfileID)
}
