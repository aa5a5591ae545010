package s2

import "time"

// FRBCOperationModeElement describe el comportamiento de un operation mode
// dentro de un sub-rango de fill level: fill rate lineal en el factor de
// activación y una potencia por commodity.
type FRBCOperationModeElement struct {
	FillLevelRange NumberRange  `json:"fill_level_range"`
	FillRate       NumberRange  `json:"fill_rate"`
	PowerRanges    []PowerRange `json:"power_ranges"`
	RunningCosts   *NumberRange `json:"running_costs,omitempty"`
}

// FRBCOperationMode es un comportamiento discreto del actuador.
type FRBCOperationMode struct {
	ID                    ID                         `json:"id"`
	DiagnosticLabel       string                     `json:"diagnostic_label,omitempty"`
	Elements              []FRBCOperationModeElement `json:"elements"`
	AbnormalConditionOnly bool                       `json:"abnormal_condition_only"`
}

// FillLevelRange retorna el rango de fill level cubierto por el operation
// mode completo (unión de los rangos de sus elementos).
func (m *FRBCOperationMode) FillLevelRange() NumberRange {
	r := m.Elements[0].FillLevelRange
	for _, elem := range m.Elements[1:] {
		if elem.FillLevelRange.StartOfRange < r.StartOfRange {
			r.StartOfRange = elem.FillLevelRange.StartOfRange
		}
		if elem.FillLevelRange.EndOfRange > r.EndOfRange {
			r.EndOfRange = elem.FillLevelRange.EndOfRange
		}
	}
	return r
}

// MaxFillRate retorna el fill rate máximo alcanzable por el operation mode.
func (m *FRBCOperationMode) MaxFillRate() float64 {
	max := m.Elements[0].FillRate.EndOfRange
	for _, elem := range m.Elements[1:] {
		if elem.FillRate.EndOfRange > max {
			max = elem.FillRate.EndOfRange
		}
	}
	return max
}

// FRBCActuatorDescription describe un actuador y sus operation modes.
type FRBCActuatorDescription struct {
	ID                   ID                  `json:"id"`
	DiagnosticLabel      string              `json:"diagnostic_label,omitempty"`
	SupportedCommodities []Commodity         `json:"supported_commodities"`
	OperationModes       []FRBCOperationMode `json:"operation_modes"`
	Transitions          []Transition        `json:"transitions"`
	Timers               []ProtocolTimer     `json:"timers"`
}

// FRBCStorageDescription describe el almacenamiento y sus capacidades.
type FRBCStorageDescription struct {
	DiagnosticLabel                 string      `json:"diagnostic_label,omitempty"`
	FillLevelLabel                  string      `json:"fill_level_label,omitempty"`
	ProvidesLeakageBehaviour        bool        `json:"provides_leakage_behaviour"`
	ProvidesFillLevelTargetProfile  bool        `json:"provides_fill_level_target_profile"`
	ProvidesUsageForecast           bool        `json:"provides_usage_forecast"`
	FillLevelRange                  NumberRange `json:"fill_level_range"`
}

// FRBCSystemDescription describe el sistema físico completo gestionado por
// el RM bajo control FRBC.
type FRBCSystemDescription struct {
	MessageType string                    `json:"message_type"`
	MessageID   ID                        `json:"message_id"`
	ValidFrom   time.Time                 `json:"valid_from"`
	Actuators   []FRBCActuatorDescription `json:"actuators"`
	Storage     FRBCStorageDescription    `json:"storage"`
}

func (m *FRBCSystemDescription) Type() string { return TypeFRBCSystemDescription }
func (m *FRBCSystemDescription) ID() ID       { return m.MessageID }

// FRBCStorageStatus reporta el fill level presente del almacenamiento.
type FRBCStorageStatus struct {
	MessageType      string  `json:"message_type"`
	MessageID        ID      `json:"message_id"`
	PresentFillLevel float64 `json:"present_fill_level"`
}

func (m *FRBCStorageStatus) Type() string { return TypeFRBCStorageStatus }
func (m *FRBCStorageStatus) ID() ID       { return m.MessageID }

// FRBCActuatorStatus reporta el operation mode activo y su factor.
type FRBCActuatorStatus struct {
	MessageType             string     `json:"message_type"`
	MessageID               ID         `json:"message_id"`
	ActuatorID              ID         `json:"actuator_id"`
	ActiveOperationModeID   ID         `json:"active_operation_mode_id"`
	OperationModeFactor     float64    `json:"operation_mode_factor"`
	PreviousOperationModeID ID         `json:"previous_operation_mode_id,omitempty"`
	TransitionTimestamp     *time.Time `json:"transition_timestamp,omitempty"`
}

func (m *FRBCActuatorStatus) Type() string { return TypeFRBCActuatorStatus }
func (m *FRBCActuatorStatus) ID() ID       { return m.MessageID }

// FRBCInstruction ordena al RM activar un operation mode con cierto factor.
type FRBCInstruction struct {
	MessageType         string    `json:"message_type"`
	MessageID           ID        `json:"message_id"`
	InstructionID       ID        `json:"id"`
	ActuatorID          ID        `json:"actuator_id"`
	OperationMode       ID        `json:"operation_mode"`
	OperationModeFactor float64   `json:"operation_mode_factor"`
	ExecutionTime       time.Time `json:"execution_time"`
	AbnormalCondition   bool      `json:"abnormal_condition"`
}

func (m *FRBCInstruction) Type() string { return TypeFRBCInstruction }
func (m *FRBCInstruction) ID() ID       { return m.MessageID }

// FRBCUsageForecastElement es un tramo del forecast de uso.
type FRBCUsageForecastElement struct {
	Duration            Duration `json:"duration"`
	UsageRateUpperLimit *float64 `json:"usage_rate_upper_limit,omitempty"`
	UsageRateUpper95PPR *float64 `json:"usage_rate_upper_95PPR,omitempty"`
	UsageRateUpper68PPR *float64 `json:"usage_rate_upper_68PPR,omitempty"`
	UsageRateExpected   float64  `json:"usage_rate_expected"`
	UsageRateLower68PPR *float64 `json:"usage_rate_lower_68PPR,omitempty"`
	UsageRateLower95PPR *float64 `json:"usage_rate_lower_95PPR,omitempty"`
	UsageRateLowerLimit *float64 `json:"usage_rate_lower_limit,omitempty"`
}

// FRBCUsageForecast prevé el uso (descenso del fill level) del recurso.
type FRBCUsageForecast struct {
	MessageType string                     `json:"message_type"`
	MessageID   ID                         `json:"message_id"`
	StartTime   time.Time                  `json:"start_time"`
	Elements    []FRBCUsageForecastElement `json:"elements"`
}

func (m *FRBCUsageForecast) Type() string { return TypeFRBCUsageForecast }
func (m *FRBCUsageForecast) ID() ID       { return m.MessageID }

// FRBCLeakageBehaviourElement modela la fuga por rango de fill level.
type FRBCLeakageBehaviourElement struct {
	FillLevelRange NumberRange `json:"fill_level_range"`
	LeakageRate    float64     `json:"leakage_rate"`
}

// FRBCLeakageBehaviour describe cómo decae el fill level por fugas.
type FRBCLeakageBehaviour struct {
	MessageType string                        `json:"message_type"`
	MessageID   ID                            `json:"message_id"`
	ValidFrom   time.Time                     `json:"valid_from"`
	Elements    []FRBCLeakageBehaviourElement `json:"elements"`
}

func (m *FRBCLeakageBehaviour) Type() string { return TypeFRBCLeakageBehaviour }
func (m *FRBCLeakageBehaviour) ID() ID       { return m.MessageID }

// FRBCFillLevelTargetProfileElement es un tramo del perfil objetivo.
type FRBCFillLevelTargetProfileElement struct {
	Duration       Duration    `json:"duration"`
	FillLevelRange NumberRange `json:"fill_level_range"`
}

// FRBCFillLevelTargetProfile fija rangos objetivo de fill level en el tiempo.
type FRBCFillLevelTargetProfile struct {
	MessageType string                              `json:"message_type"`
	MessageID   ID                                  `json:"message_id"`
	StartTime   time.Time                           `json:"start_time"`
	Elements    []FRBCFillLevelTargetProfileElement `json:"elements"`
}

func (m *FRBCFillLevelTargetProfile) Type() string { return TypeFRBCFillLevelTargetProfile }
func (m *FRBCFillLevelTargetProfile) ID() ID       { return m.MessageID }

// FRBCTimerStatus notifica cuándo termina un timer del actuador.
type FRBCTimerStatus struct {
	MessageType string    `json:"message_type"`
	MessageID   ID        `json:"message_id"`
	TimerID     ID        `json:"timer_id"`
	ActuatorID  ID        `json:"actuator_id"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (m *FRBCTimerStatus) Type() string { return TypeFRBCTimerStatus }
func (m *FRBCTimerStatus) ID() ID       { return m.MessageID }
