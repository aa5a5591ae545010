package s2

// ReceptionStatusValue enumera los estados posibles de un ReceptionStatus.
type ReceptionStatusValue string

const (
	ReceptionOK             ReceptionStatusValue = "OK"
	ReceptionInvalidData    ReceptionStatusValue = "INVALID_DATA"
	ReceptionInvalidMessage ReceptionStatusValue = "INVALID_MESSAGE"
	ReceptionInvalidContent ReceptionStatusValue = "INVALID_CONTENT"
	ReceptionTemporaryError ReceptionStatusValue = "TEMPORARY_ERROR"
	ReceptionPermanentError ReceptionStatusValue = "PERMANENT_ERROR"
)

// IsOK indica si el estado corresponde a una recepción exitosa.
func (v ReceptionStatusValue) IsOK() bool {
	return v == ReceptionOK
}

// Valid indica si el valor pertenece a la enumeración.
func (v ReceptionStatusValue) Valid() bool {
	switch v {
	case ReceptionOK, ReceptionInvalidData, ReceptionInvalidMessage,
		ReceptionInvalidContent, ReceptionTemporaryError, ReceptionPermanentError:
		return true
	}
	return false
}

// ControlType enumera los paradigmas de control negociables con el RM.
type ControlType string

const (
	ControlPowerEnvelopeBased ControlType = "POWER_ENVELOPE_BASED_CONTROL"
	ControlPowerProfileBased  ControlType = "POWER_PROFILE_BASED_CONTROL"
	ControlOperationModeBased ControlType = "OPERATION_MODE_BASED_CONTROL"
	ControlFillRateBased      ControlType = "FILL_RATE_BASED_CONTROL"
	ControlDemandDrivenBased  ControlType = "DEMAND_DRIVEN_BASED_CONTROL"
	ControlNotControllable    ControlType = "NOT_CONTROLABLE"
	ControlNoSelection        ControlType = "NO_SELECTION"
)

// Valid indica si el valor pertenece a la enumeración.
func (c ControlType) Valid() bool {
	switch c {
	case ControlPowerEnvelopeBased, ControlPowerProfileBased,
		ControlOperationModeBased, ControlFillRateBased,
		ControlDemandDrivenBased, ControlNotControllable, ControlNoSelection:
		return true
	}
	return false
}

// Active indica si el control type gobierna instrucciones hacia el RM.
// NO_SELECTION y NOT_CONTROLABLE no enrutan mensajes a ningún handler.
func (c ControlType) Active() bool {
	return c.Valid() && c != ControlNoSelection && c != ControlNotControllable
}

// InstructionStatus enumera los estados del ciclo de vida de una instrucción.
type InstructionStatus string

const (
	InstructionNew       InstructionStatus = "NEW"
	InstructionAccepted  InstructionStatus = "ACCEPTED"
	InstructionRejected  InstructionStatus = "REJECTED"
	InstructionRevoked   InstructionStatus = "REVOKED"
	InstructionStarted   InstructionStatus = "STARTED"
	InstructionSucceeded InstructionStatus = "SUCCEEDED"
	InstructionAborted   InstructionStatus = "ABORTED"
)

// Valid indica si el valor pertenece a la enumeración.
func (s InstructionStatus) Valid() bool {
	switch s {
	case InstructionNew, InstructionAccepted, InstructionRejected,
		InstructionRevoked, InstructionStarted, InstructionSucceeded,
		InstructionAborted:
		return true
	}
	return false
}

// Commodity enumera los tipos de commodity soportados.
type Commodity string

const (
	CommodityGas         Commodity = "GAS"
	CommodityHeat        Commodity = "HEAT"
	CommodityElectricity Commodity = "ELECTRICITY"
	CommodityOil         Commodity = "OIL"
)

// CommodityQuantity enumera las magnitudes medibles por commodity.
type CommodityQuantity string

const (
	ElectricPowerL1       CommodityQuantity = "ELECTRIC.POWER.L1"
	ElectricPowerL2       CommodityQuantity = "ELECTRIC.POWER.L2"
	ElectricPowerL3       CommodityQuantity = "ELECTRIC.POWER.L3"
	ElectricPower3Phase   CommodityQuantity = "ELECTRIC.POWER.3_PHASE_SYMMETRIC"
	NaturalGasFlowRate    CommodityQuantity = "NATURAL_GAS.FLOW_RATE"
	HydrogenFlowRate      CommodityQuantity = "HYDROGEN.FLOW_RATE"
	HeatTemperature       CommodityQuantity = "HEAT.TEMPERATURE"
	HeatFlowRate          CommodityQuantity = "HEAT.FLOW_RATE"
	HeatThermalPower      CommodityQuantity = "HEAT.THERMAL_POWER"
	OilFlowRate           CommodityQuantity = "OIL.FLOW_RATE"
)

// EnergyManagementRole enumera los roles de gestión energética.
type EnergyManagementRole string

const (
	RoleCEM EnergyManagementRole = "CEM"
	RoleRM  EnergyManagementRole = "RM"
)

// RoleType enumera la función energética de un RM respecto a un commodity.
type RoleType string

const (
	RoleEnergyProducer RoleType = "ENERGY_PRODUCER"
	RoleEnergyConsumer RoleType = "ENERGY_CONSUMER"
	RoleEnergyStorage  RoleType = "ENERGY_STORAGE"
)

// Currency enumera las monedas para información de costes (subconjunto).
type Currency string

const (
	CurrencyEUR Currency = "EUR"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
)

// RevokableObject enumera los tipos de objeto revocables vía RevokeObject.
type RevokableObject string

const (
	RevokePEBCPowerConstraints        RevokableObject = "PEBC.PowerConstraints"
	RevokePEBCEnergyConstraint        RevokableObject = "PEBC.EnergyConstraint"
	RevokePEBCInstruction             RevokableObject = "PEBC.Instruction"
	RevokePPBCPowerProfileDefinition  RevokableObject = "PPBC.PowerProfileDefinition"
	RevokePPBCScheduleInstruction     RevokableObject = "PPBC.ScheduleInstruction"
	RevokeOMBCSystemDescription       RevokableObject = "OMBC.SystemDescription"
	RevokeOMBCInstruction             RevokableObject = "OMBC.Instruction"
	RevokeFRBCSystemDescription       RevokableObject = "FRBC.SystemDescription"
	RevokeFRBCInstruction             RevokableObject = "FRBC.Instruction"
	RevokeDDBCSystemDescription       RevokableObject = "DDBC.SystemDescription"
	RevokeDDBCInstruction             RevokableObject = "DDBC.Instruction"
)

// SessionRequestType enumera las peticiones de sesión del RM.
type SessionRequestType string

const (
	SessionReconnect SessionRequestType = "RECONNECT"
	SessionTerminate SessionRequestType = "TERMINATE"
)
