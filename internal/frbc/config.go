package frbc

import "time"

// Config configuración del manejador FRBC.
//
// Los sensor IDs referencian sensores del scheduler externo. Un ID en cero
// deshabilita el envío correspondiente.
type Config struct {
	// AssetID asset del RM en el scheduler, destino de los updates del
	// flex model.
	AssetID int

	// PowerSensorID sensor sobre el que se piden los schedules de potencia.
	PowerSensorID int

	// PriceSensorID sensor de precios para el flex context.
	PriceSensorID int

	// FillLevelSensorID destino de las mediciones de fill level
	// (FRBC.StorageStatus).
	FillLevelSensorID int

	// FillRateSensorID destino del fill rate agregado del almacenamiento
	// (FRBC.ActuatorStatus).
	FillRateSensorID int

	// ModeFillRateSensorIDs destino del fill rate por operation mode,
	// indexado por la posición del mode en el system description.
	ModeFillRateSensorIDs []int

	// ModeEfficiencySensorIDs destino de las eficiencias de conversión por
	// operation mode, indexado por posición.
	ModeEfficiencySensorIDs []int

	// UsageForecastSensorID destino del usage forecast remuestreado.
	UsageForecastSensorID int

	// StorageEfficiencySensorID destino de la eficiencia de almacenamiento
	// derivada de FRBC.LeakageBehaviour.
	StorageEfficiencySensorID int

	// ChargingEfficiencySensorID destino de la eficiencia de carga del
	// mejor operation mode no idle.
	ChargingEfficiencySensorID int

	// SOCMinimaSensorID y SOCMaximaSensorID destinos de los límites del
	// perfil objetivo de fill level.
	SOCMinimaSensorID int
	SOCMaximaSensorID int

	// SitePowerCapacity capacidad de potencia del sitio para el flex
	// context, con unidad ("20 kVA"). Vacía se omite.
	SitePowerCapacity string

	// PlanningHorizon horizonte sobre el que se solicita el schedule.
	PlanningHorizon time.Duration

	// ExecutionDuration prefijo del schedule que se traduce a instrucciones.
	ExecutionDuration time.Duration

	// Resolution resolución de las series remuestreadas y de las
	// eficiencias publicadas.
	Resolution time.Duration

	// MeasurementPeriod período mínimo entre acciones rate-limited.
	MeasurementPeriod time.Duration

	// EfficiencyHorizon horizonte de publicación de las eficiencias de
	// conversión.
	EfficiencyHorizon time.Duration

	// ValidFromShift corrimiento del inicio del schedule respecto del
	// valid_from del system description.
	ValidFromShift time.Duration

	// HistorySize capacidad de los historiales de mensajes.
	HistorySize int
}

// withDefaults completa los campos en cero con los valores de operación.
func (c *Config) withDefaults() {
	if c.PlanningHorizon <= 0 {
		c.PlanningHorizon = 24 * time.Hour
	}
	if c.ExecutionDuration <= 0 {
		c.ExecutionDuration = 12 * time.Hour
	}
	if c.Resolution <= 0 {
		c.Resolution = 15 * time.Minute
	}
	if c.MeasurementPeriod <= 0 {
		c.MeasurementPeriod = 5 * time.Minute
	}
	if c.EfficiencyHorizon <= 0 {
		c.EfficiencyHorizon = 24 * time.Hour
	}
	if c.HistorySize <= 0 {
		c.HistorySize = 100
	}
}
