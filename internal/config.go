package internal

import (
	"os"
	"strconv"
	"strings"
)

// Config configuración de una sesión CEM.
type Config struct {
	// Version versión de protocolo preferida por el CEM.
	Version string

	// SupportedVersions versiones de protocolo que el CEM acepta negociar.
	// Siempre incluye Version.
	SupportedVersions []string

	// QueueSize tamaño del buffer de la cola de salida.
	QueueSize int

	// HistorySize capacidad de los historiales de mensajes.
	HistorySize int

	// SchedulerURL endpoint del scheduler externo.
	SchedulerURL string

	// SchedulerToken token de autenticación del scheduler. Vacío deshabilita
	// el header de autorización.
	SchedulerToken string

	// JournalPath ruta del journal de sesión en disco. Vacío deshabilita
	// el journal.
	JournalPath string

	// Environment entorno de despliegue (development/staging/production).
	Environment string

	// OTLPEndpoint collector OTLP. Vacío deja solo logs.
	OTLPEndpoint string
}

// DefaultConfig retorna la configuración por defecto con overrides desde
// variables de entorno.
//
// Variables soportadas:
//   - CEM_PROTOCOL_VERSION
//   - CEM_SUPPORTED_VERSIONS (lista separada por comas)
//   - CEM_QUEUE_SIZE
//   - CEM_HISTORY_SIZE
//   - CEM_SCHEDULER_URL
//   - CEM_SCHEDULER_TOKEN
//   - CEM_JOURNAL_PATH
//   - CEM_ENVIRONMENT
//   - CEM_OTLP_ENDPOINT
func DefaultConfig() *Config {
	cfg := &Config{
		Version:           "0.0.1-beta",
		SupportedVersions: []string{"0.0.1-beta"},
		QueueSize:         1000,
		HistorySize:       DefaultHistorySize,
		SchedulerURL:      "http://localhost:5000",
		JournalPath:       "",
		Environment:       "development",
	}

	if v := os.Getenv("CEM_PROTOCOL_VERSION"); v != "" {
		cfg.Version = v
		cfg.SupportedVersions = []string{v}
	}
	if v := os.Getenv("CEM_SUPPORTED_VERSIONS"); v != "" {
		cfg.SupportedVersions = strings.Split(v, ",")
	}
	if v := os.Getenv("CEM_QUEUE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.QueueSize = n
		}
	}
	if v := os.Getenv("CEM_HISTORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistorySize = n
		}
	}
	if v := os.Getenv("CEM_SCHEDULER_URL"); v != "" {
		cfg.SchedulerURL = v
	}
	if v := os.Getenv("CEM_SCHEDULER_TOKEN"); v != "" {
		cfg.SchedulerToken = v
	}
	if v := os.Getenv("CEM_JOURNAL_PATH"); v != "" {
		cfg.JournalPath = v
	}
	if v := os.Getenv("CEM_ENVIRONMENT"); v != "" {
		cfg.Environment = v
	}
	if v := os.Getenv("CEM_OTLP_ENDPOINT"); v != "" {
		cfg.OTLPEndpoint = v
	}

	return cfg
}
