// Package utils provee utilidades comunes para el SDK del CEM.
//
// Contiene helpers de:
//   - Identificadores (UUIDs de mensaje e instrucción)
//   - JSON (validación, formateo, compactación)
//   - Timestamps (alineación a resoluciones, conversiones)
//
// Este paquete NO debe depender de otros paquetes del SDK para evitar
// dependencias circulares.
package utils
