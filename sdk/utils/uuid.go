package utils

import (
	"github.com/google/uuid"
)

// GenerateID genera un UUID v4 como string.
//
// Los message_id e instruction_id del protocolo deben ser únicos durante la
// vida de la sesión; un UUID v4 (122 bits aleatorios) hace la probabilidad
// de colisión despreciable.
//
// Example:
//
//	id := utils.GenerateID()
//	// => "0b8e6c1f-58e3-4dcb-9f0e-6a1b2c3d4e5f"
func GenerateID() string {
	return uuid.NewString()
}
