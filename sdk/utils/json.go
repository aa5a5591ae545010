package utils

import (
	"bytes"
	"encoding/json"
)

// ValidateJSON verifica si los datos son JSON válido.
//
// Example:
//
//	data := []byte(`{"message_type":"Handshake"}`)
//	err := utils.ValidateJSON(data)
//	if err != nil {
//	    // No es JSON válido
//	}
func ValidateJSON(data []byte) error {
	var js interface{}
	return json.Unmarshal(data, &js)
}

// PrettyPrint formatea JSON con indentación para debugging.
func PrettyPrint(data []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return string(data) // Retornar original si falla
	}
	return buf.String()
}

// Compact compacta JSON removiendo espacios innecesarios.
func Compact(data []byte) []byte {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return data // Retornar original si falla
	}
	return buf.Bytes()
}
