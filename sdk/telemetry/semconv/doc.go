// Package semconv define convenciones semánticas para atributos OpenTelemetry
// utilizados en el sistema de telemetría del CEM.
//
// Este paquete contiene estructuras que representan convenciones semánticas
// del dominio de flexibilidad energética: mensajes de protocolo, tipos de
// control, actuadores e instrucciones. Cada atributo predefinido facilita la
// correlación entre logs, métricas y trazas.
//
// Uso básico:
//
//	attrs := []attribute.KeyValue{
//	    semconv.CEM.MessageType.String("FRBC.SystemDescription"),
//	    semconv.CEM.MessageID.String("a1b2c3"),
//	}
//
// Las convenciones definidas en este paquete permiten una instrumentación
// consistente en toda la aplicación.
package semconv
