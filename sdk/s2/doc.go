// Package s2 contiene el catálogo de mensajes del protocolo de coordinación
// de flexibilidad entre el CEM y los Resource Managers.
//
// Todos los mensajes se representan como structs Go serializables a JSON con
// un discriminante `message_type` (strings con namespace por punto, p. ej.
// "FRBC.SystemDescription"). El parseo ocurre UNA sola vez en el borde del
// transporte vía Parse; aguas abajo nunca se re-inspecciona la forma del
// payload.
//
// Uso básico:
//
//	msg, err := s2.Parse(frame)
//	if err != nil {
//	    // payload inválido → ReceptionStatus(INVALID_DATA)
//	}
//	switch m := msg.(type) {
//	case *s2.Handshake:
//	    ...
//	}
package s2
