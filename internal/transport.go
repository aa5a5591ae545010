package internal

import (
	"context"
	"io"
	"sync"
)

// CloseSentinel payload que señala la terminación de la conexión.
//
// Un Receive que retorna este payload indica que el peer cerró la sesión;
// enviarlo indica al peer que el CEM la cierra.
const CloseSentinel = "close"

// Transport intercambio de mensajes crudos con el Resource Manager.
//
// La capa de transporte entrega y acepta payloads JSON ya delimitados.
// Las implementaciones deben ser seguras para un lector y un escritor
// concurrentes.
type Transport interface {
	// Receive bloquea hasta que llega el próximo payload.
	// Retorna io.EOF cuando el transporte está cerrado.
	Receive(ctx context.Context) ([]byte, error)

	// Send entrega un payload al peer.
	Send(ctx context.Context, raw []byte) error

	// Close cierra el transporte. Idempotente.
	Close() error
}

// MemoryTransport transporte in-memory sobre canales.
//
// NewMemoryTransportPair retorna los dos extremos conectados; lo que un
// extremo envía, el otro lo recibe. Pensado para tests y para correr un
// RM simulado en el mismo proceso.
type MemoryTransport struct {
	in  chan []byte
	out chan []byte

	// closed y closeOnce son compartidos por ambos extremos: cerrar
	// cualquiera de los dos cierra la conexión completa.
	closed    chan struct{}
	closeOnce *sync.Once
}

// NewMemoryTransportPair crea los dos extremos de un transporte in-memory.
func NewMemoryTransportPair(buffer int) (*MemoryTransport, *MemoryTransport) {
	if buffer <= 0 {
		buffer = 64
	}

	aToB := make(chan []byte, buffer)
	bToA := make(chan []byte, buffer)
	closed := make(chan struct{})
	once := &sync.Once{}

	a := &MemoryTransport{in: bToA, out: aToB, closed: closed, closeOnce: once}
	b := &MemoryTransport{in: aToB, out: bToA, closed: closed, closeOnce: once}
	return a, b
}

// Receive implementa Transport.
func (t *MemoryTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case raw := <-t.in:
		return raw, nil
	case <-t.closed:
		// drenar lo pendiente antes de reportar EOF
		select {
		case raw := <-t.in:
			return raw, nil
		default:
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Send implementa Transport.
//
// El chequeo de cierre va antes del select de envío: con buffer libre y
// transporte cerrado ambos cases estarían listos y el select elegiría al
// azar, colando mensajes que nadie va a drenar.
func (t *MemoryTransport) Send(ctx context.Context, raw []byte) error {
	select {
	case <-t.closed:
		return io.ErrClosedPipe
	default:
	}

	select {
	case t.out <- raw:
		return nil
	case <-t.closed:
		return io.ErrClosedPipe
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close implementa Transport. Cierra ambos extremos.
func (t *MemoryTransport) Close() error {
	t.closeOnce.Do(func() {
		close(t.closed)
	})
	return nil
}
