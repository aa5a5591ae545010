package internal

import (
	"context"
	"sync"
)

// Callback función a invocar cuando llega el ReceptionStatus de un mensaje.
type Callback func(ctx context.Context)

// CallbackRegistry registra callbacks de éxito y fallo por message_id.
//
// Al recibir un ReceptionStatus OK se invoca el callback de éxito; para
// cualquier otro estado se invoca el de fallo. Los callbacks se consumen
// al dispararse (one-shot). Thread-safe.
type CallbackRegistry struct {
	success map[string]Callback
	failure map[string]Callback
	mu      sync.Mutex
}

// NewCallbackRegistry crea un registro de callbacks vacío.
func NewCallbackRegistry() *CallbackRegistry {
	return &CallbackRegistry{
		success: make(map[string]Callback),
		failure: make(map[string]Callback),
	}
}

// OnSuccess registra un callback de éxito para un message_id.
func (r *CallbackRegistry) OnSuccess(messageID string, cb Callback) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.success[messageID] = cb
}

// OnFailure registra un callback de fallo para un message_id.
func (r *CallbackRegistry) OnFailure(messageID string, cb Callback) {
	if cb == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failure[messageID] = cb
}

// Resolve consume los callbacks de un message_id y retorna el que corresponde
// al resultado.
//
// Un resultado de fallo descarta el callback de éxito pendiente aunque no
// haya callback de fallo registrado. Retorna nil si no hay nada que invocar.
func (r *CallbackRegistry) Resolve(messageID string, ok bool) Callback {
	r.mu.Lock()
	defer r.mu.Unlock()

	onSuccess := r.success[messageID]
	onFailure := r.failure[messageID]
	delete(r.success, messageID)
	delete(r.failure, messageID)

	if ok {
		return onSuccess
	}
	return onFailure
}

// Pending retorna cuántos message_ids tienen callbacks registrados.
func (r *CallbackRegistry) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make(map[string]struct{}, len(r.success)+len(r.failure))
	for id := range r.success {
		ids[id] = struct{}{}
	}
	for id := range r.failure {
		ids[id] = struct{}{}
	}
	return len(ids)
}
