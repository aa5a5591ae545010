package internal

import "sync"

// DefaultHistorySize tamaño por defecto de los historiales de mensajes.
const DefaultHistorySize = 100

// BoundedHistory almacén acotado in-memory con orden de inserción.
//
// Mantiene un map de id → valor con evicción FIFO: al superar la capacidad
// se descarta la entrada más antigua. Thread-safe para acceso concurrente.
type BoundedHistory[V any] struct {
	entries  map[string]V
	order    []string
	capacity int
	mu       sync.RWMutex
}

// NewBoundedHistory crea un historial con la capacidad indicada.
//
// Capacidad <= 0 usa DefaultHistorySize.
func NewBoundedHistory[V any](capacity int) *BoundedHistory[V] {
	if capacity <= 0 {
		capacity = DefaultHistorySize
	}
	return &BoundedHistory[V]{
		entries:  make(map[string]V, capacity),
		order:    make([]string, 0, capacity),
		capacity: capacity,
	}
}

// Put agrega o reemplaza una entrada.
//
// Reemplazar una clave existente conserva su posición de inserción.
// Si la inserción supera la capacidad, se desaloja la entrada más antigua.
func (h *BoundedHistory[V]) Put(id string, value V) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.entries[id]; exists {
		h.entries[id] = value
		return
	}

	h.entries[id] = value
	h.order = append(h.order, id)

	if len(h.order) > h.capacity {
		oldest := h.order[0]
		h.order = h.order[1:]
		delete(h.entries, oldest)
	}
}

// Get obtiene una entrada por id.
func (h *BoundedHistory[V]) Get(id string) (V, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	value, exists := h.entries[id]
	return value, exists
}

// Pop obtiene y elimina una entrada por id.
func (h *BoundedHistory[V]) Pop(id string) (V, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	value, exists := h.entries[id]
	if !exists {
		return value, false
	}

	delete(h.entries, id)
	for i, key := range h.order {
		if key == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
	return value, true
}

// Delete elimina una entrada por id. No-op si no existe.
func (h *BoundedHistory[V]) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.entries[id]; !exists {
		return
	}
	delete(h.entries, id)
	for i, key := range h.order {
		if key == id {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Len retorna la cantidad de entradas.
func (h *BoundedHistory[V]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return len(h.order)
}

// Keys retorna los ids en orden de inserción.
func (h *BoundedHistory[V]) Keys() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	keys := make([]string, len(h.order))
	copy(keys, h.order)
	return keys
}

// Values retorna los valores en orden de inserción.
func (h *BoundedHistory[V]) Values() []V {
	h.mu.RLock()
	defer h.mu.RUnlock()

	values := make([]V, 0, len(h.order))
	for _, key := range h.order {
		values = append(values, h.entries[key])
	}
	return values
}
