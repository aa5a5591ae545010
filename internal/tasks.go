package internal

import (
	"context"
	"sync"

	"github.com/xKoRx/cem/sdk/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// TaskGroup agrupa las goroutines de fondo de una sesión.
//
// Cada tarea corre bajo el contexto del grupo. Stop cancela el contexto y
// espera a que todas terminen. Un panic dentro de una tarea se recupera y
// se registra, nunca tumba la sesión.
type TaskGroup struct {
	telemetry *telemetry.Client

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewTaskGroup crea un grupo de tareas hijo del contexto dado.
func NewTaskGroup(ctx context.Context, tel *telemetry.Client) *TaskGroup {
	groupCtx, cancel := context.WithCancel(ctx)
	return &TaskGroup{
		telemetry: tel,
		ctx:       groupCtx,
		cancel:    cancel,
	}
}

// Context retorna el contexto del grupo.
func (g *TaskGroup) Context() context.Context {
	return g.ctx
}

// Go lanza una tarea nombrada en el grupo.
func (g *TaskGroup) Go(name string, fn func(ctx context.Context)) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				g.telemetry.Error(g.ctx, "Background task panicked", nil,
					attribute.String("task", name),
					attribute.String("panic", toString(r)),
				)
			}
		}()

		fn(g.ctx)
	}()
}

// Cancel cancela el contexto del grupo sin esperar. Seguro de llamar
// desde dentro de una tarea.
func (g *TaskGroup) Cancel() {
	g.cancel()
}

// Wait bloquea hasta que todas las tareas terminen.
func (g *TaskGroup) Wait() {
	g.wg.Wait()
}

// Stop cancela el grupo y espera a que todas las tareas terminen.
func (g *TaskGroup) Stop() {
	g.cancel()
	g.wg.Wait()
}

func toString(v any) string {
	if err, ok := v.(error); ok {
		return err.Error()
	}
	if s, ok := v.(string); ok {
		return s
	}
	return "unknown panic"
}
