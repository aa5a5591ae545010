// Package telemetry provee el cliente unificado de observabilidad del CEM.
//
// Combina tres señales detrás de una sola API:
//   - Logs estructurados (slog con handler JSON)
//   - Métricas (OpenTelemetry, exportadas vía OTLP gRPC)
//   - Trazas (OpenTelemetry, exportadas vía OTLP gRPC)
//
// Los atributos se expresan siempre como attribute.KeyValue de OTel para que
// logs, métricas y trazas compartan convenciones (ver subpaquete semconv).
//
// Uso básico:
//
//	tel, err := telemetry.New(ctx, "cem-engine", "dev")
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(ctx)
//
//	tel.Info(ctx, "session opened",
//	    semconv.CEM.ResourceID.String("rm-battery-1"),
//	)
package telemetry
