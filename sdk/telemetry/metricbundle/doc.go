// Package metricbundle proporciona bundles de métricas para los dominios del
// CEM: mensajería de protocolo y traducción FRBC.
//
// Cada bundle encapsula los instrumentos de su dominio y expone helpers para
// registrarlos con atributos adecuados, siguiendo las convenciones semánticas
// definidas en el paquete semconv.
//
// Convención de nombres de métricas:
//
// Todas las métricas siguen el formato cem.<entity>.<metric_type>, por ejemplo:
//   - cem.message.received
//   - cem.instruction.emitted
//   - cem.translation.latency
//
// Uso básico:
//
//	client, _ := telemetry.New(ctx, "cem", "production", telemetry.WithMetricsEnabled())
//	metrics, _ := metricbundle.NewCEMMetrics(client.Meter())
//
//	metrics.RecordMessageReceived(ctx,
//	    semconv.CEM.MessageType.String("FRBC.StorageStatus"),
//	)
package metricbundle
