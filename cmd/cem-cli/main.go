package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/xKoRx/cem/internal"
	"github.com/xKoRx/cem/internal/frbc"
	"github.com/xKoRx/cem/internal/journal"
	"github.com/xKoRx/cem/internal/ppbc"
	"github.com/xKoRx/cem/internal/scheduler"
	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/telemetry"
	"github.com/xKoRx/cem/sdk/telemetry/metricbundle"
	"github.com/xKoRx/cem/sdk/utils"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	switch command {
	case "run":
		runSession(os.Args[2:])
	case "journal":
		runJournal(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "comando desconocido: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	usage := `cem-cli - Customer Energy Manager sobre stdio

Uso:
  cem-cli run [flags]             Corre una sesión CEM; los frames del RM
                                  entran por stdin y salen por stdout, uno
                                  por línea.
  cem-cli journal dump --path <f> Vuelca el journal de una sesión previa.

Flags de run:
  --scheduler-url        Endpoint del scheduler (default http://localhost:5000)
  --scheduler-token      Token de autorización del scheduler
  --journal              Ruta del journal de sesión (vacío deshabilita)
  --asset                Asset del RM en el scheduler
  --power-sensor         Sensor de schedules de potencia
  --price-sensor         Sensor de precios para el flex context
  --fill-level-sensor    Sensor destino del fill level
  --fill-rate-sensor     Sensor destino del fill rate agregado
  --mode-fill-rate-sensors       Sensores de fill rate por operation mode (coma)
  --mode-efficiency-sensors      Sensores de eficiencia por operation mode (coma)
  --usage-forecast-sensor        Sensor destino del usage forecast
  --storage-efficiency-sensor    Sensor de eficiencia de almacenamiento
  --charging-efficiency-sensor   Sensor de eficiencia de carga
  --site-power-capacity          Capacidad de potencia del sitio ("20 kVA")
  --soc-minima-sensor            Sensor de mínimos de SoC
  --soc-maxima-sensor            Sensor de máximos de SoC
  --power-measurement-sensors    Mapa quantity=sensor para PowerMeasurement (coma)
`
	fmt.Fprintln(os.Stderr, usage)
}

func runSession(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)

	cfg := internal.DefaultConfig()
	fs.StringVar(&cfg.SchedulerURL, "scheduler-url", cfg.SchedulerURL, "Endpoint del scheduler")
	fs.StringVar(&cfg.SchedulerToken, "scheduler-token", cfg.SchedulerToken, "Token del scheduler")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "Ruta del journal de sesión")
	fs.StringVar(&cfg.Environment, "environment", cfg.Environment, "Entorno de despliegue")
	fs.StringVar(&cfg.OTLPEndpoint, "otlp-endpoint", cfg.OTLPEndpoint, "Collector OTLP (habilita métricas y trazas)")

	var frbcCfg frbc.Config
	fs.IntVar(&frbcCfg.AssetID, "asset", 0, "Asset del RM en el scheduler")
	fs.IntVar(&frbcCfg.PowerSensorID, "power-sensor", 0, "Sensor de schedules de potencia")
	fs.IntVar(&frbcCfg.PriceSensorID, "price-sensor", 0, "Sensor de precios")
	fs.IntVar(&frbcCfg.FillLevelSensorID, "fill-level-sensor", 0, "Sensor de fill level")
	fs.IntVar(&frbcCfg.FillRateSensorID, "fill-rate-sensor", 0, "Sensor de fill rate agregado")
	fs.IntVar(&frbcCfg.UsageForecastSensorID, "usage-forecast-sensor", 0, "Sensor de usage forecast")
	fs.IntVar(&frbcCfg.StorageEfficiencySensorID, "storage-efficiency-sensor", 0, "Sensor de eficiencia de almacenamiento")
	fs.IntVar(&frbcCfg.ChargingEfficiencySensorID, "charging-efficiency-sensor", 0, "Sensor de eficiencia de carga")
	fs.StringVar(&frbcCfg.SitePowerCapacity, "site-power-capacity", "", "Capacidad de potencia del sitio")
	fs.IntVar(&frbcCfg.SOCMinimaSensorID, "soc-minima-sensor", 0, "Sensor de mínimos de SoC")
	fs.IntVar(&frbcCfg.SOCMaximaSensorID, "soc-maxima-sensor", 0, "Sensor de máximos de SoC")
	modeFillRate := fs.String("mode-fill-rate-sensors", "", "Sensores de fill rate por operation mode")
	modeEfficiency := fs.String("mode-efficiency-sensors", "", "Sensores de eficiencia por operation mode")
	powerSensors := fs.String("power-measurement-sensors", "", "Mapa quantity=sensor, separado por comas")

	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "error parseando flags: %v\n", err)
		os.Exit(1)
	}

	var err error
	frbcCfg.ModeFillRateSensorIDs, err = parseSensorList(*modeFillRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "--mode-fill-rate-sensors: %v\n", err)
		os.Exit(1)
	}
	frbcCfg.ModeEfficiencySensorIDs, err = parseSensorList(*modeEfficiency)
	if err != nil {
		fmt.Fprintf(os.Stderr, "--mode-efficiency-sensors: %v\n", err)
		os.Exit(1)
	}
	measurementSensors, err := parseSensorMap(*powerSensors)
	if err != nil {
		fmt.Fprintf(os.Stderr, "--power-measurement-sensors: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telOpts := []telemetry.Option{telemetry.WithVersion(cfg.Version)}
	if cfg.OTLPEndpoint != "" {
		telOpts = append(telOpts, telemetry.WithOTLPEndpoint(cfg.OTLPEndpoint))
	}
	tel, err := telemetry.New(ctx, "cem", cfg.Environment, telOpts...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error inicializando telemetría: %v\n", err)
		os.Exit(1)
	}
	defer tel.Shutdown(context.Background())

	var metrics *metricbundle.CEMMetrics
	if tel.MetricsEnabled() {
		metrics, err = metricbundle.NewCEMMetrics(tel.Meter())
		if err != nil {
			fmt.Fprintf(os.Stderr, "error creando métricas: %v\n", err)
			os.Exit(1)
		}
	}

	var jrnl *journal.Journal
	if cfg.JournalPath != "" {
		jrnl, err = journal.Open(cfg.JournalPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error abriendo journal: %v\n", err)
			os.Exit(1)
		}
		defer jrnl.Close()
	}

	sched := scheduler.NewHTTPClient(cfg.SchedulerURL, cfg.SchedulerToken)

	cem := internal.NewCEM(cfg, tel, metrics, newStdioTransport(), sched, jrnl)
	for quantity, sensorID := range measurementSensors {
		cem.RegisterPowerSensor(quantity, sensorID)
	}

	frbcHandler := frbc.NewHandler(frbcCfg, tel, metrics, sched)
	defer frbcHandler.Close()
	cem.RegisterControlType(frbcHandler)
	cem.RegisterControlType(ppbc.NewHandler(tel, metrics, cfg.HistorySize))
	cem.SetDefaultControlType(s2.ControlFillRateBased)

	if err := cem.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error iniciando sesión: %v\n", err)
		os.Exit(1)
	}

	select {
	case <-ctx.Done():
		cem.Stop()
	case <-sessionDone(cem):
	}
}

// sessionDone retorna un canal que cierra cuando la sesión termina sola.
func sessionDone(cem *internal.CEM) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		cem.Wait()
		close(done)
	}()
	return done
}

func runJournal(args []string) {
	if len(args) == 0 || args[0] != "dump" {
		printUsage()
		os.Exit(1)
	}

	fs := flag.NewFlagSet("journal dump", flag.ExitOnError)
	path := fs.String("path", "", "Ruta del journal a volcar")
	if err := fs.Parse(args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error parseando flags: %v\n", err)
		os.Exit(1)
	}
	if *path == "" {
		fmt.Fprintln(os.Stderr, "--path es requerido")
		fs.Usage()
		os.Exit(1)
	}

	jrnl, err := journal.Open(*path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error abriendo journal: %v\n", err)
		os.Exit(1)
	}
	defer jrnl.Close()

	dump := func(direction string, records []journal.Record, err error) {
		if err != nil {
			fmt.Fprintf(os.Stderr, "error leyendo %s: %v\n", direction, err)
			os.Exit(1)
		}
		for _, rec := range records {
			fmt.Printf("%s %d %d %s\n", direction, rec.Seq, rec.Timestamp, utils.Compact(rec.Raw))
		}
	}

	incoming, err := jrnl.Incoming()
	dump("<-", incoming, err)
	outgoing, err := jrnl.Outgoing()
	dump("->", outgoing, err)
}

// stdioTransport frames JSON delimitados por línea sobre stdin/stdout.
type stdioTransport struct {
	reader *bufio.Reader

	writeMu sync.Mutex
	closed  chan struct{}
	once    sync.Once
}

func newStdioTransport() *stdioTransport {
	return &stdioTransport{
		reader: bufio.NewReader(os.Stdin),
		closed: make(chan struct{}),
	}
}

func (t *stdioTransport) Receive(ctx context.Context) ([]byte, error) {
	select {
	case <-t.closed:
		return nil, io.EOF
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	line, err := t.reader.ReadString('\n')
	if err != nil {
		if err == io.EOF && strings.TrimSpace(line) != "" {
			return []byte(strings.TrimSpace(line)), nil
		}
		return nil, io.EOF
	}

	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return t.Receive(ctx)
	}
	return []byte(trimmed), nil
}

func (t *stdioTransport) Send(ctx context.Context, raw []byte) error {
	select {
	case <-t.closed:
		return io.ErrClosedPipe
	default:
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	_, err := fmt.Fprintf(os.Stdout, "%s\n", raw)
	return err
}

func (t *stdioTransport) Close() error {
	t.once.Do(func() {
		close(t.closed)
	})
	return nil
}

// parseSensorList parsea una lista de ids separados por comas.
func parseSensorList(raw string) ([]int, error) {
	if raw == "" {
		return nil, nil
	}

	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("id inválido %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}

// parseSensorMap parsea entradas quantity=sensor separadas por comas.
func parseSensorMap(raw string) (map[s2.CommodityQuantity]int, error) {
	out := make(map[s2.CommodityQuantity]int)
	if raw == "" {
		return out, nil
	}

	for _, entry := range strings.Split(raw, ",") {
		quantity, idRaw, found := strings.Cut(strings.TrimSpace(entry), "=")
		if !found {
			return nil, fmt.Errorf("entrada inválida %q, se espera quantity=sensor", entry)
		}
		id, err := strconv.Atoi(idRaw)
		if err != nil {
			return nil, fmt.Errorf("sensor inválido en %q", entry)
		}
		out[s2.CommodityQuantity(quantity)] = id
	}
	return out, nil
}
