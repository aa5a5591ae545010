package internal

import (
	"context"
	"errors"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xKoRx/cem/internal/journal"
	"github.com/xKoRx/cem/internal/scheduler"
	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/telemetry"
	"github.com/xKoRx/cem/sdk/telemetry/metricbundle"
	"github.com/xKoRx/cem/sdk/telemetry/semconv"
	"github.com/xKoRx/cem/sdk/utils"
)

// SessionState estado de la sesión con el RM.
type SessionState string

const (
	SessionNone       SessionState = "no_session"
	SessionHandshaken SessionState = "handshaken"
	SessionSelected   SessionState = "selected"
	SessionClosed     SessionState = "closed"
)

// CEM orquestador de una sesión con un Resource Manager.
//
// Responsabilidades:
//   - Negociar la versión de protocolo en el handshake
//   - Rutear mensajes entrantes: primero al handler del tipo de control
//     activo, después a su propia tabla, y acusar TEMPORARY_ERROR para lo
//     no ruteable
//   - Mantener la máquina de estados de sesión y de tipo de control
//   - Encolar toda la salida por una única cola FIFO
//   - Persistir cada frame en el journal de sesión
//
// Procesamiento secuencial: un loop de recepción y un loop de envío.
type CEM struct {
	*MessageHandler

	cfg *Config

	transport Transport
	journal   *journal.Journal
	scheduler scheduler.Client

	controlTypes map[s2.ControlType]ControlTypeHandler
	defaultType  s2.ControlType

	// details y active se protegen con stateMu junto con state.
	details *s2.ResourceManagerDetails
	active  s2.ControlType

	// Mapeo commodity quantity → sensor del scheduler para PowerMeasurement
	powerSensors map[s2.CommodityQuantity]int

	sendCh chan s2.Message

	state   SessionState
	stateMu sync.RWMutex

	group     *TaskGroup
	closeOnce sync.Once
}

// NewCEM crea una sesión CEM sobre el transporte dado.
//
// El scheduler y el journal pueden ser nil: sin scheduler no se reenvían
// mediciones, sin journal no se persiste la conversación.
func NewCEM(cfg *Config, tel *telemetry.Client, metrics *metricbundle.CEMMetrics, transport Transport, sched scheduler.Client, jrnl *journal.Journal) *CEM {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	c := &CEM{
		MessageHandler: NewMessageHandler(tel, metrics, cfg.HistorySize),
		cfg:            cfg,
		transport:      transport,
		journal:        jrnl,
		scheduler:      sched,
		controlTypes:   make(map[s2.ControlType]ControlTypeHandler),
		powerSensors:   make(map[s2.CommodityQuantity]int),
		sendCh:         make(chan s2.Message, cfg.QueueSize),
		state:          SessionNone,
	}

	c.SetSender(c)

	c.Register(s2.TypeHandshake, c.handleHandshake)
	c.Register(s2.TypeResourceManagerDetails, c.handleResourceManagerDetails)
	c.Register(s2.TypePowerMeasurement, c.handlePowerMeasurement)
	c.Register(s2.TypePowerForecast, c.handlePowerForecast)
	c.Register(s2.TypeRevokeObject, c.handleRevokeObject)
	c.Register(s2.TypeSessionRequest, c.handleSessionRequest)

	return c
}

// RegisterControlType registra un manejador de tipo de control.
//
// Reemplaza al anterior si el tipo ya estaba registrado.
func (c *CEM) RegisterControlType(h ControlTypeHandler) {
	ct := h.ControlType()
	if _, exists := c.controlTypes[ct]; exists {
		c.Telemetry().Warn(context.Background(), "Control type already registered, replacing",
			semconv.CEM.ControlType.String(string(ct)),
		)
	}

	h.SetSender(c)
	c.controlTypes[ct] = h
}

// SetDefaultControlType fija el tipo de control a activar automáticamente
// al recibir los ResourceManagerDetails, si el RM lo soporta.
func (c *CEM) SetDefaultControlType(ct s2.ControlType) {
	c.defaultType = ct
}

// RegisterPowerSensor mapea una commodity quantity al sensor del scheduler
// que recibe sus mediciones.
func (c *CEM) RegisterPowerSensor(quantity s2.CommodityQuantity, sensorID int) {
	c.powerSensors[quantity] = sensorID
}

// State retorna el estado actual de la sesión.
func (c *CEM) State() SessionState {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.state
}

func (c *CEM) setState(s SessionState) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.state = s
}

// ActiveControlType retorna el tipo de control vigente. Vacío antes de
// recibir los ResourceManagerDetails.
func (c *CEM) ActiveControlType() s2.ControlType {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.active
}

func (c *CEM) setActiveControlType(ct s2.ControlType) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.active = ct
}

// ResourceDetails retorna los últimos ResourceManagerDetails recibidos, o
// nil antes de la primera recepción.
func (c *CEM) ResourceDetails() *s2.ResourceManagerDetails {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.details
}

func (c *CEM) setResourceDetails(details *s2.ResourceManagerDetails) {
	c.stateMu.Lock()
	defer c.stateMu.Unlock()
	c.details = details
}

// Start lanza los loops de recepción y envío.
func (c *CEM) Start(ctx context.Context) error {
	if c.transport == nil {
		return errors.New("cem: transport is required")
	}

	c.group = NewTaskGroup(ctx, c.Telemetry())
	c.group.Go("receive", c.receiveLoop)
	c.group.Go("send", c.sendLoop)

	c.Telemetry().Info(ctx, "CEM session started",
		semconv.CEM.ProtocolVersion.String(c.cfg.Version),
	)
	return nil
}

// Stop termina la sesión: envía el sentinel de cierre, detiene los loops
// y cierra el transporte. Idempotente.
func (c *CEM) Stop() {
	c.shutdown("stop requested", true)
	if c.group != nil {
		c.group.Wait()
	}
}

// Wait bloquea hasta que la sesión termine.
func (c *CEM) Wait() {
	if c.group != nil {
		c.group.Wait()
	}
}

// shutdown cierra la sesión una única vez. Seguro de llamar desde dentro
// de los loops (no espera a las tareas).
func (c *CEM) shutdown(reason string, sendClose bool) {
	c.closeOnce.Do(func() {
		c.setState(SessionClosed)
		c.Telemetry().Info(context.Background(), "CEM session closing",
			semconv.CEM.Reason.String(reason),
		)

		if sendClose {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			_ = c.transport.Send(ctx, []byte(CloseSentinel))
			cancel()
		}

		_ = c.transport.Close()
		if c.group != nil {
			c.group.Cancel()
		}
	})
}

// Enqueue implementa Sender: encola un mensaje en la cola FIFO de salida.
func (c *CEM) Enqueue(ctx context.Context, msg s2.Message) {
	select {
	case c.sendCh <- msg:
		// Encolado exitoso

	case <-ctx.Done():
		c.Telemetry().Warn(ctx, "Session closing, outbound message dropped",
			semconv.CEM.MessageType.String(msg.Type()),
		)

	default:
		c.Telemetry().Error(ctx, "Outbound queue full, message dropped", nil,
			semconv.CEM.MessageType.String(msg.Type()),
			semconv.CEM.MessageID.String(string(msg.ID())),
		)
	}
}

// receiveLoop consume frames del transporte y los rutea.
func (c *CEM) receiveLoop(ctx context.Context) {
	for {
		raw, err := c.transport.Receive(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.shutdown("transport closed by peer", false)
			} else if !errors.Is(err, context.Canceled) {
				c.Telemetry().Error(ctx, "Transport receive failed", err)
				c.shutdown("transport receive failed", false)
			}
			return
		}

		if string(raw) == CloseSentinel {
			c.Telemetry().Info(ctx, "Close sentinel received from RM")
			c.shutdown("close sentinel received", false)
			return
		}

		if err := c.journal.RecordIncoming(raw); err != nil {
			c.Telemetry().Warn(ctx, "Journal write failed",
				semconv.CEM.Reason.String(err.Error()),
			)
		}

		c.route(ctx, raw)
	}
}

// sendLoop drena la cola de salida hacia el transporte.
func (c *CEM) sendLoop(ctx context.Context) {
	for {
		select {
		case msg := <-c.sendCh:
			raw, err := s2.Marshal(msg)
			if err != nil {
				c.Telemetry().Error(ctx, "Marshal outbound message failed", err,
					semconv.CEM.MessageType.String(msg.Type()),
				)
				continue
			}

			if err := c.journal.RecordOutgoing(raw); err != nil {
				c.Telemetry().Warn(ctx, "Journal write failed",
					semconv.CEM.Reason.String(err.Error()),
				)
			}

			if err := c.transport.Send(ctx, raw); err != nil {
				c.Telemetry().Error(ctx, "Transport send failed", err,
					semconv.CEM.MessageType.String(msg.Type()),
				)
			}

		case <-ctx.Done():
			return
		}
	}
}

// route valida un frame y lo entrega a su handler.
//
// El handler del tipo de control activo tiene prioridad sobre la tabla
// propia del CEM. Un mensaje sin handler recibe TEMPORARY_ERROR, salvo
// que sea un ReceptionStatus: los acuses nunca se acusan.
func (c *CEM) route(ctx context.Context, raw []byte) {
	msg, err := s2.Parse(raw)
	if err != nil {
		c.Metrics().RecordMessageRejected(ctx)
		c.Telemetry().Warn(ctx, "Invalid message received",
			semconv.CEM.Reason.String(err.Error()),
		)

		if id := s2.PeekID(raw); id != "" {
			c.Send(ctx, s2.NewReceptionStatus(id, s2.ReceptionInvalidData))
		}
		return
	}

	if handler := c.activeHandler(); handler != nil && handler.Supports(msg.Type()) {
		handler.Dispatch(ctx, msg)
		return
	}

	if c.Dispatch(ctx, msg) {
		return
	}

	if msg.Type() != s2.TypeReceptionStatus {
		c.Telemetry().Warn(ctx, "No handler for message",
			semconv.CEM.MessageType.String(msg.Type()),
		)
		c.Send(ctx, s2.NewReceptionStatus(msg.ID(), s2.ReceptionTemporaryError))
	}
}

// activeHandler retorna el handler del tipo de control activo, o nil si
// no hay tipo activo que enrute mensajes.
func (c *CEM) activeHandler() ControlTypeHandler {
	active := c.ActiveControlType()
	if !active.Active() {
		return nil
	}
	return c.controlTypes[active]
}

// ActivateControlType pide al RM cambiar al tipo de control dado.
//
// El cambio se confirma recién al llegar el ReceptionStatus OK del
// SelectControlType; el callback de activación corre en ese momento.
func (c *CEM) ActivateControlType(ctx context.Context, ct s2.ControlType) {
	if ct == c.ActiveControlType() {
		c.Telemetry().Warn(ctx, "RM is already in requested control type",
			semconv.CEM.ControlType.String(string(ct)),
		)
		return
	}

	details := c.ResourceDetails()
	if details == nil {
		c.Telemetry().Warn(ctx, "Cannot select control type before ResourceManagerDetails",
			semconv.CEM.ControlType.String(string(ct)),
		)
		return
	}

	if !details.SupportsControlType(ct) {
		c.Telemetry().Warn(ctx, "RM does not support control type",
			semconv.CEM.ControlType.String(string(ct)),
		)
		return
	}

	if ct.Active() {
		if _, registered := c.controlTypes[ct]; !registered {
			c.Telemetry().Warn(ctx, "No handler registered for control type",
				semconv.CEM.ControlType.String(string(ct)),
			)
			return
		}
	}

	msg := &s2.SelectControlType{
		MessageID:   s2.ID(utils.GenerateID()),
		ControlType: ct,
	}

	onConfirmed := func(cbCtx context.Context) {
		c.switchControlType(cbCtx, ct)
	}

	// El acuse llega ruteado al handler activo si hay uno; el callback se
	// registra donde va a llegar.
	if handler := c.activeHandler(); handler != nil {
		handler.Callbacks().OnSuccess(string(msg.MessageID), onConfirmed)
	} else {
		c.Callbacks().OnSuccess(string(msg.MessageID), onConfirmed)
	}

	c.Send(ctx, msg)
}

// switchControlType aplica el cambio de tipo de control ya confirmado.
func (c *CEM) switchControlType(ctx context.Context, ct s2.ControlType) {
	previous := c.ActiveControlType()
	if handler, ok := c.controlTypes[previous]; ok && previous.Active() {
		handler.Deactivate(ctx)
	}

	c.setActiveControlType(ct)
	c.Telemetry().Info(ctx, "Control type activated",
		semconv.CEM.ControlType.String(string(ct)),
	)

	if handler, ok := c.controlTypes[ct]; ok && ct.Active() {
		handler.Activate(ctx)
	}
}

// handleHandshake negocia la versión de protocolo y responde.
func (c *CEM) handleHandshake(ctx context.Context, msg s2.Message) {
	hs, ok := msg.(*s2.Handshake)
	if !ok {
		return
	}

	selected, mutual := negotiateVersion(c.cfg.SupportedVersions, hs.SupportedProtocolVersions)
	if !mutual {
		selected = c.cfg.Version
		c.Telemetry().Warn(ctx, "No mutually supported protocol version, falling back to own",
			semconv.CEM.ProtocolVersion.String(selected),
		)
	}

	c.setState(SessionHandshaken)
	c.Telemetry().Info(ctx, "Handshake completed",
		semconv.CEM.ProtocolVersion.String(selected),
		semconv.CEM.SessionState.String(string(SessionHandshaken)),
	)

	c.Send(ctx, &s2.HandshakeResponse{
		MessageID:               s2.ID(utils.GenerateID()),
		SelectedProtocolVersion: selected,
	})
}

// handleResourceManagerDetails almacena las capacidades del RM.
//
// La primera recepción inicializa el tipo de control en NO_SELECTION y,
// si hay un tipo por defecto configurado, dispara su activación.
func (c *CEM) handleResourceManagerDetails(ctx context.Context, msg s2.Message) {
	details, ok := msg.(*s2.ResourceManagerDetails)
	if !ok {
		return
	}

	c.setResourceDetails(details)
	first := c.ActiveControlType() == ""
	if first {
		c.setActiveControlType(s2.ControlNoSelection)
		c.setState(SessionSelected)
	}

	c.Telemetry().Info(ctx, "Resource manager details received",
		semconv.CEM.ResourceID.String(string(details.ResourceID)),
	)

	c.Ack(ctx, msg, s2.ReceptionOK)

	if first && c.defaultType != "" && details.SupportsControlType(c.defaultType) {
		c.ActivateControlType(ctx, c.defaultType)
	}
}

// handlePowerMeasurement reenvía las mediciones al scheduler y acusa OK.
//
// Una falla del scheduler se registra y se descarta: el RM no es
// responsable de los colaboradores del CEM.
func (c *CEM) handlePowerMeasurement(ctx context.Context, msg s2.Message) {
	pm, ok := msg.(*s2.PowerMeasurement)
	if !ok {
		return
	}

	for _, value := range pm.Values {
		sensorID, mapped := c.powerSensors[value.CommodityQuantity]
		if !mapped {
			c.Telemetry().Warn(ctx, "No sensor mapped for commodity quantity, measurement dropped",
				semconv.CEM.Reason.String(string(value.CommodityQuantity)),
			)
			continue
		}

		if c.scheduler == nil {
			continue
		}

		err := c.scheduler.PostMeasurements(ctx, sensorID,
			pm.MeasurementTimestamp, time.Hour,
			[]float64{value.Value}, string(value.CommodityQuantity))
		if err != nil {
			c.Telemetry().Error(ctx, "Forward measurement to scheduler failed", err,
				semconv.CEM.SensorID.Int(sensorID),
			)
		}
	}

	c.Ack(ctx, msg, s2.ReceptionOK)
}

// handlePowerForecast guarda la previsión y acusa OK. El historial de
// entrantes ya la retiene para consulta.
func (c *CEM) handlePowerForecast(ctx context.Context, msg s2.Message) {
	c.Ack(ctx, msg, s2.ReceptionOK)
}

// handleRevokeObject delega la revocación al handler del paradigma dueño
// del objeto, inferido del prefijo del object_type.
func (c *CEM) handleRevokeObject(ctx context.Context, msg s2.Message) {
	revoke, ok := msg.(*s2.RevokeObject)
	if !ok {
		return
	}

	prefixes := map[string]s2.ControlType{
		"FRBC": s2.ControlFillRateBased,
		"PPBC": s2.ControlPowerProfileBased,
		"PEBC": s2.ControlPowerEnvelopeBased,
		"OMBC": s2.ControlOperationModeBased,
		"DDBC": s2.ControlDemandDrivenBased,
	}

	prefix, _, _ := strings.Cut(string(revoke.ObjectType), ".")
	if ct, known := prefixes[prefix]; known {
		if handler, registered := c.controlTypes[ct]; registered {
			handler.Revoke(ctx, revoke.ObjectID)
		}
	}

	c.Ack(ctx, msg, s2.ReceptionOK)
}

// handleSessionRequest procesa RECONNECT y TERMINATE.
func (c *CEM) handleSessionRequest(ctx context.Context, msg s2.Message) {
	req, ok := msg.(*s2.SessionRequest)
	if !ok {
		return
	}

	c.Ack(ctx, msg, s2.ReceptionOK)

	switch req.Request {
	case s2.SessionReconnect:
		// La reconexión la maneja la capa de transporte; la sesión de
		// protocolo sigue viva.
		c.Telemetry().Info(ctx, "RM requested reconnect",
			semconv.CEM.Reason.String(req.DiagnosticLabel),
		)

	case s2.SessionTerminate:
		c.Telemetry().Info(ctx, "RM requested session termination",
			semconv.CEM.Reason.String(req.DiagnosticLabel),
		)
		c.shutdown("session terminate requested", true)
	}
}

// negotiateVersion elige la versión mutuamente soportada más alta.
//
// Retorna false si no hay intersección.
func negotiateVersion(supported, offered []string) (string, bool) {
	best := ""
	found := false
	for _, v := range offered {
		for _, s := range supported {
			if v != s {
				continue
			}
			if !found || compareVersions(v, best) > 0 {
				best = v
				found = true
			}
		}
	}
	return best, found
}

// compareVersions compara versiones con segmentos numéricos separados por
// puntos; un sufijo tras '-' desempata de forma lexicográfica.
func compareVersions(a, b string) int {
	aBase, aSuffix, _ := strings.Cut(a, "-")
	bBase, bSuffix, _ := strings.Cut(b, "-")

	aParts := strings.Split(aBase, ".")
	bParts := strings.Split(bBase, ".")

	for i := 0; i < len(aParts) || i < len(bParts); i++ {
		av, bv := 0, 0
		if i < len(aParts) {
			av, _ = strconv.Atoi(aParts[i])
		}
		if i < len(bParts) {
			bv, _ = strconv.Atoi(bParts[i])
		}
		if av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
	}
	return strings.Compare(aSuffix, bSuffix)
}
