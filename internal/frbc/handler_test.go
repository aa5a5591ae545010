package frbc

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xKoRx/cem/internal/scheduler"
	"github.com/xKoRx/cem/sdk/s2"
)

type postedSeries struct {
	sensorID int
	values   []float64
	unit     string
}

// stubScheduler registra las llamadas para inspección en tests.
type stubScheduler struct {
	mu sync.Mutex

	triggers        int
	triggerModels   []map[string]any
	triggerContexts []map[string]any
	posts           []postedSeries
	flexUpdates     []map[string]any
	seriesReads     []int

	schedule       *scheduler.Schedule
	series         []float64
	seriesBySensor map[int][]float64
}

func (s *stubScheduler) TriggerSchedule(ctx context.Context, sensorID int, start time.Time, duration time.Duration, flexModel, flexContext map[string]any) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.triggers++
	s.triggerModels = append(s.triggerModels, flexModel)
	s.triggerContexts = append(s.triggerContexts, flexContext)
	return "sched-1", nil
}

func (s *stubScheduler) GetSchedule(ctx context.Context, sensorID int, scheduleID string, duration time.Duration) (*scheduler.Schedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schedule, nil
}

func (s *stubScheduler) GetSeries(ctx context.Context, sensorID int, start time.Time, duration time.Duration, unit string, resolution time.Duration) ([]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seriesReads = append(s.seriesReads, sensorID)
	if values, ok := s.seriesBySensor[sensorID]; ok {
		return values, nil
	}
	return s.series, nil
}

func (s *stubScheduler) PostMeasurements(ctx context.Context, sensorID int, start time.Time, duration time.Duration, values []float64, unit string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = append(s.posts, postedSeries{sensorID: sensorID, values: values, unit: unit})
	return nil
}

func (s *stubScheduler) UpdateFlexModel(ctx context.Context, assetID int, updates map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flexUpdates = append(s.flexUpdates, updates)
	return nil
}

func (s *stubScheduler) triggerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.triggers
}

func (s *stubScheduler) postsFor(sensorID int) []postedSeries {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []postedSeries
	for _, p := range s.posts {
		if p.sensorID == sensorID {
			out = append(out, p)
		}
	}
	return out
}

func (s *stubScheduler) flexUpdateCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.flexUpdates)
}

func (s *stubScheduler) lastFlexUpdate() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.flexUpdates) == 0 {
		return nil
	}
	return s.flexUpdates[len(s.flexUpdates)-1]
}

func (s *stubScheduler) lastTrigger() (map[string]any, map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.triggerModels) == 0 {
		return nil, nil
	}
	return s.triggerModels[len(s.triggerModels)-1], s.triggerContexts[len(s.triggerContexts)-1]
}

func (s *stubScheduler) seriesReadsFor(sensorID int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, id := range s.seriesReads {
		if id == sensorID {
			count++
		}
	}
	return count
}

// captureSender acumula los mensajes encolados hacia el RM.
type captureSender struct {
	mu   sync.Mutex
	msgs []s2.Message
}

func (c *captureSender) Enqueue(ctx context.Context, msg s2.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
}

func (c *captureSender) messages() []s2.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]s2.Message(nil), c.msgs...)
}

func (c *captureSender) statusFor(subject s2.ID) (s2.ReceptionStatusValue, bool) {
	for _, msg := range c.messages() {
		rs, ok := msg.(*s2.ReceptionStatus)
		if ok && rs.SubjectMessageID == subject {
			return rs.Status, true
		}
	}
	return "", false
}

func newTestHandler(t *testing.T, cfg Config, sched scheduler.Client) (*Handler, *captureSender) {
	t.Helper()

	h := NewHandler(cfg, newTestTelemetry(t), nil, sched)
	t.Cleanup(h.Close)

	sender := &captureSender{}
	h.SetSender(sender)
	return h, sender
}

func TestHandler_SystemDescriptionIsIdempotent(t *testing.T) {
	stub := &stubScheduler{schedule: &scheduler.Schedule{}}
	h, sender := newTestHandler(t, Config{AssetID: 1, PowerSensorID: 2}, stub)

	first := chargeAndIdle()
	require.True(t, h.Dispatch(context.Background(), first))

	assert.Eventually(t, func() bool {
		return stub.triggerCount() == 1 && stub.flexUpdateCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Mismo contenido, nueva identidad de mensaje: solo acusa.
	second := chargeAndIdle()
	second.MessageID = "sd-2"
	require.True(t, h.Dispatch(context.Background(), second))

	status, ok := sender.statusFor("sd-2")
	require.True(t, ok, "repeated description must still be acknowledged")
	assert.Equal(t, s2.ReceptionOK, status)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, stub.triggerCount(), "repeated description must not re-trigger")

	_, stored := h.SystemDescription("sd-2")
	assert.False(t, stored, "repeated description is not recorded as new")
}

func TestHandler_ScheduleCycleEmitsInstructions(t *testing.T) {
	stub := &stubScheduler{
		schedule: &scheduler.Schedule{
			Values:   []float64{4, 0},
			Start:    t0,
			Duration: 2 * time.Hour,
			Unit:     "MW",
		},
	}
	h, sender := newTestHandler(t, Config{AssetID: 1, PowerSensorID: 2}, stub)

	require.True(t, h.Dispatch(context.Background(), chargeAndIdle()))

	assert.Eventually(t, func() bool {
		count := 0
		for _, msg := range sender.messages() {
			if _, ok := msg.(*s2.FRBCInstruction); ok {
				count++
			}
		}
		return count == 2
	}, 2*time.Second, 10*time.Millisecond)

	assert.Len(t, h.Outstanding(), 2)
}

func TestHandler_ReplaceRevokesBeforeEmitting(t *testing.T) {
	stub := &stubScheduler{}
	h, sender := newTestHandler(t, Config{}, stub)

	ctx := context.Background()
	first := &s2.FRBCInstruction{MessageID: "m-1", InstructionID: "in-1", OperationMode: "om-idle"}
	second := &s2.FRBCInstruction{MessageID: "m-2", InstructionID: "in-2", OperationMode: "om-charge"}

	h.replaceInstructions(ctx, []*s2.FRBCInstruction{first})
	h.replaceInstructions(ctx, []*s2.FRBCInstruction{second})

	var sequence []string
	for _, msg := range sender.messages() {
		switch m := msg.(type) {
		case *s2.RevokeObject:
			sequence = append(sequence, "revoke:"+string(m.ObjectID))
			assert.Equal(t, s2.RevokeFRBCInstruction, m.ObjectType)
		case *s2.FRBCInstruction:
			sequence = append(sequence, "emit:"+string(m.InstructionID))
		}
	}

	assert.Equal(t, []string{"emit:in-1", "revoke:in-1", "emit:in-2"}, sequence)
	assert.Equal(t, []s2.ID{"in-2"}, h.Outstanding())
}

func TestHandler_StorageStatusPostsFillLevel(t *testing.T) {
	stub := &stubScheduler{schedule: &scheduler.Schedule{}}
	h, sender := newTestHandler(t, Config{FillLevelSensorID: 9, PowerSensorID: 2}, stub)

	status := &s2.FRBCStorageStatus{MessageID: "ss-1", PresentFillLevel: 6.5}
	require.True(t, h.Dispatch(context.Background(), status))

	ack, ok := sender.statusFor("ss-1")
	require.True(t, ok)
	assert.Equal(t, s2.ReceptionOK, ack)

	assert.Eventually(t, func() bool {
		posts := stub.postsFor(9)
		return len(posts) == 1 && assert.ObjectsAreEqual([]float64{6.5}, posts[0].values)
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_LeakageUpdatesStorageEfficiency(t *testing.T) {
	stub := &stubScheduler{}
	h, sender := newTestHandler(t, Config{Resolution: 15 * time.Minute}, stub)

	leakage := &s2.FRBCLeakageBehaviour{
		MessageID: "lb-1",
		Elements: []s2.FRBCLeakageBehaviourElement{
			{FillLevelRange: s2.NumberRange{EndOfRange: 9}, LeakageRate: 0.001},
		},
	}
	require.True(t, h.Dispatch(context.Background(), leakage))

	h.mu.Lock()
	eff := h.storageEfficiency
	h.mu.Unlock()
	assert.InDelta(t, 0.9, eff, 1e-9)

	ack, ok := sender.statusFor("lb-1")
	require.True(t, ok)
	assert.Equal(t, s2.ReceptionOK, ack)
}

func TestHandler_ConversionEfficienciesPerMode(t *testing.T) {
	stub := &stubScheduler{schedule: &scheduler.Schedule{}}
	h, _ := newTestHandler(t, Config{
		PowerSensorID:           2,
		ModeEfficiencySensorIDs: []int{0, 21},
		EfficiencyHorizon:       time.Hour,
		Resolution:              15 * time.Minute,
	}, stub)

	require.True(t, h.Dispatch(context.Background(), chargeAndIdle()))

	assert.Eventually(t, func() bool {
		posts := stub.postsFor(21)
		if len(posts) != 1 {
			return false
		}
		// Modo charge: 100 * 2 / 4 = 50%, una muestra por resolución.
		return assert.ObjectsAreEqual([]float64{50, 50, 50, 50}, posts[0].values) && posts[0].unit == "%"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_ActivateDeactivate(t *testing.T) {
	h, _ := newTestHandler(t, Config{}, &stubScheduler{})

	ctx := context.Background()
	h.Activate(ctx)
	h.Deactivate(ctx)

	assert.Equal(t, s2.ControlFillRateBased, h.ControlType())
}

func TestHandler_FlexModelCarriesSensorReferences(t *testing.T) {
	stub := &stubScheduler{schedule: &scheduler.Schedule{}}
	h, _ := newTestHandler(t, Config{
		AssetID:                    1,
		PowerSensorID:              2,
		UsageForecastSensorID:      11,
		StorageEfficiencySensorID:  12,
		ChargingEfficiencySensorID: 13,
		SitePowerCapacity:          "20 kVA",
	}, stub)

	require.True(t, h.Dispatch(context.Background(), chargeAndIdle()))

	assert.Eventually(t, func() bool {
		return stub.flexUpdateCount() == 1 && stub.triggerCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	update := stub.lastFlexUpdate()
	assert.Equal(t, 0.0, update["soc-min"])
	assert.Equal(t, 10.0, update["soc-max"])
	assert.Equal(t, []map[string]any{{"sensor": 11}}, update["soc-usage"])
	assert.Equal(t, map[string]any{"sensor": 12}, update["storage-efficiency"])
	assert.Equal(t, map[string]any{"sensor": 13}, update["charging-efficiency"])
	// Modo charge: power range hasta 4.
	assert.Equal(t, "4W", update["power-capacity"])

	model, flexCtx := stub.lastTrigger()
	assert.Equal(t, 0.0, model["soc-at-start"], "sin storage status arranca en la cota inferior")
	assert.Equal(t, map[string]any{"sensor": 12}, model["storage-efficiency"])
	assert.Equal(t, "20 kVA", flexCtx["site-power-capacity"])
}

func TestHandler_ScheduleCycleFetchesEfficiencySeries(t *testing.T) {
	stub := &stubScheduler{
		schedule: &scheduler.Schedule{
			Values:   []float64{4, 4},
			Start:    t0,
			Duration: 2 * time.Hour,
		},
		seriesBySensor: map[int][]float64{
			12: {90, 90},
			13: {100, 100},
		},
	}
	h, sender := newTestHandler(t, Config{
		PowerSensorID:              2,
		StorageEfficiencySensorID:  12,
		ChargingEfficiencySensorID: 13,
	}, stub)

	require.True(t, h.Dispatch(context.Background(), chargeAndIdle()))

	assert.Eventually(t, func() bool {
		return stub.seriesReadsFor(12) == 1 && stub.seriesReadsFor(13) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		for _, msg := range sender.messages() {
			if _, ok := msg.(*s2.FRBCInstruction); ok {
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_LeakagePostsStorageEfficiencySeries(t *testing.T) {
	stub := &stubScheduler{}
	h, _ := newTestHandler(t, Config{
		StorageEfficiencySensorID: 12,
		Resolution:                15 * time.Minute,
		EfficiencyHorizon:         30 * time.Minute,
	}, stub)

	leakage := &s2.FRBCLeakageBehaviour{
		MessageID: "lb-1",
		Elements: []s2.FRBCLeakageBehaviourElement{
			{FillLevelRange: s2.NumberRange{EndOfRange: 9}, LeakageRate: 0.001},
		},
	}
	require.True(t, h.Dispatch(context.Background(), leakage))

	assert.Eventually(t, func() bool {
		posts := stub.postsFor(12)
		if len(posts) != 1 {
			return false
		}
		// Eficiencia 0.9 publicada en porcentaje, una muestra por resolución.
		return assert.ObjectsAreEqual([]float64{90, 90}, posts[0].values) && posts[0].unit == "%"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_ChargingEfficiencyPublished(t *testing.T) {
	stub := &stubScheduler{schedule: &scheduler.Schedule{}}
	h, _ := newTestHandler(t, Config{
		PowerSensorID:              2,
		ChargingEfficiencySensorID: 13,
		EfficiencyHorizon:          time.Hour,
		Resolution:                 30 * time.Minute,
	}, stub)

	require.True(t, h.Dispatch(context.Background(), chargeAndIdle()))

	assert.Eventually(t, func() bool {
		posts := stub.postsFor(13)
		if len(posts) != 1 {
			return false
		}
		// Mejor modo no idle: 100 * 2 / 4 = 50%.
		return assert.ObjectsAreEqual([]float64{50, 50}, posts[0].values) && posts[0].unit == "%"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHandler_TargetProfilePostsBounds(t *testing.T) {
	stub := &stubScheduler{}
	h, _ := newTestHandler(t, Config{
		SOCMinimaSensorID: 31,
		SOCMaximaSensorID: 32,
		Resolution:        time.Hour,
	}, stub)

	profile := &s2.FRBCFillLevelTargetProfile{
		MessageID: "tp-1",
		StartTime: t0,
		Elements: []s2.FRBCFillLevelTargetProfileElement{
			{Duration: s2.DurationFrom(time.Hour), FillLevelRange: s2.NumberRange{StartOfRange: 2, EndOfRange: 8}},
		},
	}
	require.True(t, h.Dispatch(context.Background(), profile))

	assert.Eventually(t, func() bool {
		minima := stub.postsFor(31)
		maxima := stub.postsFor(32)
		return len(minima) == 1 && len(maxima) == 1 &&
			assert.ObjectsAreEqual([]float64{2}, minima[0].values) &&
			assert.ObjectsAreEqual([]float64{8}, maxima[0].values)
	}, 2*time.Second, 10*time.Millisecond)
}
