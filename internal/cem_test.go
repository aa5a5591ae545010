package internal

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xKoRx/cem/sdk/s2"
)

// stubControlType handler mínimo para observar activación y ruteo.
type stubControlType struct {
	*ControlTypeBase

	mu          sync.Mutex
	activated   int
	deactivated int
	dispatched  []string
}

func newStubControlType(t *testing.T, ct s2.ControlType, tags ...string) *stubControlType {
	t.Helper()

	s := &stubControlType{
		ControlTypeBase: NewControlTypeBase(ct, newTestTelemetry(t), nil, 10),
	}
	for _, tag := range tags {
		tag := tag
		s.Register(tag, func(ctx context.Context, msg s2.Message) {
			s.mu.Lock()
			s.dispatched = append(s.dispatched, tag)
			s.mu.Unlock()
			s.Ack(ctx, msg, s2.ReceptionOK)
		})
	}
	return s
}

func (s *stubControlType) Activate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activated++
}

func (s *stubControlType) Deactivate(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deactivated++
}

func newTestCEM(t *testing.T) *CEM {
	t.Helper()

	cfg := DefaultConfig()
	cfg.Version = "0.0.1-beta"
	cfg.SupportedVersions = []string{"0.0.1-beta", "0.0.2-beta"}
	cfg.QueueSize = 64

	return NewCEM(cfg, newTestTelemetry(t), nil, nil, nil, nil)
}

// drainOutbound vacía la cola de salida sin bloquear.
func drainOutbound(c *CEM) []s2.Message {
	var out []s2.Message
	for {
		select {
		case msg := <-c.sendCh:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func rmDetails(types ...s2.ControlType) *s2.ResourceManagerDetails {
	return &s2.ResourceManagerDetails{
		MessageID:  "rmd-1",
		ResourceID: "rm-1",
		Roles: []s2.Role{
			{Role: s2.RoleEnergyStorage, Commodity: s2.CommodityElectricity},
		},
		AvailableControlTypes:         types,
		ProvidesPowerMeasurementTypes: []s2.CommodityQuantity{s2.ElectricPowerL1},
	}
}

func TestCEM_HandshakeSelectsHighestMutualVersion(t *testing.T) {
	c := newTestCEM(t)
	ctx := context.Background()

	require.True(t, c.Dispatch(ctx, &s2.Handshake{
		MessageID:                 "hs-1",
		Role:                      s2.RoleRM,
		SupportedProtocolVersions: []string{"0.0.1-beta", "0.0.2-beta", "9.9.9"},
	}))

	assert.Equal(t, SessionHandshaken, c.State())

	msgs := drainOutbound(c)
	require.Len(t, msgs, 1)
	resp, ok := msgs[0].(*s2.HandshakeResponse)
	require.True(t, ok)
	assert.Equal(t, "0.0.2-beta", resp.SelectedProtocolVersion)
}

func TestCEM_HandshakeFallsBackToOwnVersion(t *testing.T) {
	c := newTestCEM(t)

	require.True(t, c.Dispatch(context.Background(), &s2.Handshake{
		MessageID:                 "hs-1",
		Role:                      s2.RoleRM,
		SupportedProtocolVersions: []string{"3.0.0"},
	}))

	msgs := drainOutbound(c)
	require.Len(t, msgs, 1)
	resp, ok := msgs[0].(*s2.HandshakeResponse)
	require.True(t, ok)
	assert.Equal(t, "0.0.1-beta", resp.SelectedProtocolVersion)
}

func TestCEM_InvalidPayloadGetsInvalidData(t *testing.T) {
	c := newTestCEM(t)

	// Handshake de RM sin versiones: parsea el sobre pero falla la validación.
	c.route(context.Background(), []byte(`{"message_type":"Handshake","message_id":"hs-1","role":"RM"}`))

	msgs := drainOutbound(c)
	require.Len(t, msgs, 1)
	rs, ok := msgs[0].(*s2.ReceptionStatus)
	require.True(t, ok)
	assert.Equal(t, s2.ID("hs-1"), rs.SubjectMessageID)
	assert.Equal(t, s2.ReceptionInvalidData, rs.Status)
}

func TestCEM_UnroutableMessageGetsTemporaryError(t *testing.T) {
	c := newTestCEM(t)

	// Sin tipo de control activo nadie procesa InstructionStatusUpdate.
	raw, err := s2.Marshal(&s2.InstructionStatusUpdate{
		MessageID:     "up-1",
		InstructionID: "in-1",
		StatusType:    s2.InstructionStarted,
	})
	require.NoError(t, err)

	c.route(context.Background(), raw)

	msgs := drainOutbound(c)
	require.Len(t, msgs, 1)
	rs, ok := msgs[0].(*s2.ReceptionStatus)
	require.True(t, ok)
	assert.Equal(t, s2.ReceptionTemporaryError, rs.Status)
}

func TestCEM_UnroutableReceptionStatusIsDropped(t *testing.T) {
	c := newTestCEM(t)

	raw, err := s2.Marshal(s2.NewReceptionStatus("ghost-1", s2.ReceptionOK))
	require.NoError(t, err)

	c.route(context.Background(), raw)
	assert.Empty(t, drainOutbound(c), "acks never get acked, even unroutable ones")
}

func TestCEM_ControlTypeChangeWaitsForConfirmation(t *testing.T) {
	c := newTestCEM(t)
	ctx := context.Background()

	stub := newStubControlType(t, s2.ControlFillRateBased, s2.TypeFRBCStorageStatus)
	c.RegisterControlType(stub)

	require.True(t, c.Dispatch(ctx, rmDetails(s2.ControlFillRateBased)))
	assert.Equal(t, s2.ControlNoSelection, c.ActiveControlType())
	drainOutbound(c)

	c.ActivateControlType(ctx, s2.ControlFillRateBased)

	msgs := drainOutbound(c)
	require.Len(t, msgs, 1)
	sel, ok := msgs[0].(*s2.SelectControlType)
	require.True(t, ok)
	assert.Equal(t, s2.ControlFillRateBased, sel.ControlType)

	// Hasta el acuse no hay cambio.
	assert.Equal(t, s2.ControlNoSelection, c.ActiveControlType())

	require.True(t, c.Dispatch(ctx, s2.NewReceptionStatus(sel.MessageID, s2.ReceptionOK)))
	assert.Equal(t, s2.ControlFillRateBased, c.ActiveControlType())
	assert.Equal(t, 1, stub.activated)
}

func TestCEM_RejectedControlTypeChangeKeepsCurrent(t *testing.T) {
	c := newTestCEM(t)
	ctx := context.Background()

	stub := newStubControlType(t, s2.ControlFillRateBased, s2.TypeFRBCStorageStatus)
	c.RegisterControlType(stub)

	require.True(t, c.Dispatch(ctx, rmDetails(s2.ControlFillRateBased)))
	drainOutbound(c)

	c.ActivateControlType(ctx, s2.ControlFillRateBased)
	msgs := drainOutbound(c)
	require.Len(t, msgs, 1)
	sel := msgs[0].(*s2.SelectControlType)

	require.True(t, c.Dispatch(ctx, s2.NewReceptionStatus(sel.MessageID, s2.ReceptionInvalidContent)))
	assert.Equal(t, s2.ControlNoSelection, c.ActiveControlType())
	assert.Zero(t, stub.activated)

	// El acuse OK tardío ya no puede activar: el callback fue descartado.
	require.True(t, c.Dispatch(ctx, s2.NewReceptionStatus(sel.MessageID, s2.ReceptionOK)))
	assert.Equal(t, s2.ControlNoSelection, c.ActiveControlType())
	assert.Zero(t, stub.activated)
}

func TestCEM_DefaultControlTypeAutoActivates(t *testing.T) {
	c := newTestCEM(t)
	ctx := context.Background()

	stub := newStubControlType(t, s2.ControlFillRateBased, s2.TypeFRBCStorageStatus)
	c.RegisterControlType(stub)
	c.SetDefaultControlType(s2.ControlFillRateBased)

	require.True(t, c.Dispatch(ctx, rmDetails(s2.ControlFillRateBased)))

	var sel *s2.SelectControlType
	for _, msg := range drainOutbound(c) {
		if m, ok := msg.(*s2.SelectControlType); ok {
			sel = m
		}
	}
	require.NotNil(t, sel, "details must trigger the default control type selection")
	assert.Equal(t, s2.ControlFillRateBased, sel.ControlType)
}

func TestCEM_ActiveHandlerRoutesFirst(t *testing.T) {
	c := newTestCEM(t)
	ctx := context.Background()

	stub := newStubControlType(t, s2.ControlFillRateBased, s2.TypeFRBCStorageStatus)
	c.RegisterControlType(stub)

	require.True(t, c.Dispatch(ctx, rmDetails(s2.ControlFillRateBased)))
	drainOutbound(c)
	c.ActivateControlType(ctx, s2.ControlFillRateBased)
	sel := drainOutbound(c)[0].(*s2.SelectControlType)
	require.True(t, c.Dispatch(ctx, s2.NewReceptionStatus(sel.MessageID, s2.ReceptionOK)))

	raw, err := s2.Marshal(&s2.FRBCStorageStatus{MessageID: "ss-1", PresentFillLevel: 4})
	require.NoError(t, err)
	c.route(ctx, raw)

	assert.Equal(t, []string{s2.TypeFRBCStorageStatus}, stub.dispatched)
}

func TestCEM_RevokeObjectRoutedByPrefix(t *testing.T) {
	c := newTestCEM(t)
	ctx := context.Background()

	stub := newStubControlType(t, s2.ControlFillRateBased)
	c.RegisterControlType(stub)

	require.True(t, c.Dispatch(ctx, &s2.RevokeObject{
		MessageID:  "rv-1",
		ObjectType: s2.RevokeFRBCInstruction,
		ObjectID:   "in-9",
	}))

	assert.True(t, stub.RevokedByRM("in-9"))

	msgs := drainOutbound(c)
	require.Len(t, msgs, 1)
	rs := msgs[0].(*s2.ReceptionStatus)
	assert.Equal(t, s2.ReceptionOK, rs.Status)
}

func TestCEM_SessionTerminateClosesTransport(t *testing.T) {
	cemSide, rmSide := NewMemoryTransportPair(16)

	cfg := DefaultConfig()
	cfg.QueueSize = 16
	c := NewCEM(cfg, newTestTelemetry(t), nil, cemSide, nil, nil)

	ctx := context.Background()
	require.NoError(t, c.Start(ctx))
	defer c.Stop()

	raw, err := s2.Marshal(&s2.SessionRequest{
		MessageID: "sr-1",
		Request:   s2.SessionTerminate,
	})
	require.NoError(t, err)
	require.NoError(t, rmSide.Send(ctx, raw))

	assert.Eventually(t, func() bool {
		return c.State() == SessionClosed
	}, 2*time.Second, 10*time.Millisecond)

	// El RM recibe el sentinel de cierre antes del EOF.
	sawSentinel := false
	for {
		frame, err := rmSide.Receive(ctx)
		if err != nil {
			break
		}
		if string(frame) == CloseSentinel {
			sawSentinel = true
			break
		}
	}
	assert.True(t, sawSentinel)
}

func TestCEM_DetailsSafeUnderConcurrentActivation(t *testing.T) {
	c := newTestCEM(t)
	c.RegisterControlType(newStubControlType(t, s2.ControlFillRateBased))
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.Dispatch(ctx, rmDetails(s2.ControlFillRateBased))
	}()
	go func() {
		defer wg.Done()
		c.ActivateControlType(ctx, s2.ControlFillRateBased)
	}()
	wg.Wait()

	assert.Equal(t, SessionSelected, c.State())
	assert.NotNil(t, c.ResourceDetails())
}

func TestNegotiateVersion(t *testing.T) {
	cases := []struct {
		name      string
		supported []string
		offered   []string
		want      string
		mutual    bool
	}{
		{"highest mutual wins", []string{"0.0.1-beta", "0.0.2-beta"}, []string{"0.0.2-beta", "0.0.1-beta"}, "0.0.2-beta", true},
		{"single overlap", []string{"0.0.1-beta"}, []string{"0.0.1-beta", "1.0.0"}, "0.0.1-beta", true},
		{"no overlap", []string{"0.0.1-beta"}, []string{"2.0.0"}, "", false},
		{"empty offer", []string{"0.0.1-beta"}, nil, "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, mutual := negotiateVersion(tc.supported, tc.offered)
			assert.Equal(t, tc.mutual, mutual)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCompareVersions(t *testing.T) {
	assert.Positive(t, compareVersions("0.0.2", "0.0.1"))
	assert.Negative(t, compareVersions("0.9.0", "0.10.0"))
	assert.Zero(t, compareVersions("1.0.0", "1.0.0"))
	assert.Positive(t, compareVersions("1.0", "0.9.9"))
	assert.Negative(t, compareVersions("0.0.1-alpha", "0.0.1-beta"))
}
