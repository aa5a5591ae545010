package internal

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xKoRx/cem/sdk/s2"
	"github.com/xKoRx/cem/sdk/telemetry"
)

func newTestTelemetry(t *testing.T) *telemetry.Client {
	t.Helper()
	tel, err := telemetry.New(context.Background(), "internal-test", "test", telemetry.WithLogsDisabled())
	require.NoError(t, err)
	return tel
}

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

func newTestMessageHandler(t *testing.T) (*MessageHandler, *captureSender) {
	t.Helper()
	h := NewMessageHandler(newTestTelemetry(t), nil, 10)
	sender := &captureSender{}
	h.SetSender(sender)
	return h, sender
}

func TestMessageHandler_DispatchUnknownTag(t *testing.T) {
	h, _ := newTestMessageHandler(t)

	handled := h.Dispatch(context.Background(), &s2.FRBCStorageStatus{MessageID: "ss-1"})
	assert.False(t, handled)
}

func TestMessageHandler_DispatchRecordsIncoming(t *testing.T) {
	h, _ := newTestMessageHandler(t)

	var got s2.Message
	h.Register(s2.TypeFRBCStorageStatus, func(ctx context.Context, msg s2.Message) {
		got = msg
	})

	status := &s2.FRBCStorageStatus{MessageID: "ss-1", PresentFillLevel: 3}
	require.True(t, h.Dispatch(context.Background(), status))
	assert.Equal(t, status, got)

	stored, ok := h.Incoming("ss-1")
	require.True(t, ok)
	assert.Equal(t, status, stored)
}

func TestMessageHandler_AcksAreNotAcknowledged(t *testing.T) {
	h, sender := newTestMessageHandler(t)

	h.Ack(context.Background(), s2.NewReceptionStatus("m-1", s2.ReceptionOK), s2.ReceptionOK)
	assert.Empty(t, sender.messages())

	h.Ack(context.Background(), &s2.FRBCStorageStatus{MessageID: "ss-1"}, s2.ReceptionOK)
	require.Len(t, sender.messages(), 1)
}

func TestMessageHandler_ReceptionStatusRunsSuccessCallback(t *testing.T) {
	h, _ := newTestMessageHandler(t)
	ctx := context.Background()

	var confirmed, failed bool
	h.SendWithCallbacks(ctx, &s2.SelectControlType{MessageID: "sel-1", ControlType: s2.ControlFillRateBased},
		func(context.Context) { confirmed = true },
		func(context.Context) { failed = true },
	)

	require.True(t, h.Dispatch(ctx, s2.NewReceptionStatus("sel-1", s2.ReceptionOK)))

	assert.True(t, confirmed)
	assert.False(t, failed)

	status, ok := h.OutgoingStatus("sel-1")
	require.True(t, ok)
	assert.Equal(t, s2.ReceptionOK, status)
}

func TestMessageHandler_FailureStatusDiscardsSuccessCallback(t *testing.T) {
	h, _ := newTestMessageHandler(t)
	ctx := context.Background()

	var confirmed, failed bool
	h.SendWithCallbacks(ctx, &s2.SelectControlType{MessageID: "sel-1", ControlType: s2.ControlFillRateBased},
		func(context.Context) { confirmed = true },
		func(context.Context) { failed = true },
	)

	require.True(t, h.Dispatch(ctx, s2.NewReceptionStatus("sel-1", s2.ReceptionInvalidContent)))
	assert.False(t, confirmed)
	assert.True(t, failed)

	// El acuse tardío ya no tiene callback que consumir.
	require.True(t, h.Dispatch(ctx, s2.NewReceptionStatus("sel-1", s2.ReceptionOK)))
	assert.False(t, confirmed)
}

func TestMessageHandler_SendWithoutSenderDrops(t *testing.T) {
	h := NewMessageHandler(newTestTelemetry(t), nil, 10)

	h.Send(context.Background(), &s2.FRBCStorageStatus{MessageID: "ss-1"})

	_, ok := h.Outgoing("ss-1")
	assert.True(t, ok, "message is still recorded in the outgoing history")
}
