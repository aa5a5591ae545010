package internal

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTransport_RoundTrip(t *testing.T) {
	a, b := NewMemoryTransportPair(4)
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, []byte("ping")))
	raw, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(raw))

	require.NoError(t, b.Send(ctx, []byte("pong")))
	raw, err = a.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(raw))
}

func TestMemoryTransport_DrainsPendingBeforeEOF(t *testing.T) {
	a, b := NewMemoryTransportPair(4)
	ctx := context.Background()

	require.NoError(t, a.Send(ctx, []byte("last")))
	require.NoError(t, a.Close())

	raw, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "last", string(raw))

	_, err = b.Receive(ctx)
	assert.ErrorIs(t, err, io.EOF)
}

func TestMemoryTransport_SendAfterCloseFails(t *testing.T) {
	a, b := NewMemoryTransportPair(4)

	require.NoError(t, a.Close())

	// Con buffer disponible el fallo debe ser determinista, no depender de
	// qué case del select gane.
	for i := 0; i < 50; i++ {
		assert.ErrorIs(t, b.Send(context.Background(), []byte("x")), io.ErrClosedPipe)
		assert.ErrorIs(t, a.Send(context.Background(), []byte("x")), io.ErrClosedPipe)
	}
}

func TestMemoryTransport_CloseBothEnds(t *testing.T) {
	a, b := NewMemoryTransportPair(4)

	require.NoError(t, a.Close())
	require.NoError(t, b.Close())
	require.NoError(t, a.Close())
}

func TestMemoryTransport_ReceiveHonorsContext(t *testing.T) {
	a, _ := NewMemoryTransportPair(4)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := a.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
