package journal

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournal_RecordsInOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	j, err := Open(path)
	require.NoError(t, err)
	defer j.Close()

	require.NoError(t, j.RecordIncoming([]byte(`{"message_type":"Handshake"}`)))
	require.NoError(t, j.RecordIncoming([]byte(`{"message_type":"FRBC.StorageStatus"}`)))
	require.NoError(t, j.RecordOutgoing([]byte(`{"message_type":"HandshakeResponse"}`)))

	in, err := j.Incoming()
	require.NoError(t, err)
	require.Len(t, in, 2)
	assert.Equal(t, uint64(1), in[0].Seq)
	assert.Equal(t, uint64(2), in[1].Seq)
	assert.JSONEq(t, `{"message_type":"Handshake"}`, string(in[0].Raw))

	out, err := j.Outgoing()
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.JSONEq(t, `{"message_type":"HandshakeResponse"}`, string(out[0].Raw))
}

func TestJournal_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.db")

	j, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, j.RecordOutgoing([]byte(`{"a":1}`)))
	require.NoError(t, j.Close())

	j2, err := Open(path)
	require.NoError(t, err)
	defer j2.Close()

	out, err := j2.Outgoing()
	require.NoError(t, err)
	require.Len(t, out, 1)
}

func TestJournal_NilSafe(t *testing.T) {
	var j *Journal

	assert.NoError(t, j.RecordIncoming([]byte("x")))
	assert.NoError(t, j.Close())
}
