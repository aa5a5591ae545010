package s2

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	original := &FRBCStorageStatus{
		MessageID:        "ss-1",
		PresentFillLevel: 7.25,
	}

	raw, err := Marshal(original)
	require.NoError(t, err)

	parsed, err := Parse(raw)
	require.NoError(t, err)

	status, ok := parsed.(*FRBCStorageStatus)
	require.True(t, ok)
	assert.Equal(t, original.MessageID, status.MessageID)
	assert.Equal(t, original.PresentFillLevel, status.PresentFillLevel)
}

func TestParse_UnknownTypeFails(t *testing.T) {
	_, err := Parse([]byte(`{"message_type":"FRBC.Unheard","message_id":"m-1"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestParse_UnknownFieldsRejected(t *testing.T) {
	_, err := Parse([]byte(`{"message_type":"FRBC.StorageStatus","message_id":"ss-1","present_fill_level":1,"extra":true}`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

func TestParse_ValidationFailureSurfaces(t *testing.T) {
	_, err := Parse([]byte(`{"message_type":"FRBC.StorageStatus","message_id":"!","present_fill_level":1}`))
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestPeekID_SurvivesInvalidPayload(t *testing.T) {
	assert.Equal(t, ID("m-1"), PeekID([]byte(`{"message_type":"Nope","message_id":"m-1","junk":{}}`)))
	assert.Equal(t, ID(""), PeekID([]byte(`not json`)))
}

func TestPeekType(t *testing.T) {
	typ, err := PeekType([]byte(`{"message_type":"Handshake","message_id":"m-1"}`))
	require.NoError(t, err)
	assert.Equal(t, TypeHandshake, typ)

	_, err = PeekType([]byte(`{"message_id":"m-1"}`))
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestReceptionStatus_IDIsSubject(t *testing.T) {
	rs := NewReceptionStatus("m-9", ReceptionOK)
	assert.Equal(t, ID("m-9"), rs.ID())
	assert.True(t, rs.Status.IsOK())
}

func TestMarshal_FillsMessageType(t *testing.T) {
	raw, err := Marshal(&Handshake{
		MessageID:                 "hs-1",
		Role:                      RoleRM,
		SupportedProtocolVersions: []string{"0.0.1-beta"},
	})
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"message_type":"Handshake"`)
}

func TestControlTypeActive(t *testing.T) {
	assert.True(t, ControlFillRateBased.Active())
	assert.True(t, ControlPowerProfileBased.Active())
	assert.False(t, ControlNoSelection.Active())
	assert.False(t, ControlNotControllable.Active())
	assert.False(t, ControlType("WHATEVER").Active())
}

func TestOperationModeHelpers(t *testing.T) {
	mode := FRBCOperationMode{
		ID: "om-1",
		Elements: []FRBCOperationModeElement{
			{
				FillLevelRange: NumberRange{StartOfRange: 0, EndOfRange: 4},
				FillRate:       NumberRange{StartOfRange: 0, EndOfRange: 1},
			},
			{
				FillLevelRange: NumberRange{StartOfRange: 4, EndOfRange: 10},
				FillRate:       NumberRange{StartOfRange: 1, EndOfRange: 3},
			},
		},
	}

	assert.Equal(t, NumberRange{StartOfRange: 0, EndOfRange: 10}, mode.FillLevelRange())
	assert.Equal(t, 3.0, mode.MaxFillRate())
}

func TestNumberRange(t *testing.T) {
	r := NumberRange{StartOfRange: 2, EndOfRange: 6}

	assert.Equal(t, 4.0, r.Width())
	assert.True(t, r.Contains(2))
	assert.True(t, r.Contains(6))
	assert.False(t, r.Contains(6.01))
	assert.Equal(t, 4.0, r.Interpolate(0.5))
}
