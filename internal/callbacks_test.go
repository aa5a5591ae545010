package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCallbackRegistry_SuccessPath(t *testing.T) {
	reg := NewCallbackRegistry()

	fired := false
	reg.OnSuccess("m1", func(ctx context.Context) { fired = true })

	cb := reg.Resolve("m1", true)
	require.NotNil(t, cb)
	cb(context.Background())

	assert.True(t, fired)
	assert.Equal(t, 0, reg.Pending())
}

func TestCallbackRegistry_FailureDiscardsSuccess(t *testing.T) {
	reg := NewCallbackRegistry()

	reg.OnSuccess("m1", func(ctx context.Context) {
		t.Fatal("success callback must not fire on failure")
	})

	// Sin callback de fallo registrado: nada que invocar, pero el de
	// éxito queda descartado igualmente.
	cb := reg.Resolve("m1", false)
	assert.Nil(t, cb)
	assert.Equal(t, 0, reg.Pending())

	// Un OK posterior ya no encuentra nada
	assert.Nil(t, reg.Resolve("m1", true))
}

func TestCallbackRegistry_FailurePath(t *testing.T) {
	reg := NewCallbackRegistry()

	fired := ""
	reg.OnSuccess("m1", func(ctx context.Context) { fired = "success" })
	reg.OnFailure("m1", func(ctx context.Context) { fired = "failure" })

	cb := reg.Resolve("m1", false)
	require.NotNil(t, cb)
	cb(context.Background())

	assert.Equal(t, "failure", fired)
}

func TestCallbackRegistry_UnknownMessage(t *testing.T) {
	reg := NewCallbackRegistry()

	assert.Nil(t, reg.Resolve("desconocido", true))
	assert.Nil(t, reg.Resolve("desconocido", false))
}
