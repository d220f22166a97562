package tss

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessage(t *testing.T) {
	type payload struct {
		I int    `json:"i"`
		Y string `json:"y"`
	}

	msg, err := NewMessage("sid", "key-share", 1, 2, payload{I: 2, Y: "ab"})
	require.NoError(t, err)
	assert.False(t, msg.IsBroadcast())

	var got payload
	require.NoError(t, msg.Decode(&got))
	assert.Equal(t, payload{I: 2, Y: "ab"}, got)

	msg.Payload = []byte("{")
	assert.True(t, errors.Is(msg.Decode(&got), ErrDecode))

	bc, err := NewMessage("sid", "sign", 3, Broadcast, payload{})
	require.NoError(t, err)
	assert.True(t, bc.IsBroadcast())
}
