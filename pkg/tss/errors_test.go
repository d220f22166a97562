package tss

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestBlame(t *testing.T) {
	cause := errors.New("s1 out of range")
	err := error(Blamef("sign-convert", 2, ErrRangeProof, cause))

	assert.True(t, errors.Is(err, ErrRangeProof))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNtildeProof))
	assert.Equal(t, 2, PartyOf(err))
	assert.Contains(t, err.Error(), "party 2")
	assert.Contains(t, err.Error(), "s1 out of range")

	wrapped := errors.Wrap(err, "session aborted")
	assert.True(t, errors.Is(wrapped, ErrRangeProof))
	assert.Equal(t, 2, PartyOf(wrapped))
}

func TestBlameLocal(t *testing.T) {
	err := NewBlame("key-share", 0, ErrInvalidSeed)
	assert.Equal(t, "key-share: seed must have length 64", err.Error())
	assert.Equal(t, 0, PartyOf(err))
	assert.Equal(t, 0, PartyOf(errors.New("plain")))
}
