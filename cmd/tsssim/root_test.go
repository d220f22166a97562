package main

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallyu/go-tss/internal/sim"
)

func execute(t *testing.T, args ...string) (*sim.Result, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(context.Background()); err != nil {
		return nil, err
	}
	var result sim.Result
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	return &result, nil
}

func TestEdDSACommand(t *testing.T) {
	tcs := []struct {
		name      string
		args      []string
		signers   []int
		expectErr bool
	}{
		{
			name:    "defaults",
			args:    []string{"eddsa"},
			signers: []int{1, 2},
		},
		{
			name:    "explicit signers",
			args:    []string{"eddsa", "--parties", "4", "--threshold", "3", "--signers", "4,2,1", "--message", "hi"},
			signers: []int{1, 2, 4},
		},
		{
			name:      "threshold exceeds parties",
			args:      []string{"eddsa", "--parties", "2", "--threshold", "3"},
			expectErr: true,
		},
		{
			name:      "signer out of range",
			args:      []string{"eddsa", "--signers", "1,7"},
			expectErr: true,
		},
		{
			name:      "bad log level",
			args:      []string{"eddsa", "--log-level", "loud"},
			expectErr: true,
		},
	}
	for _, tc := range tcs {
		t.Run(tc.name, func(t *testing.T) {
			result, err := execute(t, tc.args...)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "ed25519", result.Curve)
			assert.Equal(t, tc.signers, result.Signers)
		})
	}
}

func TestEnvironmentAndConfigFile(t *testing.T) {
	t.Setenv("TSSSIM_THRESHOLD", "3")
	result, err := execute(t, "eddsa", "--message", "env")
	require.NoError(t, err)
	assert.Equal(t, 3, result.Threshold)
	assert.Equal(t, []int{1, 2, 3}, result.Signers)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(result.PublicKey), []byte("env"), result.Signature))

	config := filepath.Join(t.TempDir(), "tsssim.yaml")
	require.NoError(t, os.WriteFile(config, []byte("parties: 5\nthreshold: 2\nmessage: from file\n"), 0o600))
	result, err = execute(t, "eddsa", "--config", config)
	require.NoError(t, err)
	assert.Equal(t, 5, result.Parties)
	// The environment still overrides the file.
	assert.Equal(t, 3, result.Threshold)
	assert.True(t, ed25519.Verify(ed25519.PublicKey(result.PublicKey), []byte("from file"), result.Signature))

	_, err = execute(t, "eddsa", "--config", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestECDSACommand(t *testing.T) {
	if testing.Short() {
		t.Skip("paillier and ntilde generation is slow")
	}
	result, err := execute(t, "ecdsa", "--paillier-bits", "2048", "--ntilde-bits", "1024", "--signers", "2,3")
	require.NoError(t, err)
	assert.Equal(t, "secp256k1", result.Curve)
	assert.Equal(t, []int{2, 3}, result.Signers)
	assert.Len(t, result.Signature, 64)

	_, err = execute(t, "ecdsa", "--paillier-bits", "1024")
	assert.Error(t, err)
}
