package tss

import "github.com/pkg/errors"

const (
	// MinPaillierBits keeps k*gamma + beta' below the Paillier modulus during MtA.
	MinPaillierBits = 2048
	// MinNtildeBits is the smallest auxiliary modulus accepted at all.
	MinNtildeBits = 1024
	// RecommendedModulusBits is the production size for both moduli.
	RecommendedModulusBits = 3072
)

// Config holds the tunables shared by the protocol services.
type Config struct {
	Curve        string `mapstructure:"curve"`
	PaillierBits int    `mapstructure:"paillier_bits"`
	NtildeBits   int    `mapstructure:"ntilde_bits"`
	// LenientVSS tolerates failed VSS checks during EdDSA key combination
	// and only logs them.
	LenientVSS bool `mapstructure:"lenient_vss"`
}

// DefaultConfig returns the production configuration.
func DefaultConfig() Config {
	return Config{
		Curve:        "secp256k1",
		PaillierBits: RecommendedModulusBits,
		NtildeBits:   RecommendedModulusBits,
	}
}

// Validate checks the configuration bounds.
func (c Config) Validate() error {
	switch c.Curve {
	case "secp256k1", "ed25519":
	default:
		return errors.Wrapf(ErrInvalidConfig, "unsupported curve %q", c.Curve)
	}
	if c.PaillierBits < MinPaillierBits {
		return errors.Wrapf(ErrInvalidConfig, "paillier_bits %d below %d", c.PaillierBits, MinPaillierBits)
	}
	if c.NtildeBits < MinNtildeBits {
		return errors.Wrapf(ErrInvalidConfig, "ntilde_bits %d below %d", c.NtildeBits, MinNtildeBits)
	}
	return nil
}

// ValidateParams checks a participant index against threshold t and share count n.
func ValidateParams(index, t, n int) error {
	if !(index > 0 && index <= n) {
		return errors.Wrapf(ErrInvalidConfig, "index %d not in [1, %d]", index, n)
	}
	if !(t > 0 && t <= n) {
		return errors.Wrapf(ErrInvalidConfig, "threshold %d not in [1, %d]", t, n)
	}
	return nil
}
