package main

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smallyu/go-tss/internal/sim"
	"github.com/smallyu/go-tss/pkg/tss"
)

const envPrefix = "TSSSIM"

// settings are the values read from flags, TSSSIM_* variables and the
// optional config file, in that order of precedence.
type settings struct {
	tss.Config `mapstructure:",squash"`
	LogLevel   string `mapstructure:"log_level"`
	Parties    int    `mapstructure:"parties"`
	Threshold  int    `mapstructure:"threshold"`
	Signers    []int  `mapstructure:"signers"`
	Message    string `mapstructure:"message"`
}

func newRootCmd() *cobra.Command {
	v := viper.New()
	var configFile string

	root := &cobra.Command{
		Use:   "tsssim",
		Short: "Run threshold key generation and signing for every party in one process",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(v, configFile)
		},
		SilenceUsage: true,
	}

	defaults := tss.DefaultConfig()
	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	flags.Int("paillier-bits", defaults.PaillierBits, "paillier modulus size")
	flags.Int("ntilde-bits", defaults.NtildeBits, "auxiliary range proof modulus size")
	flags.Bool("lenient-vss", defaults.LenientVSS, "tolerate failed eddsa vss checks during key combination")
	flags.String("log-level", "info", "zerolog level")
	flags.Int("parties", 3, "number of parties")
	flags.Int("threshold", 2, "number of parties required to sign")
	flags.IntSlice("signers", nil, "signing parties (default: the first threshold parties)")
	flags.String("message", "hello", "message to sign")
	for _, name := range []string{"paillier-bits", "ntilde-bits", "lenient-vss", "log-level", "parties", "threshold", "signers", "message"} {
		// Flag and config keys differ only in separator.
		_ = v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	root.AddCommand(
		runCmd(v, "ecdsa", "secp256k1", "GG18 threshold ECDSA over secp256k1"),
		runCmd(v, "eddsa", "ed25519", "threshold EdDSA over ed25519"),
	)
	return root
}

func loadConfig(v *viper.Viper, configFile string) error {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if configFile == "" {
		return nil
	}
	v.SetConfigFile(configFile)
	return errors.Wrapf(v.ReadInConfig(), "read config %s", configFile)
}

func runCmd(v *viper.Viper, use, curve, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var s settings
			if err := v.Unmarshal(&s); err != nil {
				return errors.Wrap(err, "decode settings")
			}
			s.Curve = curve

			level, err := zerolog.ParseLevel(s.LogLevel)
			if err != nil {
				return errors.Wrapf(tss.ErrInvalidConfig, "log level %q", s.LogLevel)
			}
			logger := zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).
				Level(level).With().Timestamp().Logger()

			simulator, err := sim.New(s.Config, logger)
			if err != nil {
				return err
			}
			logger.Info().Int("parties", s.Parties).Int("threshold", s.Threshold).Str("curve", curve).Msg("starting")
			result, err := simulator.Run(cmd.Context(), s.Parties, s.Threshold, s.Signers, []byte(s.Message))
			if err != nil {
				logger.Error().Err(err).Int("blame", tss.PartyOf(err)).Msg("simulation failed")
				return err
			}

			out, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(append(out, '\n'))
			return err
		},
	}
}
