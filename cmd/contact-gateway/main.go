package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"contact-gateway/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	loader := config.NewLoader()
	var configFile string

	cmd := &cobra.Command{
		Use:           "contact-gateway",
		Short:         "Contact form submission gateway (rate limit, reCAPTCHA, SMTP relay)",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if configFile == "" {
				configFile = os.Getenv("CONFIG_FILE")
			}
			cfg, err := loader.Load(configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), loader, cfg)
		},
	}
	cmd.Flags().StringVar(&configFile, "config", "", "optional config file (yaml/json/toml)")
	if err := loader.BindFlags(cmd.Flags()); err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("flag setup failed")
	}
	return cmd
}
