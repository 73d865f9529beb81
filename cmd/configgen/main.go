package main

import (
	"flag"

	"github.com/danmuck/mpdctl/internal/config"
	"github.com/danmuck/mpdctl/internal/logging"
	"github.com/rs/zerolog/log"
)

func main() {
	logging.ConfigureRuntime()

	kind := flag.String("kind", "client", "config kind: client")
	output := flag.String("output", "", "output path for config template")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "", "config path for validation (defaults to per-kind cmd path)")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if _, err := config.Template(*kind); err != nil {
		log.Fatal().Err(err).Msg("configgen")
	}

	if *validate {
		path := *input
		if path == "" {
			path = "cmd/mpdctl/config.toml"
		}
		if _, err := config.LoadClientConfig(path); err != nil {
			log.Fatal().Err(err).Msg("configgen validation failed")
		}
		log.Info().Str("kind", *kind).Str("path", path).Msg("validated config")
		return
	}

	target := *output
	if target == "" {
		target = "cmd/mpdctl/config.toml"
	}
	if err := config.WriteTemplate(target, *kind, *force); err != nil {
		log.Fatal().Err(err).Msg("configgen")
	}
	log.Info().Str("kind", *kind).Str("path", target).Msg("wrote config template")
}
