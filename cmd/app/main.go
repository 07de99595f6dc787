package main

import (
	"os"

	"github.com/rs/zerolog"

	"seckill/internal/config"
	"seckill/internal/server"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		log = log.Level(lvl)
	}

	cfg := config.NewConfig()

	app, err := server.NewServer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create server")
	}
	defer app.Close()

	if err := app.Run(); err != nil {
		log.Fatal().Err(err).Msg("server exited with error")
	}
}
