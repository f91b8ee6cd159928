// server/config.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config collects the server's tunables; values come from the
// environment (optionally via a .env file), with flags in main able to
// override the ports.
type Config struct {
	Port     int `env:"TMG_PORT" envDefault:"8001"`
	HTTPPort int `env:"TMG_HTTP_PORT" envDefault:"8002"`

	TickInterval   time.Duration `env:"TMG_TICK_INTERVAL" envDefault:"2s"`
	NavMinInterval time.Duration `env:"TMG_NAV_MIN_INTERVAL" envDefault:"100ms"`

	RecorderCapacity int `env:"TMG_RECORDER_CAPACITY" envDefault:"1000"`

	// Sessions with no connected clients for this long are torn down.
	SessionIdleLimit time.Duration `env:"TMG_SESSION_IDLE_LIMIT" envDefault:"4h"`
}

func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return env.ParseAs[Config]()
}
