// main.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/log"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/server"
)

var (
	logLevel = flag.String("loglevel", "info", "logging level: debug, info, warn, error")
	logDir   = flag.String("logdir", "", "directory to write log files to")
	port     = flag.Int("port", 0, "RPC service port (overrides TMG_PORT)")
	httpPort = flag.Int("httpport", 0, "HTTP status/export port (overrides TMG_HTTP_PORT)")
)

func main() {
	flag.Parse()

	lg := log.New(true, *logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	config, err := server.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		config.Port = *port
	}
	if *httpPort != 0 {
		config.HTTPPort = *httpPort
	}

	if err := server.LaunchServer(config, lg); err != nil {
		lg.Errorf("server exited: %v", err)
		os.Exit(1)
	}
}
