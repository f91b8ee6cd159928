// server/server.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"fmt"
	"net"
	"net/rpc"
	"strconv"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/log"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/util"

	"golang.org/x/sync/errgroup"
)

// LaunchServer runs the RPC service, the HTTP side surface, and the
// scheduler loop; it only returns on a fatal error.
func LaunchServer(config Config, lg *log.Logger) error {
	sm := NewSessionManager(config, lg)

	listener, err := net.Listen("tcp", ":"+strconv.Itoa(config.Port))
	if err != nil {
		return fmt.Errorf("unable to listen on port %d: %w", config.Port, err)
	}
	fmt.Printf("Listening on %s\n", listener.Addr())

	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Session", &dispatcher{sm: sm}); err != nil {
		return err
	}

	var g errgroup.Group
	g.Go(func() error {
		defer lg.CatchAndReportCrash()
		sm.RunUpdateLoop()
		return nil
	})
	g.Go(func() error {
		defer lg.CatchAndReportCrash()
		for {
			conn, err := listener.Accept()
			if err != nil {
				lg.Errorf("accept error: %v", err)
				return err
			}
			lg.Infof("%s: new connection", conn.RemoteAddr())

			go func() {
				defer lg.CatchAndReportCrash()

				cc, err := util.MakeCompressedConn(util.MakeLoggingConn(conn, lg))
				if err != nil {
					lg.Errorf("%s: unable to make compressed conn: %v", conn.RemoteAddr(), err)
					conn.Close()
					return
				}

				codec := util.MakeLoggingServerCodec(conn.RemoteAddr().String(),
					util.MakeMessagepackServerCodec(cc, lg), lg)
				rpcServer.ServeCodec(codec)
			}()
		}
	})
	g.Go(func() error {
		defer lg.CatchAndReportCrash()
		return sm.launchHTTPServer()
	})

	return g.Wait()
}
