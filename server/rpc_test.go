// server/rpc_test.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"errors"
	"net"
	"net/rpc"
	"testing"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/sim"
	"github.com/SortaSovereign/Tactical-Maneuvering-Game/util"
)

// dialTestServer serves one RPC connection over the full wire stack
// (flate compression, msgpack with json struct tags) and returns a
// client speaking the matching client-side codecs.
func dialTestServer(t *testing.T) *rpc.Client {
	t.Helper()

	sm := makeTestManager(t)
	rpcServer := rpc.NewServer()
	if err := rpcServer.RegisterName("Session", &dispatcher{sm: sm}); err != nil {
		t.Fatalf("RegisterName: %v", err)
	}

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen: %v", err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		cc, err := util.MakeCompressedConn(conn)
		if err != nil {
			conn.Close()
			return
		}
		rpcServer.ServeCodec(util.MakeLoggingServerCodec(conn.RemoteAddr().String(),
			util.MakeMessagepackServerCodec(cc, nil), nil))
	}()

	conn, err := net.Dial("tcp", listener.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	cc, err := util.MakeCompressedConn(conn)
	if err != nil {
		t.Fatalf("MakeCompressedConn: %v", err)
	}
	client := rpc.NewClientWithCodec(util.MakeLoggingClientCodec(listener.Addr().String(),
		util.MakeMessagepackClientCodec(cc), nil))
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRPCRoundTrip(t *testing.T) {
	client := dialTestServer(t)

	var created CreateSessionResult
	if err := client.Call(CreateSessionRPC, &CreateSessionArgs{Name: "wire check", RangeYds: 40000}, &created); err != nil {
		t.Fatalf("%s: %v", CreateSessionRPC, err)
	}
	if created.SessionID == "" || created.OwnerToken == "" {
		t.Fatalf("create returned %+v", created)
	}

	var joined JoinResult
	if err := client.Call(JoinRPC, &JoinArgs{SessionID: created.SessionID, Callsign: "ALPHA"}, &joined); err != nil {
		t.Fatalf("%s: %v", JoinRPC, err)
	}
	if joined.ConnectionToken == "" || joined.TrackID == "" {
		t.Fatalf("join returned %+v", joined)
	}
	if joined.Snapshot.Session.ID != created.SessionID {
		t.Errorf("joined session %q, want %q", joined.Snapshot.Session.ID, created.SessionID)
	}

	claim := &ClaimOwnerArgs{
		ConnectionToken: joined.ConnectionToken,
		SessionID:       created.SessionID,
		OwnerToken:      created.OwnerToken,
	}
	if err := client.Call(ClaimOwnerRPC, claim, &struct{}{}); err != nil {
		t.Fatalf("%s: %v", ClaimOwnerRPC, err)
	}

	var update StateUpdate
	if err := client.Call(GetStateUpdateRPC, joined.ConnectionToken, &update); err != nil {
		t.Fatalf("%s: %v", GetStateUpdateRPC, err)
	}
	if update.Snapshot.Session.OwnerID != joined.TrackID {
		t.Errorf("owner after claim: got %v, want %v", update.Snapshot.Session.OwnerID, joined.TrackID)
	}
	if len(update.Snapshot.Tracks) != 1 || update.Snapshot.Tracks[0].Callsign != "ALPHA" {
		t.Errorf("tracks over the wire: %+v", update.Snapshot.Tracks)
	}
}

// Errors cross net/rpc as strings; the client side must be able to tell
// a server-reported error apart from a transport failure and map it back
// to the sentinel.
func TestRPCErrorRoundTrip(t *testing.T) {
	client := dialTestServer(t)

	var joined JoinResult
	err := client.Call(JoinRPC, &JoinArgs{SessionID: "NOSUCH", Callsign: "ALPHA"}, &joined)
	if err == nil {
		t.Fatalf("join of unknown session succeeded")
	}
	if !util.IsRPCServerError(err) {
		t.Errorf("IsRPCServerError(%v) = false", err)
	}
	if decoded := TryDecodeError(err); !errors.Is(decoded, sim.ErrSessionNotFound) {
		t.Errorf("TryDecodeError(%v) = %v, want ErrSessionNotFound", err, decoded)
	}
}
