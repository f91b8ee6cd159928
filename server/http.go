// server/http.go
// Copyright(c) 2025 Tactical Maneuvering Game contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/pprof"
	"runtime"
	"strconv"
	"text/template"
	"time"

	"github.com/SortaSovereign/Tactical-Maneuvering-Game/util"

	"github.com/gorilla/mux"
)

///////////////////////////////////////////////////////////////////////////
// Status / statistics / recording export via HTTP...

func (sm *SessionManager) launchHTTPServer() error {
	r := mux.NewRouter()

	r.HandleFunc("/sup", func(w http.ResponseWriter, req *http.Request) {
		sm.statsHandler(w, req)
		sm.lg.Infof("%s: served stats request", req.URL.String())
	})
	r.HandleFunc("/sessions/{id}/recording.csv", sm.recordingHandler)

	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)

	var listener net.Listener
	var err error
	for i := range 10 {
		port := sm.config.HTTPPort + i
		if listener, err = net.Listen("tcp", ":"+strconv.Itoa(port)); err == nil {
			fmt.Printf("Launching HTTP server on port %d\n", port)
			break
		}
	}
	if err != nil {
		sm.lg.Warnf("Unable to start HTTP server: %v", err)
		return err
	}

	return http.Serve(listener, r)
}

func (sm *SessionManager) recordingHandler(w http.ResponseWriter, req *http.Request) {
	id := mux.Vars(req)["id"]
	s := sm.LookupSession(id)
	if s == nil {
		http.Error(w, "no such session", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="recording-`+id+`.csv"`)
	if err := s.ExportRecording(w); err != nil {
		sm.lg.Errorf("%s: error exporting recording: %v", id, err)
	}
}

type sessionStatus struct {
	ID          string
	Name        string
	Connections int
	Tracks      int
	Started     bool
	Paused      bool
	IdleTime    time.Duration
}

func (ss sessionStatus) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("id", ss.ID),
		slog.String("name", ss.Name),
		slog.Int("connections", ss.Connections),
		slog.Int("tracks", ss.Tracks),
		slog.Bool("started", ss.Started),
		slog.Bool("paused", ss.Paused),
		slog.Duration("idle", ss.IdleTime))
}

func (sm *SessionManager) getSessionStatus() []sessionStatus {
	sm.mu.Lock(sm.lg)
	defer sm.mu.Unlock(sm.lg)

	var status []sessionStatus
	for id, ss := range util.SortedMap(sm.sessions) {
		snap := ss.sim.GetSnapshot()
		var idle time.Duration
		if !ss.emptySince.IsZero() {
			idle = time.Since(ss.emptySince).Round(time.Second)
		}
		status = append(status, sessionStatus{
			ID:          id,
			Name:        snap.Session.Name,
			Connections: len(ss.connections),
			Tracks:      len(snap.Tracks),
			Started:     snap.Session.Started,
			Paused:      snap.Session.Paused,
			IdleTime:    idle,
		})
	}
	return status
}

type serverStats struct {
	Uptime           time.Duration
	AllocMemory      uint64
	TotalAllocMemory uint64
	SysMemory        uint64
	RX, TX           int64
	NumGC            uint32
	NumGoRoutines    int
	CPUUsage         int

	Sessions []sessionStatus
}

var templateFuncs = template.FuncMap{"bytes": func(v int64) string { return util.ByteCount(v).String() }}

var statsTemplate = template.Must(template.New("").Funcs(templateFuncs).Parse(`
<!DOCTYPE html>
<html>
<head>
<title>tmg server</title>
</head>
<style>
table {
  border-collapse: collapse;
  width: 100%;
}

th, td {
  border: 1px solid #dddddd;
  padding: 8px;
  text-align: left;
}

tr:nth-child(even) {
  background-color: #f2f2f2;
}
</style>
<body>
<h1>Server Status</h1>
<ul>
  <li>Uptime: {{.Uptime}}</li>
  <li>CPU usage: {{.CPUUsage}}%</li>
  <li>Bandwidth: {{bytes .RX}} RX, {{bytes .TX}} TX</li>
  <li>Allocated memory: {{.AllocMemory}} MB</li>
  <li>Total allocated memory: {{.TotalAllocMemory}} MB</li>
  <li>System memory: {{.SysMemory}} MB</li>
  <li>Garbage collection passes: {{.NumGC}}</li>
  <li>Running goroutines: {{.NumGoRoutines}}</li>
</ul>

<h1>Exercises</h1>
<table>
  <tr>
  <th>Code</th>
  <th>Name</th>
  <th>Connections</th>
  <th>Tracks</th>
  <th>Started</th>
  <th>Paused</th>
  <th>Idle Time</th>

{{range .Sessions}}
  </tr>
  <td><tt>{{.ID}}</tt></td>
  <td>{{.Name}}</td>
  <td>{{.Connections}}</td>
  <td>{{.Tracks}}</td>
  <td>{{.Started}}</td>
  <td>{{.Paused}}</td>
  <td>{{.IdleTime}}</td>
</tr>
{{end}}
</table>

</body>
</html>
`))

func (sm *SessionManager) statsHandler(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := serverStats{
		Uptime:           time.Since(sm.startTime).Round(time.Second),
		AllocMemory:      m.Alloc / (1024 * 1024),
		TotalAllocMemory: m.TotalAlloc / (1024 * 1024),
		SysMemory:        m.Sys / (1024 * 1024),
		NumGC:            m.NumGC,
		NumGoRoutines:    runtime.NumGoroutine(),
		CPUUsage:         util.CPUUsagePercent(),

		Sessions: sm.getSessionStatus(),
	}

	stats.RX, stats.TX = util.GetLoggedRPCBandwidth()

	statsTemplate.Execute(w, stats)
}
