package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	sse "github.com/alexandrevicenzi/go-sse"
	"github.com/gorilla/mux"
	"github.com/mastercactapus/lasersend/gcode"
	"github.com/mastercactapus/lasersend/notify"
	"github.com/mastercactapus/lasersend/preview"
	"github.com/mastercactapus/lasersend/stream"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const linesChannel = "/events/lines"

type api struct {
	http.Handler
	app     *app
	dataDir string
	sse     *sse.Server
	ctx     context.Context

	mx     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newAPI(ctx context.Context, a *app, dir string) *api {
	r := mux.NewRouter()

	srv := &api{
		Handler: r,
		app:     a,
		dataDir: dir,
		ctx:     ctx,
		sse: sse.NewServer(&sse.Options{
			Logger: log.New(io.Discard, "", 0),
		}),
	}

	r.HandleFunc("/api/send", srv.send).Methods("POST")
	r.HandleFunc("/api/cancel", srv.cancelSend).Methods("POST")
	r.HandleFunc("/api/preview", srv.preview).Methods("GET", "POST")
	r.HandleFunc("/api/jobs", srv.jobs).Methods("GET")
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/events/").Handler(srv.sse)

	return srv
}

func (srv *api) Close() {
	srv.mx.Lock()
	if srv.cancel != nil {
		srv.cancel()
	}
	srv.mx.Unlock()
	srv.wg.Wait()
	srv.sse.Shutdown()
}

func safePath(base, name string) (bool, string) {
	if filepath.Separator != '/' && strings.ContainsRune(name, filepath.Separator) {
		log.Println("invalid path '" + name + "'")
		return false, ""
	}
	dir := string(base)
	if dir == "" {
		dir = "."
	}
	fullName := filepath.Join(dir, filepath.FromSlash(path.Clean("/"+name)))
	return true, fullName
}

// program reads the program named by the file parameter, or the request body.
func (srv *api) program(req *http.Request) (string, gcode.Program, error) {
	name := req.URL.Query().Get("file")
	if name == "" {
		p, err := gcode.Load(req.Body)
		return "", p, err
	}
	ok, full := safePath(srv.dataDir, name)
	if !ok {
		return "", nil, gcode.ErrFileNotFound
	}
	p, err := gcode.LoadFile(full)
	return full, p, err
}

func programError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, gcode.ErrFileNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, gcode.ErrMalformedCommand):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		log.Println("ERROR: read program:", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println("ERROR: encode:", err)
	}
}

func parseWindow(req *http.Request) (stream.Window, error) {
	var w stream.Window
	var err error
	parse := func(param string) int {
		s := req.URL.Query().Get(param)
		if err != nil || s == "" {
			return 0
		}
		var v int
		v, err = strconv.Atoi(s)
		return v
	}
	w.Start = parse("start")
	w.End = parse("end")
	return w, err
}

type sendResponse struct {
	Session string `json:"session"`
	Start   int    `json:"start"`
	Lines   int    `json:"lines"`
}

func (srv *api) send(w http.ResponseWriter, req *http.Request) {
	file, p, err := srv.program(req)
	if err != nil {
		programError(w, err)
		return
	}
	win, err := parseWindow(req)
	if err == nil {
		err = win.Check(len(p))
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	srv.mx.Lock()
	defer srv.mx.Unlock()
	if srv.cancel != nil {
		http.Error(w, stream.ErrBusy.Error(), http.StatusConflict)
		return
	}

	s, err := stream.Open(srv.app.open, p)
	if err != nil {
		log.Printf("ERROR: open transport: %+v", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	if file == "" {
		file = "upload-" + s.ID + ".gcode"
	}
	obs := append(srv.app.jobObservers(file, p, win), srv)
	d := srv.app.dispatcher(obs...)

	ctx, cancel := context.WithCancel(srv.ctx)
	srv.cancel = cancel
	srv.wg.Add(1)
	go func() {
		defer srv.wg.Done()
		defer cancel()
		d.Run(ctx, s, win)
		s.Close()

		srv.mx.Lock()
		srv.cancel = nil
		srv.mx.Unlock()
	}()

	lines := len(p) - win.Start
	if win.End > 0 {
		lines = win.End - win.Start
	}
	writeJSON(w, http.StatusAccepted, sendResponse{Session: s.ID, Start: win.Start, Lines: lines})
}

func (srv *api) cancelSend(w http.ResponseWriter, req *http.Request) {
	srv.mx.Lock()
	cancel := srv.cancel
	srv.mx.Unlock()
	if cancel == nil {
		http.Error(w, "no dispatch running", http.StatusConflict)
		return
	}
	cancel()
	w.WriteHeader(http.StatusNoContent)
}

type previewResponse struct {
	Summary  preview.Summary   `json:"summary"`
	Segments []preview.Segment `json:"segments"`
	Lint     []string          `json:"lint,omitempty"`
}

func (srv *api) preview(w http.ResponseWriter, req *http.Request) {
	_, p, err := srv.program(req)
	if err != nil {
		programError(w, err)
		return
	}
	path, sum, err := srv.app.preview(p)
	if err != nil {
		programError(w, err)
		return
	}
	res := previewResponse{Summary: sum, Segments: path.Segments()}
	for _, issue := range gcode.Lint(p) {
		res.Lint = append(res.Lint, issue.String())
	}
	writeJSON(w, http.StatusOK, res)
}

func (srv *api) jobs(w http.ResponseWriter, req *http.Request) {
	if srv.app.hist == nil {
		http.Error(w, "job history disabled", http.StatusServiceUnavailable)
		return
	}
	jobs, err := srv.app.hist.Recent(50)
	if err != nil {
		log.Println("ERROR: list jobs:", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, jobs)
}

func (srv *api) event(name string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("ERROR: marshal json: %+v", err)
		return
	}
	srv.sse.SendMessage(linesChannel, sse.NewMessage("", string(data), name))
}

func (srv *api) LineSent(e stream.LineEvent) { srv.event("line", notify.NewLineMessage(e)) }

func (srv *api) Finished(id string, r stream.Result) {
	srv.event("result", notify.NewResultMessage(id, r))
}
