//
// Tencent is pleased to support the open source community by making trpc-pagescript-go available.
//
// Copyright (C) 2025 Tencent.  All rights reserved.
//
// trpc-pagescript-go is licensed under the Apache License Version 2.0.
//
//

// Package bridge exposes the PageScript pipeline over HTTP so that editors
// written in other languages can host scripts. The caller sends its editor
// state; the server runs the script against an in-memory copy and returns the
// edited text together with the notices the user should see.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"trpc.group/trpc-go/trpc-pagescript-go/capability"
	"trpc.group/trpc-go/trpc-pagescript-go/codeexecutor/javascript"
	"trpc.group/trpc-go/trpc-pagescript-go/config"
	"trpc.group/trpc-go/trpc-pagescript-go/document"
	"trpc.group/trpc-go/trpc-pagescript-go/document/buffer"
	"trpc.group/trpc-go/trpc-pagescript-go/log"
	"trpc.group/trpc-go/trpc-pagescript-go/picker"
	"trpc.group/trpc-go/trpc-pagescript-go/router"
	"trpc.group/trpc-go/trpc-pagescript-go/runner"
)

// Server serves the bridge endpoints.
type Server struct {
	store  document.Store
	router *mux.Router
	exec   *javascript.CodeExecutor

	folder  string
	fuzzy   bool
	origins []string
	clock   func() time.Time

	// mu admits one invocation at a time across all requests.
	mu sync.Mutex
}

// Option configures the Server.
type Option func(*Server)

// WithScriptsFolder sets the folder listed by /v1/scripts.
func WithScriptsFolder(folder string) Option {
	return func(s *Server) { s.folder = config.NormalizeFolder(folder) }
}

// WithFuzzy enables fuzzy ranking in /v1/scripts.
func WithFuzzy(enabled bool) Option {
	return func(s *Server) { s.fuzzy = enabled }
}

// WithAllowedOrigins restricts CORS. All origins are allowed by default.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithClock overrides the time used to name new files.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.clock = now }
}

// New creates a Server over store.
func New(store document.Store, opts ...Option) (*Server, error) {
	s := &Server{
		store:   store,
		router:  mux.NewRouter(),
		folder:  config.DefaultScriptsFolder,
		origins: []string{"*"},
		clock:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	exec, err := javascript.New()
	if err != nil {
		return nil, err
	}
	s.exec = exec

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{"Content-Length", "Content-Type"},
	})
	s.router.Use(c.Handler)
	s.registerRoutes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Close releases the script engine.
func (s *Server) Close() {
	s.exec.Close()
}

func (s *Server) registerRoutes() {
	s.router.HandleFunc("/v1/run", s.handleRun).Methods(http.MethodPost)
	s.router.HandleFunc("/v1/scripts", s.handleScripts).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/folders", s.handleFolders).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/commands", s.handleCommands).Methods(http.MethodGet)

	preflight := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
	s.router.HandleFunc("/v1/run", preflight).Methods(http.MethodOptions)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	scriptPath, err := document.CleanPath(req.Script)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	inv := req.Mode
	if inv == "" {
		inv = router.InvocationInsert
	}
	if inv != router.InvocationInsert && inv != router.InvocationNewFile {
		http.Error(w, "unknown mode "+string(inv), http.StatusBadRequest)
		return
	}

	if !s.mu.TryLock() {
		http.Error(w, runner.ErrBusy.Error(), http.StatusConflict)
		return
	}
	defer s.mu.Unlock()

	resp, err := s.run(r.Context(), document.New(scriptPath), inv, req)
	if err != nil {
		log.Errorf("bridge run %s: %v", scriptPath, err)
		http.Error(w, err.Error(), statusOf(err))
		return
	}
	s.writeJSON(w, resp)
}

func (s *Server) run(ctx context.Context, script document.Document, inv router.InvocationMode, req RunRequest) (RunResponse, error) {
	notices := &capability.Recorder{}
	ws := document.StaticWorkspace{}
	var ed *buffer.Buffer
	if req.Editor != nil {
		ed = req.Editor.buffer()
		ws.Editor = ed
		if req.Editor.Path != "" {
			doc := document.New(req.Editor.Path)
			ws.Document = &doc
		}
	}
	rn, err := runner.NewRunner(s.store,
		runner.WithExecutor(s.exec),
		runner.WithWorkspace(ws),
		runner.WithNotifier(notices),
		runner.WithPrompter(answers(req.Answers)),
		runner.WithScriptsFolder(s.folder),
		runner.WithClock(s.clock),
	)
	if err != nil {
		return RunResponse{}, err
	}
	defer rn.Close()

	res, err := rn.Run(ctx, script, inv)
	if err != nil {
		return RunResponse{}, err
	}
	resp := RunResponse{
		InvocationID: res.InvocationID,
		Outcome:      res.Outcome,
		Output:       res.Execution.Text,
		DeclaredMode: res.Execution.DeclaredMode,
		Blocks:       res.Execution.Blocks,
		Notices:      notices.Notices(),
	}
	if ed != nil {
		resp.Editor = snapshot(ed, req.Editor.Path)
	}
	return resp, nil
}

// answers serves prompts from a fixed table; unknown prompts are canceled.
func answers(table map[string]string) capability.Prompter {
	return capability.PrompterFunc(func(_ context.Context, text, _ string, _ bool) (string, bool, error) {
		v, ok := table[text]
		return v, ok, nil
	})
}

func (s *Server) handleScripts(w http.ResponseWriter, r *http.Request) {
	p := picker.New(s.store,
		picker.WithFolder(s.folder),
		picker.WithFuzzy(s.fuzzy),
		picker.WithTitles(true),
	)
	scripts, err := p.Suggestions(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if scripts == nil {
		scripts = []picker.Script{}
	}
	s.writeJSON(w, ScriptsResponse{Folder: s.folder, Placeholder: picker.Placeholder, Scripts: scripts})
}

func (s *Server) handleFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := picker.SuggestFolders(r.Context(), s.store, r.URL.Query().Get("q"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if folders == nil {
		folders = []string{}
	}
	s.writeJSON(w, folders)
}

func (s *Server) handleCommands(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, runner.Commands)
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorf("bridge: encode response: %v", err)
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, document.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, document.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, document.ErrExists), errors.Is(err, runner.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}
