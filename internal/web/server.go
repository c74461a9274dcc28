// Package web serves the summariser to a browser: JSON routes for each user
// action and a websocket that pushes session snapshots.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strconv"

	"sc2summariser/internal/history"
	"sc2summariser/internal/replay"
	"sc2summariser/internal/session"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

//go:embed static/*
var static embed.FS

// Room for the multipart envelope around the largest accepted replay
const formOverhead = 64 << 10

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Local tool; pages are served from the same origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HistoryLister lists the results analysed this session
type HistoryLister interface {
	List(ctx context.Context) ([]history.Entry, error)
}

// Server routes browser requests to one session
type Server struct {
	session *session.Orchestrator
	history HistoryLister
	hub     *Hub
	rules   replay.Rules
	ctx     context.Context
	logger  *zap.Logger
}

// response is the body of every action route
type response struct {
	State session.Snapshot `json:"state"`
	Text  string           `json:"text,omitempty"`
	Error string           `json:"error,omitempty"`
}

// NewServer creates a Server. ctx bounds websocket connections.
func NewServer(ctx context.Context, orch *session.Orchestrator, hist HistoryLister, hub *Hub, rules replay.Rules, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		session: orch,
		history: hist,
		hub:     hub,
		rules:   rules,
		ctx:     ctx,
		logger:  logger,
	}
}

// Handler returns the route table
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	page, _ := fs.Sub(static, "static")
	mux.Handle("GET /", http.FileServer(http.FS(page)))

	mux.HandleFunc("GET /api/state", s.handleState)
	mux.HandleFunc("POST /api/file", s.handleFile)
	mux.HandleFunc("POST /api/upload", s.handleUpload)
	mux.HandleFunc("POST /api/player", s.handlePlayer)
	mux.HandleFunc("POST /api/copy/{target}", s.handleCopy)
	mux.HandleFunc("POST /api/reset", s.handleReset)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("POST /api/history/{id}", s.handleOpenHistory)
	mux.HandleFunc("POST /api/coach", s.handleCoach)
	mux.HandleFunc("POST /api/share", s.handleShare)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	return mux
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, response{State: s.session.Snapshot()})
}

func (s *Server) handleFile(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.rules.MaxSize+formOverhead)

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			// Too big to buffer, so let the validator reject it by size alone.
			s.chooseFile(w, session.File{Name: "", Size: tooBig.Limit + 1})
			return
		}
		s.logger.Debug("bad file form", zap.Error(err))
		s.fail(w, http.StatusBadRequest, session.MsgNoFile)
		return
	}
	defer file.Close()

	f := session.File{Name: header.Filename, Size: header.Size}
	if replay.Validate(header.Size, header.Filename, s.rules) == nil {
		content, err := io.ReadAll(file)
		if err != nil {
			s.logger.Warn("failed to read uploaded replay", zap.String("file", header.Filename), zap.Error(err))
			s.fail(w, http.StatusBadRequest, session.MsgSomethingWrong)
			return
		}
		f.Open = func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		}
	}

	s.chooseFile(w, f)
}

func (s *Server) chooseFile(w http.ResponseWriter, f session.File) {
	if err := s.session.ChooseFile(f); err != nil {
		s.reject(w, http.StatusUnprocessableEntity)
		return
	}
	s.respond(w, http.StatusOK, response{State: s.session.Snapshot()})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	err := s.session.Upload()
	switch {
	case errors.Is(err, session.ErrUploadInProgress):
		s.reject(w, http.StatusConflict)
	case err != nil:
		s.reject(w, http.StatusBadRequest)
	default:
		s.respond(w, http.StatusAccepted, response{State: s.session.Snapshot()})
	}
}

type playerRequest struct {
	PlayerID *int `json:"player_id"`
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	var req *playerRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1024)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.fail(w, http.StatusBadRequest, "Invalid player selection.")
		return
	}

	var id *int
	if req != nil {
		id = req.PlayerID
	}
	if err := s.session.SelectPlayer(id); err != nil {
		s.reject(w, http.StatusBadRequest)
		return
	}
	s.respond(w, http.StatusOK, response{State: s.session.Snapshot()})
}

// handleCopy returns the text; the page writes its own clipboard
func (s *Server) handleCopy(w http.ResponseWriter, r *http.Request) {
	var (
		text string
		err  error
	)
	switch session.CopyTarget(r.PathValue("target")) {
	case session.CopySummary:
		text, err = s.session.CopySummary()
	case session.CopyPrompt:
		text, err = s.session.CopyPrompt()
	default:
		http.NotFound(w, r)
		return
	}

	if err != nil {
		s.reject(w, http.StatusBadRequest)
		return
	}
	s.respond(w, http.StatusOK, response{State: s.session.Snapshot(), Text: text})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.session.Reset()
	s.respond(w, http.StatusOK, response{State: s.session.Snapshot()})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		s.respond(w, http.StatusOK, []history.Entry{})
		return
	}
	entries, err := s.history.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list history", zap.Error(err))
		s.fail(w, http.StatusInternalServerError, session.MsgSomethingWrong)
		return
	}
	s.respond(w, http.StatusOK, entries)
}

func (s *Server) handleOpenHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.NotFound(w, r)
		return
	}

	err = s.session.OpenHistory(r.Context(), id)
	switch {
	case errors.Is(err, history.ErrNotFound):
		http.NotFound(w, r)
	case errors.Is(err, session.ErrUploadInProgress):
		s.reject(w, http.StatusConflict)
	case err != nil:
		s.logger.Error("failed to open history", zap.Int64("id", id), zap.Error(err))
		s.fail(w, http.StatusInternalServerError, session.MsgSomethingWrong)
	default:
		s.respond(w, http.StatusOK, response{State: s.session.Snapshot()})
	}
}

func (s *Server) handleCoach(w http.ResponseWriter, r *http.Request) {
	text, err := s.session.RequestFeedback(r.Context())
	if err != nil {
		s.reject(w, assistStatus(err))
		return
	}
	s.respond(w, http.StatusOK, response{State: s.session.Snapshot(), Text: text})
}

func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Share(r.Context()); err != nil {
		s.reject(w, assistStatus(err))
		return
	}
	s.respond(w, http.StatusOK, response{State: s.session.Snapshot()})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	c := NewClient(uuid.New().String(), conn, s.hub, s.logger)
	if !s.hub.Register(c) {
		conn.Close()
		return
	}

	// Pumps outlive the request, so they use the server context.
	go c.WritePump(s.ctx)
	go c.ReadPump(s.ctx)
}

func assistStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNotConfigured):
		return http.StatusServiceUnavailable
	case errors.Is(err, session.ErrNoResult):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

// reject reports a refused action with the notice the session just raised
func (s *Server) reject(w http.ResponseWriter, status int) {
	snap := s.session.Snapshot()
	s.respond(w, status, response{State: snap, Error: snap.Notice})
}

func (s *Server) fail(w http.ResponseWriter, status int, msg string) {
	s.respond(w, status, response{State: s.session.Snapshot(), Error: msg})
}

func (s *Server) respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}
