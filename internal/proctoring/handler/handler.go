// Package handler exposes proctoring sessions, attempt review and the
// certificate gate over HTTP.
package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/mssola/useragent"

	"proctor/internal/proctoring/certificate"
	"proctor/internal/proctoring/models"
	"proctor/internal/proctoring/session"
	id "proctor/pkg/domain"
	dErrors "proctor/pkg/domain-errors"
	"proctor/pkg/platform/httputil"
	authmw "proctor/pkg/platform/middleware/auth"
	"proctor/pkg/platform/sentinel"
	"proctor/pkg/requestcontext"
)

const RoleAdmin = "admin"

// SessionService is implemented by session.Manager.
type SessionService interface {
	Start(ctx context.Context, req session.StartRequest) (*models.SessionStatus, error)
	Stop(ctx context.Context, sessionID id.SessionID) (*models.AttemptRecord, bool, error)
	Status(sessionID id.SessionID) (*models.SessionStatus, bool)
	ProcessFrame(ctx context.Context, sessionID id.SessionID, frame models.Frame) (*models.FrameResult, error)
	ProcessAudio(ctx context.Context, sessionID id.SessionID, chunk models.AudioChunk) (*models.AudioResult, error)
	InjectSignal(ctx context.Context, sessionID id.SessionID, signalType models.SignalType, at time.Time, metadata map[string]any) (*models.EventResult, error)
	PushFrame(sessionID id.SessionID, frame models.Frame) error
	PushAudio(sessionID id.SessionID, chunk models.AudioChunk) error
}

// CertificateService is implemented by certificate.Service.
type CertificateService interface {
	Evaluate(ctx context.Context, testSessionID id.TestSessionID, testScore float64) (*certificate.Decision, error)
	Attempt(ctx context.Context, testSessionID id.TestSessionID) (*certificate.Review, error)
	RecordOverride(ctx context.Context, testSessionID id.TestSessionID, score float64, reason string) (*models.AdminOverride, error)
}

// StatusCache answers status queries for sessions owned by other replicas.
type StatusCache interface {
	Get(ctx context.Context, sessionID id.SessionID) (*models.SessionStatus, error)
}

type Handler struct {
	sessions     SessionService
	certificates CertificateService
	cache        StatusCache
	logger       *slog.Logger
	upgrader     websocket.Upgrader
	statusEvery  time.Duration
}

type Option func(*Handler)

func WithStatusCache(c StatusCache) Option {
	return func(h *Handler) { h.cache = c }
}

// WithAllowedOrigins restricts WebSocket upgrades to the given origins. An
// empty list accepts any origin.
func WithAllowedOrigins(origins []string) Option {
	return func(h *Handler) {
		if len(origins) == 0 {
			h.upgrader.CheckOrigin = func(*http.Request) bool { return true }
			return
		}
		allowed := make(map[string]bool, len(origins))
		for _, o := range origins {
			allowed[o] = true
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			return allowed[r.Header.Get("Origin")]
		}
	}
}

// WithStatusInterval sets how often the stream endpoint pushes a snapshot.
func WithStatusInterval(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.statusEvery = d
		}
	}
}

func New(sessions SessionService, certificates CertificateService, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{
		sessions:     sessions,
		certificates: certificates,
		logger:       logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 << 10,
			WriteBufferSize: 16 << 10,
		},
		statusEvery: time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts proctoring endpoints on the router. The router must
// already authenticate callers.
func (h *Handler) Register(r chi.Router) {
	r.Route("/proctoring/sessions", func(r chi.Router) {
		r.Post("/", h.HandleStart)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", h.HandleStatus)
			r.Delete("/", h.HandleStop)
			r.Post("/frames", h.HandleFrame)
			r.Post("/audio", h.HandleAudio)
			r.Post("/events", h.HandleEvent)
			r.Get("/stream", h.HandleStream)
		})
	})
	r.Route("/proctoring/attempts/{testSessionID}", func(r chi.Router) {
		r.Get("/", h.HandleAttempt)
		r.Post("/certificate", h.HandleCertificate)
		r.With(authmw.RequireRole(RoleAdmin, h.logger)).Put("/override", h.HandleOverride)
	})
}

// HandleStart handles POST /proctoring/sessions.
func (h *Handler) HandleStart(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[StartSessionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	st, err := h.sessions.Start(ctx, session.StartRequest{
		SessionID:     req.sessionID,
		UserID:        req.userID,
		TestSessionID: req.testSessionID,
		ConfigJSON:    req.Config,
		Client:        clientInfo(ctx, req),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "failed to start proctoring session",
			"request_id", requestID,
			"test_session_id", req.testSessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, st)
}

// HandleStatus handles GET /proctoring/sessions/{sessionID}. Sessions owned
// by another replica are answered from the status cache.
func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	if st, live := h.sessions.Status(sessionID); live {
		httputil.WriteJSON(w, http.StatusOK, st)
		return
	}
	if h.cache != nil {
		st, err := h.cache.Get(ctx, sessionID)
		if err == nil {
			httputil.WriteJSON(w, http.StatusOK, st)
			return
		}
		if !errors.Is(err, sentinel.ErrNotFound) {
			h.logger.WarnContext(ctx, "status cache lookup failed",
				"request_id", requestcontext.RequestID(ctx),
				"session_id", sessionID,
				"error", err,
			)
		}
	}
	httputil.WriteError(w, models.SessionNotFound(sessionID))
}

// HandleStop handles DELETE /proctoring/sessions/{sessionID}.
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}

	record, stopped, err := h.sessions.Stop(ctx, sessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to stop proctoring session",
			"request_id", requestcontext.RequestID(ctx),
			"session_id", sessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	if !stopped {
		httputil.WriteError(w, models.SessionNotFound(sessionID))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, record)
}

// HandleFrame handles POST /proctoring/sessions/{sessionID}/frames.
func (h *Handler) HandleFrame(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[FrameRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	res, err := h.sessions.ProcessFrame(ctx, sessionID, req.Frame())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleAudio handles POST /proctoring/sessions/{sessionID}/audio.
func (h *Handler) HandleAudio(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AudioRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	res, err := h.sessions.ProcessAudio(ctx, sessionID, req.Chunk())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleEvent handles POST /proctoring/sessions/{sessionID}/events.
func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[EventRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	res, err := h.sessions.InjectSignal(ctx, sessionID, req.signalType, req.Timestamp, req.Metadata)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleAttempt handles GET /proctoring/attempts/{testSessionID}.
func (h *Handler) HandleAttempt(w http.ResponseWriter, r *http.Request) {
	testSessionID, ok := h.testSessionID(w, r)
	if !ok {
		return
	}
	review, err := h.certificates.Attempt(r.Context(), testSessionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, review)
}

// HandleCertificate handles POST /proctoring/attempts/{testSessionID}/certificate.
func (h *Handler) HandleCertificate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	testSessionID, ok := h.testSessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CertificateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decision, err := h.certificates.Evaluate(ctx, testSessionID, *req.TestScore)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate evaluation failed",
			"request_id", requestID,
			"test_session_id", testSessionID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}

// HandleOverride handles PUT /proctoring/attempts/{testSessionID}/override.
func (h *Handler) HandleOverride(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	testSessionID, ok := h.testSessionID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[OverrideRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	override, err := h.certificates.RecordOverride(ctx, testSessionID, *req.Score, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, override)
}

func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) (id.SessionID, bool) {
	sessionID, err := id.ParseSessionID(chi.URLParam(r, "sessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid session_id"))
		return id.SessionID{}, false
	}
	return sessionID, true
}

func (h *Handler) testSessionID(w http.ResponseWriter, r *http.Request) (id.TestSessionID, bool) {
	testSessionID, err := id.ParseTestSessionID(chi.URLParam(r, "testSessionID"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid test_session_id"))
		return id.TestSessionID{}, false
	}
	return testSessionID, true
}

// clientInfo describes the candidate's browser from the forwarded user agent,
// falling back to the caller's own request metadata.
func clientInfo(ctx context.Context, req *StartSessionRequest) models.ClientInfo {
	raw := req.ClientUserAgent
	if raw == "" {
		raw = requestcontext.UserAgent(ctx)
	}
	ip := req.ClientIP
	if ip == "" {
		ip = requestcontext.ClientIP(ctx)
	}
	info := models.ClientInfo{IP: ip}
	if raw == "" {
		return info
	}
	ua := useragent.New(raw)
	info.Browser, info.BrowserVersion = ua.Browser()
	info.OS = ua.OS()
	info.Platform = ua.Platform()
	info.Mobile = ua.Mobile()
	info.Bot = ua.Bot()
	return info
}
