// Package gateway exposes the room session flow to browsers over HTTP JSON
// and WebSocket.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/academic"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/auth"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/chat"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/gate"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/logging"
	"github.com/PaulBabatuyi/cohortChat-gRPC/internal/middleware"
	v1 "github.com/PaulBabatuyi/cohortChat-gRPC/proto/chat/v1"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const maxBodyBytes = 64 << 10

// TokenVerifier checks bearer tokens.
type TokenVerifier interface {
	VerifyToken(token string) (*auth.Claims, error)
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler serves the gateway routes.
type Handler struct {
	svc      *chat.Service
	tokens   TokenVerifier
	store    Pinger
	limiter  *middleware.LimiterStore
	log      *zap.Logger
	validate *validator.Validate
	origins  map[string]bool
	upgrader websocket.Upgrader
}

// Option configures the gateway.
type Option func(*Handler)

// WithAllowedOrigins lists the browser origins (scheme://host[:port]) that may
// open the room WebSocket in addition to the gateway's own host. "*" allows
// any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Handler) {
		for _, o := range origins {
			h.origins[strings.ToLower(strings.TrimRight(o, "/"))] = true
		}
	}
}

// New returns the gateway router. limiter guards message sends; nil disables
// limiting.
func New(svc *chat.Service, tokens TokenVerifier, store Pinger, limiter *middleware.LimiterStore, log *zap.Logger, opts ...Option) http.Handler {
	h := &Handler{
		svc:      svc,
		tokens:   tokens,
		store:    store,
		limiter:  limiter,
		log:      log,
		validate: validator.New(),
		origins:  make(map[string]bool),
	}
	for _, o := range opts {
		o(h)
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     h.checkOrigin,
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(logging.HTTP(log))

	r.Get("/healthz", h.health)

	r.Route("/v1", func(r chi.Router) {
		r.Use(h.authenticate)
		r.Get("/gate", h.getGate)
		r.Post("/gate/confirm", h.confirmLevel)
		r.Group(func(r chi.Router) {
			if limiter != nil {
				r.Use(middleware.RateLimitHTTP(limiter))
			}
			r.Post("/room/messages", h.sendMessage)
		})
		r.Get("/room/ws", h.roomSocket)
	})
	return r
}

// authenticate accepts the token from the Authorization header or, for
// WebSocket upgrades, the token query parameter.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := auth.BearerToken(r.Header.Get("Authorization"))
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		if token == "" {
			writeJSONError(w, http.StatusUnauthorized, "missing token")
			return
		}
		claims, err := h.tokens.VerifyToken(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.NewContext(r.Context(), claims)))
	})
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		h.log.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) getGate(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	st, room, err := h.svc.Gate(r.Context(), uid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v1.FromStatus(st, room))
}

type confirmBody struct {
	Level int `json:"level" validate:"oneof=1 2"`
}

func (h *Handler) confirmLevel(w http.ResponseWriter, r *http.Request) {
	var body confirmBody
	if !h.decode(w, r, &body) {
		return
	}
	st, room, err := h.svc.ConfirmLevel(r.Context(), userID(r), academic.Level(body.Level))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v1.FromStatus(st, room))
}

type sendBody struct {
	Text string `json:"text" validate:"max=4000"`
}

func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	var body sendBody
	if !h.decode(w, r, &body) {
		return
	}
	msg, err := h.svc.Send(r.Context(), userID(r), body.Text)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, v1.FromMessage(msg))
}

// decode reads a JSON body into dst and validates it, answering 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var serr *chat.SendError
	switch {
	case errors.Is(err, gate.ErrProfileNotFound):
		writeJSONError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, gate.ErrInvalidLevel),
		errors.Is(err, chat.ErrEmptyMessage),
		errors.Is(err, chat.ErrInvalidRequest):
		writeJSONError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, chat.ErrLevelNotConfirmed):
		writeJSONError(w, http.StatusPreconditionFailed, err.Error())
	case errors.As(err, &serr):
		h.log.Error("send failed", zap.String("room_id", serr.RoomID), zap.Error(err))
		writeJSONError(w, http.StatusServiceUnavailable, "message could not be sent, try again")
	default:
		h.log.Error("gateway request failed", zap.Error(err))
		writeJSONError(w, http.StatusInternalServerError, "internal error")
	}
}

func userID(r *http.Request) string {
	if c, ok := auth.FromContext(r.Context()); ok {
		return c.UserID
	}
	return ""
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
