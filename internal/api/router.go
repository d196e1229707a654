// Package api exposes generation runs and operational endpoints over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/conversation"
	"github.com/converse-demo/converse/internal/models"
)

// Conversations is the generation surface the API drives
type Conversations interface {
	RunGeneration(ctx context.Context, raw models.RawParameters, channelID, initiatingUser string, progress conversation.ProgressFunc) (*models.GenerationSummary, error)
	RunDefinition(ctx context.Context, definitionID uint, channelID, initiatingUser string, progress conversation.ProgressFunc) (*models.GenerationSummary, error)
	ExtendThread(ctx context.Context, channelID, threadTS, initiatingUser string) (*models.GenerationSummary, error)
	GenerateCanvas(ctx context.Context, channelID string) (string, error)
	DesignChannels(ctx context.Context, customerName, useCase string, create bool) ([]conversation.DesignedChannel, error)
	GenerateChannelDesign(ctx context.Context, name, topic, description string) (models.RawParameters, error)
	ResolveUser(ctx context.Context, memberID string) (*models.User, error)
	GetMetrics() string
}

// DefinitionStore persists conversation definitions
type DefinitionStore interface {
	Create(ctx context.Context, userID uint, name string, params models.RawParameters) (*models.ConversationDefinition, error)
	GetByID(ctx context.Context, id uint) (*models.ConversationDefinition, error)
	ListByUser(ctx context.Context, userID uint) ([]models.ConversationDefinition, error)
}

// SelectionStore persists builder selections
type SelectionStore interface {
	Upsert(ctx context.Context, userID uint, params models.RawParameters) error
	Get(ctx context.Context, userID uint) (*models.RawParameters, error)
}

// HealthChecker reports whether a dependency is reachable
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler serves the HTTP API
type Handler struct {
	conversations Conversations
	definitions   DefinitionStore
	selections    SelectionStore
	health        HealthChecker
	apiToken      string

	// background runs started by POST /generate
	background func(func())
}

// NewHandler creates a new API handler. An empty apiToken disables auth.
func NewHandler(conversations Conversations, definitions DefinitionStore, selections SelectionStore, health HealthChecker, apiToken string) *Handler {
	return &Handler{
		conversations: conversations,
		definitions:   definitions,
		selections:    selections,
		health:        health,
		apiToken:      apiToken,
		background:    func(f func()) { go f() },
	}
}

// Router builds the route table
func (h *Handler) Router() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", h.healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	router.HandleFunc("/stats", h.stats).Methods("GET")

	api := router.PathPrefix("/").Subrouter()
	api.Use(h.authenticate)
	api.HandleFunc("/generate", h.generate).Methods("POST")
	api.HandleFunc("/threads/extend", h.extendThread).Methods("POST")
	api.HandleFunc("/canvas", h.canvas).Methods("POST")
	api.HandleFunc("/channels/design", h.designChannels).Methods("POST")
	api.HandleFunc("/channels/suggest", h.suggestChannel).Methods("POST")
	api.HandleFunc("/definitions", h.createDefinition).Methods("POST")
	api.HandleFunc("/definitions/{id:[0-9]+}", h.getDefinition).Methods("GET")
	api.HandleFunc("/users/{member}/definitions", h.listDefinitions).Methods("GET")
	api.HandleFunc("/users/{member}/selections", h.getSelections).Methods("GET")
	api.HandleFunc("/users/{member}/selections", h.putSelections).Methods("PUT")

	return router
}

func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiToken != "" {
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			if subtle.ConstantTimeCompare([]byte(token), []byte(h.apiToken)) != 1 {
				writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) healthCheck(w http.ResponseWriter, r *http.Request) {
	status := http.StatusOK
	body := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	}

	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.health.Health(ctx); err != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "unhealthy"
			body["error"] = err.Error()
		}
	}

	writeJSON(w, status, body)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.conversations.GetMetrics()))
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logrus.Errorf("Failed to write response: %v", err)
	}
}

// writeError maps the error taxonomy onto status codes. Messages are passed
// through verbatim so callers can show them to users.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrMembership):
		status = http.StatusForbidden
	case errors.Is(err, models.ErrGeneration):
		status = http.StatusBadGateway
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &models.ValidationError{Field: "body", Reason: "is not valid JSON: " + err.Error()}
	}
	return nil
}
