package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/converse-demo/converse/internal/conversation"
	"github.com/converse-demo/converse/internal/models"
)

type generateRequest struct {
	ChannelID    string               `json:"channel_id"`
	UserID       string               `json:"user_id"`
	DefinitionID uint                 `json:"definition_id,omitempty"`
	Parameters   models.RawParameters `json:"parameters"`
	Wait         bool                 `json:"wait,omitempty"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.ChannelID == "" || req.UserID == "" {
		writeError(w, &models.ValidationError{Field: "channel_id", Reason: "and user_id are required"})
		return
	}
	if req.DefinitionID == 0 {
		// reject bad parameters before accepting the run
		if _, err := req.Parameters.Validate(); err != nil {
			writeError(w, err)
			return
		}
	}

	run := func(ctx context.Context) (*models.GenerationSummary, error) {
		log := logrus.WithField("channel", req.ChannelID)
		progress := func(p conversation.Progress) { log.Debug(p.String()) }
		if req.DefinitionID != 0 {
			return h.conversations.RunDefinition(ctx, req.DefinitionID, req.ChannelID, req.UserID, progress)
		}
		return h.conversations.RunGeneration(ctx, req.Parameters, req.ChannelID, req.UserID, progress)
	}

	if req.Wait {
		summary, err := run(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, summary)
		return
	}

	h.background(func() {
		if _, err := run(context.Background()); err != nil {
			logrus.WithField("channel", req.ChannelID).Errorf("Generation run failed: %v", err)
		}
	})
	writeJSON(w, http.StatusAccepted, map[string]string{"message": "Generation started"})
}

type extendRequest struct {
	ChannelID string `json:"channel_id"`
	ThreadTS  string `json:"thread_ts"`
	UserID    string `json:"user_id"`
}

func (h *Handler) extendThread(w http.ResponseWriter, r *http.Request) {
	var req extendRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	summary, err := h.conversations.ExtendThread(r.Context(), req.ChannelID, req.ThreadTS, req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type canvasRequest struct {
	ChannelID string `json:"channel_id"`
}

func (h *Handler) canvas(w http.ResponseWriter, r *http.Request) {
	var req canvasRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	status, err := h.conversations.GenerateCanvas(r.Context(), req.ChannelID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

type designRequest struct {
	CustomerName string `json:"customer_name"`
	UseCase      string `json:"use_case"`
	Create       bool   `json:"create"`
}

func (h *Handler) designChannels(w http.ResponseWriter, r *http.Request) {
	var req designRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	channels, err := h.conversations.DesignChannels(r.Context(), req.CustomerName, req.UseCase, req.Create)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"channels": channels})
}

type suggestRequest struct {
	Name        string `json:"name"`
	Topic       string `json:"topic"`
	Description string `json:"description"`
}

func (h *Handler) suggestChannel(w http.ResponseWriter, r *http.Request) {
	var req suggestRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	params, err := h.conversations.GenerateChannelDesign(r.Context(), req.Name, req.Topic, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, params)
}

type definitionRequest struct {
	UserID     string               `json:"user_id"`
	Name       string               `json:"name"`
	Parameters models.RawParameters `json:"parameters"`
}

func (h *Handler) createDefinition(w http.ResponseWriter, r *http.Request) {
	var req definitionRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" {
		writeError(w, &models.ValidationError{Field: "name", Reason: "is required"})
		return
	}
	if _, err := req.Parameters.Validate(); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.conversations.ResolveUser(r.Context(), req.UserID)
	if err != nil {
		writeError(w, err)
		return
	}

	def, err := h.definitions.Create(r.Context(), user.ID, req.Name, req.Parameters)
	if err != nil {
		writeError(w, fmt.Errorf("failed to store definition: %w", err))
		return
	}
	writeJSON(w, http.StatusCreated, def)
}

func (h *Handler) getDefinition(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, &models.ValidationError{Field: "id", Reason: "must be a number"})
		return
	}

	def, err := h.definitions.GetByID(r.Context(), uint(id))
	if err != nil {
		writeError(w, err)
		return
	}
	if def == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "definition not found"})
		return
	}
	writeJSON(w, http.StatusOK, def)
}

func (h *Handler) listDefinitions(w http.ResponseWriter, r *http.Request) {
	user, err := h.conversations.ResolveUser(r.Context(), mux.Vars(r)["member"])
	if err != nil {
		writeError(w, err)
		return
	}

	defs, err := h.definitions.ListByUser(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"definitions": defs})
}

func (h *Handler) getSelections(w http.ResponseWriter, r *http.Request) {
	user, err := h.conversations.ResolveUser(r.Context(), mux.Vars(r)["member"])
	if err != nil {
		writeError(w, err)
		return
	}

	params, err := h.selections.Get(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if params == nil {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "no saved selections"})
		return
	}
	writeJSON(w, http.StatusOK, params)
}

func (h *Handler) putSelections(w http.ResponseWriter, r *http.Request) {
	var params models.RawParameters
	if err := decode(r, &params); err != nil {
		writeError(w, err)
		return
	}

	user, err := h.conversations.ResolveUser(r.Context(), mux.Vars(r)["member"])
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.selections.Upsert(r.Context(), user.ID, params); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
