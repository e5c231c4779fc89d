package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"donorcast-service/internal/domain/repository"
	"donorcast-service/internal/usecase"
	"donorcast-service/pkg/logger"
)

// Handler exposes the engine's operator surface over HTTP: campaign
// management, the approval queue and scheduled follow-up visibility.
type Handler struct {
	engine   *usecase.AutomationEngine
	ingestor *usecase.ContactIngestor
	rules    repository.RuleRepository
	logger   logger.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	engine *usecase.AutomationEngine,
	ingestor *usecase.ContactIngestor,
	rules repository.RuleRepository,
	log logger.Logger,
) *Handler {
	return &Handler{
		engine:   engine,
		ingestor: ingestor,
		rules:    rules,
		logger:   log,
	}
}

// Mux builds the route table
func (h *Handler) Mux() *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("Healthy"))
	})

	mux.HandleFunc("GET /campaigns", h.listCampaigns)
	mux.HandleFunc("POST /campaigns", h.createCampaign)
	mux.HandleFunc("GET /campaigns/{id}", h.getCampaign)
	mux.HandleFunc("POST /campaigns/{id}/start", h.startCampaign)
	mux.HandleFunc("POST /campaigns/{id}/pause", h.pauseCampaign)
	mux.HandleFunc("POST /campaigns/{id}/resume", h.resumeCampaign)
	mux.HandleFunc("GET /campaigns/{id}/analytics", h.campaignAnalytics)
	mux.HandleFunc("GET /responses/pending", h.pendingResponses)
	mux.HandleFunc("POST /responses/{id}/approve", h.approveResponse)
	mux.HandleFunc("GET /followups", h.scheduledFollowUps)

	return mux
}

type createCampaignRequest struct {
	Name       string `json:"name"`
	TemplateID string `json:"templateId"`
	ContactCSV string `json:"contactCsv"`
}

func (h *Handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req createCampaignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	template, ok := h.engine.Template(req.TemplateID)
	if !ok {
		h.writeError(w, http.StatusBadRequest, "unknown template: "+req.TemplateID)
		return
	}

	contacts, err := h.ingestor.Parse(req.ContactCSV)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rules, err := h.rules.FindEnabled(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	campaign, err := h.engine.CreateCampaign(r.Context(), req.Name, contacts, template, rules)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	h.writeJSON(w, http.StatusCreated, campaign)
}

func (h *Handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.engine.ListCampaigns(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, campaigns)
}

func (h *Handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := h.engine.GetCampaign(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, campaign)
}

// Campaign sends run with pacing delays between contacts, so start and
// resume kick off in the background and reply 202 immediately.
func (h *Handler) startCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	campaign, err := h.engine.GetCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	go func() {
		if err := h.engine.StartCampaign(context.Background(), campaign.ID); err != nil {
			h.logger.Error("Campaign start failed", "campaignId", campaign.ID, "error", err)
		}
	}()
	h.writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "starting"})
}

func (h *Handler) pauseCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.engine.PauseCampaign(r.Context(), id); err != nil {
		h.writeError(w, http.StatusConflict, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "paused"})
}

func (h *Handler) resumeCampaign(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	campaign, err := h.engine.GetCampaign(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}

	go func() {
		if err := h.engine.ResumeCampaign(context.Background(), campaign.ID); err != nil {
			h.logger.Error("Campaign resume failed", "campaignId", campaign.ID, "error", err)
		}
	}()
	h.writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": "resuming"})
}

func (h *Handler) campaignAnalytics(w http.ResponseWriter, r *http.Request) {
	analytics, err := h.engine.GetCampaignAnalytics(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, analytics)
}

func (h *Handler) pendingResponses(w http.ResponseWriter, r *http.Request) {
	responses, err := h.engine.GetPendingResponses(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, responses)
}

func (h *Handler) approveResponse(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	ok, err := h.engine.ApproveResponse(r.Context(), id)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		h.writeError(w, http.StatusConflict, "response is not pending approval")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"id": id, "status": "approved"})
}

func (h *Handler) scheduledFollowUps(w http.ResponseWriter, r *http.Request) {
	events, err := h.engine.GetScheduledFollowUps(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	h.writeJSON(w, http.StatusOK, events)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}
