package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/sells-group/prospect-cli/internal/campaign"
	"github.com/sells-group/prospect-cli/internal/export"
	"github.com/sells-group/prospect-cli/internal/model"
	"github.com/sells-group/prospect-cli/internal/settings"
)

const maxBodyBytes = 1 << 20

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, r, "id", "must be a positive integer")
		return 0, false
	}
	return id, true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := render.DecodeJSON(http.MaxBytesReader(w, r.Body, maxBodyBytes), v); err != nil {
		badRequest(w, r, "", "invalid request body")
		return false
	}
	return true
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Ping(r.Context()); err != nil {
		render.Status(r, http.StatusServiceUnavailable)
		render.JSON(w, r, map[string]string{"status": "unavailable"})
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// CreateCampaignResponse reports the persisted campaign and whether
// processing began.
type CreateCampaignResponse struct {
	Campaign *model.Campaign `json:"campaign"`
	Started  bool            `json:"started"`
}

func (h *handler) createCampaign(w http.ResponseWriter, r *http.Request) {
	var req model.CampaignRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, started, err := h.Campaigns.Start(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, CreateCampaignResponse{Campaign: c, Started: started})
}

func (h *handler) listCampaigns(w http.ResponseWriter, r *http.Request) {
	campaigns, err := h.Store.ListCampaigns(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	if campaigns == nil {
		campaigns = []model.Campaign{}
	}
	render.JSON(w, r, campaigns)
}

func (h *handler) getCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.Store.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, c)
}

func (h *handler) listLeads(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if _, err := h.Store.GetCampaign(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	leads, err := h.Store.ListLeads(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if leads == nil {
		leads = []model.Lead{}
	}
	render.JSON(w, r, leads)
}

func (h *handler) exportLeads(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.Store.GetCampaign(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	leads, err := h.Store.ListLeads(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteLeadsXLSX(&buf, c, leads); err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="campaign_%d_leads.xlsx"`, c.ID))
	w.WriteHeader(http.StatusOK)
	_, _ = io.Copy(w, &buf)
}

func (h *handler) getLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	lead, err := h.Store.GetLead(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, lead)
}

// UpdateEmailRequest replaces a lead's email content.
type UpdateEmailRequest struct {
	EmailContent string `json:"email_content"`
}

func (h *handler) updateLeadEmail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req UpdateEmailRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	lead, err := h.Campaigns.UpdateLeadEmail(r.Context(), id, req.EmailContent)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, lead)
}

func (h *handler) sendLead(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	lead, err := h.Campaigns.SendLead(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, lead)
}

// SettingsResponse carries settings without the stored email password.
type SettingsResponse struct {
	Settings         settings.Settings `json:"settings"`
	EmailPasswordSet bool              `json:"email_password_set"`
}

func settingsResponse(s settings.Settings) SettingsResponse {
	resp := SettingsResponse{Settings: s, EmailPasswordSet: s.EmailPassword != ""}
	resp.Settings.EmailPassword = ""
	return resp
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, settingsResponse(s))
}

func (h *handler) updateSettings(w http.ResponseWriter, r *http.Request) {
	var patch json.RawMessage
	if !decodeJSON(w, r, &patch) {
		return
	}
	s, err := h.Settings.Update(r.Context(), patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, settingsResponse(s))
}

func (h *handler) resetSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.Settings.Reset(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, settingsResponse(h.Settings.Defaults()))
}

func (h *handler) testEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.Campaigns.SendTestEmail(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "sent"})
}

func (h *handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.Campaigns.VerifyMail(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// ProbeResponse is the availability of one collaborator.
type ProbeResponse struct {
	URL       string   `json:"url"`
	Available bool     `json:"available"`
	Models    []string `json:"models,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func (h *handler) probeText(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := ProbeResponse{URL: s.OllamaURL, Models: []string{}}
	models, err := campaign.ProbeText(r.Context(), s)
	if err != nil {
		resp.Error = err.Error()
	} else {
		resp.Available = true
		resp.Models = models
	}
	render.JSON(w, r, resp)
}

func (h *handler) probeImage(w http.ResponseWriter, r *http.Request) {
	s, err := h.Settings.Get(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := ProbeResponse{URL: s.StableDiffusionURL}
	if err := campaign.ProbeImage(r.Context(), s); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Available = true
	}
	render.JSON(w, r, resp)
}

// StatusResponse reports which campaigns are processing.
type StatusResponse struct {
	Processing bool    `json:"processing"`
	Active     []int64 `json:"active"`
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	active := h.Campaigns.Active()
	render.JSON(w, r, StatusResponse{Processing: len(active) > 0, Active: active})
}
