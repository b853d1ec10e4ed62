// internal/controller/campaign_controller.go
package controller

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/httputil"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
	Log             *zap.Logger
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body service.CreateCampaignInput
	if !httputil.Decode(w, r, &body) {
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(r.Context(), body)
	if err != nil {
		httputil.ServiceError(w, c.Log, err)
		return
	}
	httputil.Created(w, campaign)
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page := httputil.QueryInt(r, "page", 1)
	pageSize := httputil.QueryInt(r, "page_size", 20)
	status := r.URL.Query().Get("status")

	campaigns, pagination, err := c.CampaignService.ListCampaigns(r.Context(), page, pageSize, status)
	if err != nil {
		httputil.ServiceError(w, c.Log, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

// GetCampaignDetails returns the campaign with today's stats and remaining quota.
func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}

	details, err := c.CampaignService.GetCampaignDetailsWithStats(r.Context(), id)
	if err != nil {
		httputil.ServiceError(w, c.Log, err)
		return
	}
	httputil.OK(w, details)
}

func (c *CampaignController) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}

	if err := c.CampaignService.UpdateStatus(r.Context(), id, body.Status); err != nil {
		httputil.ServiceError(w, c.Log, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"id": id, "status": body.Status})
}

// RunCampaign queues an outreach run and answers 202.
func (c *CampaignController) RunCampaign(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}

	result, err := c.CampaignService.SendCampaign(r.Context(), id)
	if err != nil {
		httputil.ServiceError(w, c.Log, err)
		return
	}
	httputil.Accepted(w, result)
}

func (c *CampaignController) Quota(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}

	info, err := c.CampaignService.QuotaReport(r.Context(), id)
	if err != nil {
		httputil.ServiceError(w, c.Log, err)
		return
	}
	httputil.OK(w, info)
}

func (c *CampaignController) PersonalizedPreview(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}
	var body struct {
		ProspectID  int    `json:"prospect_id"`
		MessageType string `json:"message_type"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.ProspectID <= 0 {
		httputil.BadRequest(w, "prospect_id is required")
		return
	}

	rendered, err := c.CampaignService.RenderPreview(r.Context(), id, body.ProspectID, body.MessageType)
	if err != nil {
		httputil.ServiceError(w, c.Log, err)
		return
	}

	httputil.OK(w, map[string]interface{}{
		"rendered_message": rendered,
		"prospect_id":      body.ProspectID,
		"campaign_id":      id,
	})
}
