package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/httputil"
	"github.com/unclebandit/outreach-backend/internal/model"
)

type MessageLister interface {
	List(ctx context.Context, campaignID, offset, limit int) ([]*model.Message, error)
}

type MessageHandler struct {
	Repo MessageLister
	Log  *zap.Logger
}

// List returns sent messages, optionally filtered by ?campaign_id=.
func (h *MessageHandler) List(w http.ResponseWriter, r *http.Request) {
	campaignID := httputil.QueryInt(r, "campaign_id", 0)
	skip := max(httputil.QueryInt(r, "skip", 0), 0)
	limit := httputil.QueryInt(r, "limit", 100)
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	messages, err := h.Repo.List(r.Context(), campaignID, skip, limit)
	if err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.OK(w, messages)
}
