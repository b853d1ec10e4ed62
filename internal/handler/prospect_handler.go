package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/httputil"
	"github.com/unclebandit/outreach-backend/internal/model"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type ProspectHandler struct {
	Service *service.ProspectService
	Log     *zap.Logger
}

func (h *ProspectHandler) List(w http.ResponseWriter, r *http.Request) {
	skip := httputil.QueryInt(r, "skip", 0)
	limit := httputil.QueryInt(r, "limit", 100)

	prospects, err := h.Service.List(r.Context(), skip, limit, r.URL.Query().Get("status"))
	if err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.OK(w, prospects)
}

func (h *ProspectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p model.Prospect
	if !httputil.Decode(w, r, &p) {
		return
	}
	if err := h.Service.Create(r.Context(), &p); err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.Created(w, p)
}

func (h *ProspectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}
	p, err := h.Service.Get(r.Context(), id)
	if err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.OK(w, p)
}

func (h *ProspectHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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
	if err := h.Service.UpdateStatus(r.Context(), id, body.Status); err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"id": id, "status": body.Status})
}
