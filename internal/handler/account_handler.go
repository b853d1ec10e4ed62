package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/httputil"
	"github.com/unclebandit/outreach-backend/internal/service"
)

type AccountHandler struct {
	Service *service.AccountService
	Log     *zap.Logger
}

func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.Service.List(r.Context(), httputil.QueryInt(r, "skip", 0), httputil.QueryInt(r, "limit", 100))
	if err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.OK(w, accounts)
}

func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body service.CreateAccountInput
	if !httputil.Decode(w, r, &body) {
		return
	}
	acct, err := h.Service.Create(r.Context(), body)
	if err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.Created(w, acct)
}

func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}
	acct, err := h.Service.Get(r.Context(), id)
	if err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.OK(w, acct)
}

func (h *AccountHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}
	var body struct {
		IsActive *bool  `json:"is_active"`
		Status   string `json:"account_status"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if body.IsActive == nil {
		httputil.BadRequest(w, "is_active is required")
		return
	}
	if err := h.Service.UpdateStatus(r.Context(), id, *body.IsActive, body.Status); err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.OK(w, map[string]interface{}{"id": id, "is_active": *body.IsActive, "account_status": body.Status})
}

func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.IDParam(w, r)
	if !ok {
		return
	}
	if err := h.Service.Delete(r.Context(), id); err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.NoContent(w)
}
