package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach-backend/internal/auth"
	"github.com/unclebandit/outreach-backend/internal/httputil"
)

type AuthHandler struct {
	Username   string
	Password   string
	Secret     string
	Expiration time.Duration
	Log        *zap.Logger
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !httputil.Decode(w, r, &body) {
		return
	}
	if !auth.CheckCredentials(h.Username, h.Password, body.Username, body.Password) {
		h.Log.Info("login rejected", zap.String("username", body.Username))
		httputil.Error(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.GenerateJWT(h.Secret, body.Username, h.Expiration)
	if err != nil {
		httputil.ServiceError(w, h.Log, err)
		return
	}
	httputil.OK(w, map[string]interface{}{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(h.Expiration.Seconds()),
	})
}
