package api

import (
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/api/respond"
	"github.com/heartbook/heartbook/internal/api/validate"
	"github.com/heartbook/heartbook/internal/settings"
)

// ConfigHandler exposes the lock-screen configuration. There is no access
// control on either route; the passphrase is not a secret worth protecting.
type ConfigHandler struct {
	store *settings.Store
	log   zerolog.Logger
}

func NewConfigHandler(store *settings.Store, log zerolog.Logger) *ConfigHandler {
	return &ConfigHandler{store: store, log: log}
}

// Get GET /api/config
func (h *ConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.store.Read(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("read config failed")
		respond.WriteInternalError(w, "Failed to read config")
		return
	}
	respond.WriteJSON(w, http.StatusOK, cfg)
}

// UpdatePassword POST /api/config
func (h *ConfigHandler) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.Password(req.Password); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := h.store.UpdatePassword(r.Context(), req.Password); err != nil {
		h.log.Error().Err(err).Msg("update password failed")
		writeErr(w, err)
		return
	}
	respond.WriteSuccess(w, "Password updated successfully")
}
