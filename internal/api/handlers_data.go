package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/api/respond"
	"github.com/heartbook/heartbook/internal/api/validate"
	"github.com/heartbook/heartbook/internal/model"
	"github.com/heartbook/heartbook/internal/services"
)

// MaxDataBody bounds a collection write request.
const MaxDataBody = 16 << 20

// DataHandler serves the generic collection endpoint.
type DataHandler struct {
	svc *services.RecordService
	log zerolog.Logger
}

func NewDataHandler(svc *services.RecordService, log zerolog.Logger) *DataHandler {
	return &DataHandler{svc: svc, log: log}
}

// Read GET /api/data?filename=
func (h *DataHandler) Read(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if err := validate.NonEmpty("filename", filename); err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	records, err := h.svc.Read(r.Context(), filename)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			h.log.Error().Err(err).Str("filename", filename).Msg("read collection failed")
		}
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, records)
}

type writeRequest struct {
	Filename string          `json:"filename"`
	Data     json.RawMessage `json:"data"`
}

// Write POST /api/data
func (h *DataHandler) Write(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxDataBody)
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.WriteTooLarge(w, "request body too large")
			return
		}
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if err := validate.NonEmpty("filename", req.Filename); err != nil {
		respond.WriteBadRequest(w, "Filename and data are required")
		return
	}
	records, err := validate.JSONArray("data", req.Data)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if err := h.svc.Write(r.Context(), req.Filename, records); err != nil {
		h.log.Error().Err(err).Str("filename", req.Filename).Msg("write collection failed")
		writeErr(w, err)
		return
	}
	respond.WriteSuccess(w, "Data saved successfully")
}

// Delete DELETE /api/data?filename=&id=
//
// A missing record is reported as 500 like any other failed delete; clients
// treat every non-2xx as "not deleted".
func (h *DataHandler) Delete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filename, id := q.Get("filename"), q.Get("id")
	if filename == "" || id == "" {
		respond.WriteBadRequest(w, "Filename and id are required")
		return
	}
	if err := h.svc.Delete(r.Context(), filename, id); err != nil {
		if errors.Is(err, model.ErrValidation) {
			respond.WriteBadRequest(w, err.Error())
			return
		}
		h.log.Error().Err(err).Str("filename", filename).Str("id", id).Msg("delete failed")
		respond.WriteInternalError(w, err.Error())
		return
	}
	respond.WriteSuccess(w, "Item deleted successfully")
}
