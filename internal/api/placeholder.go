package api

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/heartbook/heartbook/internal/api/respond"
	"github.com/heartbook/heartbook/internal/api/validate"
	"github.com/heartbook/heartbook/internal/imaging"
)

// Placeholder GET /api/placeholder/{w}/{h}
func Placeholder(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	width, err := validate.Dimension("width", vars["w"], imaging.MaxPlaceholderSide)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	height, err := validate.Dimension("height", vars["h"], imaging.MaxPlaceholderSide)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	img, err := imaging.Placeholder(width, height)
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
