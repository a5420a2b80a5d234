package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/api/respond"
	"github.com/heartbook/heartbook/internal/imaging"
	"github.com/heartbook/heartbook/internal/model"
)

// multipartMemory is how much of a form ParseMultipartForm keeps in memory.
const multipartMemory = 8 << 20

// UploadHandler accepts a single image as multipart field "file".
type UploadHandler struct {
	images   *imaging.Service
	maxBytes int64
	log      zerolog.Logger
}

func NewUploadHandler(images *imaging.Service, maxBytes int64, log zerolog.Logger) *UploadHandler {
	return &UploadHandler{images: images, maxBytes: maxBytes, log: log}
}

type uploadResponse struct {
	Success  bool   `json:"success"`
	URL      string `json:"url"`
	Filename string `json:"filename"`
}

// Upload POST /api/upload
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	// Allow some slack for the multipart envelope around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+64<<10)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		h.rejectForm(w, err)
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		respond.WriteBadRequest(w, "No file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		respond.WriteTooLarge(w, "file too large")
		return
	}
	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		respond.WriteInternalError(w, "failed to read upload")
		return
	}
	if int64(len(data)) > h.maxBytes {
		respond.WriteTooLarge(w, "file too large")
		return
	}

	res, err := h.images.Ingest(r.Context(), imaging.Upload{
		Data:        data,
		ContentType: header.Header.Get("Content-Type"),
		Filename:    header.Filename,
	})
	if err != nil {
		if errors.Is(err, model.ErrUnsupportedMediaType) {
			respond.WriteBadRequest(w, "Only image files are allowed")
			return
		}
		if !errors.Is(err, model.ErrValidation) {
			h.log.Error().Err(err).Str("filename", header.Filename).Msg("upload failed")
		}
		writeErr(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, uploadResponse{Success: true, URL: res.URL, Filename: res.Filename})
}

func (h *UploadHandler) rejectForm(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		respond.WriteTooLarge(w, "file too large")
		return
	}
	respond.WriteBadRequest(w, "No file uploaded")
}
