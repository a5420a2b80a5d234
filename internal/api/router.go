package api

import (
	"net/http"
	"os"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/heartbook/heartbook/internal/api/recovery"
	"github.com/heartbook/heartbook/internal/imaging"
	"github.com/heartbook/heartbook/internal/services"
	"github.com/heartbook/heartbook/internal/settings"
)

// Deps are the components the router dispatches to.
type Deps struct {
	Records        *services.RecordService
	Images         *imaging.Service
	Settings       *settings.Store
	Healthy        func() bool
	MaxUploadBytes int64
	// StaticDir, when set, is served at / for the built front end.
	StaticDir string
	Log       zerolog.Logger
}

// NewRouter creates the HTTP router with all API routes.
func NewRouter(d Deps) *mux.Router {
	root := mux.NewRouter()

	// Global middlewares
	root.Use(RequestID(d.Log), AccessLog, recovery.Middleware)

	data := NewDataHandler(d.Records, d.Log)
	root.HandleFunc("/api/data", data.Read).Methods(http.MethodGet)
	root.HandleFunc("/api/data", data.Write).Methods(http.MethodPost)
	root.HandleFunc("/api/data", data.Delete).Methods(http.MethodDelete)

	upload := NewUploadHandler(d.Images, d.MaxUploadBytes, d.Log)
	root.HandleFunc("/api/upload", upload.Upload).Methods(http.MethodPost)

	cfg := NewConfigHandler(d.Settings, d.Log)
	root.HandleFunc("/api/config", cfg.Get).Methods(http.MethodGet)
	root.HandleFunc("/api/config", cfg.UpdatePassword).Methods(http.MethodPost)

	root.HandleFunc("/api/placeholder/{w}/{h}", Placeholder).Methods(http.MethodGet)

	health := NewHealthHandler(d.Healthy)
	root.HandleFunc("/api/health", health.CheckHealth).Methods(http.MethodGet)

	root.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	prefix := d.Images.PublicPath() + "/"
	root.PathPrefix(prefix).
		Handler(http.StripPrefix(prefix, http.FileServer(filesOnly{http.Dir(d.Images.Dir())}))).
		Methods(http.MethodGet, http.MethodHead)

	if d.StaticDir != "" {
		root.PathPrefix("/").
			Handler(http.FileServer(http.Dir(d.StaticDir))).
			Methods(http.MethodGet, http.MethodHead)
	}
	return root
}

// filesOnly hides directories so the image folder cannot be listed.
type filesOnly struct{ fs http.FileSystem }

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	st, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, err
	}
	if st.IsDir() {
		_ = file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}
