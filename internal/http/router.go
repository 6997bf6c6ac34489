package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

const serviceReportsBase = "/reports/api/v1/service-reports"

// Router uses the standard library http.ServeMux.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes registers GET /health.
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/health", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		writeJSON(w, http.StatusOK, Ok(map[string]string{"status": "ok"}))
	})
}

// RegisterServiceReportRoutes registers the document endpoints.
func (r *Router) RegisterServiceReportRoutes(h *ServiceReportHandler) {
	r.Handle(serviceReportsBase+"/pdf", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.GeneratePdf(w, req)
	})

	r.Handle(serviceReportsBase+"/xlsx", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.ExportXlsx(w, req)
	})

	r.Handle(serviceReportsBase+"/jobs", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.SubmitJob(w, req)
	})

	// jobs/{id}
	r.Handle(serviceReportsBase+"/jobs/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		id := strings.TrimPrefix(req.URL.Path, serviceReportsBase+"/jobs/")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.GetJob(w, req, id)
	})
}

// RegisterFileRoutes serves stored documents under /files/.
func (r *Router) RegisterFileRoutes(h *FileHandler) {
	r.Handle("/files/", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet && req.Method != http.MethodHead {
			methodNotAllowed(w, "GET, HEAD")
			return
		}
		key := strings.TrimPrefix(req.URL.Path, "/files/")
		if key == "" || strings.Contains(key, "..") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.Serve(w, req, key)
	})
}
