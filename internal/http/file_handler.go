package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"path"
	"time"

	"go.uber.org/zap"
	"gocloud.dev/gcerrors"
)

// DocumentReader reads stored documents by object key.
type DocumentReader interface {
	Read(ctx context.Context, objectKey string) ([]byte, error)
}

// FileHandler serves generated documents when no external CDN fronts the bucket.
type FileHandler struct {
	docs   DocumentReader
	logger *zap.Logger
}

func NewFileHandler(docs DocumentReader, logger *zap.Logger) *FileHandler {
	return &FileHandler{docs: docs, logger: logger}
}

func (h *FileHandler) Serve(w http.ResponseWriter, r *http.Request, key string) {
	data, err := h.docs.Read(r.Context(), key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.logger.Error("Failed to read document", zap.String("key", key), zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Disposition", "inline; filename=\""+path.Base(key)+"\"")
	http.ServeContent(w, r, path.Base(key), time.Time{}, bytes.NewReader(data))
}
