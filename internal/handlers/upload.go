package handlers

import (
	"context"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/gdg-garage/ecsnova-registration-api/internal/uploads"
	"github.com/go-chi/chi/v5"
)

type UploadHandler struct {
	store         *uploads.Store
	publicBaseURL string
	logger        *slog.Logger
}

// NewUploadHandler builds file URLs from publicBaseURL when it is set and
// from the request's scheme and host otherwise.
func NewUploadHandler(store *uploads.Store, publicBaseURL string, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{
		store:         store,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		logger:        logger,
	}
}

type UploadInput struct {
	RawBody multipart.Form
	Origin  string
}

func (i *UploadInput) Resolve(ctx huma.Context) []error {
	scheme := "http"
	if ctx.TLS() != nil || strings.EqualFold(ctx.Header("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	i.Origin = scheme + "://" + ctx.Host()
	return nil
}

type UploadOutput struct {
	Body struct {
		URL string `json:"url" doc:"Public URL of the stored file"`
	}
}

func (h *UploadHandler) HandleUpload(ctx context.Context, input *UploadInput) (*UploadOutput, error) {
	files := input.RawBody.File["file"]
	if len(files) == 0 {
		return nil, huma.Error400BadRequest(uploads.ErrNoFile.Error())
	}
	fh := files[0]

	f, err := fh.Open()
	if err != nil {
		h.logger.ErrorContext(ctx, "opening uploaded file failed", "error", err)
		return nil, huma.Error500InternalServerError("Upload failed")
	}
	defer f.Close()

	upload, err := h.store.Save(ctx, fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		h.logger.ErrorContext(ctx, "storing uploaded file failed", "error", err)
		return nil, huma.Error500InternalServerError("Upload failed")
	}

	base := h.publicBaseURL
	if base == "" {
		base = input.Origin
	}

	res := &UploadOutput{}
	res.Body.URL = base + "/uploads/" + url.PathEscape(upload.Filename)
	return res, nil
}

// HandleServe serves a stored upload by name. Directories are never listed.
func (h *UploadHandler) HandleServe(w http.ResponseWriter, r *http.Request) {
	p, err := h.store.Path(chi.URLParam(r, "name"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	info, err := os.Stat(p)
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, p)
}
