package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/unclebandit/clippilot-backend/internal/assetlib"
	appErrors "github.com/unclebandit/clippilot-backend/internal/errors"
	"github.com/unclebandit/clippilot-backend/internal/handler"
	"github.com/unclebandit/clippilot-backend/internal/model"
	"github.com/unclebandit/clippilot-backend/internal/service"
)

// maxUploadMemory is how much of a multipart body is kept in memory before
// spilling to temp files.
const maxUploadMemory = 32 << 20

// DefaultMaxUploadBytes caps a whole upload request when MaxUploadBytes is
// unset.
const DefaultMaxUploadBytes = 50 << 20

type AssetController struct {
	AssetService   *service.AssetService
	MaxUploadBytes int64
	Logger         *zap.Logger
}

func (c *AssetController) uploadLimit() int64 {
	if c.MaxUploadBytes > 0 {
		return c.MaxUploadBytes
	}
	return DefaultMaxUploadBytes
}

func (c *AssetController) Routes(r chi.Router) {
	r.Post("/assets", c.Upload)
	r.Get("/assets", c.List)
	r.Delete("/assets/{id}", c.Delete)
}

// Upload expects a multipart form with "file" and "team_id".
func (c *AssetController) Upload(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	limit := c.uploadLimit()
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			handler.WriteError(w, c.Logger, appErrors.NewValidation("file", fmt.Sprintf("exceeds %d bytes", limit)))
			return
		}
		handler.WriteError(w, c.Logger, appErrors.NewValidation("body", "expected multipart form"))
		return
	}
	teamID, err := handler.ParseUUID("team_id", r.FormValue("team_id"))
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		handler.WriteError(w, c.Logger, appErrors.NewValidation("file", "is required"))
		return
	}
	defer file.Close()

	asset, err := c.AssetService.Upload(r.Context(), userID, teamID, service.Upload{
		Filename: header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Size:     header.Size,
		Body:     file,
	})
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusCreated, asset)
}

func (c *AssetController) List(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	query := r.URL.Query()
	teamID, err := handler.ParseUUID("team_id", query.Get("team_id"))
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}

	result, err := c.AssetService.List(r.Context(), userID, teamID, assetlib.Query{
		Search: query.Get("q"),
		Type:   model.AssetType(query.Get("type")),
		Sort:   assetlib.SortField(query.Get("sort")),
		Order:  assetlib.Order(query.Get("order")),
	})
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	handler.WriteJSON(w, http.StatusOK, result)
}

func (c *AssetController) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := memberID(r)
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	id, err := handler.UUIDParam(r, "id")
	if err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	if err := c.AssetService.Delete(r.Context(), userID, id); err != nil {
		handler.WriteError(w, c.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
