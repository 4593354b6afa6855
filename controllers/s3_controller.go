package controllers

import (
	"net/http"

	"bookreview_server/helpers"
	"bookreview_server/logging"
	"bookreview_server/services"
)

// UploadController hands out presigned S3 URLs for book covers
type UploadController struct {
	Assets *services.AssetService
}

// NewUploadController creates a new UploadController instance
func NewUploadController(assets *services.AssetService) *UploadController {
	return &UploadController{Assets: assets}
}

// GeneratePresignedURL generates a presigned URL for S3 uploads. The returned
// key is what the client stores as the book's coverAssetKey.
func (uc *UploadController) GeneratePresignedURL(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		FileName string `json:"fileName" validate:"required"`
		FileType string `json:"fileType" validate:"required"`
	}
	if err := helpers.DecodeJSON(w, r, &payload); err != nil {
		helpers.WriteError(w, r, err)
		return
	}

	url, key, err := uc.Assets.GenerateUploadURL(r.Context(), payload.FileName, payload.FileType)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Debug().Str("key", key).Msg("GeneratePresignedURL: upload URL issued")
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url, "key": key})
}

// GetPresignedReadURL generates a presigned URL for reading S3 objects
func (uc *UploadController) GetPresignedReadURL(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key string `json:"key" validate:"required"`
	}
	if err := helpers.DecodeJSON(w, r, &payload); err != nil {
		helpers.WriteError(w, r, err)
		return
	}

	url, err := uc.Assets.GenerateReadURL(r.Context(), payload.Key)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"url": url})
}
