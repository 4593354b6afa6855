package routes

import (
	"bookreview_server/controllers"
	"bookreview_server/services"

	"github.com/gorilla/mux"
)

// RegisterS3Routes sets up routes for S3-related operations
func RegisterS3Routes(api *mux.Router, assets *services.AssetService) {
	controller := controllers.NewUploadController(assets)
	api.HandleFunc("/uploads/presign", controller.GeneratePresignedURL).Methods("POST")
	api.HandleFunc("/uploads/read-url", controller.GetPresignedReadURL).Methods("POST")
}
