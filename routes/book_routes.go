package routes

import (
	"bookreview_server/controllers"
	"bookreview_server/models"
	"bookreview_server/services"

	"github.com/gorilla/mux"
)

// RegisterBookRoutes registers book, reaction and comment routes on the
// authenticated /api router
func RegisterBookRoutes(api *mux.Router, entries *services.EntryService, comments *services.CommentService, coordinator *services.InteractionCoordinator) {
	books := controllers.NewBookController(entries, coordinator)
	interactions := controllers.NewInteractionController(coordinator)
	thread := controllers.NewCommentController(comments, coordinator)

	bookRouter := api.PathPrefix("/books").Subrouter()
	bookRouter.HandleFunc("", books.CreateBook).Methods("POST")
	bookRouter.HandleFunc("/{bookId}", books.GetBook).Methods("GET")
	bookRouter.HandleFunc("/{bookId}", books.DeleteBook).Methods("DELETE")

	bookRouter.HandleFunc("/{bookId}/like", interactions.React(models.ReactionLike)).Methods("POST")
	bookRouter.HandleFunc("/{bookId}/unlike", interactions.React(models.ReactionUnlike)).Methods("POST")
	bookRouter.HandleFunc("/{bookId}/dislike", interactions.React(models.ReactionDislike)).Methods("POST")
	bookRouter.HandleFunc("/{bookId}/remove-dislike", interactions.React(models.ReactionRemoveDislike)).Methods("POST")

	bookRouter.HandleFunc("/{bookId}/comments", thread.ListComments).Methods("GET")
	bookRouter.HandleFunc("/{bookId}/comments", thread.CreateComment).Methods("POST")
	api.HandleFunc("/comments/{commentId}", thread.EditComment).Methods("PATCH")
	api.HandleFunc("/comments/{commentId}", thread.DeleteComment).Methods("DELETE")

	api.HandleFunc("/interactions", interactions.ApplyInteraction).Methods("POST")
}
