package controllers

import (
	"net/http"

	"bookreview_server/auth"
	"bookreview_server/helpers"
	"bookreview_server/logging"
	"bookreview_server/services"

	"github.com/gorilla/mux"
)

// BookController handles posting, reading and deleting books
type BookController struct {
	Entries     *services.EntryService
	Coordinator *services.InteractionCoordinator
}

// NewBookController creates a new BookController instance
func NewBookController(entries *services.EntryService, coordinator *services.InteractionCoordinator) *BookController {
	return &BookController{Entries: entries, Coordinator: coordinator}
}

// CreateBook posts a new book owned by the caller
func (bc *BookController) CreateBook(w http.ResponseWriter, r *http.Request) {
	var request services.NewEntry
	if err := helpers.DecodeJSON(w, r, &request); err != nil {
		helpers.WriteError(w, r, err)
		return
	}

	entry, err := bc.Entries.Create(r.Context(), auth.UserIDFromContext(r.Context()), request)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, entry)
}

// GetBook returns one book with its reaction state
func (bc *BookController) GetBook(w http.ResponseWriter, r *http.Request) {
	entry, err := bc.Entries.Get(r.Context(), mux.Vars(r)["bookId"])
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, entry)
}

// DeleteBook removes a book, its comments and its cover. Owner only.
func (bc *BookController) DeleteBook(w http.ResponseWriter, r *http.Request) {
	bookID := mux.Vars(r)["bookId"]
	if err := bc.Coordinator.DeleteEntry(r.Context(), bookID, auth.UserIDFromContext(r.Context())); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	logging.Ctx(r.Context()).Info().Str("book_id", bookID).Msg("DeleteBook: book removed")
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Book deleted successfully", "bookId": bookID})
}
