package controllers

import (
	"net/http"

	"bookreview_server/auth"
	"bookreview_server/helpers"
	"bookreview_server/services"

	"github.com/gorilla/mux"
)

type commentRequest struct {
	Text string `json:"text"`
}

// CommentController handles the comment thread of a book
type CommentController struct {
	Comments    *services.CommentService
	Coordinator *services.InteractionCoordinator
}

// NewCommentController creates a new CommentController instance
func NewCommentController(comments *services.CommentService, coordinator *services.InteractionCoordinator) *CommentController {
	return &CommentController{Comments: comments, Coordinator: coordinator}
}

// ListComments returns a book's comments oldest first
func (cc *CommentController) ListComments(w http.ResponseWriter, r *http.Request) {
	comments, err := cc.Comments.List(r.Context(), mux.Vars(r)["bookId"])
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, comments)
}

// CreateComment adds the caller's comment to a book
func (cc *CommentController) CreateComment(w http.ResponseWriter, r *http.Request) {
	var request commentRequest
	if err := helpers.DecodeJSON(w, r, &request); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	view, err := cc.Coordinator.CreateComment(r.Context(), mux.Vars(r)["bookId"], auth.UserIDFromContext(r.Context()), request.Text)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, view)
}

// EditComment replaces the text of the caller's comment
func (cc *CommentController) EditComment(w http.ResponseWriter, r *http.Request) {
	var request commentRequest
	if err := helpers.DecodeJSON(w, r, &request); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	view, err := cc.Coordinator.EditComment(r.Context(), mux.Vars(r)["commentId"], auth.UserIDFromContext(r.Context()), request.Text)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, view)
}

// DeleteComment removes the caller's comment
func (cc *CommentController) DeleteComment(w http.ResponseWriter, r *http.Request) {
	deleted, err := cc.Coordinator.DeleteComment(r.Context(), mux.Vars(r)["commentId"], auth.UserIDFromContext(r.Context()))
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, deleted)
}
