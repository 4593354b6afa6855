package controllers

import (
	"net/http"

	"bookreview_server/auth"
	"bookreview_server/helpers"
	"bookreview_server/models"
	"bookreview_server/services"

	"github.com/gorilla/mux"
)

// InteractionController handles reactions and the generic interaction
// endpoint
type InteractionController struct {
	Coordinator *services.InteractionCoordinator
}

// NewInteractionController creates a new InteractionController instance
func NewInteractionController(coordinator *services.InteractionCoordinator) *InteractionController {
	return &InteractionController{Coordinator: coordinator}
}

// React returns a handler applying action to the book in the path
func (ic *InteractionController) React(action models.ReactionAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, changed, err := ic.Coordinator.React(r.Context(), mux.Vars(r)["bookId"], auth.UserIDFromContext(r.Context()), action)
		if err != nil {
			helpers.WriteError(w, r, err)
			return
		}
		helpers.WriteJSONResponse(w, http.StatusOK, services.InteractionResult{Entry: entry, Changed: changed})
	}
}

// ApplyInteraction accepts any interaction event as JSON
func (ic *InteractionController) ApplyInteraction(w http.ResponseWriter, r *http.Request) {
	var event services.InteractionEvent
	if err := helpers.DecodeJSON(w, r, &event); err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	event.ActorID = auth.UserIDFromContext(r.Context())

	result, err := ic.Coordinator.Apply(r.Context(), event)
	if err != nil {
		helpers.WriteError(w, r, err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}
