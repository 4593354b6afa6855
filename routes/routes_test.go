package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookreview_server/auth"
	"bookreview_server/models"
	"bookreview_server/services"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router *mux.Router
	store  *services.MemoryStore
	tokens *auth.TokenManager
}

func newAPI(t *testing.T) *apiFixture {
	t.Helper()
	store := services.NewMemoryStore()
	tokens, err := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	entries := &services.EntryService{Store: store}
	comments := &services.CommentService{Store: store, Profiles: store}
	coordinator := &services.InteractionCoordinator{
		Reactions: &services.ReactionService{Store: store},
		Comments:  comments,
		Entries:   entries,
		Notifier:  &services.NotificationService{Store: store},
		Profiles:  store,
	}

	r := mux.NewRouter()
	api := RegisterRoutes(r, tokens, RateLimit{Requests: 1000, Window: time.Minute})
	RegisterBookRoutes(api, entries, comments, coordinator)
	return &apiFixture{router: r, store: store, tokens: tokens}
}

func (f *apiFixture) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		token, err := f.tokens.GenerateToken(user)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthIsPublic(t *testing.T) {
	f := newAPI(t)
	rec := f.do(t, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestAPIRequiresToken(t *testing.T) {
	f := newAPI(t)
	rec := f.do(t, http.MethodPost, "/api/books", "", `{"title":"Dune"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestBookLifecycle(t *testing.T) {
	f := newAPI(t)

	rec := f.do(t, http.MethodPost, "/api/books", "owner", `{"title":"Dune","bookAuthor":"Frank Herbert"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	book := decode[models.Entry](t, rec)

	rec = f.do(t, http.MethodPost, "/api/books/"+book.BookID+"/like", "reader", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	result := decode[services.InteractionResult](t, rec)
	assert.True(t, result.Changed)
	assert.Equal(t, 1, result.Entry.LikeCount)
	assert.Len(t, f.store.Notifications("owner"), 1)

	rec = f.do(t, http.MethodPost, "/api/books/"+book.BookID+"/dislike", "reader", "")
	require.Equal(t, http.StatusOK, rec.Code)
	result = decode[services.InteractionResult](t, rec)
	assert.Equal(t, 0, result.Entry.LikeCount)
	assert.Equal(t, 1, result.Entry.DislikeCount)

	rec = f.do(t, http.MethodDelete, "/api/books/"+book.BookID, "reader", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/books/"+book.BookID, "owner", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/books/"+book.BookID, "owner", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"error"`)
}

func TestCommentEndpoints(t *testing.T) {
	f := newAPI(t)
	rec := f.do(t, http.MethodPost, "/api/books", "owner", `{"title":"Emma"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	book := decode[models.Entry](t, rec)

	rec = f.do(t, http.MethodPost, "/api/books/"+book.BookID+"/comments", "alice", `{"text":"Lovely"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	comment := decode[models.CommentView](t, rec)
	assert.Equal(t, "alice", comment.AuthorName)

	rec = f.do(t, http.MethodPatch, "/api/comments/"+comment.CommentID, "mallory", `{"text":"defaced"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/comments/"+comment.CommentID, "alice", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/comments/"+comment.CommentID, "alice", `{"text":"Lovely indeed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/books/"+book.BookID+"/comments", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.CommentView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Lovely indeed", list[0].Text)

	rec = f.do(t, http.MethodDelete, "/api/comments/"+comment.CommentID, "alice", "")
	require.Equal(t, http.StatusOK, rec.Code)
	deleted := decode[models.CommentDeleted](t, rec)
	assert.Equal(t, book.BookID, deleted.EntryID)

	rec = f.do(t, http.MethodPost, "/api/books/missing/comments", "alice", `{"text":"hi"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCommentEditChecksOrderBeforeText(t *testing.T) {
	f := newAPI(t)
	rec := f.do(t, http.MethodPost, "/api/books", "owner", `{"title":"Persuasion"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	book := decode[models.Entry](t, rec)

	rec = f.do(t, http.MethodPost, "/api/books/"+book.BookID+"/comments", "alice", `{"text":"Quiet and sharp"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	comment := decode[models.CommentView](t, rec)

	rec = f.do(t, http.MethodPatch, "/api/comments/"+comment.CommentID, "mallory", `{"text":""}`)
	assert.Equal(t, http.StatusForbidden, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPatch, "/api/comments/nope", "alice", `{"text":""}`)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodPost, "/api/books/"+book.BookID+"/comments", "alice", `{"text":"   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/books/"+book.BookID+"/comments", "bob", "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[[]models.CommentView](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Quiet and sharp", list[0].Text)
}

func TestInteractionsEndpoint(t *testing.T) {
	f := newAPI(t)
	rec := f.do(t, http.MethodPost, "/api/books", "owner", `{"title":"Emma"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	book := decode[models.Entry](t, rec)

	rec = f.do(t, http.MethodPost, "/api/interactions", "reader", `{"type":"like","bookId":"`+book.BookID+`"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decode[services.InteractionResult](t, rec).Changed)

	rec = f.do(t, http.MethodPost, "/api/interactions", "reader", `{"type":"poke","bookId":"`+book.BookID+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/interactions", "reader", `{"bookId":"`+book.BookID+`"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
