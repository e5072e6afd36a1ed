package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"go-bookshelf/internal/model"
	"go-bookshelf/internal/service"
	"go-bookshelf/pkg/apierror"
)

type BookHandler struct {
	service *service.BookService
}

func NewBookHandler(service *service.BookService) *BookHandler {
	return &BookHandler{service: service}
}

func (h *BookHandler) List(w http.ResponseWriter, r *http.Request) {
	books, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.BookList{Books: books})
}

func (h *BookHandler) Get(w http.ResponseWriter, r *http.Request) {
	book, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, book)
}

func (h *BookHandler) Create(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUsername(r)
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	var payload model.BookRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.service.Create(r.Context(), username, payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, book)
}

func (h *BookHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload model.BookRequest
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, err)
		return
	}

	book, err := h.service.Update(r.Context(), chi.URLParam(r, "id"), payload)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, book)
}

func (h *BookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"deleted": id})
}

func (h *BookHandler) Favorites(w http.ResponseWriter, r *http.Request) {
	username, ok := currentUsername(r)
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	books, err := h.service.Favorites(r.Context(), username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, model.BookList{Books: books})
}

func (h *BookHandler) AddFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, true)
}

func (h *BookHandler) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	h.setFavorite(w, r, false)
}

func (h *BookHandler) setFavorite(w http.ResponseWriter, r *http.Request, favorite bool) {
	username, ok := currentUsername(r)
	if !ok {
		writeError(w, apierror.Unauthorized("authentication required"))
		return
	}

	id := chi.URLParam(r, "id")

	var err error
	if favorite {
		err = h.service.AddFavorite(r.Context(), username, id)
	} else {
		err = h.service.RemoveFavorite(r.Context(), username, id)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, map[string]any{"book_id": id, "favorite": favorite})
}
