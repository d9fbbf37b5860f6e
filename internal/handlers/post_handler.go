package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/hungpv1995/blog-api/internal/logger"
	"github.com/hungpv1995/blog-api/internal/models"
	"github.com/hungpv1995/blog-api/internal/repository"
)

type PostHandler struct {
	store    repository.PostStore
	validate *validator.Validate
	log      logger.Logger
}

func NewPostHandler(store repository.PostStore, log logger.Logger) *PostHandler {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &PostHandler{
		store:    store,
		validate: validate,
		log:      log,
	}
}

// RegisterRoutes mounts the post endpoints on r
func (h *PostHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/posts", h.ListPosts).Methods(http.MethodGet)
	r.HandleFunc("/posts", h.CreatePost).Methods(http.MethodPost)
	r.HandleFunc("/posts/{id}", h.GetPost).Methods(http.MethodGet)
	r.HandleFunc("/posts/{id}", h.UpdatePost).Methods(http.MethodPut)
	r.HandleFunc("/posts/{id}", h.DeletePost).Methods(http.MethodDelete)
}

// ListPosts handles GET /posts
func (h *PostHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.store.FindAll(r.Context())
	if err != nil {
		h.reqLog(r).Error("Failed to list posts", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list posts")
		return
	}

	response := make([]models.PostResponse, 0, len(posts))
	for i := range posts {
		response = append(response, posts[i].Serialize())
	}
	writeJSON(w, http.StatusOK, response)
}

// GetPost handles GET /posts/{id}
func (h *PostHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	post, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		h.storeError(w, r, err, "Failed to get post", id)
		return
	}

	writeJSON(w, http.StatusOK, post.Serialize())
}

// CreatePost handles POST /posts
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		msg := validationMessage(err)
		h.reqLog(r).Warn("Rejected post", "error", msg)
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	in := req.ToPost()
	post, err := h.store.Create(r.Context(), &in)
	if err != nil {
		h.reqLog(r).Error("Failed to create post", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to create post")
		return
	}

	h.reqLog(r).Info("Post created", "id", post.ID)
	writeJSON(w, http.StatusCreated, post.Serialize())
}

// UpdatePost handles PUT /posts/{id}
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req models.UpdatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.ID != id {
		msg := "Request path id (" + id + ") and request body id (" + req.ID + ") must match"
		h.reqLog(r).Warn("Rejected update", "error", msg)
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		msg := validationMessage(err)
		h.reqLog(r).Warn("Rejected update", "id", id, "error", msg)
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.store.Update(r.Context(), id, req.ToUpdate()); err != nil {
		h.storeError(w, r, err, "Failed to update post", id)
		return
	}

	h.reqLog(r).Info("Post updated", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// DeletePost handles DELETE /posts/{id}
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.store.Delete(r.Context(), id); err != nil {
		h.storeError(w, r, err, "Failed to delete post", id)
		return
	}

	h.reqLog(r).Info("Post deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// reqLog returns the request scoped logger set by the server middleware,
// falling back to the handler's own
func (h *PostHandler) reqLog(r *http.Request) logger.Logger {
	if l, ok := logger.Lookup(r.Context()); ok {
		return l
	}
	return h.log
}

func (h *PostHandler) storeError(w http.ResponseWriter, r *http.Request, err error, msg, id string) {
	if errors.Is(err, repository.ErrPostNotFound) {
		writeError(w, http.StatusNotFound, "Post not found")
		return
	}
	h.reqLog(r).Error(msg, "id", id, "error", err)
	writeError(w, http.StatusInternalServerError, msg)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		_, field, _ := strings.Cut(fe.Namespace(), ".")
		if fe.Tag() == "required" {
			return "Missing `" + field + "` in request body"
		}
		return "Invalid `" + field + "` in request body"
	}
	return err.Error()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Message: msg})
}
