package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/BorisDmv/multiblog-api/internal/auth"
	"github.com/BorisDmv/multiblog-api/internal/blog"
)

const maxPageSize = 100

type PostsHandler struct {
	svc *blog.Service
}

func NewPostsHandler(svc *blog.Service) *PostsHandler {
	return &PostsHandler{svc: svc}
}

type postRequest struct {
	Title    string  `json:"title"`
	Body     string  `json:"body"`
	ImageURL *string `json:"imageUrl"`
	// Older clients send snake_case.
	LegacyImageURL *string `json:"image_url"`
}

func (p postRequest) input() blog.PostInput {
	img := p.ImageURL
	if img == nil {
		img = p.LegacyImageURL
	}
	return blog.PostInput{Title: p.Title, Body: p.Body, ImageURL: img}
}

type CreatePostResponse struct {
	Message string `json:"message"`
	PostID  int64  `json:"postId"`
}

// List returns every post newest first. When a limit query parameter is
// given the result is paged with page (1-based).
func (h *PostsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 0)
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset := 0
	if limit > 0 {
		page := parsePositiveInt(r.URL.Query().Get("page"), 1)
		offset = (page - 1) * limit
	}

	posts, err := h.svc.ListPosts(r.Context(), limit, offset)
	if err != nil {
		respondServiceError(w, "list posts", err)
		return
	}
	respondJSON(w, http.StatusOK, posts)
}

func (h *PostsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := postID(w, r)
	if !ok {
		return
	}
	post, err := h.svc.GetPost(r.Context(), id)
	if err != nil {
		respondServiceError(w, "get post", err)
		return
	}
	respondJSON(w, http.StatusOK, post)
}

// Create stores a post owned by the authenticated caller.
func (h *PostsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.svc.CreatePost(r.Context(), caller, req.input())
	if err != nil {
		respondServiceError(w, "create post", err)
		return
	}
	respondJSON(w, http.StatusCreated, CreatePostResponse{Message: "post created", PostID: id})
}

func (h *PostsHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := postID(w, r)
	if !ok {
		return
	}
	var req postRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.svc.UpdatePost(r.Context(), caller, id, req.input()); err != nil {
		respondServiceError(w, "update post", err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "post updated"})
}

func (h *PostsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerIdentity(w, r)
	if !ok {
		return
	}
	id, ok := postID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeletePost(r.Context(), caller, id); err != nil {
		respondServiceError(w, "delete post", err)
		return
	}
	respondJSON(w, http.StatusOK, messageResponse{Message: "post deleted"})
}

// postID parses the {id} route parameter. Ids that cannot name a post are
// reported as not found.
func postID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusNotFound, "post not found")
		return 0, false
	}
	return id, true
}

func callerIdentity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
	}
	return id, ok
}
