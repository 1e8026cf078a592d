package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"
)

// ImageUploader stores an image somewhere public and returns its URL.
type ImageUploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

type ImagesHandler struct {
	uploader ImageUploader
	maxBytes int64
}

// NewImagesHandler returns a handler that forwards uploads to uploader. A nil
// uploader makes the endpoint answer 503.
func NewImagesHandler(uploader ImageUploader, maxBytes int64) *ImagesHandler {
	return &ImagesHandler{uploader: uploader, maxBytes: maxBytes}
}

type UploadImageResponse struct {
	URL string `json:"url"`
}

// Upload accepts a multipart form with an "image" file and relays it to the
// image host. The caller must be authenticated.
func (h *ImagesHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if _, ok := callerIdentity(w, r); !ok {
		return
	}
	if h.uploader == nil {
		respondError(w, http.StatusServiceUnavailable, "image uploads are not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	file, hdr, err := r.FormFile("image")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "image is too large")
			return
		}
		respondError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()

	sniff := make([]byte, 512)
	n, err := io.ReadFull(file, sniff)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		respondError(w, http.StatusBadRequest, "image file is empty")
		return
	}
	sniff = sniff[:n]
	if !strings.HasPrefix(http.DetectContentType(sniff), "image/") {
		respondError(w, http.StatusBadRequest, "file is not an image")
		return
	}

	url, err := h.uploader.Upload(r.Context(), hdr.Filename, io.MultiReader(bytes.NewReader(sniff), file))
	if err != nil {
		log.Printf("upload image: %v", err)
		respondError(w, http.StatusBadGateway, "image upload failed")
		return
	}
	respondJSON(w, http.StatusCreated, UploadImageResponse{URL: url})
}
