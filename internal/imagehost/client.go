// Package imagehost uploads post images to an external hosting service and
// returns their public URL.
//
// The wire format follows the ImgBB upload API: a multipart POST with an
// "image" file part, the API key in the "key" query parameter, and a JSON
// reply carrying the URL in data.url. Hosts that reply with a top-level
// "url" are accepted too.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrRejected is returned when the host answers with a non-2xx status or an
// unusable body.
var ErrRejected = errors.New("image host rejected upload")

type Client struct {
	uploadURL  string
	apiKey     string
	httpClient *http.Client
}

func NewClient(uploadURL, apiKey string) *Client {
	return &Client{
		uploadURL:  uploadURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type uploadResponse struct {
	URL  string `json:"url"`
	Data struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Upload sends the image bytes in r and returns the hosted URL. The object is
// stored under a random name that keeps the original extension.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	name := uuid.NewString() + strings.ToLower(path.Ext(filename))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("image", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if err := mw.WriteField("name", strings.TrimSuffix(name, path.Ext(name))); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	target, err := url.Parse(c.uploadURL)
	if err != nil {
		return "", fmt.Errorf("parse upload url: %w", err)
	}
	if c.apiKey != "" {
		q := target.Query()
		q.Set("key", c.apiKey)
		target.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
	var out uploadResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: decode response: %v", ErrRejected, err)
	}
	hosted := out.Data.URL
	if hosted == "" {
		hosted = out.URL
	}
	if hosted == "" {
		return "", fmt.Errorf("%w: no url in response", ErrRejected)
	}
	return hosted, nil
}
