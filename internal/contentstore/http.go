package contentstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/starford/brewmint/internal/apperr"
	"github.com/starford/brewmint/internal/cid"
)

// HTTP uploads to an IPFS-compatible node through its /api/v0/add endpoint.
type HTTP struct {
	baseURL string
	client  *http.Client
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// NewHTTP creates an HTTP store. A nil client uses http.DefaultClient.
func NewHTTP(baseURL string, client *http.Client) (*HTTP, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("contentstore: api url is required")
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{baseURL: baseURL, client: client}, nil
}

// UploadContent implements Store.
func (h *HTTP) UploadContent(ctx context.Context, data []byte) (cid.ID, error) {
	return h.add(ctx, "content", data)
}

// UploadFile implements Store.
func (h *HTTP) UploadFile(ctx context.Context, path string) (cid.ID, error) {
	data, err := readFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %w", apperr.ErrContentUpload, err)
	}
	return h.add(ctx, filepath.Base(path), data)
}

func (h *HTTP) add(ctx context.Context, name string, data []byte) (cid.ID, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("contentstore: form: %w: %w", apperr.ErrContentUpload, err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("contentstore: form: %w: %w", apperr.ErrContentUpload, err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("contentstore: form: %w: %w", apperr.ErrContentUpload, err)
	}

	url := h.baseURL + "/api/v0/add?cid-version=1&pin=true"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("contentstore: request: %w: %w", apperr.ErrContentUpload, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := h.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("contentstore: post: %w: %w", apperr.ErrContentUpload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("contentstore: add returned %d: %s: %w", resp.StatusCode, strings.TrimSpace(string(msg)), apperr.ErrContentUpload)
	}

	var out addResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("contentstore: decode response: %w: %w", apperr.ErrContentUpload, err)
	}
	id, err := cid.Parse(out.Hash)
	if err != nil {
		return "", fmt.Errorf("contentstore: %w: %w", apperr.ErrContentUpload, err)
	}
	return id, nil
}
