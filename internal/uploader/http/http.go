// Package http has the uploader that sends files to the contracts backend
// `POST /documents/upload` endpoint.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"github.com/slok/cupload/internal/log"
	"github.com/slok/cupload/internal/model"
)

const uploadPath = "/documents/upload"

// UploaderConfig is the configuration for the HTTP uploader.
type UploaderConfig struct {
	// APIURL is the backend base URL (e.g. "http://localhost:8000").
	APIURL string
	// Token is the bearer token sent on every request, optional.
	Token      string
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *UploaderConfig) defaults() error {
	if c.APIURL == "" {
		return fmt.Errorf("api url is required")
	}
	c.APIURL = strings.TrimSuffix(c.APIURL, "/")

	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "uploader.HTTP"})
	return nil
}

// Uploader uploads files using multipart form requests.
type Uploader struct {
	apiURL     string
	token      string
	httpClient *http.Client
	logger     log.Logger
}

// NewUploader creates a new HTTP uploader.
func NewUploader(cfg UploaderConfig) (*Uploader, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Uploader{
		apiURL:     cfg.APIURL,
		token:      cfg.Token,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

type uploadResponse struct {
	DocID          string `json:"doc_id"`
	ChunksInserted int    `json:"chunks_inserted"`
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Upload streams the file as the "file" form field.
func (u *Uploader) Upload(ctx context.Context, f model.File) (*model.UploadResult, error) {
	if f.Open == nil {
		return nil, fmt.Errorf("file %s has no content: %w", f.Name, model.ErrNotValid)
	}

	src, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("could not open file: %w", err)
	}
	defer src.Close()

	// Stream the body so the payload is never buffered in memory.
	pr, pw := io.Pipe()
	form := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(writeForm(form, f, src))
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.apiURL+uploadPath, pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var eResp errorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64*1024)).Decode(&eResp)
		if eResp.Detail != "" {
			return nil, fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, eResp.Detail)
		}
		return nil, fmt.Errorf("upload failed (status %d)", resp.StatusCode)
	}

	var uResp uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&uResp); err != nil {
		return nil, fmt.Errorf("could not decode upload response: %w", err)
	}

	u.logger.Debugf("Uploaded %s as document %s (%d chunks)", f.Name, uResp.DocID, uResp.ChunksInserted)

	return &model.UploadResult{
		DocumentID:     uResp.DocID,
		ChunksInserted: uResp.ChunksInserted,
	}, nil
}

func writeForm(form *multipart.Writer, f model.File, src io.Reader) error {
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, f.Name))
	h.Set("Content-Type", f.ContentType)

	part, err := form.CreatePart(h)
	if err != nil {
		return fmt.Errorf("could not create form part: %w", err)
	}
	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("could not write file: %w", err)
	}

	return form.Close()
}
