package api

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"sort"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/impulsenest/teacherpanel/internal/storage"
	"github.com/impulsenest/teacherpanel/internal/telemetry"
)

const (
	uploadPath         = "/upload"
	uploadMultiplePath = "/upload/multiple"

	// DefaultUploadType is sent when no file category is given
	DefaultUploadType = "general"
)

// ProgressFunc receives the bytes of the request body sent so far and the
// total body size.
type ProgressFunc func(sent, total int64)

// UploadFile is one file part.
type UploadFile struct {
	Name    string
	Content io.Reader
}

// UploadOptions are the non-file form fields and the progress callback.
type UploadOptions struct {
	// Type is the file category (default "general")
	Type       string
	Metadata   map[string]string
	OnProgress ProgressFunc
}

// FileDigest identifies an uploaded file's content.
type FileDigest struct {
	Name   string `json:"name" yaml:"name"`
	Size   int64  `json:"size" yaml:"size"`
	BLAKE3 string `json:"blake3" yaml:"blake3"`
}

// UploadResult is the backend reply plus the digests of what was sent.
type UploadResult struct {
	Response *Response
	Files    []FileDigest
}

// Upload sends a single file to /upload. Uploads are attempted once: a 401
// is returned to the caller without a refresh.
func (c *Client) Upload(ctx context.Context, file UploadFile, opts UploadOptions) (*UploadResult, error) {
	return c.upload(ctx, uploadPath, "file", []UploadFile{file}, opts, "Upload failed with status: %d")
}

// UploadMultiple sends files as repeated "files" parts to /upload/multiple.
func (c *Client) UploadMultiple(ctx context.Context, files []UploadFile, opts UploadOptions) (*UploadResult, error) {
	return c.upload(ctx, uploadMultiplePath, "files", files, opts, "Multiple upload failed with status: %d")
}

func (c *Client) upload(ctx context.Context, endpoint, field string, files []UploadFile, opts UploadOptions, failFormat string) (*UploadResult, error) {
	kind := "single"
	if endpoint == uploadMultiplePath {
		kind = "multiple"
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files to upload")
	}

	ctx, span := telemetry.StartUploadSpan(ctx, endpoint, len(files))
	defer span.End()

	body, contentType, digests, err := buildMultipart(field, files, opts)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	total := int64(body.Len())

	target := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &progressReader{
		r:     body,
		total: total,
		fn:    opts.OnProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if token := storage.GetString(c.store, storage.KeyToken); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ObserveRequest(http.MethodPost, 0, time.Since(start))
		c.metrics.ObserveUpload(kind, false, 0)
		terr := &TransportError{Method: http.MethodPost, URL: target, Err: err}
		telemetry.RecordError(span, terr)
		return nil, terr
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	c.metrics.ObserveRequest(http.MethodPost, httpResp.StatusCode, time.Since(start))
	if err != nil {
		c.metrics.ObserveUpload(kind, false, total)
		return nil, &TransportError{Method: http.MethodPost, URL: target, Err: err}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		c.metrics.ObserveUpload(kind, false, total)
		serr := &StatusError{
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(respBody, fmt.Sprintf(failFormat, httpResp.StatusCode)),
			Body:       respBody,
		}
		telemetry.RecordError(span, serr)
		return nil, serr
	}

	c.metrics.ObserveUpload(kind, true, total)
	telemetry.RecordStatus(span, httpResp.StatusCode)
	telemetry.RecordSuccess(span)
	c.logger.DebugContext(ctx, "upload completed", "endpoint", endpoint, "files", len(files), "bytes", total)

	resp := newResponse(httpResp, respBody)
	// the upload endpoints answer JSON even when the content type is missing
	if !resp.JSON && jsonBody(respBody) {
		resp.JSON = true
	}
	return &UploadResult{Response: resp, Files: digests}, nil
}

// buildMultipart renders the form. Files are hashed as they are copied.
func buildMultipart(field string, files []UploadFile, opts UploadOptions) (*bytes.Buffer, string, []FileDigest, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	digests := make([]FileDigest, 0, len(files))

	for _, f := range files {
		part, err := w.CreateFormFile(field, f.Name)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to create form part for %s: %w", f.Name, err)
		}

		h := blake3.New()
		n, err := io.Copy(io.MultiWriter(part, h), f.Content)
		if err != nil {
			return nil, "", nil, fmt.Errorf("failed to read %s: %w", f.Name, err)
		}
		digests = append(digests, FileDigest{
			Name:   f.Name,
			Size:   n,
			BLAKE3: hex.EncodeToString(h.Sum(nil)),
		})
	}

	uploadType := opts.Type
	if uploadType == "" {
		uploadType = DefaultUploadType
	}
	if err := w.WriteField("type", uploadType); err != nil {
		return nil, "", nil, err
	}

	keys := make([]string, 0, len(opts.Metadata))
	for k := range opts.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, opts.Metadata[k]); err != nil {
			return nil, "", nil, err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", nil, err
	}
	return body, w.FormDataContentType(), digests, nil
}

func jsonBody(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && (b[0] == '{' || b[0] == '[')
}

// progressReader reports bytes consumed by the transport.
type progressReader struct {
	r     io.Reader
	total int64
	sent  atomic.Int64
	fn    ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.fn != nil {
		p.fn(p.sent.Add(int64(n)), p.total)
	}
	return n, err
}

// FileAPI wraps the non-multipart /upload endpoints.
type FileAPI struct {
	client *Client
}

// Files returns the uploaded-file endpoint wrapper
func (c *Client) Files() *FileAPI {
	return &FileAPI{client: c}
}

// Info returns metadata about an uploaded file.
func (f *FileAPI) Info(ctx context.Context, id string) (Entity, error) {
	return getEntity(ctx, f.client, uploadPath+"/"+url.PathEscape(id))
}

// ListByType lists uploaded files of one category.
func (f *FileAPI) ListByType(ctx context.Context, fileType string) ([]Entity, error) {
	return listEntities(ctx, f.client, uploadPath, url.Values{"type": {fileType}})
}

// Delete removes an uploaded file.
func (f *FileAPI) Delete(ctx context.Context, id string) error {
	return deleteEntity(ctx, f.client, uploadPath+"/"+url.PathEscape(id))
}
