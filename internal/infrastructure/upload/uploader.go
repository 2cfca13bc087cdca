// Package upload submits project specification files to the task-creation
// endpoint.
package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/felixgeelhaar/fortify/timeout"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileField is the multipart field the endpoint reads the spec from.
const FileField = "file"

// maxErrorBody bounds how much of an error response is read for the message.
const maxErrorBody = 64 << 10

// UploadError is returned when the endpoint could not be reached or did not
// accept the file. StatusCode is 0 for transport failures.
type UploadError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("network error: %s", e.Message)
	}
	return fmt.Sprintf("server error (%d): %s", e.StatusCode, e.Message)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// Receipt is what the endpoint acknowledged. Tasks created from the file are
// not part of it; they arrive later on the push channel.
type Receipt struct {
	ProjectID  string
	RequestID  string
	StatusCode int
}

// Uploader sends spec files to the creation endpoint. It never touches the
// task collection.
type Uploader struct {
	endpoint string
	client   *http.Client
	timeout  time.Duration
	logger   logrus.FieldLogger
	inFlight atomic.Int32
}

// Option configures an Uploader.
type Option func(*Uploader)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(u *Uploader) {
		if c != nil {
			u.client = c
		}
	}
}

// WithTimeout bounds a single upload request.
func WithTimeout(d time.Duration) Option {
	return func(u *Uploader) {
		if d > 0 {
			u.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(u *Uploader) {
		if l != nil {
			u.logger = l
		}
	}
}

// NewUploader creates an uploader for the given endpoint URL.
func NewUploader(endpoint string, opts ...Option) *Uploader {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	u := &Uploader{
		endpoint: endpoint,
		client:   &http.Client{},
		timeout:  60 * time.Second,
		logger:   discard,
	}
	for _, fn := range opts {
		fn(u)
	}
	return u
}

// Endpoint returns the creation endpoint URL.
func (u *Uploader) Endpoint() string {
	return u.endpoint
}

// Uploading reports whether a request is in flight.
func (u *Uploader) Uploading() bool {
	return u.inFlight.Load() > 0
}

// Upload sends the file at path. An empty path means nothing was selected
// and is a no-op.
func (u *Uploader) Upload(ctx context.Context, path string) error {
	_, err := u.UploadWithReceipt(ctx, path)
	return err
}

// UploadWithReceipt is Upload returning what the endpoint acknowledged. The
// receipt is nil when path is empty.
func (u *Uploader) UploadWithReceipt(ctx context.Context, path string) (*Receipt, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spec: %w", err)
	}
	defer f.Close()
	return u.send(ctx, filepath.Base(path), f)
}

// UploadReader sends content read from r under the given file name. A nil
// reader is a no-op.
func (u *Uploader) UploadReader(ctx context.Context, name string, r io.Reader) (*Receipt, error) {
	if r == nil {
		return nil, nil
	}
	return u.send(ctx, name, r)
}

func (u *Uploader) send(ctx context.Context, name string, r io.Reader) (*Receipt, error) {
	u.inFlight.Add(1)
	defer u.inFlight.Add(-1)

	body, contentType, err := multipartBody(name, r)
	if err != nil {
		return nil, fmt.Errorf("build upload body: %w", err)
	}

	requestID := uuid.NewString()
	log := u.logger.WithFields(logrus.Fields{
		"endpoint":   u.endpoint,
		"file":       name,
		"request_id": requestID,
	})
	log.Debug("uploading spec")

	t := timeout.New[*Receipt](timeout.Config{DefaultTimeout: u.timeout})
	receipt, err := t.Execute(ctx, u.timeout, func(ctx context.Context) (*Receipt, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		resp, err := u.client.Do(req)
		if err != nil {
			return nil, &UploadError{Message: err.Error(), Err: err}
		}
		defer resp.Body.Close()

		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &UploadError{
				StatusCode: resp.StatusCode,
				Message:    errorMessage(resp.StatusCode, data),
			}
		}
		return &Receipt{
			ProjectID:  projectID(data),
			RequestID:  requestID,
			StatusCode: resp.StatusCode,
		}, nil
	})
	if err != nil {
		var ue *UploadError
		if !errors.As(err, &ue) {
			err = &UploadError{Message: err.Error(), Err: err}
		}
		log.WithError(err).Warn("spec upload failed")
		return nil, err
	}

	log.WithField("project_id", receipt.ProjectID).Info("spec accepted")
	return receipt, nil
}

func multipartBody(name string, r io.Reader) ([]byte, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, FileField, escapeQuotes(name)))
	h.Set("Content-Type", ContentType(name))
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, "", err
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), mw.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// ContentType returns the part content type the endpoint expects for a spec
// file name.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".md", ".markdown":
		return "text/markdown"
	case ".txt":
		return "text/plain"
	case ".pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}

// errorMessage extracts a human-readable message from an error response.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Detail  any    `json:"detail"`
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch d := payload.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	} else if text := strings.TrimSpace(string(body)); text != "" && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(status)
}

func projectID(body []byte) string {
	var payload struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return payload.ProjectID
}
