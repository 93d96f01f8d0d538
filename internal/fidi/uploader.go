package fidi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"fjacquet/firefly-preimporter/internal/logging"
	"fjacquet/firefly-preimporter/internal/parsererror"
)

// Response is the answer of the auto-upload endpoint.
type Response struct {
	StatusCode int
	Body       string
}

// Uploader posts imports to a FiDI auto-upload URL.
type Uploader struct {
	url    string
	token  string
	secret string
	client *http.Client
	logger logging.Logger
}

// NewUploader returns an Uploader. token is the Firefly personal access
// token, secret the FiDI auto-import secret.
func NewUploader(url, token, secret string, client *http.Client, logger logging.Logger) *Uploader {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = logging.NewLogrusAdapter("info", "text")
	}
	return &Uploader{url: url, token: token, secret: secret, client: client, logger: logger}
}

// Upload sends csvPayload and jsonConfig as one multipart request. Any
// non-2xx answer is an UploadError.
func (u *Uploader) Upload(ctx context.Context, csvPayload string, jsonConfig map[string]interface{}) (*Response, error) {
	configJSON, err := json.Marshal(jsonConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to encode import configuration: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writeFilePart(writer, "importable", "transactions.csv", "text/csv", []byte(csvPayload)); err != nil {
		return nil, err
	}
	if err := writeFilePart(writer, "json", "config.json", "application/json", configJSON); err != nil {
		return nil, err
	}
	if err := writer.WriteField("secret", u.secret); err != nil {
		return nil, fmt.Errorf("failed to write secret field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.url, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build FiDI request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+u.token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", writer.FormDataContentType())

	u.logger.Debug("Posting import to FiDI", logging.F(logging.FieldURL, u.url))
	resp, err := u.client.Do(req)
	if err != nil {
		return nil, &parsererror.UploadError{Target: "FiDI", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &parsererror.UploadError{Target: "FiDI", StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &parsererror.UploadError{Target: "FiDI", StatusCode: resp.StatusCode, Body: string(data)}
	}
	return &Response{StatusCode: resp.StatusCode, Body: string(data)}, nil
}

func writeFilePart(writer *multipart.Writer, field, filename, contentType string, content []byte) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, filename))
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", field, err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("failed to write %s part: %w", field, err)
	}
	return nil
}
