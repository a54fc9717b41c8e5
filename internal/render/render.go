package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/zlib"
)

// DefaultBaseURL is the public mermaid.ink service.
const DefaultBaseURL = "https://mermaid.ink"

// ErrServiceFailure is wrapped by every error returned from a failed render call.
var ErrServiceFailure = errors.New("render service failure")

// ServiceError reports a non-success HTTP status from the render service.
type ServiceError struct {
	Status int
	URL    string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("render service returned status %d", e.Status)
}

// Unwrap lets errors.Is match ErrServiceFailure.
func (e *ServiceError) Unwrap() error { return ErrServiceFailure }

// Format is an image format supported by the render service.
type Format string

const (
	FormatSVG Format = "svg"
	FormatPNG Format = "png"
)

// ParseFormat accepts "svg" or "png", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatSVG, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported image format %q", s)
	}
}

// ContentType returns the MIME type of images in this format.
func (f Format) ContentType() string {
	if f == FormatPNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Client builds render URLs and fetches rendered images.
type Client struct {
	baseURL string
	theme   string
	client  *http.Client
}

// NewClient creates a Client. Empty baseURL and theme fall back to the
// public service and the "default" theme.
func NewClient(baseURL, theme string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if theme == "" {
		theme = "default"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		theme:   theme,
		client:  &http.Client{Timeout: timeout},
	}
}

// envelope is the editor state mermaid.ink decodes from a pako: URL.
// Field order matters for byte-compatible output with the live editor.
type envelope struct {
	Code          string `json:"code"`
	Mermaid       string `json:"mermaid"`
	UpdateEditor  bool   `json:"updateEditor"`
	AutoSync      bool   `json:"autoSync"`
	UpdateDiagram bool   `json:"updateDiagram"`
}

// Serialize encodes markup the way the Mermaid live editor does: a JSON
// state deflated with zlib at maximum compression, then URL-safe base64
// without padding.
func Serialize(markup, theme string) (string, error) {
	mermaidCfg, err := marshalNoEscape(map[string]string{"theme": theme}, "  ")
	if err != nil {
		return "", fmt.Errorf("encoding mermaid config: %w", err)
	}
	state, err := marshalNoEscape(envelope{
		Code:          markup,
		Mermaid:       string(mermaidCfg),
		UpdateEditor:  true,
		AutoSync:      true,
		UpdateDiagram: true,
	}, "")
	if err != nil {
		return "", fmt.Errorf("encoding editor state: %w", err)
	}

	var buf bytes.Buffer
	zw, err := zlib.NewWriterLevel(&buf, zlib.BestCompression)
	if err != nil {
		return "", fmt.Errorf("creating deflate writer: %w", err)
	}
	if _, err := zw.Write(state); err != nil {
		return "", fmt.Errorf("deflating editor state: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("deflating editor state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf.Bytes()), nil
}

// Deserialize reverses Serialize and returns the diagram code.
func Deserialize(encoded string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decoding base64: %w", err)
	}
	zr, err := zlib.NewReader(bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("opening deflate stream: %w", err)
	}
	defer zr.Close()

	var env envelope
	if err := json.NewDecoder(zr).Decode(&env); err != nil {
		return "", fmt.Errorf("decoding editor state: %w", err)
	}
	return env.Code, nil
}

// marshalNoEscape matches JSON.stringify output: no HTML escaping and no
// trailing newline.
func marshalNoEscape(v any, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// URL returns the render URL for markup in the given format.
func (c *Client) URL(markup string, format Format) (string, error) {
	encoded, err := Serialize(markup, c.theme)
	if err != nil {
		return "", err
	}
	switch format {
	case FormatPNG:
		return fmt.Sprintf("%s/img/pako:%s?type=png", c.baseURL, encoded), nil
	case FormatSVG:
		return fmt.Sprintf("%s/svg/pako:%s", c.baseURL, encoded), nil
	default:
		return "", fmt.Errorf("unsupported image format %q", format)
	}
}

// Fetch renders markup remotely and returns the image bytes.
func (c *Client) Fetch(ctx context.Context, markup string, format Format) ([]byte, error) {
	url, err := c.URL(markup, format)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating render request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrServiceFailure, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ServiceError{Status: resp.StatusCode, URL: url}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrServiceFailure, err)
	}
	return body, nil
}

// Theme returns the configured rendering theme.
func (c *Client) Theme() string { return c.theme }
