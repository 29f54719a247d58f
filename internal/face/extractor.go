package face

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ErrNoFace is returned when the detector finds zero faces in an image.
// This is an expected outcome the caller handles as a rejection, not a
// system fault.
var ErrNoFace = errors.New("no face detected")

// Extractor turns a raw image into at most one descriptor.
type Extractor interface {
	Extract(ctx context.Context, image []byte) (Descriptor, error)
}

// Client calls the face encoding microservice over HTTP.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client for the encoding service.
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		HTTP: &http.Client{
			Timeout: 30 * time.Second, // face processing can take time
		},
	}
}

// Health pings the encoding service.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/healthz", nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}
	return nil
}

// Extract submits image bytes and returns the descriptor of the first
// detected face. The service may detect several faces; the first detection
// is used deterministically, no confidence-based selection is performed.
func (c *Client) Extract(ctx context.Context, image []byte) (Descriptor, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("image required")
	}

	body, _ := json.Marshal(map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/encode", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("face service error %s: %s", resp.Status, string(respBody))
	}

	var out struct {
		Descriptors [][]float64 `json:"descriptors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if len(out.Descriptors) == 0 {
		return nil, ErrNoFace
	}
	return Descriptor(out.Descriptors[0]), nil
}

// StubExtractor returns a fixed descriptor without calling any service.
// Used in dev mode (FACE_SKIP) and in tests. An empty image still yields
// ErrNoFace so rejection paths stay exercisable.
type StubExtractor struct {
	Fixed Descriptor
}

// Extract implements Extractor.
func (s *StubExtractor) Extract(_ context.Context, image []byte) (Descriptor, error) {
	if len(image) == 0 {
		return nil, ErrNoFace
	}
	if len(s.Fixed) > 0 {
		return s.Fixed, nil
	}
	d := make(Descriptor, 128)
	for i := range d {
		d[i] = 0.1
	}
	return d, nil
}
