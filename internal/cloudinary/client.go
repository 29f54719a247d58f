package cloudinary

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"
)

// Client uploads student registration photos to Cloudinary using signed
// uploads.
type Client struct {
	cloudName string
	apiKey    string
	apiSecret string
	folder    string
	http      *http.Client
}

// New creates a Cloudinary client.
func New(cloudName, apiKey, apiSecret, folder string) *Client {
	return &Client{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		folder:    folder,
		http:      &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload stores image bytes under the given public id and returns the
// resulting secure URL.
func (c *Client) Upload(ctx context.Context, data []byte, name string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty image")
	}

	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	signature := c.sign(map[string]string{
		"folder":    c.folder,
		"public_id": name,
		"timestamp": timestamp,
	})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	_ = w.WriteField("api_key", c.apiKey)
	_ = w.WriteField("timestamp", timestamp)
	_ = w.WriteField("signature", signature)
	_ = w.WriteField("folder", c.folder)
	_ = w.WriteField("public_id", name)
	if err := w.Close(); err != nil {
		return "", err
	}

	url := fmt.Sprintf("https://api.cloudinary.com/v1_1/%s/image/upload", c.cloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("cloudinary request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("cloudinary error %s: %s", resp.Status, string(respBody))
	}

	var out struct {
		SecureURL string `json:"secure_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode cloudinary response: %w", err)
	}
	return out.SecureURL, nil
}

// sign builds the SHA-1 signature over the sorted parameter string.
func (c *Client) sign(params map[string]string) string {
	// Cloudinary expects parameters sorted by key.
	keys := []string{"folder", "public_id", "timestamp"}
	toSign := ""
	for i, k := range keys {
		if params[k] == "" {
			continue
		}
		if i > 0 && toSign != "" {
			toSign += "&"
		}
		toSign += k + "=" + params[k]
	}
	sum := sha1.Sum([]byte(toSign + c.apiSecret))
	return hex.EncodeToString(sum[:])
}
