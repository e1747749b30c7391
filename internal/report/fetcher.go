package report

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"time"

	// Register the decoders used for validating fetched images.  A photo
	// that stdlib cannot decode would poison the PDF document state, so
	// undecodable bytes are rejected here and rendered as placeholders.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"bytes"
)

// errUnsupportedImage is returned when fetched bytes are not a decodable
// JPEG, PNG or GIF image.
var errUnsupportedImage = errors.New("unsupported image format")

// ImageFetcher downloads photo bytes for the renderer.  Every fetch is
// independently timeboxed so one hanging remote host cannot stall report
// generation; the renderer treats a timeout the same as any other fetch
// failure.
type ImageFetcher struct {
	client  *http.Client
	timeout time.Duration
}

// NewImageFetcher builds a fetcher with the given per-request budget.
func NewImageFetcher(timeout time.Duration) *ImageFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ImageFetcher{
		client:  &http.Client{Timeout: timeout},
		timeout: timeout,
	}
}

// Fetch downloads url and returns the raw bytes together with the fpdf
// image type tag ("JPG", "PNG" or "GIF").  Any network error, non-200
// status or undecodable payload is reported as an error; the caller
// substitutes a placeholder block and keeps rendering.
func (f *ImageFetcher) Fetch(ctx context.Context, url string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", err
	}

	// Decode the header to confirm the payload really is an image of a
	// supported format before handing it to the PDF engine.
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errUnsupportedImage
	}
	switch format {
	case "jpeg":
		return data, "JPG", nil
	case "png":
		return data, "PNG", nil
	case "gif":
		return data, "GIF", nil
	}
	return nil, "", errUnsupportedImage
}
