package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const (
	defaultImageMime = "image/png"
	maxImageBytes    = 20 << 20
)

type inlineImage struct {
	MimeType string
	Data     []byte
}

// fetchImage loads an image reference into memory. It accepts http(s) URLs
// and data: URLs.
func fetchImage(ctx context.Context, client *http.Client, ref string) (*inlineImage, error) {
	if strings.HasPrefix(ref, "data:") {
		return parseDataURL(ref)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image url: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("failed to fetch image: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	if len(body) > maxImageBytes {
		return nil, errors.New("image exceeds 20MB")
	}
	return &inlineImage{
		MimeType: mediaType(resp.Header.Get("Content-Type")),
		Data:     body,
	}, nil
}

func parseDataURL(ref string) (*inlineImage, error) {
	meta, data, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, errors.New("invalid data url")
	}
	isBase64 := strings.HasSuffix(meta, ";base64")
	meta = strings.TrimSuffix(meta, ";base64")

	img := &inlineImage{MimeType: mediaType(meta)}
	if isBase64 {
		decoded, err := base64.StdEncoding.DecodeString(data)
		if err != nil {
			return nil, fmt.Errorf("invalid base64 image data: %w", err)
		}
		img.Data = decoded
		return img, nil
	}
	decoded, err := url.PathUnescape(data)
	if err != nil {
		return nil, fmt.Errorf("invalid data url payload: %w", err)
	}
	img.Data = []byte(decoded)
	return img, nil
}

func mediaType(header string) string {
	if header == "" {
		return defaultImageMime
	}
	mt, _, err := mime.ParseMediaType(header)
	if err != nil || mt == "" {
		return defaultImageMime
	}
	return mt
}
