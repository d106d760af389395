package storage

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"pixel-compare/internal/retry"
	"strings"
	"time"

	"golang.org/x/xerrors"
)

var ErrReadOnly = errors.New("storage is read-only")

type httpStorage struct {
	client *http.Client
	config HTTPConfig
}

type HTTPConfig struct {
	// BaseURL receives PUT requests for stored keys; Put fails with ErrReadOnly when empty.
	BaseURL string
	// Timeout per request including retries. Defaults to 30s.
	Timeout time.Duration
	// MaxBytes bounds a downloaded body. Defaults to 64MiB.
	MaxBytes int64
	// Base transport, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

func NewHTTPStorage(ctx context.Context, h HTTPConfig) (Storage, error) {
	if h.Timeout <= 0 {
		h.Timeout = 30 * time.Second
	}
	if h.MaxBytes <= 0 {
		h.MaxBytes = 64 << 20
	}

	return &httpStorage{
		client: &http.Client{
			Timeout: h.Timeout,
			Transport: &retry.Transport{
				Base:          h.Transport,
				RetryStrategy: retry.NewExponentialBackOff(50*time.Millisecond, 2*time.Second, 3, nil),
				RetryOn:       retry.NewDefaultRetryOn(),
			},
		},
		config: h,
	}, nil
}

func (s *httpStorage) Put(ctx context.Context, key string, data []byte) (string, error) {
	if s.config.BaseURL == "" {
		return "", ErrReadOnly
	}
	url := strings.TrimSuffix(s.config.BaseURL, "/") + "/" + strings.TrimPrefix(key, "/")

	request, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return "", xerrors.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Content-Type", http.DetectContentType(data))

	response, err := s.client.Do(request)
	if err != nil {
		return "", xerrors.Errorf("failed to upload %s: %w", url, err)
	}
	defer response.Body.Close()
	_, _ = io.Copy(io.Discard, response.Body)

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return "", xerrors.Errorf("failed to upload %s: %s", url, response.Status)
	}

	return url, nil
}

func (s *httpStorage) Get(ctx context.Context, url string) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, xerrors.Errorf("failed to create request: %w", err)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return nil, xerrors.Errorf("failed to download %s: %w", url, err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return nil, xerrors.Errorf("failed to download %s: %s", url, response.Status)
	}

	data, err := io.ReadAll(io.LimitReader(response.Body, s.config.MaxBytes+1))
	if err != nil {
		return nil, xerrors.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > s.config.MaxBytes {
		return nil, xerrors.Errorf("%s exceeds %d bytes", url, s.config.MaxBytes)
	}

	return data, nil
}
