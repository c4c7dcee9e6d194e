// Package medicines provides the snapshot provider that fetches the complete
// medicine list from the pharmacy backend. Every call returns a fresh, full
// snapshot; there is no incremental sync.
package medicines

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/giygas/pharmacy-notifier/interfaces"
	"github.com/giygas/pharmacy-notifier/logging"
	"github.com/giygas/pharmacy-notifier/medicines/entities"
	"github.com/go-resty/resty/v2"
	"golang.org/x/text/encoding/charmap"
)

// Compile-time check to ensure Client implements SnapshotProvider
var _ interfaces.SnapshotProvider = (*Client)(nil)

// MedicinesPath is the backend endpoint returning the full inventory
const MedicinesPath = "/medicines"

// ErrBadStatus is returned when the backend answers with a non-2xx status
var ErrBadStatus = errors.New("unexpected backend status")

// Client fetches medicine snapshots over REST
type Client struct {
	httpClient *resty.Client
}

// NewClient creates a snapshot client. Retries are disabled: a failed fetch is
// simply retried on the next polling tick.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	if token != "" {
		client.SetAuthToken(token)
	}

	return &Client{httpClient: client}
}

// FetchMedicines downloads and decodes the current snapshot
func (c *Client) FetchMedicines(ctx context.Context) ([]entities.Medicine, error) {
	start := time.Now()

	resp, err := c.httpClient.R().
		SetContext(ctx).
		Get(MedicinesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch medicines: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("failed to fetch medicines: %w: %d", ErrBadStatus, resp.StatusCode())
	}

	medicines, err := DecodeSnapshot(resp.Body())
	if err != nil {
		return nil, err
	}

	logging.Debug("Medicine snapshot fetched",
		"count", len(medicines),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return medicines, nil
}

// DecodeSnapshot parses a snapshot body. The backend answers either with a bare
// JSON array or with a {"data": [...]} envelope. Some deployments still serve
// ISO-8859-1, so non UTF-8 bodies are transcoded before parsing.
func DecodeSnapshot(body []byte) ([]entities.Medicine, error) {
	if !utf8.Valid(body) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
		if err != nil {
			return nil, fmt.Errorf("failed to decode ISO-8859-1 body: %w", err)
		}
		body = decoded
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, fmt.Errorf("failed to decode medicines: empty body")
	}

	if body[0] == '{' {
		var envelope struct {
			Data []entities.Medicine `json:"data"`
		}
		if err := json.Unmarshal(body, &envelope); err != nil {
			return nil, fmt.Errorf("failed to decode medicines envelope: %w", err)
		}
		if envelope.Data == nil {
			return []entities.Medicine{}, nil
		}
		return envelope.Data, nil
	}

	var medicines []entities.Medicine
	if err := json.Unmarshal(body, &medicines); err != nil {
		return nil, fmt.Errorf("failed to decode medicines: %w", err)
	}
	if medicines == nil {
		medicines = []entities.Medicine{}
	}

	return medicines, nil
}
