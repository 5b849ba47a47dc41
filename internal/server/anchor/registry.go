package anchor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Disabled is the no-op anchorer used when no registry endpoint is
// configured. It returns a deterministic pseudo-reference so uploads stay
// traceable in logs and listings even without a real registry.
type Disabled struct{}

func (Disabled) Anchor(_ context.Context, sha256hex string, sizeBytes int64, _ string) (string, error) {
	if len(sha256hex) != 64 {
		return "", errors.New("invalid hash")
	}
	return fmt.Sprintf("simulated::%s::%d", sha256hex[:16], sizeBytes), nil
}

// RegistryClient anchors digests by POSTing them to an HTTP registry
// endpoint that responds with a transaction reference.
type RegistryClient struct {
	endpoint string
	client   *http.Client
}

// NewRegistryClient constructs a client for the given endpoint URL.
func NewRegistryClient(endpoint string) *RegistryClient {
	return &RegistryClient{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type anchorRequest struct {
	Sha256    string `json:"sha256"`
	SizeBytes int64  `json:"size_bytes"`
	Ref       string `json:"ref,omitempty"`
}

type anchorResponse struct {
	TxRef string `json:"tx_ref"`
}

func (c *RegistryClient) Anchor(ctx context.Context, sha256hex string, sizeBytes int64, ref string) (string, error) {
	if len(sha256hex) != 64 {
		return "", errors.New("invalid hash")
	}

	body, err := json.Marshal(anchorRequest{Sha256: sha256hex, SizeBytes: sizeBytes, Ref: ref})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("anchor registry status %d", resp.StatusCode)
	}

	var out anchorResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if out.TxRef == "" {
		return "", errors.New("anchor registry returned empty tx ref")
	}
	return out.TxRef, nil
}

// New returns the registry client for endpoint, or the Disabled anchorer
// when endpoint is empty.
func New(endpoint string) Anchorer {
	if endpoint == "" {
		return Disabled{}
	}
	return NewRegistryClient(endpoint)
}
