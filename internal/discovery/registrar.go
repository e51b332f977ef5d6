package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/muurk/luxio/internal/apierr"
)

// DefaultRegistryURL is the discovery endpoint controllers report to.
const DefaultRegistryURL = "http://nupnp.luxio.lighting/"

// DefaultRegisterTimeout bounds one registration.
const DefaultRegisterTimeout = 10 * time.Second

// Descriptor is the record a controller reports to the discovery endpoint.
type Descriptor struct {
	ID       string `json:"id"`
	Platform string `json:"platform"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Version  string `json:"version"`
	Pixels   int    `json:"pixels"`
	WiFiSSID string `json:"wifi_ssid"`
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Registrar posts descriptors to the discovery endpoint.
type Registrar struct {
	URL    string
	Client Doer
}

// NewRegistrar creates a registrar for url. An empty url selects
// DefaultRegistryURL.
func NewRegistrar(url string) *Registrar {
	if url == "" {
		url = DefaultRegistryURL
	}
	return &Registrar{
		URL:    url,
		Client: &http.Client{Timeout: DefaultRegisterTimeout},
	}
}

// Register posts d. Only 200 and 204 count as success; transport failures
// are returned classified.
func (r *Registrar) Register(ctx context.Context, d Descriptor) error {
	body, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to encode descriptor: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.Client.Do(req)
	if err != nil {
		return apierr.ClassifyTransportError(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent:
		return nil
	default:
		return apierr.HTTPStatus(resp.StatusCode, "discovery endpoint")
	}
}
