// Package ota checks the update server for new firmware and installs it.
package ota

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/logging"
)

const (
	// DefaultURL is the update server.
	DefaultURL = "http://ota.luxio.lighting/"

	// VersionHeader carries the running firmware version.
	VersionHeader = "X-Luxio-Version"

	// DefaultTimeout bounds one check, download included.
	DefaultTimeout = 2 * time.Minute
)

// Outcome is the result of an update check.
type Outcome int

const (
	Failed Outcome = iota
	NoUpdate
	Applied
)

// String returns the log name of the outcome.
func (o Outcome) String() string {
	switch o {
	case Failed:
		return "failed"
	case NoUpdate:
		return "no-update"
	case Applied:
		return "applied"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Updater asks the update server whether a newer image exists for this
// device and writes it to Path when one does.
type Updater struct {
	URL      string
	Platform string
	ID       string
	// Path is where a downloaded image is installed.
	Path   string
	Client Doer

	log *zap.Logger
}

// NewUpdater creates an updater. An empty serverURL selects DefaultURL.
func NewUpdater(serverURL, platform, id, path string) *Updater {
	if serverURL == "" {
		serverURL = DefaultURL
	}
	return &Updater{
		URL:      serverURL,
		Platform: platform,
		ID:       id,
		Path:     path,
		Client:   &http.Client{Timeout: DefaultTimeout},
		log:      logging.Named("ota"),
	}
}

func (u *Updater) checkURL() (string, error) {
	parsed, err := url.Parse(u.URL)
	if err != nil {
		return "", fmt.Errorf("invalid update URL: %w", err)
	}
	q := parsed.Query()
	q.Set("platform", u.Platform)
	q.Set("id", u.ID)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// Check asks the server for an update to currentVersion. 304 means no
// update; 200 carries a new image, which is installed atomically. Anything
// else, and any transport failure, is Failed with the cause.
func (u *Updater) Check(ctx context.Context, currentVersion string) (Outcome, error) {
	target, err := u.checkURL()
	if err != nil {
		return Failed, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return Failed, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set(VersionHeader, currentVersion)

	resp, err := u.Client.Do(req)
	if err != nil {
		return Failed, apierr.ClassifyTransportError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return NoUpdate, nil
	case http.StatusOK:
		n, err := u.install(resp.Body)
		if err != nil {
			return Failed, err
		}
		u.logger().Info("Firmware image installed",
			zap.String("path", u.Path),
			zap.Int64("bytes", n),
		)
		return Applied, nil
	default:
		return Failed, apierr.HTTPStatus(resp.StatusCode, "update server")
	}
}

func (u *Updater) install(r io.Reader) (int64, error) {
	if u.Path == "" {
		return 0, fmt.Errorf("no firmware path configured")
	}
	if err := os.MkdirAll(filepath.Dir(u.Path), 0755); err != nil {
		return 0, fmt.Errorf("failed to create firmware directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(u.Path), filepath.Base(u.Path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("failed to create temporary image: %w", err)
	}
	tmpPath := tmp.Name()

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil && n == 0 {
		err = fmt.Errorf("empty firmware image")
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to download image: %w", err)
	}

	if err := os.Rename(tmpPath, u.Path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("failed to install image: %w", err)
	}
	return n, nil
}

func (u *Updater) logger() *zap.Logger {
	if u.log == nil {
		u.log = logging.Named("ota")
	}
	return u.log
}
