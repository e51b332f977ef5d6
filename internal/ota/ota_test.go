package ota

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/muurk/luxio/internal/apierr"
)

func TestCheckOutcomes(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    Outcome
		wantErr bool
		wantImg bool
	}{
		{"no update", http.StatusNotModified, "", NoUpdate, false, false},
		{"new image", http.StatusOK, "\xe9firmware", Applied, false, true},
		{"empty image", http.StatusOK, "", Failed, true, false},
		{"server error", http.StatusInternalServerError, "", Failed, true, false},
		{"forbidden", http.StatusForbidden, "", Failed, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotVersion, gotPlatform, gotID string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotVersion = r.Header.Get(VersionHeader)
				gotPlatform = r.URL.Query().Get("platform")
				gotID = r.URL.Query().Get("id")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			path := filepath.Join(t.TempDir(), "firmware.bin")
			u := NewUpdater(srv.URL+"/", "linux/arm64", "5C:CF:7F:A1:B2:C3", path)

			got, err := u.Check(context.Background(), "103")
			if got != tt.want {
				t.Errorf("Check() = %v, want %v", got, tt.want)
			}
			if (err != nil) != tt.wantErr {
				t.Errorf("Check() error = %v, wantErr %v", err, tt.wantErr)
			}
			if gotVersion != "103" || gotPlatform != "linux/arm64" || gotID != "5C:CF:7F:A1:B2:C3" {
				t.Errorf("request carried version=%q platform=%q id=%q", gotVersion, gotPlatform, gotID)
			}

			data, readErr := os.ReadFile(path)
			if tt.wantImg {
				if readErr != nil || string(data) != tt.body {
					t.Errorf("image = %q, %v", data, readErr)
				}
			} else if readErr == nil {
				t.Error("image written for a check that did not apply")
			}

			matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
			if len(matches) != 0 {
				t.Errorf("temporary files left: %v", matches)
			}
		})
	}
}

func TestCheckTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	u := NewUpdater(url, "linux/amd64", "id", filepath.Join(t.TempDir(), "fw.bin"))
	got, err := u.Check(context.Background(), "103")
	if got != Failed {
		t.Errorf("Check() = %v, want failed", got)
	}
	if !apierr.IsTransport(err) {
		t.Errorf("Check() error = %v, want transport error", err)
	}
}

func TestOutcomeString(t *testing.T) {
	for o, want := range map[Outcome]string{Failed: "failed", NoUpdate: "no-update", Applied: "applied"} {
		if got := o.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", int(o), got, want)
		}
	}
}
