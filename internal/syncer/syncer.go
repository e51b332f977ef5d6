// Package syncer runs the controller's two background network tasks:
// reporting to the discovery endpoint and checking for firmware updates.
//
// The tasks share one slot. Each has its own in-flight guard and skips its
// turn while either guard is held, so at most one outbound sync runs at a
// time. Both skip while the station link is down. Failures are logged and
// retried on the next interval only.
package syncer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/discovery"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/loop"
	"github.com/muurk/luxio/internal/ota"
)

const (
	// DiscoveryInterval is the period of the discovery sync.
	DiscoveryInterval = 5 * time.Minute
	// UpdateInterval is the period of the update check.
	UpdateInterval = time.Hour
	// UpdateOffset shifts the update check off the discovery schedule;
	// every update tick would otherwise coincide with a discovery tick and
	// find the slot taken.
	UpdateOffset = 30 * time.Second
	// CallTimeout bounds one outbound call.
	CallTimeout = 2 * time.Minute
)

// Link reports whether the station link is usable.
type Link interface {
	Connected() bool
}

// Registrar posts the discovery descriptor.
type Registrar interface {
	Register(ctx context.Context, d discovery.Descriptor) error
}

// Updater checks for and installs firmware.
type Updater interface {
	Check(ctx context.Context, currentVersion string) (ota.Outcome, error)
}

// Syncer owns the two tasks and their guards. Its methods run on the loop.
type Syncer struct {
	loop      *loop.Loop
	link      Link
	registrar Registrar
	updater   Updater
	describe  func() discovery.Descriptor
	version   string
	log       *zap.Logger

	ctx context.Context

	discoveryInFlight bool
	updateInFlight    bool
}

// New creates a syncer. describe is called on the loop to snapshot the
// descriptor at the start of each discovery sync. A nil registrar or
// updater disables that task.
func New(l *loop.Loop, link Link, registrar Registrar, updater Updater, describe func() discovery.Descriptor, version string) *Syncer {
	return &Syncer{
		loop:      l,
		link:      link,
		registrar: registrar,
		updater:   updater,
		describe:  describe,
		version:   version,
		log:       logging.Named("sync"),
		ctx:       context.Background(),
	}
}

// SetLink attaches the link the tasks check before running.
func (s *Syncer) SetLink(link Link) { s.link = link }

// Start schedules both tasks on their intervals. Outbound calls are
// cancelled when ctx is done.
func (s *Syncer) Start(ctx context.Context) {
	s.ctx = ctx
	s.loop.Every("discovery-sync", DiscoveryInterval, s.SyncDiscovery)
	s.loop.EveryAfter("update-check", UpdateInterval+UpdateOffset, UpdateInterval, s.CheckUpdate)
}

// DiscoveryInFlight reports whether a discovery sync is running.
func (s *Syncer) DiscoveryInFlight() bool { return s.discoveryInFlight }

// UpdateInFlight reports whether an update check is running.
func (s *Syncer) UpdateInFlight() bool { return s.updateInFlight }

func (s *Syncer) ready(task string) bool {
	if s.link == nil || !s.link.Connected() {
		s.log.Debug("Skipping, not connected", zap.String("task", task))
		return false
	}
	if s.discoveryInFlight || s.updateInFlight {
		s.log.Debug("Skipping, sync in flight",
			zap.String("task", task),
			zap.Bool("discovery", s.discoveryInFlight),
			zap.Bool("update", s.updateInFlight),
		)
		return false
	}
	return true
}

// SyncDiscovery posts the descriptor to the discovery endpoint.
func (s *Syncer) SyncDiscovery() {
	if s.registrar == nil || !s.ready("discovery-sync") {
		return
	}
	s.discoveryInFlight = true
	d := s.describe()
	s.log.Debug("Syncing discovery descriptor", zap.String("address", d.Address))

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, CallTimeout)
		defer cancel()
		err := s.registrar.Register(ctx, d)

		s.loop.Post(func() {
			s.discoveryInFlight = false
			if err != nil {
				s.logFailure("Discovery sync failed", err)
				return
			}
			s.log.Debug("Synced")
		})
	}()
}

// CheckUpdate asks the update server for new firmware.
func (s *Syncer) CheckUpdate() {
	if s.updater == nil || !s.ready("update-check") {
		return
	}
	s.updateInFlight = true
	s.log.Debug("Checking for updates", zap.String("version", s.version))

	go func() {
		ctx, cancel := context.WithTimeout(s.ctx, CallTimeout)
		defer cancel()
		outcome, err := s.updater.Check(ctx, s.version)

		s.loop.Post(func() {
			s.updateInFlight = false
			switch outcome {
			case ota.Applied:
				s.log.Info("Update applied, restart to run it")
			case ota.NoUpdate:
				s.log.Debug("No update available")
			default:
				s.logFailure("Update check failed", err)
			}
		})
	}()
}

func (s *Syncer) logFailure(msg string, err error) {
	if err == nil {
		s.log.Warn(msg)
		return
	}
	s.log.Warn(msg, zap.String("code", apierr.CodeOf(err)), zap.Error(err))
}
