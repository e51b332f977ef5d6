package device

import (
	"runtime"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/config"
	"github.com/muurk/luxio/internal/events"
	"github.com/muurk/luxio/internal/logging"
)

// SystemState returns the live system state.
func (d *Device) SystemState() SystemState {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return SystemState{
		ID:         d.id,
		Version:    d.version,
		Commit:     d.commit,
		Platform:   d.platform,
		Uptime:     int64(d.loop.Clock().Now().Sub(d.bootedAt).Seconds()),
		HeapAlloc:  mem.HeapAlloc,
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
		Debug:      logging.DebugEnabled(),
	}
}

// SystemConfig returns the durable system configuration.
func (d *Device) SystemConfig() SystemConfig {
	return SystemConfig{Name: d.cfg.DeviceName}
}

// Name returns the device name.
func (d *Device) Name() string { return d.cfg.DeviceName }

// SetName renames the device, updates the mDNS record and reports the new
// name to the discovery endpoint shortly after.
func (d *Device) SetName(name string) error {
	if len(name) < 1 || len(name) > config.MaxNameLen {
		return apierr.Validationf(apierr.CodeNameOutOfRange, "name must be 1-%d bytes", config.MaxNameLen)
	}

	if err := d.persist(func(c *config.Config) { c.DeviceName = name }); err != nil {
		return err
	}

	d.log.Info("Name changed", zap.String("name", name))
	d.advertiser.SetName(name)
	d.scheduleDiscovery()
	d.emitter.Emit(events.SystemConfig, d.SystemConfig())
	return nil
}

// Restart schedules the restart hook.
func (d *Device) Restart() {
	d.log.Info("Restarting", zap.Duration("in", RestartDelay))
	d.loop.After("restart", RestartDelay, d.restart)
}

// FactoryReset erases the stored record and restarts.
func (d *Device) FactoryReset() error {
	d.log.Warn("Factory reset")
	if err := d.store.Erase(); err != nil {
		return apierr.Internal(apierr.CodePersistFailed, err)
	}
	d.cfg = config.Default()
	d.Restart()
	return nil
}

// SetDebug switches debug logging on or off.
func (d *Device) SetDebug(on bool) {
	logging.SetDebug(on)
	d.emitter.Emit(events.SystemState, d.SystemState())
}
