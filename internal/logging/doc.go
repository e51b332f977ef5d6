// Package logging provides structured logging for the Luxio controller.
//
// This package wraps a global zap logger with convenience functions for the
// logging patterns used throughout the controller: general leveled logging,
// per-subsystem child loggers, and transport/RPC specific helpers.
//
// # Log Levels
//
//   - Debug: RPC request/response traces, WebSocket payloads, animation frames
//   - Info: Connections, network transitions, sync outcomes
//   - Warn: Non-fatal issues (sync failures, dropped events)
//   - Error: Persistence failures, transport errors
//
// # Runtime Debug Switch
//
// The level is held in a zap.AtomicLevel. The system.enable_debug and
// system.disable_debug commands call SetDebug to flip it without rebuilding
// the logger:
//
//	logging.SetDebug(true)  // debug and above
//	logging.SetDebug(false) // back to the level given to Initialize
//
// # Configuration
//
//	if err := logging.Initialize("info"); err != nil {
//	    log.Fatal(err)
//	}
//	defer logging.Sync()
//
// When no level is passed and LUXIO_LOG_LEVEL is unset, logging is silent.
//
// # Thread Safety
//
// All logging functions are safe for concurrent use.
package logging
