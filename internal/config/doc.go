// Package config persists the device record: strip geometry, network
// credentials and device name.
//
// The record is a small YAML file stored in the platform configuration
// directory:
//   - Linux: $XDG_CONFIG_HOME/luxio/device.yaml or $HOME/.config/luxio/device.yaml
//   - macOS: $HOME/.config/luxio/device.yaml
//   - Windows: %LOCALAPPDATA%\luxio\device.yaml
//
// Writes go to a temporary file that is renamed over the old record, so a
// crash mid-save leaves the previous record readable.
//
// Unlike the host-side tooling, the controller does store the network
// passphrase: it needs it to rejoin the network after a restart. The file is
// created with mode 0600.
package config
