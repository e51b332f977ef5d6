// Package network drives the station link of the controller.
//
// At boot the controller joins the stored network, or brings up a local
// access point named after the device when no credentials are stored. If
// the first attempt after boot fails before any address was acquired, the
// access point is brought up so the device stays reachable for
// reconfiguration. Later link losses only update state.
//
// The wireless stack itself sits behind the Stack interface. SimStack runs
// entirely in process; HostStack reports the host's own interfaces.
package network
