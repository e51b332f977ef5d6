package rpc

import (
	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/device"
)

var networkHandlers = map[string]HandlerFunc{
	"network.get_config":    networkGetConfig,
	"network.get_state":     networkGetState,
	"network.get_networks":  getNetworks,
	"network.scan_networks": scanNetworks,
	"network.connect":       connect,
	"network.disconnect":    disconnect,
}

func networkGetConfig(dev *device.Device, _ Params) (any, error) {
	return dev.NetworkConfig(), nil
}

func networkGetState(dev *device.Device, _ Params) (any, error) {
	return dev.NetworkState(), nil
}

func getNetworks(dev *device.Device, _ Params) (any, error) {
	return dev.Networks(), nil
}

func scanNetworks(dev *device.Device, _ Params) (any, error) {
	dev.ScanNetworks()
	return nil, nil
}

func connect(dev *device.Device, p Params) (any, error) {
	ssid, ok := p.String("ssid")
	if !ok {
		return nil, apierr.Validation(apierr.CodeMissingSSID)
	}
	pass, ok := p.String("pass")
	if !ok {
		return nil, apierr.Validation(apierr.CodeMissingPass)
	}
	return nil, dev.Connect(ssid, pass)
}

func disconnect(dev *device.Device, _ Params) (any, error) {
	return nil, dev.Disconnect()
}
