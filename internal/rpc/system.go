package rpc

import (
	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/device"
)

var systemHandlers = map[string]HandlerFunc{
	"system.ping":          ping,
	"system.test_echo":     testEcho,
	"system.test_error":    testError,
	"system.get_config":    systemGetConfig,
	"system.get_state":     systemGetState,
	"system.get_name":      getName,
	"system.set_name":      setName,
	"system.restart":       restart,
	"system.factory_reset": factoryReset,
	"system.enable_debug":  enableDebug,
	"system.disable_debug": disableDebug,
}

func ping(*device.Device, Params) (any, error) {
	return "pong", nil
}

func testEcho(_ *device.Device, p Params) (any, error) {
	return p.Raw(), nil
}

func testError(*device.Device, Params) (any, error) {
	return nil, apierr.Validation(apierr.CodeTestError)
}

func systemGetConfig(dev *device.Device, _ Params) (any, error) {
	return dev.SystemConfig(), nil
}

func systemGetState(dev *device.Device, _ Params) (any, error) {
	return dev.SystemState(), nil
}

func getName(dev *device.Device, _ Params) (any, error) {
	return dev.Name(), nil
}

func setName(dev *device.Device, p Params) (any, error) {
	name, ok := p.String("name")
	if !ok {
		return nil, apierr.Validation(apierr.CodeInvalidName)
	}
	return nil, dev.SetName(name)
}

func restart(dev *device.Device, _ Params) (any, error) {
	dev.Restart()
	return nil, nil
}

func factoryReset(dev *device.Device, _ Params) (any, error) {
	return nil, dev.FactoryReset()
}

func enableDebug(dev *device.Device, _ Params) (any, error) {
	dev.SetDebug(true)
	return nil, nil
}

func disableDebug(dev *device.Device, _ Params) (any, error) {
	dev.SetDebug(false)
	return nil, nil
}
