// Package rpc maps method names onto the device state model and wraps every
// outcome in the uniform {result} / {error} envelope shared by all
// transports.
package rpc

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/logging"
)

// HandlerFunc executes one method against the device. It validates params
// before touching any state and returns either a result or an error whose
// apierr code becomes the response's error string.
type HandlerFunc func(dev *device.Device, p Params) (any, error)

// handlers is the method table, built once from the per-domain tables.
var handlers = merge(
	systemHandlers,
	networkHandlers,
	ledHandlers,
	map[string]HandlerFunc{
		"get_full_state": getFullState,
	},
)

func merge(tables ...map[string]HandlerFunc) map[string]HandlerFunc {
	out := make(map[string]HandlerFunc)
	for _, t := range tables {
		for name, h := range t {
			if _, dup := out[name]; dup {
				panic(fmt.Sprintf("rpc: method %q registered twice", name))
			}
			out[name] = h
		}
	}
	return out
}

// Methods returns every registered method name, sorted.
func Methods() []string {
	out := make([]string, 0, len(handlers))
	for name := range handlers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Dispatcher executes requests against one device. It must be used from
// the run loop.
type Dispatcher struct {
	device *device.Device
	log    *zap.Logger
}

// NewDispatcher creates a dispatcher for dev.
func NewDispatcher(dev *device.Device) *Dispatcher {
	return &Dispatcher{
		device: dev,
		log:    logging.Named("rpc"),
	}
}

// Handle executes req. It never panics: a handler panic is reported as
// internal_error.
func (d *Dispatcher) Handle(req Request) (resp Response) {
	resp.ID = req.ID
	reqID := 0
	if req.ID != nil {
		reqID = *req.ID
	}
	logging.LogRequest(reqID, req.Method)

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Handler panicked",
				zap.String("method", req.Method),
				zap.Any("panic", r),
			)
			resp.Result = nil
			resp.Error = apierr.CodeInternal
		}
		logging.LogResponse(reqID, req.Method, resp.Error)
	}()

	h, ok := handlers[req.Method]
	if !ok {
		resp.Error = apierr.CodeUnknownMethod
		return resp
	}

	result, err := h(d.device, ParseParams(req.Params))
	if err != nil {
		resp.Error = apierr.CodeOf(err)
		if apierr.IsInternal(err) || resp.Error == apierr.CodeInternal {
			d.log.Error("Command failed",
				zap.String("method", req.Method),
				zap.Error(err),
			)
		}
		return resp
	}
	resp.Result = result
	return resp
}

func getFullState(dev *device.Device, _ Params) (any, error) {
	return dev.FullState(), nil
}
