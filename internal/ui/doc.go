// Package ui renders terminal output for the luxio CLI.
//
// Most commands use the "run once and exit" pattern: a Printer writes a
// header box, then a success or failure box, and the command exits. The
// monitor command is the exception. It runs a Bubble Tea program over the
// controller's WebSocket stream, redrawing as events arrive and turning key
// presses into requests:
//
//	stream, err := client.NewClient(addr).Subscribe(ctx)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	return ui.RunMonitor(addr, stream)
//
// Styles are shared across both paths and are defined in styles.go.
package ui
