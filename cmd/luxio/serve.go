package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/muurk/luxio/internal/config"
	"github.com/muurk/luxio/internal/core"
	"github.com/muurk/luxio/internal/device"
	"github.com/muurk/luxio/internal/discovery"
	"github.com/muurk/luxio/internal/led"
	"github.com/muurk/luxio/internal/logging"
	"github.com/muurk/luxio/internal/network"
	"github.com/muurk/luxio/internal/ota"
	"github.com/muurk/luxio/internal/serialport"
	"github.com/muurk/luxio/internal/server"
	"github.com/muurk/luxio/internal/version"
)

// SimulatedMAC is the hardware id used with --simulate.
const SimulatedMAC = "5C:CF:7F:A1:B2:C3"

// restartDelay separates a restart request from the rebuilt controller.
const restartDelay = 500 * time.Millisecond

var (
	httpAddr     string
	serialPath   string
	baudRate     int
	configPath   string
	simulate     bool
	iface        string
	discoveryURL string
	updateURL    string
	firmwarePath string
	noMDNS       bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a controller",
	Long: `Run a Luxio controller on this machine.

The controller keeps its settings in a YAML file, drives the strip, joins
the stored network (or brings up its hotspot when there is none) and serves
the JSON-RPC API over HTTP, WebSocket and, with --serial, a serial line.

A restart request (system.restart, or the tail of a factory reset) rebuilds
the controller in place from the stored settings.`,
	Example: `  # Run with simulated networking and an in-memory strip
  luxio serve --simulate

  # Serve on a custom port and answer on a serial line too
  luxio serve --http :8080 --serial /dev/ttyUSB0 --baud 115200

  # Keep settings somewhere specific
  luxio serve --config /etc/luxio/device.yaml`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if logLevel == "" && os.Getenv(logging.LogLevelEnvVar) == "" {
			return logging.Initialize("info")
		}
		return nil
	},
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&httpAddr, "http", fmt.Sprintf(":%d", server.DefaultPort), "HTTP/WebSocket listen address")
	serveCmd.Flags().StringVar(&serialPath, "serial", "", "Serial device to answer requests on (disabled if not specified)")
	serveCmd.Flags().IntVar(&baudRate, "baud", serialport.DefaultBaudRate, "Serial baud rate")
	serveCmd.Flags().StringVar(&configPath, "config", "", "Settings file (default $XDG_CONFIG_HOME/luxio/device.yaml)")
	serveCmd.Flags().BoolVar(&simulate, "simulate", false, "Use a simulated network stack instead of the host's")
	serveCmd.Flags().StringVar(&iface, "interface", "", "Network interface to report (default first with an IPv4 address)")
	serveCmd.Flags().StringVar(&discoveryURL, "discovery-url", discovery.DefaultRegistryURL, "Discovery endpoint (empty disables)")
	serveCmd.Flags().StringVar(&updateURL, "update-url", ota.DefaultURL, "Update server")
	serveCmd.Flags().StringVar(&firmwarePath, "firmware-path", "", "Where downloaded firmware is written (update checks disabled if not specified)")
	serveCmd.Flags().BoolVar(&noMDNS, "no-mdns", false, "Do not advertise the controller with mDNS")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	host, port, err := splitListenAddr(httpAddr)
	if err != nil {
		return err
	}

	store, err := config.NewFileStore(configPath)
	if err != nil {
		return err
	}
	logging.Info("Using settings file", zap.String("path", store.Path()))

	id := hardwareID()

	for {
		err := serveOnce(ctx, store, id, host, port)
		if !errors.Is(err, core.ErrRestart) {
			return err
		}
		logging.Info("Restarting controller")
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(restartDelay):
		}
	}
}

// serveOnce assembles one controller with its transports and runs it until
// ctx is done or the controller asks to restart.
func serveOnce(ctx context.Context, store config.Store, id, host string, port int) error {
	var stack network.Stack
	if simulate {
		stack = network.NewSimStack(id)
	} else {
		stack = network.NewHostStack(iface)
	}

	var advertiser discovery.Advertiser
	if !noMDNS {
		name := device.DefaultName(id)
		if cfg, err := store.Load(); err == nil && cfg.DeviceName != "" {
			name = cfg.DeviceName
		}
		responder, err := discovery.NewResponder(device.DefaultName(id), port, id, name, version.Version)
		if err != nil {
			logging.Warn("MDNS disabled", zap.Error(err))
		} else {
			advertiser = responder
			defer responder.Shutdown()
		}
	}

	opts := core.Options{
		ID:         id,
		Version:    version.Version,
		Commit:     version.Commit,
		Platform:   version.Platform(),
		Store:      store,
		Driver:     led.NewMemoryDriver(),
		Stack:      stack,
		Advertiser: advertiser,
	}
	if discoveryURL != "" {
		opts.Registrar = discovery.NewRegistrar(discoveryURL)
	}
	if firmwarePath != "" {
		opts.Updater = ota.NewUpdater(updateURL, version.Platform(), id, firmwarePath)
	}

	c, err := core.New(opts)
	if err != nil {
		return err
	}
	defer c.Close()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, 3)
	goRun := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(runCtx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				cancel()
			}
		}()
	}

	var transport *serialport.Transport
	if serialPath != "" {
		transport, err = serialport.Open(serialPath, serialport.PortOptions{BaudRate: baudRate}, c)
		if err != nil {
			return err
		}
	}

	srv := server.New(&server.Config{Host: host, Port: port}, c)
	goRun("http", srv.Start)
	if transport != nil {
		goRun("serial", transport.Run)
	}

	runErr := c.Run(runCtx)
	cancel()
	wg.Wait()
	close(errs)

	if errors.Is(runErr, core.ErrRestart) {
		return runErr
	}
	for err := range errs {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}

func splitListenAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --http address %q: %w", addr, err)
	}
	port, err := net.LookupPort("tcp", portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid --http port %q: %w", portStr, err)
	}
	return host, port, nil
}

// hardwareID returns the MAC of the reporting interface, upper case.
func hardwareID() string {
	if simulate {
		return SimulatedMAC
	}
	ifc, _, err := network.PrimaryInterface(iface)
	if err == nil && len(ifc.HardwareAddr) > 0 {
		return strings.ToUpper(ifc.HardwareAddr.String())
	}

	// No hardware address to go by; the name stored at first boot keeps
	// the controller recognisable across runs.
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:12]
	var parts []string
	for i := 0; i < len(raw); i += 2 {
		parts = append(parts, raw[i:i+2])
	}
	id := strings.Join(parts, ":")
	logging.Warn("No hardware address found, using a random id", zap.String("id", id), zap.Error(err))
	return id
}
