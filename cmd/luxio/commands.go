package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/muurk/luxio/internal/apierr"
	"github.com/muurk/luxio/internal/client"
	"github.com/muurk/luxio/internal/discovery"
	"github.com/muurk/luxio/internal/ui"
)

// Client command flags
var (
	deviceAddr  string
	scanTimeout int
	ssid        string
	assumeYes   bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&deviceAddr, "device", "", "Controller address, host[:port] (skips discovery)")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(callCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(monitorCmd)
	rootCmd.AddCommand(resetCmd)
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan for controllers on the network",
	Long: `Scan for Luxio controllers using mDNS/DNS-SD discovery.

Every controller answering for _luxio._tcp is listed with its name, id,
firmware version and address.`,
	Example: `  # Scan for 5 seconds (default)
  luxio scan

  # Longer scan for busy networks
  luxio scan --timeout 15`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().IntVar(&scanTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Scan timeout in seconds")
}

func runScan(cmd *cobra.Command, args []string) error {
	fmt.Printf("Scanning for Luxio controllers (timeout: %ds)...\n\n", scanTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(scanTimeout) * time.Second
	devices, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	if len(devices) == 0 {
		fmt.Println("No controllers found.")
		fmt.Println("\nTroubleshooting:")
		fmt.Println("  - Ensure the controller is powered on")
		fmt.Println("  - A new controller is reachable on its Luxio-XXXXXX hotspot")
		fmt.Println("  - Try increasing --timeout for slower networks")
		fmt.Println("  - Use --device to specify the address manually")
		return nil
	}

	fmt.Printf("Found %d controller(s):\n\n", len(devices))
	for i, d := range devices {
		fmt.Printf("%d. %s\n", i+1, d.Name)
		fmt.Printf("   ID:       %s\n", d.ID)
		fmt.Printf("   Version:  %s\n", d.Version)
		fmt.Printf("   Address:  %s\n", d.Address())
		fmt.Println()
	}

	fmt.Println("Use 'luxio state --device <address>' to view a controller")
	fmt.Println("Use 'luxio monitor --device <address>' to drive it live")
	return nil
}

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Show a controller's state",
	Example: `  # Show state with auto-discovery
  luxio state

  # Raw JSON for scripting
  luxio state --device 192.168.4.1 --json`,
	RunE: runState,
}

var stateJSON bool

func init() {
	stateCmd.Flags().BoolVar(&stateJSON, "json", false, "Print the raw full state")
}

func runState(cmd *cobra.Command, args []string) error {
	addr, err := resolveDevice(cmd.Context())
	if err != nil {
		return err
	}

	st, err := client.NewClient(addr).FullState(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to get state: %w", err)
	}

	p := ui.NewPrinter(os.Stdout)
	if stateJSON {
		data, err := json.Marshal(st)
		if err != nil {
			return err
		}
		return p.PrintJSON(data)
	}
	p.PrintState(st)
	return nil
}

var callCmd = &cobra.Command{
	Use:   "call <method> [params-json]",
	Short: "Call one RPC method",
	Long: `Send one JSON-RPC request over HTTP and print the result.

Methods are named domain.action, for example led.set_brightness. Params are
given as a JSON object.`,
	Example: `  luxio call system.ping
  luxio call led.set_color '{"r":255,"g":120,"b":0}' --device luxio.local
  luxio call led.set_gradient '{"colors":[{"r":255},{"b":255}]}'`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runCall,
}

func runCall(cmd *cobra.Command, args []string) error {
	var params any
	if len(args) == 2 {
		if !json.Valid([]byte(args[1])) {
			return fmt.Errorf("params must be valid JSON: %s", args[1])
		}
		params = json.RawMessage(args[1])
	}

	addr, err := resolveDevice(cmd.Context())
	if err != nil {
		return err
	}

	result, err := client.NewClient(addr).Call(cmd.Context(), args[0], params)
	if err != nil {
		var remote *client.RemoteError
		switch {
		case errors.As(err, &remote):
			ui.NewPrinter(os.Stderr).PrintError(args[0]+" failed", err, callTroubleshooting(remote.Code))
		case apierr.IsTransport(err):
			ui.NewPrinter(os.Stderr).PrintError("Controller unreachable", err, []string{
				"Check the address given to --device",
				"Run 'luxio scan' to list controllers on this network",
			})
		}
		return err
	}
	return ui.NewPrinter(os.Stdout).PrintJSON(result)
}

func callTroubleshooting(code string) []string {
	switch code {
	case "unknown_method":
		return []string{"Method names are domain.action, e.g. system.ping or led.set_on"}
	case "persist_failed":
		return []string{"The controller could not save its settings; nothing was changed"}
	case "unavailable":
		return []string{"The controller is restarting or overloaded, try again shortly"}
	}
	return nil
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Join a controller to a wireless network",
	Long: `Store network credentials on a controller and have it join the network.

The passphrase is read from the terminal without echo. The controller drops
its current link or hotspot shortly after answering.`,
	Example: `  # Provision a new controller through its hotspot
  luxio connect --ssid HomeNet --device 192.168.4.1`,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&ssid, "ssid", "", "Network name")
	_ = connectCmd.MarkFlagRequired("ssid")
}

func runConnect(cmd *cobra.Command, args []string) error {
	addr, err := resolveDevice(cmd.Context())
	if err != nil {
		return err
	}

	pass, err := readPassphrase()
	if err != nil {
		return err
	}

	p := ui.NewPrinter(os.Stdout)
	p.PrintHeader("Network connect", "luxio connect", map[string]string{
		"Device": addr,
		"SSID":   ssid,
	})

	_, err = client.NewClient(addr).Call(cmd.Context(), "network.connect", map[string]string{
		"ssid": ssid,
		"pass": pass,
	})
	if err != nil {
		p.PrintError("Connect failed", err, []string{
			"SSIDs are at most 32 bytes and passphrases at most 64",
			"Check you are on the controller's network or hotspot",
		})
		return err
	}

	p.PrintSuccess("Credentials stored", map[string]string{
		"SSID": ssid,
		"Next": "The controller joins " + ssid + " in a moment",
	})
	return nil
}

func readPassphrase() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", fmt.Errorf("failed to read passphrase: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Printf("Passphrase for %s: ", ssid)
	pass, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read passphrase: %w", err)
	}
	return string(pass), nil
}

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Watch and drive a controller live",
	Long: `Open the controller's event stream and show its LED state as it changes.

Keys switch the strip on and off, step brightness and pick colours.`,
	RunE: runMonitor,
}

func runMonitor(cmd *cobra.Command, args []string) error {
	addr, err := resolveDevice(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	stream, err := client.NewClient(addr).Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to open event stream: %w", err)
	}
	defer func() { _ = stream.Close() }()

	return ui.RunMonitor(addr, stream)
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Factory reset a controller",
	RunE:  runReset,
}

func init() {
	resetCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "Skip the confirmation prompt")
}

func runReset(cmd *cobra.Command, args []string) error {
	addr, err := resolveDevice(cmd.Context())
	if err != nil {
		return err
	}

	if !assumeYes && !ui.FactoryResetConfirmation(os.Stdin, os.Stdout, addr) {
		return nil
	}

	p := ui.NewPrinter(os.Stdout)
	if _, err := client.NewClient(addr).Call(cmd.Context(), "system.factory_reset", nil); err != nil {
		p.PrintError("Factory reset failed", err, nil)
		return err
	}
	p.PrintSuccess("Factory reset", map[string]string{
		"Device": addr,
		"Next":   "Join the controller's hotspot to provision it again",
	})
	return nil
}

// resolveDevice returns the controller address: --device when given,
// otherwise the only controller answering a short mDNS scan.
func resolveDevice(ctx context.Context) (string, error) {
	if deviceAddr != "" {
		return deviceAddr, nil
	}

	fmt.Fprintln(os.Stderr, "No device specified, attempting auto-discovery...")
	scanner := discovery.NewScanner()
	scanner.Timeout = 3 * time.Second
	devices, err := scanner.Scan(ctx)
	if err != nil {
		return "", fmt.Errorf("discovery failed: %w", err)
	}

	switch len(devices) {
	case 0:
		return "", errors.New("no controllers found. Use --device to specify the address manually")
	case 1:
		d := devices[0]
		fmt.Fprintf(os.Stderr, "Found controller: %s (%s)\n\n", d.Name, d.Address())
		return d.Address(), nil
	}

	fmt.Fprintf(os.Stderr, "Found %d controllers:\n", len(devices))
	for i, d := range devices {
		fmt.Fprintf(os.Stderr, "%s. %s (%s)\n", strconv.Itoa(i+1), d.Name, d.Address())
	}
	return "", errors.New("multiple controllers found. Use --device to specify which one")
}
