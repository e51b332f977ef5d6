package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/muurk/luxio/internal/device"
)

// Printer writes styled CLI output. Commands create one per invocation.
type Printer struct {
	out   io.Writer
	width int
}

// NewPrinter creates a new Printer that writes to the given writer.
// If w is nil, os.Stdout is used.
func NewPrinter(w io.Writer) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{
		out:   w,
		width: GetTerminalWidth(),
	}
}

// SetWidth overrides the detected terminal width.
func (p *Printer) SetWidth(width int) *Printer {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}
	p.width = width
	return p
}

// Width returns the width used by this printer
func (p *Printer) Width() int {
	return p.width
}

// Println writes content with a newline
func (p *Printer) Println(content string) {
	_, _ = fmt.Fprintln(p.out, content)
}

// PrintHeader prints a command header box
func (p *Printer) PrintHeader(title, command string, params map[string]string) {
	p.Println(RenderHeader(title, command, params, p.width))
}

// PrintSuccess prints a success result box
func (p *Printer) PrintSuccess(title string, details map[string]string) {
	p.Println(RenderSuccessBox(title, details, p.width))
}

// PrintError prints an error result box with troubleshooting tips
func (p *Printer) PrintError(title string, err error, troubleshooting []string) {
	p.Println(RenderErrorBox(title, err, troubleshooting, p.width))
}

// PrintJSON pretty-prints a raw RPC result.
func (p *Printer) PrintJSON(raw json.RawMessage) error {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("failed to decode result: %w", err)
	}
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	p.Println(string(out))
	return nil
}

// PrintState prints a controller's full state as three detail sections.
func (p *Printer) PrintState(st *device.FullState) {
	p.Println(RenderState(st, p.width))
}

// RenderHeader renders a command header box
func RenderHeader(title, command string, params map[string]string, width int) string {
	titleLine := HeaderTitleStyle.Render(strings.ToUpper(title))
	commandLine := HeaderCommandStyle.Render(command)
	topSection := lipgloss.JoinVertical(lipgloss.Left, titleLine, commandLine)
	if len(params) == 0 {
		return HeaderBorderStyle(width).Render(topSection)
	}

	var paramLines []string
	for _, key := range sortedKeys(params) {
		keyStyled := HeaderParamKeyStyle.Render(key + ":")
		valueStyled := HeaderParamValueStyle.Render(params[key])
		paramLines = append(paramLines, keyStyled+" "+valueStyled)
	}

	dividerWidth := width - 6 // Account for border and padding
	if dividerWidth < 10 {
		dividerWidth = 10
	}
	divider := RenderHorizontalDivider(dividerWidth, "─")

	content := lipgloss.JoinVertical(lipgloss.Left, topSection, divider, strings.Join(paramLines, "\n"))
	return HeaderBorderStyle(width).Render(content)
}

// RenderSuccessBox renders a success result box
func RenderSuccessBox(title string, details map[string]string, width int) string {
	lines := []string{
		"",
		SuccessTitleStyle.Render("   " + SuccessMarker + "  SUCCESS  ─  " + title),
		"",
	}
	lines = append(lines, renderDetails(details)...)
	lines = append(lines, "")
	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderErrorBox renders an error result box with troubleshooting
func RenderErrorBox(title string, err error, troubleshooting []string, width int) string {
	lines := []string{
		"",
		ErrorTitleStyle.Render("   " + FailureMarker + "  FAILED  ─  " + title),
		"",
	}

	if err != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+err.Error()), "")
	}

	if len(troubleshooting) > 0 {
		troubleLines := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range troubleshooting {
			troubleLines = append(troubleLines, TroubleshootingItemStyle.Render("  • "+tip))
		}
		troubleBox := TroubleshootingBoxStyle(width).Render(strings.Join(troubleLines, "\n"))
		lines = append(lines, troubleBox, "")
	}

	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// RenderState renders the system, network and LED sections of st.
func RenderState(st *device.FullState, width int) string {
	sys := st.System
	nw := st.Network.State
	ls := st.LED.State
	lc := st.LED.Config

	power := OffMarker + " off"
	if ls.On {
		power = OnMarker + " on"
	}

	network := nw.State
	if nw.Connected {
		network = fmt.Sprintf("%s (%s, %s)", nw.State, nw.SSID, nw.IP)
	}

	sections := []string{
		renderSection("System", []kv{
			{"Name", sys.Config.Name},
			{"ID", sys.State.ID},
			{"Version", sys.State.Version},
			{"Platform", sys.State.Platform},
			{"Uptime", strconv.FormatInt(sys.State.Uptime, 10) + "s"},
		}),
		renderSection("Network", []kv{
			{"State", network},
			{"Hotspot", strconv.FormatBool(nw.HotspotActive)},
			{"Stored SSID", st.Network.Config.SSID},
		}),
		renderSection("LED", []kv{
			{"Power", power},
			{"Brightness", strconv.Itoa(int(ls.Brightness))},
			{"Colors", RenderSwatches(ls.Colors)},
			{"Strip", fmt.Sprintf("%d × %s on pin %d", lc.Count, lc.Type, lc.Pin)},
		}),
	}

	return HeaderBorderStyle(width).Render(strings.Join(sections, "\n\n"))
}

type kv struct{ key, value string }

func renderSection(title string, rows []kv) string {
	lines := []string{HeaderTitleStyle.Render(strings.ToUpper(title))}
	for _, r := range rows {
		lines = append(lines, ResultKeyStyle.Render("   "+r.key+":")+" "+ResultValueStyle.Render(r.value))
	}
	return strings.Join(lines, "\n")
}

func renderDetails(details map[string]string) []string {
	var lines []string
	for _, key := range sortedKeys(details) {
		keyStyled := ResultKeyStyle.Render("   " + key + ":")
		lines = append(lines, keyStyled+" "+ResultValueStyle.Render(details[key]))
	}
	return lines
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
