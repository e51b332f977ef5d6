package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmPhrase is what the user must type to confirm a destructive
// operation.
const ConfirmPhrase = "RESET"

// ConfirmDangerousOperation displays a warning box and prompts the user to
// type ConfirmPhrase. Returns true if the user confirmed.
func ConfirmDangerousOperation(in io.Reader, out io.Writer, title string, warnings []string) bool {
	width := GetTerminalWidth()

	lines := []string{
		"",
		lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true).
			Render(fmt.Sprintf("   ⚠  WARNING  ─  %s", title)),
		"",
	}
	for _, warning := range warnings {
		lines = append(lines, lipgloss.NewStyle().Foreground(TextColor).Render("   • "+warning))
	}
	lines = append(lines, "")

	_, _ = fmt.Fprintln(out, WarningBoxStyle(width).Render(strings.Join(lines, "\n")))
	_, _ = fmt.Fprintln(out)

	promptStyle := lipgloss.NewStyle().
		Foreground(WarningColor).
		Bold(true)
	_, _ = fmt.Fprint(out, promptStyle.Render(fmt.Sprintf("To proceed, type %q and press Enter: ", ConfirmPhrase)))

	input, err := bufio.NewReader(in).ReadString('\n')
	_, _ = fmt.Fprintln(out)
	if err != nil && input == "" {
		return false
	}
	if strings.TrimSpace(input) == ConfirmPhrase {
		return true
	}

	_, _ = fmt.Fprintln(out, lipgloss.NewStyle().Foreground(MutedColor).Render("  Operation cancelled."))
	return false
}

// FactoryResetConfirmation is the confirmation shown before a factory reset.
func FactoryResetConfirmation(in io.Reader, out io.Writer, device string) bool {
	return ConfirmDangerousOperation(in, out,
		"FACTORY RESET",
		[]string{
			"All settings on " + device + " will be erased",
			"Stored network credentials are removed and the controller restarts into its hotspot",
			"Strip geometry returns to the defaults",
		},
	)
}
