package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"github.com/pterm/pterm"
)

var stderr io.Writer = os.Stderr

// PrintSummary renders the verdicts and failed checks as tables.
func PrintSummary(w io.Writer, report *models.Report) error {
	riskStyle := ""
	switch report.Risk() {
	case models.RiskCritical:
		riskStyle = pterm.FgRed.Sprint("CRITICAL")
	case models.RiskHigh:
		riskStyle = pterm.FgRed.Sprint("HIGH")
	case models.RiskMedium:
		riskStyle = pterm.FgYellow.Sprint("MEDIUM")
	default:
		riskStyle = pterm.FgBlue.Sprint("LOW")
	}

	data := [][]string{
		{"Check", "Kind", "Result"},
	}
	for _, c := range report.Capabilities {
		data = append(data, []string{pterm.FgCyan.Sprint(c.Name), "capability", okFail(c.Present)})
	}
	for _, s := range report.Stress {
		data = append(data, []string{pterm.FgCyan.Sprint(s.Name), "stress", okFail(s.Succeeded)})
	}
	for _, v := range report.Verdicts {
		data = append(data, []string{pterm.FgCyan.Sprint(v.Category.Label()), "verdict", yesNo(v.Value)})
	}

	table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}

	info := [][]string{
		{"Risk", riskStyle},
		{"Cobalt", report.System.CobaltVersion},
		{"WebKit", report.System.WebKitVersion},
		{"App", report.System.AppInfo},
		{"Firmware", report.System.Firmware},
	}
	details, err := pterm.DefaultTable.WithData(info).Srender()
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s\n\n%s\n", table, details)
	return err
}

// PrintJSON writes the report as indented JSON.
func PrintJSON(w io.Writer, report *models.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

// PrintGate reports whether the kernel stage may follow.
func PrintGate(firmware string, allowed bool) {
	if allowed {
		fmt.Fprint(stderr, pterm.Success.Sprintfln("FW %s is within the kernel exploit range", firmware))
		return
	}
	fmt.Fprint(stderr, pterm.Warning.Sprintfln("FW %s is outside the kernel exploit range. Stopping here.", firmware))
}

func StartSpinner(text string) *pterm.SpinnerPrinter {
	spinner, _ := pterm.DefaultSpinner.Start(text)
	return spinner
}

// AskDevice prompts for the device address and payload port.
func AskDevice(defaultHost string, defaultPort int) (string, int, error) {
	host, err := pterm.DefaultInteractiveTextInput.
		WithDefaultValue(defaultHost).
		Show("Device IP address")
	if err != nil {
		return "", 0, fmt.Errorf("read device address: %w", err)
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, fmt.Errorf("device address is required")
	}

	input, err := pterm.DefaultInteractiveTextInput.
		WithDefaultValue(strconv.Itoa(defaultPort)).
		Show("Device port")
	if err != nil {
		return "", 0, fmt.Errorf("read device port: %w", err)
	}
	port, err := parsePort(input, defaultPort)
	if err != nil {
		return "", 0, err
	}
	return host, port, nil
}

// parsePort reads a port answer; a blank answer keeps def.
func parsePort(input string, def int) (int, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return def, nil
	}
	port, err := strconv.Atoi(input)
	if err != nil || port <= 0 || port > 65535 {
		return 0, fmt.Errorf("invalid port %q", input)
	}
	return port, nil
}

func okFail(b bool) string {
	if b {
		return pterm.FgGreen.Sprint("OK")
	}
	return pterm.FgRed.Sprint("FAIL")
}

func yesNo(b bool) string {
	if b {
		return pterm.FgRed.Sprint("Yes")
	}
	return pterm.FgGreen.Sprint("No")
}
