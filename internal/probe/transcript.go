package probe

import (
	"strings"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
)

var verdictByLabel = map[string]models.Category{
	models.UserlandExecution.Label():      models.UserlandExecution,
	models.KernelExploit.Label():          models.KernelExploit,
	models.EngineExploitPotential.Label(): models.EngineExploitPotential,
}

// ParseTranscript rebuilds a report from transcript lines, typically received
// from a device through the log server. Unrecognised lines are skipped. When
// the completion banner is missing the partial report is returned together
// with ErrIncompleteTranscript.
func ParseTranscript(lines []string) (*models.Report, error) {
	r := &models.Report{}
	section := ""
	complete := false

	for _, raw := range lines {
		line := strings.TrimRight(raw, "\r\n")
		r.Transcript = append(r.Transcript, line)
		trimmed := strings.TrimSpace(line)
		switch trimmed {
		case "":
			continue
		case HeaderExistence, HeaderStress, HeaderExploitability, HeaderSystemInfo:
			section = trimmed
			continue
		case CompletionBanner:
			complete = true
			continue
		}

		name, value, ok := strings.Cut(trimmed, ": ")
		if !ok {
			continue
		}
		switch section {
		case HeaderExistence:
			present := value == "OK"
			if name == CapJIT {
				r.Behavioral = models.BehavioralResult{Name: CapJIT, Passed: present}
			}
			r.Capabilities = append(r.Capabilities, models.CapabilityResult{Name: name, Present: present})
		case HeaderStress:
			r.Stress = append(r.Stress, models.StressResult{
				Name:      strings.TrimSuffix(name, " Stress"),
				Succeeded: value == "OK",
			})
		case HeaderExploitability:
			if c, ok := verdictByLabel[name]; ok {
				r.Verdicts = append(r.Verdicts, models.Verdict{Category: c, Value: value == "Yes"})
			}
		case HeaderSystemInfo:
			parseSystemLine(&r.System, name, value)
		}
	}

	if !complete {
		return r, ErrIncompleteTranscript
	}
	return r, nil
}

func parseSystemLine(info *models.SystemInfo, name, value string) {
	switch name {
	case "Cobalt Version":
		info.CobaltVersion = value
	case "GLES":
		info.GLES = value == "Yes"
	case "JIT Flag in UA":
		info.Jitless = value == "jitless detected"
	case "WebKit Version":
		info.WebKitVersion = value
	case "App Info":
		info.AppInfo = value
	case "FW_VERSION (Y2JB)":
		info.Firmware = value
	}
}
