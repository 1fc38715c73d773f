package probe

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
)

// KernelFirmwareCeiling is the highest firmware version the kernel exploit
// heuristic accepts.
const KernelFirmwareCeiling = 10.01

// decimalMarker is the plain decimal number syntax. Infinities, NaN, hex
// floats and digit separators are not firmware versions.
var decimalMarker = regexp.MustCompile(`^[+-]?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?$`)

// Firmware is the optional numeric version marker. Raw keeps the text as
// supplied for the report.
type Firmware struct {
	Raw     string
	Set     bool
	Value   float64
	Numeric bool
}

// ParseFirmware interprets a marker. An unset, blank or non-numeric marker is
// kept as data and never fails.
func ParseFirmware(raw string, set bool) Firmware {
	fw := Firmware{Raw: raw, Set: set}
	if !set {
		return fw
	}
	s := strings.TrimSpace(raw)
	if !decimalMarker.MatchString(s) {
		return fw
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fw
	}
	fw.Value = v
	fw.Numeric = true
	return fw
}

// String is the report rendering of the marker.
func (f Firmware) String() string {
	if !f.Set {
		return "not set"
	}
	return f.Raw
}

// Verdicts holds the three heuristic outcomes.
type Verdicts struct {
	UserlandExecution      bool
	KernelExploit          bool
	EngineExploitPotential bool
}

// List returns the verdicts in report order.
func (v Verdicts) List() []models.Verdict {
	return []models.Verdict{
		{Category: models.UserlandExecution, Value: v.UserlandExecution},
		{Category: models.KernelExploit, Value: v.KernelExploit},
		{Category: models.EngineExploitPotential, Value: v.EngineExploitPotential},
	}
}

// KernelExploitable applies the firmware rule on its own.
func KernelExploitable(fw Firmware) bool {
	return fw.Set && fw.Numeric && fw.Value <= KernelFirmwareCeiling
}

// Evaluate combines probed capabilities and the firmware marker. It fails only
// when a capability it needs was never probed.
func Evaluate(caps *CapabilitySet, fw Firmware) (Verdicts, error) {
	userland := true
	for _, name := range []string{CapJIT, CapSharedArrayBuffer, CapAtomics, CapWeakRef} {
		present, err := caps.Present(name)
		if err != nil {
			return Verdicts{}, fmt.Errorf("evaluate: %w", err)
		}
		userland = userland && present
	}

	// EngineExploitPotential deliberately mirrors UserlandExecution until an
	// independent engine signal exists.
	return Verdicts{
		UserlandExecution:      userland,
		KernelExploit:          KernelExploitable(fw),
		EngineExploitPotential: userland,
	}, nil
}
