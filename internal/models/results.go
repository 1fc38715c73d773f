package models

type RiskLevel string

const (
	RiskCritical RiskLevel = "CRITICAL" // userland and kernel chain both viable
	RiskHigh     RiskLevel = "HIGH"     // userland code execution viable
	RiskMedium   RiskLevel = "MEDIUM"   // kernel exploit viable, no userland entry
	RiskLow      RiskLevel = "LOW"
)

type Category string

const (
	UserlandExecution      Category = "UserlandExecution"
	KernelExploit          Category = "KernelExploit"
	EngineExploitPotential Category = "EngineExploitPotential"
)

// Label is the literal transcript label for the category.
func (c Category) Label() string {
	switch c {
	case UserlandExecution:
		return "Userland Code Execution"
	case KernelExploit:
		return "Kernel Exploit"
	case EngineExploitPotential:
		return "WebKit Exploit Potential"
	}
	return string(c)
}

type CapabilityResult struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
}

type BehavioralResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Err    string `json:"error,omitempty"`
}

type StressResult struct {
	Name      string `json:"name"`
	Succeeded bool   `json:"succeeded"`
	Err       string `json:"error,omitempty"`
}

type Verdict struct {
	Category Category `json:"category"`
	Value    bool     `json:"value"`
}

type SystemInfo struct {
	CobaltVersion string `json:"cobalt_version"`
	GLES          bool   `json:"gles"`
	Jitless       bool   `json:"jitless"`
	WebKitVersion string `json:"webkit_version"`
	AppInfo       string `json:"app_info"`
	Firmware      string `json:"firmware"`
}

type Report struct {
	Host         string             `json:"host,omitempty"`
	Capabilities []CapabilityResult `json:"capabilities"`
	Behavioral   BehavioralResult   `json:"behavioral"`
	Stress       []StressResult     `json:"stress"`
	Verdicts     []Verdict          `json:"verdicts"`
	System       SystemInfo         `json:"system"`
	Transcript   []string           `json:"transcript"`
}

// Verdict looks up a verdict by category; missing categories read as false.
func (r *Report) Verdict(c Category) bool {
	for _, v := range r.Verdicts {
		if v.Category == c {
			return v.Value
		}
	}
	return false
}

// Risk collapses the verdicts into a single level for summaries.
func (r *Report) Risk() RiskLevel {
	userland := r.Verdict(UserlandExecution)
	kernel := r.Verdict(KernelExploit)
	switch {
	case userland && kernel:
		return RiskCritical
	case userland:
		return RiskHigh
	case kernel:
		return RiskMedium
	default:
		return RiskLow
	}
}
