package probe

import (
	"regexp"
	"strings"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
)

// Token is one best-effort extraction rule over the identifying string.
type Token struct {
	Name    string
	pattern *regexp.Regexp
	marker  string
}

var (
	TokenCobalt  = Token{Name: "cobalt", pattern: regexp.MustCompile(`Cobalt/([\d.lts]+)`)}
	TokenWebKit  = Token{Name: "webkit", pattern: regexp.MustCompile(`AppleWebKit/([\d.]+)`)}
	TokenApp     = Token{Name: "app", pattern: regexp.MustCompile(`YouTube_[^ ]+`)}
	TokenGLES    = Token{Name: "gles", marker: "gles"}
	TokenJitless = Token{Name: "jitless", marker: "jitless"}
)

const (
	unknown    = "unknown"
	notPresent = "not present"
)

// Extract applies a token to source. Pattern tokens return their first
// capture group (or the whole match when there is none); marker tokens return
// the marker itself when it occurs.
func Extract(t Token, source string) (string, bool) {
	if t.pattern == nil {
		if t.marker != "" && strings.Contains(source, t.marker) {
			return t.marker, true
		}
		return "", false
	}
	m := t.pattern.FindStringSubmatch(source)
	switch {
	case m == nil:
		return "", false
	case len(m) > 1:
		return m[1], m[1] != ""
	default:
		return m[0], true
	}
}

func extractOr(t Token, source, fallback string) string {
	if v, ok := Extract(t, source); ok {
		return v
	}
	return fallback
}

// ExtractSystemInfo fills every field, substituting placeholders on no match.
func ExtractSystemInfo(id Identity) models.SystemInfo {
	ua := id.UserAgent
	_, gles := Extract(TokenGLES, ua)
	_, jitless := Extract(TokenJitless, ua)
	return models.SystemInfo{
		CobaltVersion: extractOr(TokenCobalt, ua, unknown),
		GLES:          gles,
		Jitless:       jitless,
		WebKitVersion: extractOr(TokenWebKit, ua, unknown),
		AppInfo:       extractOr(TokenApp, ua, unknown),
		Firmware:      id.Firmware.String(),
	}
}

func systemInfoLines(info models.SystemInfo) []string {
	jit := notPresent
	if info.Jitless {
		jit = "jitless detected"
	}
	return []string{
		"Cobalt Version: " + info.CobaltVersion,
		"GLES: " + yesNo(info.GLES),
		"JIT Flag in UA: " + jit,
		"WebKit Version: " + info.WebKitVersion,
		"App Info: " + info.AppInfo,
		"FW_VERSION (Y2JB): " + info.Firmware,
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

func okFail(b bool) string {
	if b {
		return "OK"
	}
	return "FAIL"
}
