package probe

import (
	"testing"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTranscriptRoundTrip(t *testing.T) {
	h := newFakeHost().without("Atomics")
	h.fail["buffer"] = errInjected
	report, _, _ := run(t, h, ParseFirmware("9.60", true))

	parsed, err := ParseTranscript(report.Transcript)
	require.NoError(t, err)

	assert.Equal(t, report.Transcript, parsed.Transcript)
	assert.Equal(t, report.Capabilities, parsed.Capabilities)
	assert.Equal(t, report.Verdicts, parsed.Verdicts)
	assert.Equal(t, report.System, parsed.System)
	assert.Equal(t, report.Behavioral.Passed, parsed.Behavioral.Passed)
	assert.False(t, parsed.Verdict(models.UserlandExecution))

	for i := range report.Stress {
		assert.Equal(t, report.Stress[i].Name, parsed.Stress[i].Name)
		assert.Equal(t, report.Stress[i].Succeeded, parsed.Stress[i].Succeeded)
	}
}

func TestParseTranscriptIncomplete(t *testing.T) {
	lines := []string{
		"Core Feature Detection",
		"-------------------------",
		"BigInt: OK\r\n",
		"SharedArrayBuffer: FAIL",
		"",
		"Stress Tests",
		"Array Stress: OK",
	}

	parsed, err := ParseTranscript(lines)

	assert.ErrorIs(t, err, ErrIncompleteTranscript)
	require.NotNil(t, parsed)
	assert.Len(t, parsed.Transcript, len(lines))
	assert.Equal(t, "BigInt: OK", parsed.Transcript[2])
	require.Len(t, parsed.Capabilities, 2)
	assert.True(t, parsed.Capabilities[0].Present)
	assert.False(t, parsed.Capabilities[1].Present)
	require.Len(t, parsed.Stress, 1)
	assert.Equal(t, "Array", parsed.Stress[0].Name)
}

func TestParseTranscriptSkipsNoise(t *testing.T) {
	lines := []string{
		"[12:00:01] connected",
		"Exploitability Assessment",
		"Kernel Exploit: Yes",
		"Something Else: Yes",
		"System Info",
		"GLES: No",
		"App Info: YouTube_PS5/1.37.0",
		CompletionBanner,
	}

	parsed, err := ParseTranscript(lines)
	require.NoError(t, err)

	if diff := cmp.Diff([]string{"Kernel Exploit"}, labels(parsed.Verdicts)); diff != "" {
		t.Errorf("verdicts (-want +got):\n%s", diff)
	}
	assert.True(t, parsed.Verdicts[0].Value)
	assert.Equal(t, "YouTube_PS5/1.37.0", parsed.System.AppInfo)
	assert.False(t, parsed.System.GLES)
}

func labels(vs []models.Verdict) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Category.Label())
	}
	return out
}
