package notifications

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/K0NGR3SS/ghostprobe/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *models.Report {
	return &models.Report{
		Host: "embedded",
		Capabilities: []models.CapabilityResult{
			{Name: "BigInt", Present: true},
			{Name: "SharedArrayBuffer", Present: false},
		},
		Stress: []models.StressResult{
			{Name: "Array", Succeeded: true},
			{Name: "WebAssembly", Succeeded: false},
		},
		Verdicts: []models.Verdict{
			{Category: models.UserlandExecution, Value: false},
			{Category: models.KernelExploit, Value: true},
			{Category: models.EngineExploitPotential, Value: false},
		},
		System: models.SystemInfo{CobaltVersion: "25.lts.30.1034943", Firmware: "9.00"},
	}
}

func TestSendReport(t *testing.T) {
	var got slackMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL, "#labs")
	require.NoError(t, n.SendReport(context.Background(), sampleReport()))

	assert.Equal(t, "#labs", got.Channel)
	assert.Contains(t, got.Text, "MEDIUM")
	require.Len(t, got.Attachments, 2)
	assert.Equal(t, "warning", got.Attachments[0].Color)
	assert.Equal(t, slackField{Title: "Kernel Exploit", Value: "Yes", Short: true}, got.Attachments[0].Fields[1])
	assert.Equal(t, "• SharedArrayBuffer\n• WebAssembly Stress", got.Attachments[1].Text)
}

func TestSendReportRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewSlackNotifier(srv.URL, "").SendReport(context.Background(), sampleReport())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}
