package config

import (
	"strings"
	"testing"
)

func testManager() *Manager {
	return NewManager(&Config{
		Library:  Library{ReleaseMatch: "exact", PageSize: 300},
		Telegram: Telegram{Token: "very-secret-token"},
	})
}

func TestGetYAMLRedactsToken(t *testing.T) {
	out := testManager().GetYAML()

	if strings.Contains(out, "very-secret-token") {
		t.Error("expected telegram token redacted in YAML output")
	}
	if !strings.Contains(out, "<redacted>") {
		t.Error("expected redaction marker in YAML output")
	}
	if !strings.Contains(out, "release_match: exact") {
		t.Errorf("expected library settings in YAML output, got:\n%s", out)
	}
}

func TestGetJSONRedactsToken(t *testing.T) {
	out := testManager().GetJSON()

	if strings.Contains(out, "very-secret-token") {
		t.Error("expected telegram token redacted in JSON output")
	}
	if !strings.Contains(out, "<redacted>") {
		t.Error("expected redaction marker in JSON output")
	}
}

func TestUpdateReplacesConfig(t *testing.T) {
	manager := testManager()

	updated := *manager.Get()
	updated.Library.ReleaseMatch = "prefix"
	manager.Update(&updated)

	if got := manager.Get().Library.ReleaseMatch; got != "prefix" {
		t.Errorf("expected updated release match, got %q", got)
	}
}
