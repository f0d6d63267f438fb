package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"receiptz.org/internal/auth"
	"receiptz.org/internal/obs"
)

func TestLogEventIncludesContext(t *testing.T) {
	logger := obs.Logger()
	origWriter := logger.Writer()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(origWriter)

	ctx := WithRequestID(context.Background(), "req-123")
	ctx = auth.WithContext(ctx, auth.Context{UserID: "user-1", OrgID: "org-1", Role: auth.RoleStaff})

	if err := LogEvent(ctx, "receipt.created", map[string]any{"receipt_id": "r-1"}); err != nil {
		t.Fatalf("LogEvent: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("audit line is not valid JSON: %v", err)
	}
	if entry["event"] != "receipt.created" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" || entry["user_id"] != "user-1" || entry["org_id"] != "org-1" {
		t.Fatalf("missing context fields: %v", entry)
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["receipt_id"] != "r-1" {
		t.Fatalf("missing event fields: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("expected error for empty event name")
	}
}
