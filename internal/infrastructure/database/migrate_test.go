package database

import (
	"regexp"
	"testing"

	"clinicflow/internal/changefeed"
)

func TestMigrations_TriggersNotifyListenerChannel(t *testing.T) {
	sql, err := migrationFS.ReadFile("migrations/000001_init.up.sql")
	if err != nil {
		t.Fatalf("read migration: %v", err)
	}

	calls := regexp.MustCompile(`notify_clinic_change\('([^']*)'\)`).FindAllStringSubmatch(string(sql), -1)
	if len(calls) != 3 {
		t.Fatalf("expected 3 notify triggers, found %d", len(calls))
	}
	for _, call := range calls {
		if call[1] != changefeed.Channel {
			t.Errorf("trigger notifies %q, listener listens on %q", call[1], changefeed.Channel)
		}
	}
}
