package repo

import (
	"testing"
	"time"
)

func TestTouchUpdatesInboundIncrementsUnread(t *testing.T) {
	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	updates := touchUpdates(at, true)
	if updates["last_message_at"] != at {
		t.Errorf("last_message_at = %v, want %v", updates["last_message_at"], at)
	}
	if _, ok := updates["unread_count"]; !ok {
		t.Error("inbound touch must increment unread_count")
	}
}

func TestTouchUpdatesOutboundLeavesUnreadAlone(t *testing.T) {
	at := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	updates := touchUpdates(at, false)
	if updates["last_message_at"] != at {
		t.Errorf("last_message_at = %v, want %v", updates["last_message_at"], at)
	}
	if _, ok := updates["unread_count"]; ok {
		t.Error("a merchant reply must not mark its own thread unread")
	}
}
