package timesync

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestNowBeforeFirstSync(t *testing.T) {
	c := NewClock("pool.ntp.org", time.Second, zap.NewNop())

	if got := c.Offset(); got != 0 {
		t.Errorf("Offset before sync = %v, want 0", got)
	}

	before := time.Now().UTC()
	now := c.Now()
	after := time.Now().UTC()
	if now.Before(before) || now.After(after) {
		t.Errorf("Now = %v, want within [%v, %v]", now, before, after)
	}
	if now.Location() != time.UTC {
		t.Errorf("Now location = %v, want UTC", now.Location())
	}
}

func TestNowAppliesOffset(t *testing.T) {
	c := NewClock("pool.ntp.org", time.Second, zap.NewNop())
	c.mu.Lock()
	c.offset = 2 * time.Hour
	c.mu.Unlock()

	diff := time.Until(c.Now())
	if diff < time.Hour {
		t.Errorf("offset-adjusted Now only %v ahead, want ~2h", diff)
	}
}

func TestSyncFailureKeepsOffset(t *testing.T) {
	// Unroutable server: the query fails and the recorded offset survives.
	c := NewClock("127.0.0.1:1", 200*time.Millisecond, zap.NewNop())
	c.mu.Lock()
	c.offset = time.Minute
	c.mu.Unlock()

	if err := c.Sync(); err == nil {
		t.Fatal("Sync against unroutable server = nil error, want error")
	}
	if got := c.Offset(); got != time.Minute {
		t.Errorf("Offset after failed sync = %v, want 1m", got)
	}
}
