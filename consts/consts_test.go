package consts

import (
	"testing"
	"time"
)

func TestUptime(t *testing.T) {
	if GetUptime() != 0 {
		t.Fatal("GetUptime() before SetStartedAt should be 0")
	}

	SetStartedAt(time.Now().Add(-time.Minute))
	SetStartedAt(time.Now()) // ignored

	if up := GetUptime(); up < time.Minute {
		t.Errorf("GetUptime() = %v, want >= 1m", up)
	}
}
