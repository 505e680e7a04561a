package utils

import (
	"testing"
)

func TestNewLogger(t *testing.T) {
	t.Run("debug mode returns development logger", func(t *testing.T) {
		logger, err := NewLogger(true)
		if err != nil {
			t.Fatalf("NewLogger(true) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(true) returned nil logger")
		}
		_ = logger.Sync()
	})

	t.Run("production mode returns production logger", func(t *testing.T) {
		logger, err := NewLogger(false)
		if err != nil {
			t.Fatalf("NewLogger(false) error: %v", err)
		}
		if logger == nil {
			t.Fatal("NewLogger(false) returned nil logger")
		}
		_ = logger.Sync()
	})
}

func TestNopLogger(t *testing.T) {
	if NopLogger(nil) == nil {
		t.Fatal("NopLogger(nil) returned nil")
	}
	logger, err := NewLogger(false)
	if err != nil {
		t.Fatal(err)
	}
	if got := NopLogger(logger); got != logger {
		t.Error("NopLogger should return a non-nil logger unchanged")
	}
}
