package errs

import (
	"errors"
	"log/slog"
	"testing"
)

type retryErr struct{}

func (retryErr) Error() string   { return "try again" }
func (retryErr) Retryable() bool { return true }

func TestWrapPreservesChain(t *testing.T) {
	base := errors.New("boom")
	err := Wrapf(Wrap(base, "inner"), "outer %d", 1)
	if !errors.Is(err, base) {
		t.Fatalf("errors.Is() = false, want true")
	}
	if err.Error() != "outer 1: inner: boom" {
		t.Fatalf("Error() = %q", err.Error())
	}
	if Wrap(nil, "x") != nil {
		t.Fatalf("Wrap(nil) should be nil")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Wrap(retryErr{}, "provision")) {
		t.Fatalf("IsRetryable() = false for wrapped retryable error")
	}
	if IsRetryable(errors.New("plain")) {
		t.Fatalf("IsRetryable() = true for plain error")
	}
}

func TestErrorChainStringsWalksJoined(t *testing.T) {
	err := Wrap(errors.Join(errors.New("a"), errors.New("b")), "ctx")
	chain := ErrorChainStrings(err)
	if len(chain) != 4 {
		t.Fatalf("chain = %#v", chain)
	}
	if chain[2] != "a" || chain[3] != "b" {
		t.Fatalf("chain = %#v", chain)
	}
}

func TestLoggableIncludesStackAndRetryable(t *testing.T) {
	v := Loggable(WithStack(retryErr{})).LogValue()
	if v.Kind() != slog.KindGroup {
		t.Fatalf("kind = %v", v.Kind())
	}
	keys := map[string]bool{}
	for _, attr := range v.Group() {
		keys[attr.Key] = true
	}
	for _, want := range []string{"message", "chain", "retryable", "stack"} {
		if !keys[want] {
			t.Fatalf("missing key %q in %v", want, keys)
		}
	}
}
