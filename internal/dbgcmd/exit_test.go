package dbgcmd

import "testing"

func TestSilentExit_RoundTrips(t *testing.T) {
	err := NewSilentExit(3)
	code, ok := IsSilentExit(err)
	if !ok {
		t.Fatal("expected IsSilentExit to recognize a NewSilentExit error")
	}
	if code != 3 {
		t.Fatalf("expected code 3, got %d", code)
	}
	if err.Error() != "" {
		t.Fatalf("expected an empty error string, got %q", err.Error())
	}
}

func TestIsSilentExit_RejectsOrdinaryError(t *testing.T) {
	_, ok := IsSilentExit(errString("boom"))
	if ok {
		t.Fatal("expected an ordinary error not to be recognized as a silentExit")
	}
}

type errString string

func (e errString) Error() string { return string(e) }
