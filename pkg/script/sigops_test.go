package script

import "testing"

func TestCountSigOpsChecksig(t *testing.T) {
	script := []byte{OP_CHECKSIG, OP_CHECKSIGVERIFY}
	if got := CountSigOps(script, false); got != 2 {
		t.Fatalf("CountSigOps = %d, want 2", got)
	}
}

func TestCountSigOpsMultisigInaccurateIsAlwaysTwenty(t *testing.T) {
	script := []byte{OP_1, OP_CHECKMULTISIG}
	if got := CountSigOps(script, false); got != 20 {
		t.Fatalf("inaccurate CountSigOps = %d, want 20", got)
	}
}

func TestCountSigOpsMultisigAccurateUsesPrecedingPush(t *testing.T) {
	script := []byte{OP_3, OP_CHECKMULTISIG}
	if got := CountSigOps(script, true); got != 3 {
		t.Fatalf("accurate CountSigOps = %d, want 3", got)
	}
}

func TestCountSigOpsSkipsDataPushes(t *testing.T) {
	// push 3 bytes that happen to contain the OP_CHECKSIG byte value,
	// which must not be scanned as an opcode.
	script := []byte{0x03, OP_CHECKSIG, OP_CHECKSIG, OP_CHECKSIG, OP_CHECKSIG}
	if got := CountSigOps(script, false); got != 1 {
		t.Fatalf("CountSigOps = %d, want 1 (only the trailing real opcode)", got)
	}
}
