package chain

import (
	"testing"

	apperrors "aibos-vmp/core/internal/pkg/errors"
)

func TestGenesisHash_Length(t *testing.T) {
	if len(GenesisHash) != 64 {
		t.Fatalf("GenesisHash must be 64 hex chars, got %d", len(GenesisHash))
	}
	for _, r := range GenesisHash {
		if r != '0' {
			t.Fatalf("GenesisHash must be all zeros, found %q", r)
		}
	}
}

func TestComputeChainHash_Deterministic(t *testing.T) {
	meta := map[string]interface{}{"action": "UPLOAD", "caseId": "CASE-ABCD1234"}

	a := computeChainHash(GenesisHash, "deadbeef", meta, "USR-1234ABCD")
	b := computeChainHash(GenesisHash, "deadbeef", meta, "USR-1234ABCD")

	if a != b {
		t.Fatalf("expected deterministic hash, got %s vs %s", a, b)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64-char hex hash, got %d chars", len(a))
	}
}

func TestComputeChainHash_SensitiveToEveryField(t *testing.T) {
	base := computeChainHash(GenesisHash, "payload1", map[string]interface{}{"k": "v"}, "USR-1")

	variants := []string{
		computeChainHash("ff", "payload1", map[string]interface{}{"k": "v"}, "USR-1"),
		computeChainHash(GenesisHash, "payload2", map[string]interface{}{"k": "v"}, "USR-1"),
		computeChainHash(GenesisHash, "payload1", map[string]interface{}{"k": "v2"}, "USR-1"),
		computeChainHash(GenesisHash, "payload1", map[string]interface{}{"k": "v"}, "USR-2"),
	}
	for i, v := range variants {
		if v == base {
			t.Fatalf("variant %d unexpectedly matched base hash", i)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"conflict retryable", apperrors.Conflict("C", "tail moved"), true},
		{"chain error not retryable", apperrors.Chainf("boom"), false},
		{"not an app error", errUnrelated{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRetryable(tt.err); got != tt.want {
				t.Errorf("isRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

type errUnrelated struct{}

func (errUnrelated) Error() string { return "unrelated" }
