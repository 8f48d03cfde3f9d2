package idgen

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		seed   string
	}{
		{"with seed", "USR", "alice"},
		{"empty seed", "CASE", ""},
		{"long seed truncated", "TNT", "supercalifragilistic"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := NewID(tt.prefix, tt.seed)
			if !strings.HasPrefix(id, tt.prefix+"-") {
				t.Fatalf("expected prefix %s-, got %s", tt.prefix, id)
			}
			suffix := strings.TrimPrefix(id, tt.prefix+"-")
			if len(suffix) != suffixLen {
				t.Fatalf("expected suffix length %d, got %d (%s)", suffixLen, len(suffix), suffix)
			}
		})
	}
}

func TestNewID_Unique(t *testing.T) {
	a := NewID("USR", "bob")
	b := NewID("USR", "bob")
	if a == b {
		t.Fatalf("expected distinct ids for repeated calls, got %s twice", a)
	}
}

func TestNewTenantIDs_SharedSuffix(t *testing.T) {
	tenantID, clientID, vendorID := NewTenantIDs("Acme Corp")

	tSuffix := strings.TrimPrefix(tenantID, "TNT-")
	cSuffix := strings.TrimPrefix(clientID, "TC-")
	vSuffix := strings.TrimPrefix(vendorID, "TV-")

	if tSuffix != cSuffix || tSuffix != vSuffix {
		t.Fatalf("expected shared suffix, got tenant=%s client=%s vendor=%s", tSuffix, cSuffix, vSuffix)
	}
}

func TestSystemClock_ReturnsUTC(t *testing.T) {
	now := SystemClock{}.Now()
	if now.Location() != nil && now.Location().String() != "UTC" {
		t.Fatalf("expected UTC location, got %s", now.Location())
	}
}
