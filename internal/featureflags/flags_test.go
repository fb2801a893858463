package featureflags

import "testing"

func TestEnabled(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true},
		{"YES", true},
		{"1", true},
		{"on", true},
		{"false", false},
		{"0", false},
		{"banana", false},
	}
	for _, tt := range tests {
		t.Setenv("FLAG_OFFLINE_AI", tt.value)
		if got := Enabled(OfflineAI); got != tt.want {
			t.Errorf("FLAG_OFFLINE_AI=%q: got %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("FLAG_OFFLINE_AI", "")
	t.Setenv("FLAG_OPEN_PURCHASE", "")
	t.Setenv("FLAG_AUDIT_STREAM", "")

	f := Load()
	if f.OfflineAI || f.OpenPurchase || !f.AuditStream {
		t.Fatalf("unexpected defaults %+v", f)
	}

	t.Setenv("FLAG_AUDIT_STREAM", "off")
	t.Setenv("FLAG_OPEN_PURCHASE", "true")
	f = Load()
	if f.AuditStream || !f.OpenPurchase {
		t.Fatalf("unexpected overrides %+v", f)
	}
}
