package featureflags

import (
	"os"
	"strings"
)

// Known flags
const (
	// OfflineAI skips the remote scorer; every submission gets the fallback analysis
	OfflineAI = "offline_ai"
	// OpenPurchase lets any signed-in role buy credits, not only corporate buyers
	OpenPurchase = "open_purchase"
	// AuditStream enables the /ws/audit live feed
	AuditStream = "audit_stream"
)

// Flags is a snapshot of the flags read at startup
type Flags struct {
	OfflineAI    bool
	OpenPurchase bool
	AuditStream  bool
}

// Load reads every known flag. AuditStream defaults to on.
func Load() Flags {
	return Flags{
		OfflineAI:    Enabled(OfflineAI),
		OpenPurchase: Enabled(OpenPurchase),
		AuditStream:  EnabledDefault(AuditStream, true),
	}
}

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	return EnabledDefault(name, false)
}

// EnabledDefault is Enabled with a default for an unset variable
func EnabledDefault(name string, def bool) bool {
	v, ok := os.LookupEnv("FLAG_" + strings.ToUpper(name))
	if !ok || v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
