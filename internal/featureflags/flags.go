package featureflags

import (
	"os"
	"strings"
)

// Process-level flags gating optional subsystems. These are deployment
// switches, distinct from the per-business feature entitlements stored in
// the database.
const (
	// FlagAuditStream exposes the live audit event websocket.
	FlagAuditStream = "audit_stream"
	// FlagInvitationReaper lets the background reaper delete aged pending
	// invitations.
	FlagInvitationReaper = "invitation_reaper"
)

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive)
func Enabled(name string) bool {
	v := os.Getenv("FLAG_" + strings.ToUpper(name))
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
