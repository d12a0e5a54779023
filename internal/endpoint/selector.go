package endpoint

// Role identifies which configured URI is in use.
type Role int

const (
	// RolePrimary is the main ingest endpoint
	RolePrimary Role = iota
	// RoleBackup is used when the primary is not reachable
	RoleBackup
)

// String returns a human-readable representation of the role
func (r Role) String() string {
	if r == RoleBackup {
		return "backup"
	}
	return "primary"
}

// Selector holds the primary/backup URIs and which one is active.
//
// Invariant: without a backup URI the primary role is always active.
// With only a backup URI the backup role is always active.
type Selector struct {
	primary  string
	backup   string
	isBackup bool
}

// NewSelector creates a selector. Empty strings mean "not configured".
func NewSelector(primary, backup string) *Selector {
	s := &Selector{}
	s.SetURIs(primary, backup)
	return s
}

// SetURIs replaces both URIs, keeping the active role when it is still valid.
func (s *Selector) SetURIs(primary, backup string) {
	s.primary = primary
	s.backup = backup
	s.normalize()
}

// ActiveURI returns the URI of the active role and whether it is configured.
func (s *Selector) ActiveURI() (string, bool) {
	if s.isBackup {
		return s.backup, s.backup != ""
	}
	return s.primary, s.primary != ""
}

// Active returns the active role
func (s *Selector) Active() Role {
	if s.isBackup {
		return RoleBackup
	}
	return RolePrimary
}

// HasBackup reports whether a backup URI is configured
func (s *Selector) HasBackup() bool {
	return s.backup != ""
}

// Toggle switches to the other role. No-op unless both URIs are configured.
func (s *Selector) Toggle() {
	if s.backup == "" || s.primary == "" {
		return
	}
	s.isBackup = !s.isBackup
}

// Reset makes the primary role active again (backup when it is the only one).
func (s *Selector) Reset() {
	s.isBackup = false
	s.normalize()
}

func (s *Selector) normalize() {
	switch {
	case s.backup == "":
		s.isBackup = false
	case s.primary == "":
		s.isBackup = true
	}
}
