package endpoint

import "testing"

func TestSelector_Toggle(t *testing.T) {
	tests := []struct {
		name    string
		primary string
		backup  string
		toggles int
		want    string
		wantOK  bool
		role    Role
	}{
		{"primary only stays on primary", "rtmp://a/live/s", "", 3, "rtmp://a/live/s", true, RolePrimary},
		{"one toggle switches to backup", "rtmp://a/live/s", "rtmp://b/live/s", 1, "rtmp://b/live/s", true, RoleBackup},
		{"two toggles come back", "rtmp://a/live/s", "rtmp://b/live/s", 2, "rtmp://a/live/s", true, RolePrimary},
		{"backup only stays on backup", "", "rtmp://b/live/s", 5, "rtmp://b/live/s", true, RoleBackup},
		{"nothing configured", "", "", 1, "", false, RolePrimary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSelector(tt.primary, tt.backup)
			for i := 0; i < tt.toggles; i++ {
				s.Toggle()
			}

			got, ok := s.ActiveURI()
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("ActiveURI() = (%q, %v), want (%q, %v)", got, ok, tt.want, tt.wantOK)
			}
			if s.Active() != tt.role {
				t.Errorf("Active() = %v, want %v", s.Active(), tt.role)
			}
		})
	}
}

func TestSelector_SetURIs_DropsBackupRole(t *testing.T) {
	s := NewSelector("rtmp://a/live/s", "rtmp://b/live/s")
	s.Toggle()
	if s.Active() != RoleBackup {
		t.Fatalf("expected backup role after toggle")
	}

	s.SetURIs("rtmp://a/live/s", "")
	if s.Active() != RolePrimary {
		t.Errorf("backup removed but role is still %v", s.Active())
	}
}

func TestSelector_Reset(t *testing.T) {
	s := NewSelector("rtmp://a/live/s", "rtmp://b/live/s")
	s.Toggle()
	s.Reset()
	if s.Active() != RolePrimary {
		t.Errorf("Reset() left role %v", s.Active())
	}
}
