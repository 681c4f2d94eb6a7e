package access

import "testing"

func TestAllows(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	tests := []struct {
		name   string
		role   string
		action Action
		want   bool
	}{
		{"viewer can read", "viewer", ActionRead, true},
		{"viewer cannot upload", "viewer", ActionUpload, false},
		{"viewer cannot delete", "viewer", ActionDelete, false},
		{"contributor can annotate", "contributor", ActionAnnotate, true},
		{"contributor cannot delete", "contributor", ActionDelete, false},
		{"editor can delete", "editor", ActionDelete, true},
		{"authenticated can edit", "authenticated", ActionEdit, true},
		{"unknown role falls back to viewer", "intern", ActionRead, true},
		{"unknown role does not gain upload", "intern", ActionUpload, false},
		{"empty role falls back to viewer", "", ActionRead, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := registry.Allows(tt.role, tt.action); got != tt.want {
				t.Errorf("Allows(%q, %q) = %v, want %v", tt.role, tt.action, got, tt.want)
			}
		})
	}
}

func TestListRoles(t *testing.T) {
	registry, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	roles := registry.ListRoles()
	want := map[string]bool{"viewer": false, "contributor": false, "editor": false, "authenticated": false}
	for _, r := range roles {
		if _, ok := want[r]; !ok {
			t.Errorf("unexpected role %q", r)
			continue
		}
		want[r] = true
	}
	for r, seen := range want {
		if !seen {
			t.Errorf("role %q missing from ListRoles", r)
		}
	}
}
