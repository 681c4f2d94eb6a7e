package access

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

// Registry answers permission checks against the role policy loaded from
// the embedded YAML file.
type Registry struct {
	policy *Policy
	mu     sync.RWMutex
}

// NewRegistry creates a new access registry and loads the embedded policy file
func NewRegistry() (*Registry, error) {
	r := &Registry{}

	if err := r.loadPolicyFile("roles"); err != nil {
		return nil, fmt.Errorf("failed to load role policy: %w", err)
	}

	return r, nil
}

// loadPolicyFile loads a policy YAML file by name
func (r *Registry) loadPolicyFile(name string) error {
	filename := fmt.Sprintf("config/%s.yaml", name)
	data, err := configFiles.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", filename, err)
	}

	var policy Policy
	if err := yaml.Unmarshal(data, &policy); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", filename, err)
	}

	if policy.DefaultRole != "" {
		if _, ok := policy.Roles[policy.DefaultRole]; !ok {
			return fmt.Errorf("default role %q not defined in %s", policy.DefaultRole, filename)
		}
	}

	r.mu.Lock()
	r.policy = &policy
	r.mu.Unlock()

	return nil
}

// Allows reports whether the given role may perform the action. Unknown
// roles fall back to the default role; an empty default denies everything.
func (r *Registry) Allows(role string, action Action) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rp, ok := r.policy.Roles[role]
	if !ok {
		if r.policy.DefaultRole == "" {
			return false
		}
		rp, ok = r.policy.Roles[r.policy.DefaultRole]
		if !ok {
			return false
		}
	}

	for _, a := range rp.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// ListRoles returns the names of all configured roles
func (r *Registry) ListRoles() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]string, 0, len(r.policy.Roles))
	for role := range r.policy.Roles {
		roles = append(roles, role)
	}
	return roles
}
