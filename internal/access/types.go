package access

// Action identifies an operation that a role may or may not perform.
type Action string

const (
	ActionRead     Action = "read"
	ActionUpload   Action = "upload"
	ActionEdit     Action = "edit"
	ActionDelete   Action = "delete"
	ActionAnnotate Action = "annotate"
)

// RolePolicy describes what a single role is allowed to do.
type RolePolicy struct {
	// Display information
	DisplayName string `yaml:"display_name" json:"display_name"`
	Description string `yaml:"description" json:"description"`

	// Allowed actions for this role
	Actions []Action `yaml:"actions" json:"actions"`
}

// Policy represents the full role-to-permission mapping loaded from YAML.
type Policy struct {
	Roles map[string]RolePolicy `yaml:"roles" json:"roles"`

	// DefaultRole applies when a token carries no explicit project role
	DefaultRole string `yaml:"default_role" json:"default_role"`
}
