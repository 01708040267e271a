package workflow

import (
	"fmt"
	"io"
	"os"

	"edition-publisher/models"

	"gopkg.in/yaml.v3"
)

// RolesFile is the on-disk shape of a role override file:
//
//	actions:
//	  publish: [admin]
//	  approve_review: [editor, admin]
type RolesFile struct {
	Actions map[string][]string `yaml:"actions"`
}

// DecodeRoles parses a role override document.
func DecodeRoles(r io.Reader) (map[Action][]models.UserRole, error) {
	var f RolesFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return nil, fmt.Errorf("decode workflow roles: %w", err)
	}

	out := make(map[Action][]models.UserRole, len(f.Actions))
	for action, names := range f.Actions {
		roles := make([]models.UserRole, 0, len(names))
		for _, n := range names {
			role := models.UserRole(n)
			if !role.Valid() {
				return nil, fmt.Errorf("workflow roles: action %s: unknown role %q", action, n)
			}
			roles = append(roles, role)
		}
		out[Action(action)] = roles
	}
	return out, nil
}

// LoadRoles applies the overrides in path to m. An empty path is a no-op.
func LoadRoles(m *Machine, path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open workflow roles: %w", err)
	}
	defer f.Close()

	roles, err := DecodeRoles(f)
	if err != nil {
		return err
	}
	return m.SetRoles(roles)
}
