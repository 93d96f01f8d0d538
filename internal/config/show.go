package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

const redacted = "********"

// Redacted returns a copy of s with secrets masked.
func (s *Settings) Redacted() Settings {
	out := *s
	if out.PersonalAccessToken != "" {
		out.PersonalAccessToken = redacted
	}
	if out.FidiImportSecret != "" {
		out.FidiImportSecret = redacted
	}
	return out
}

// ToYAML renders the effective settings with secrets masked.
func (s *Settings) ToYAML() (string, error) {
	shown := s.Redacted()
	data, err := yaml.Marshal(&shown)
	if err != nil {
		return "", fmt.Errorf("failed to render settings: %w", err)
	}
	return fmt.Sprintf("# %s\n%s", DisplayPath(s.Path), data), nil
}
