package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/msaleh-12/Multi-Agent-System-BSE-7A-Backend/pkg/models"
)

// LoadAgentDescriptors reads the agent registry file: a JSON array of
// descriptors with fields id, name, url, description, capabilities[],
// keywords[] and optionally required_params[]. Environment variables in
// the file ({{.VAR}} syntax) are expanded before parsing so deployments
// can point agent URLs at per-environment hosts.
//
// Every descriptor starts with status "unknown"; the health prober
// promotes or demotes it from there.
func LoadAgentDescriptors(path string) ([]*models.AgentDescriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, fmt.Errorf("%w: %s", ErrConfigNotFound, path))
		}
		return nil, NewLoadError(path, err)
	}

	data = ExpandEnv(data)

	var descriptors []*models.AgentDescriptor
	if err := json.Unmarshal(data, &descriptors); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidJSON, err))
	}

	seen := make(map[string]bool, len(descriptors))
	for i, d := range descriptors {
		if d == nil {
			return nil, NewValidationError("agent", fmt.Sprintf("index %d", i), "", ErrInvalidValue)
		}
		if d.ID == "" {
			return nil, NewValidationError("agent", fmt.Sprintf("index %d", i), "id", ErrMissingRequiredField)
		}
		if d.Name == "" {
			return nil, NewValidationError("agent", d.ID, "name", ErrMissingRequiredField)
		}
		if d.URL == "" {
			return nil, NewValidationError("agent", d.ID, "url", ErrMissingRequiredField)
		}
		if seen[d.ID] {
			return nil, NewValidationError("agent", d.ID, "id", ErrDuplicateAgent)
		}
		seen[d.ID] = true

		d.Status = models.AgentStatusUnknown
	}

	return descriptors, nil
}
