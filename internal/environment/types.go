package environment

import (
	"context"
	"math"
	"strings"
)

// LowestPrecedence is the default repository order; repositories with this
// order are consulted last by a composite lookup.
const LowestPrecedence = math.MaxInt32

// Environment is the resolved configuration for one application, profile and label.
type Environment struct {
	Name            string           `json:"name"`
	Profiles        []string         `json:"profiles"`
	Label           string           `json:"label"`
	Version         string           `json:"version"`
	PropertySources []PropertySource `json:"propertySources"`
}

// PropertySource is a named flat key/value mapping contributed to an Environment.
type PropertySource struct {
	Name   string            `json:"name"`
	Source map[string]string `json:"source"`
}

// New returns an empty Environment for the application. The profile string
// may carry several comma-separated profiles.
func New(application, profile, label string) *Environment {
	return &Environment{
		Name:            application,
		Profiles:        splitProfiles(profile),
		Label:           label,
		PropertySources: []PropertySource{},
	}
}

// Add appends a property source. Sources are kept in the order they were added.
func (e *Environment) Add(source PropertySource) {
	e.PropertySources = append(e.PropertySources, source)
}

// Repository describes a backend able to resolve environments.
type Repository interface {
	FindOne(ctx context.Context, application, profile, label string) (*Environment, error)
	Order() int
}

func splitProfiles(profile string) []string {
	parts := strings.Split(profile, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
