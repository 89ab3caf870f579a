package hir

import "forget/internal/sema"

// Environment is the read-only context shared by every pass over the
// functions of one compilation unit.
type Environment struct {
	features Features
	registry *Registry
	analysis *sema.Analysis
}

func NewEnvironment(features Features, registry *Registry, analysis *sema.Analysis) *Environment {
	if registry == nil {
		registry = &Registry{}
	}
	return &Environment{features: features, registry: registry, analysis: analysis}
}

func (e *Environment) Features() Features       { return e.features }
func (e *Environment) Registry() *Registry      { return e.registry }
func (e *Environment) Analysis() *sema.Analysis { return e.analysis }
func (e *Environment) Enabled(f Feature) bool   { return e.features.Enabled(f) }
