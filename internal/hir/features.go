package hir

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Feature names a compiler toggle.
type Feature string

const (
	// FeatureValidateFrozenLambdas reports memo callbacks that escape or
	// capture mutable variables instead of skipping them silently.
	FeatureValidateFrozenLambdas Feature = "validate_frozen_lambdas"
	// FeatureInlineUseMemo enables the memo inliner.
	FeatureInlineUseMemo Feature = "inline_use_memo"
	// FeatureAssertValidHIR validates the function after every pass.
	FeatureAssertValidHIR Feature = "assert_valid_hir"
)

var featureDefaults = map[Feature]bool{
	FeatureValidateFrozenLambdas: false,
	FeatureInlineUseMemo:         true,
	FeatureAssertValidHIR:        false,
}

// KnownFeatures lists every feature in name order.
func KnownFeatures() []Feature {
	return slices.Sorted(maps.Keys(featureDefaults))
}

// ParseFeature validates a feature name.
func ParseFeature(name string) (Feature, error) {
	f := Feature(strings.TrimSpace(name))
	if _, ok := featureDefaults[f]; !ok {
		return "", fmt.Errorf("unknown feature %q", name)
	}
	return f, nil
}

// Features is an immutable set of toggles. The zero value holds the defaults.
type Features struct {
	overrides map[Feature]bool
}

// DefaultFeatures returns the default toggles.
func DefaultFeatures() Features { return Features{} }

// Enabled reports the value of f.
func (fs Features) Enabled(f Feature) bool {
	if v, ok := fs.overrides[f]; ok {
		return v
	}
	return featureDefaults[f]
}

// With returns a copy with f set to v.
func (fs Features) With(f Feature, v bool) Features {
	next := make(map[Feature]bool, len(fs.overrides)+1)
	maps.Copy(next, fs.overrides)
	next[f] = v
	return Features{overrides: next}
}

// String lists every feature as name=value in name order.
func (fs Features) String() string {
	parts := make([]string, 0, len(featureDefaults))
	for _, f := range KnownFeatures() {
		parts = append(parts, fmt.Sprintf("%s=%t", f, fs.Enabled(f)))
	}
	return strings.Join(parts, ",")
}
