package version

import (
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestVersion_DefaultValues(t *testing.T) {
	if Version == "" {
		t.Error("Version should have a default value")
	}
}

func TestColored_Plain(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = orig, origNoColor }()
	color.NoColor = true

	for _, v := range []string{"0.1.0", "1.2.3-rc.1", "2.0.0-alpha+build.5", "dev", "1.2"} {
		Version = v
		if got := Colored(); got != v {
			t.Errorf("Colored() = %q, want %q", got, v)
		}
	}
}

func TestColored_Highlights(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	defer func() { Version, color.NoColor = orig, origNoColor }()
	color.NoColor = false

	Version = "1.2.3-dev"
	got := Colored()
	if got == Version {
		t.Fatalf("expected escape sequences, got %q", got)
	}
	for _, want := range []string{"1", "2", "3", "-dev"} {
		if !strings.Contains(got, want) {
			t.Errorf("Colored() = %q lacks %q", got, want)
		}
	}
}
