package secrets_test

import (
	"testing"

	"github.com/colpal/dataeng-container-tools/secrets"
)

func TestLocationsLookupPrefersExplicitEntry(t *testing.T) {
	secrets.RegisterDefaultPaths(map[string]string{"SVC_A": "/vault/secrets/svc-a.json"})

	locations := secrets.Locations{"SVC_A": "/tmp/override.json"}
	if got, want := locations.Lookup("SVC_A"), "/tmp/override.json"; got != want {
		t.Errorf("Lookup(SVC_A) = %q, want %q", got, want)
	}
}

func TestLocationsLookupFallsBackToModuleDefault(t *testing.T) {
	secrets.RegisterDefaultPaths(map[string]string{"SVC_B": "/vault/secrets/svc-b.json"})

	locations := secrets.Locations{}
	if got, want := locations.Lookup("SVC_B"), "/vault/secrets/svc-b.json"; got != want {
		t.Errorf("Lookup(SVC_B) = %q, want %q", got, want)
	}
}

func TestLocationsLookupFinalFallbackIsWellKnownFolder(t *testing.T) {
	var locations secrets.Locations
	if got, want := locations.Lookup("CUSTOM"), "/vault/secrets/custom.json"; got != want {
		t.Errorf("Lookup(CUSTOM) = %q, want %q", got, want)
	}
}

func TestRegisteredPathsExposesModuleDefaults(t *testing.T) {
	secrets.RegisterDefaultPaths(map[string]string{"SVC_C": "/vault/secrets/svc-c.json"})

	paths := secrets.RegisteredPaths()
	if got, want := paths["SVC_C"], "/vault/secrets/svc-c.json"; got != want {
		t.Errorf("RegisteredPaths()[SVC_C] = %q, want %q", got, want)
	}
}
