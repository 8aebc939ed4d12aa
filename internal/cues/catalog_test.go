package cues

import "testing"

func TestLookup_KnownWeights(t *testing.T) {
	tests := []struct {
		label string
		want  Weight
	}{
		{"suspicious domain", WeightObvious},
		{"urgent language", WeightObvious},
		{"generic greeting", WeightObvious},
		{"look-alike domain", WeightSubtle},
		{"spoofed internal name", WeightSubtle},
		{"mismatched link", WeightModerate},
	}

	for _, tt := range tests {
		c, ok := Lookup(tt.label)
		if !ok {
			t.Errorf("Lookup(%q) not found", tt.label)
			continue
		}
		if c.Weight != tt.want {
			t.Errorf("Lookup(%q).Weight = %d, want %d", tt.label, c.Weight, tt.want)
		}
	}
}

func TestLookup_IgnoresCaseAndSpace(t *testing.T) {
	c, ok := Lookup("  Suspicious DOMAIN ")
	if !ok {
		t.Fatal("expected case-insensitive match")
	}
	if c.Label != "suspicious domain" {
		t.Errorf("Label = %q, want %q", c.Label, "suspicious domain")
	}
}

func TestWeightOf_UnknownDefaultsToModerate(t *testing.T) {
	if got := WeightOf("smells funny"); got != WeightModerate {
		t.Errorf("WeightOf(unknown) = %d, want %d", got, WeightModerate)
	}
	if Known("smells funny") {
		t.Error("Known(unknown) = true, want false")
	}
}

func TestCatalogIntegrity(t *testing.T) {
	seen := make(map[string]bool)
	for _, c := range All() {
		key := normalize(c.Label)
		if seen[key] {
			t.Errorf("duplicate cue label %q", c.Label)
		}
		seen[key] = true

		if c.Weight < WeightObvious || c.Weight > WeightSubtle {
			t.Errorf("cue %q has weight %d outside 1-3", c.Label, c.Weight)
		}
		if c.Description == "" {
			t.Errorf("cue %q has empty description", c.Label)
		}
	}

	total := 0
	for _, cat := range AllCategories() {
		n := len(ByCategory(cat))
		if n == 0 {
			t.Errorf("category %q has no cues", cat)
		}
		total += n
	}
	if total != len(All()) {
		t.Errorf("categories cover %d cues, catalog has %d", total, len(All()))
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	list := All()
	orig := list[0].Weight
	list[0].Weight = orig + 1
	if c, _ := Lookup(list[0].Label); c.Weight != orig {
		t.Error("mutating All() result leaked into the catalog")
	}
}

func TestLookupPremise(t *testing.T) {
	tests := []struct {
		label string
		want  int
	}{
		{"uses correct branding", 1},
		{"shows internal-process knowledge", 2},
	}
	for _, tt := range tests {
		p, ok := LookupPremise(tt.label)
		if !ok {
			t.Errorf("LookupPremise(%q) not found", tt.label)
			continue
		}
		if p.Weight != tt.want {
			t.Errorf("LookupPremise(%q).Weight = %d, want %d", tt.label, p.Weight, tt.want)
		}
	}

	if _, ok := LookupPremise("nope"); ok {
		t.Error("LookupPremise(unknown) found, want missing")
	}
}
