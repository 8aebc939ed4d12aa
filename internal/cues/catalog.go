package cues

import "strings"

// Weight is how hard a cue is to notice.
type Weight int

const (
	WeightObvious  Weight = 1
	WeightModerate Weight = 2
	WeightSubtle   Weight = 3
)

// Category groups cues by where in a message they show up.
type Category string

const (
	CategorySender  Category = "sender"
	CategoryContent Category = "content"
	CategoryLink    Category = "link"
	CategoryRequest Category = "request"
	CategoryContext Category = "context"
)

// AllCategories returns all categories in display order.
func AllCategories() []Category {
	return []Category{CategorySender, CategoryContent, CategoryLink, CategoryRequest, CategoryContext}
}

// DisplayName returns a human-readable label for the category.
func (c Category) DisplayName() string {
	switch c {
	case CategorySender:
		return "Sender"
	case CategoryContent:
		return "Content"
	case CategoryLink:
		return "Links & Attachments"
	case CategoryRequest:
		return "Request"
	case CategoryContext:
		return "Context"
	default:
		return string(c)
	}
}

// Cue is an observable indicator that hints at a message's true nature.
type Cue struct {
	Label       string
	Weight      Weight
	Category    Category
	Description string
}

// Premise is a premise-alignment factor: something that makes a lure fit
// the recipient's world and therefore harder to spot.
type Premise struct {
	Label  string
	Weight int
}

var (
	registry   map[string]*Cue
	byCategory map[Category][]*Cue
	premises   map[string]*Premise
)

func init() {
	registry = make(map[string]*Cue, len(seedCues))
	byCategory = make(map[Category][]*Cue)
	for i := range seedCues {
		c := &seedCues[i]
		registry[normalize(c.Label)] = c
		byCategory[c.Category] = append(byCategory[c.Category], c)
	}
	premises = make(map[string]*Premise, len(seedPremises))
	for i := range seedPremises {
		p := &seedPremises[i]
		premises[normalize(p.Label)] = p
	}
}

func normalize(label string) string {
	return strings.ToLower(strings.TrimSpace(label))
}

// Lookup returns the catalog entry for label. Matching ignores case and
// surrounding whitespace.
func Lookup(label string) (Cue, bool) {
	c, ok := registry[normalize(label)]
	if !ok {
		return Cue{}, false
	}
	return *c, true
}

// WeightOf returns the detectability weight for label. Labels missing
// from the catalog are treated as moderate.
func WeightOf(label string) Weight {
	if c, ok := registry[normalize(label)]; ok {
		return c.Weight
	}
	return WeightModerate
}

// Known reports whether label is in the catalog.
func Known(label string) bool {
	_, ok := registry[normalize(label)]
	return ok
}

// All returns every cue in seed order.
func All() []Cue {
	out := make([]Cue, len(seedCues))
	copy(out, seedCues)
	return out
}

// ByCategory returns the cues of one category in seed order.
func ByCategory(c Category) []Cue {
	list := byCategory[c]
	out := make([]Cue, len(list))
	for i, cue := range list {
		out[i] = *cue
	}
	return out
}

// LookupPremise returns the premise-alignment factor for label.
func LookupPremise(label string) (Premise, bool) {
	p, ok := premises[normalize(label)]
	if !ok {
		return Premise{}, false
	}
	return *p, true
}

// AllPremises returns every premise-alignment factor in seed order.
func AllPremises() []Premise {
	out := make([]Premise, len(seedPremises))
	copy(out, seedPremises)
	return out
}
