package scenario

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

//go:embed seed/scenarios.yaml
var seedFS embed.FS

// Pack is a YAML content pack.
type Pack struct {
	Version   int        `yaml:"version,omitempty"`
	Scenarios []Scenario `yaml:"scenarios"`
}

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func packValidator() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		// The compiler wants a plain decoded JSON value, so round-trip the
		// map through encoding/json.
		raw, err := json.Marshal(packSchema)
		if err != nil {
			compileErr = fmt.Errorf("marshal pack schema: %w", err)
			return
		}
		var doc any
		if err := json.Unmarshal(raw, &doc); err != nil {
			compileErr = fmt.Errorf("parse pack schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const url = "schema://scenario-pack.json"
		if err := c.AddResource(url, doc); err != nil {
			compileErr = fmt.Errorf("add pack schema: %w", err)
			return
		}
		compiled, compileErr = c.Compile(url)
	})
	return compiled, compileErr
}

// LoadYAML parses a content pack, checks it against the pack schema and
// Validate rules, and returns the scenarios with difficulty computed.
func LoadYAML(data []byte) ([]Scenario, error) {
	var generic any
	if err := yaml.Unmarshal(data, &generic); err != nil {
		return nil, fmt.Errorf("parse pack: %w", err)
	}

	// Normalize YAML values to what encoding/json would produce.
	raw, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("normalize pack: %w", err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("normalize pack: %w", err)
	}

	schema, err := packValidator()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("pack schema: %w", err)
	}

	var pack Pack
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("decode pack: %w", err)
	}
	if err := ValidateSet(pack.Scenarios); err != nil {
		return nil, err
	}

	out := make([]Scenario, len(pack.Scenarios))
	for i, s := range pack.Scenarios {
		out[i] = Ingest(s)
	}
	return out, nil
}

// LoadFile reads and loads a content pack from disk.
func LoadFile(path string) ([]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack: %w", err)
	}
	list, err := LoadYAML(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list, nil
}

// Seed returns the built-in content pack.
func Seed() ([]Scenario, error) {
	data, err := seedFS.ReadFile("seed/scenarios.yaml")
	if err != nil {
		return nil, fmt.Errorf("read seed pack: %w", err)
	}
	return LoadYAML(data)
}

// MarshalPack renders scenarios as a content pack.
func MarshalPack(list []Scenario) ([]byte, error) {
	return yaml.Marshal(Pack{Version: 1, Scenarios: list})
}
