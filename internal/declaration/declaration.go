// Package declaration loads and validates the YAML file describing a
// unit's resources.
package declaration

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
	sigyaml "sigs.k8s.io/yaml"

	"github.com/deploykit/resource-mirror/internal/utils/network"
)

// DefaultOutputDir is used when the declaration's options omit one.
const DefaultOutputDir = "resources"

// Entry is one resource declaration. Exactly one of File, URL, or PyPI
// identifies the source.
type Entry struct {
	File        string `yaml:"file,omitempty"`
	URL         string `yaml:"url,omitempty"`
	PyPI        string `yaml:"pypi,omitempty"`
	Filename    string `yaml:"filename,omitempty"`
	Destination string `yaml:"destination,omitempty"`
	Hash        string `yaml:"hash,omitempty"`
	HashType    string `yaml:"hash_type,omitempty"`
}

// Options carries declaration-wide settings.
type Options struct {
	OutputDir string `yaml:"output_dir,omitempty"`
}

// Declaration is the parsed resource declaration file.
type Declaration struct {
	Options           Options          `yaml:"options,omitempty"`
	Resources         map[string]Entry `yaml:"resources,omitempty"`
	OptionalResources map[string]Entry `yaml:"optional_resources,omitempty"`
}

// OutputDir returns the declared output directory or the default.
func (d *Declaration) OutputDir() string {
	if d.Options.OutputDir != "" {
		return d.Options.OutputDir
	}
	return DefaultOutputDir
}

const schemaJSON = `{
  "type": "object",
  "properties": {
    "options": {
      "type": "object",
      "properties": {
        "output_dir": {"type": "string"}
      },
      "additionalProperties": true
    },
    "resources": {"$ref": "#/$defs/group"},
    "optional_resources": {"$ref": "#/$defs/group"}
  },
  "additionalProperties": false,
  "$defs": {
    "group": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "properties": {
          "file": {"type": "string"},
          "url": {"type": "string"},
          "pypi": {"type": "string"},
          "filename": {"type": "string"},
          "destination": {"type": "string"},
          "hash": {"type": "string"},
          "hash_type": {"type": "string"}
        },
        "additionalProperties": false
      }
    }
  }
}`

var schema = jsonschema.MustCompileString("resources.schema.json", schemaJSON)

// Load reads a declaration from a local path or an http(s) URL,
// validates it against the declaration schema, and parses it.
func Load(source string, client *network.Client) (*Declaration, error) {
	data, err := read(source, client)
	if err != nil {
		return nil, err
	}
	if err := validate(data); err != nil {
		return nil, fmt.Errorf("invalid declaration %s: %w", source, err)
	}
	var decl Declaration
	if err := yaml.Unmarshal(data, &decl); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", source, err)
	}
	return &decl, nil
}

func read(source string, client *network.Client) ([]byte, error) {
	if u, err := url.Parse(source); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		data, err := client.FetchPage(source)
		if err != nil {
			return nil, fmt.Errorf("fetching declaration %s: %w", source, err)
		}
		return data, nil
	}
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("reading declaration %s: %w", source, err)
	}
	return data, nil
}

func validate(data []byte) error {
	jsonData, err := sigyaml.YAMLToJSON(data)
	if err != nil {
		return fmt.Errorf("converting to JSON: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(jsonData, &doc); err != nil {
		return err
	}
	return schema.Validate(doc)
}
