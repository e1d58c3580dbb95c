package catalogs

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/*.json
var schemaFS embed.FS

const schemaBase = "https://perkplanner.dev/schemas/"

type docSchema struct {
	name string

	once   sync.Once
	schema *jsonschema.Schema
	err    error
}

var (
	perksSchema   = &docSchema{name: "perks.schema.json"}
	bonusesSchema = &docSchema{name: "bonuses.schema.json"}
)

func (d *docSchema) compile() (*jsonschema.Schema, error) {
	d.once.Do(func() {
		raw, err := schemaFS.ReadFile("schema/" + d.name)
		if err != nil {
			d.err = err
			return
		}
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(schemaBase+d.name, bytes.NewReader(raw)); err != nil {
			d.err = err
			return
		}
		d.schema, d.err = c.Compile(schemaBase + d.name)
	})
	return d.schema, d.err
}

// validateDoc checks a YAML document against its JSON Schema. The document
// goes through JSON so the validator sees plain JSON values.
func validateDoc(d *docSchema, raw []byte) error {
	s, err := d.compile()
	if err != nil {
		return fmt.Errorf("compile %s: %w", d.name, err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return err
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	if err := s.Validate(v); err != nil {
		return fmt.Errorf("schema: %w", err)
	}
	return nil
}
