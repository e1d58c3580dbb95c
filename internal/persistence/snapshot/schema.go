package snapshot

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/build.schema.json
var buildSchemaJSON []byte

const buildSchemaURL = "https://perkplanner.dev/schemas/build.schema.json"

var (
	buildSchemaOnce sync.Once
	buildSchema     *jsonschema.Schema
	buildSchemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	buildSchemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft2020
		if err := c.AddResource(buildSchemaURL, bytes.NewReader(buildSchemaJSON)); err != nil {
			buildSchemaErr = err
			return
		}
		buildSchema, buildSchemaErr = c.Compile(buildSchemaURL)
	})
	return buildSchema, buildSchemaErr
}

func validateBody(body []byte) error {
	s, err := compiledSchema()
	if err != nil {
		return err
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return err
	}
	return s.Validate(doc)
}
