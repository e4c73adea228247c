// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Credgate Contributors

package config

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/samber/oops"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaResource = "config.schema.json"

// durationPattern matches strings accepted by time.ParseDuration.
const durationPattern = `^-?([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$|^0$`

var durationType = reflect.TypeOf(time.Duration(0))

var compiled = sync.OnceValues(compileSchema)

// Schema returns the JSON Schema for the configuration file.
func Schema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference:             true,
		FieldNameTag:               "koanf",
		RequiredFromJSONSchemaTags: true,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			if t == durationType {
				return &jsonschema.Schema{
					Type:        "string",
					Pattern:     durationPattern,
					Description: "Go duration, e.g. 15m or 1h30m",
				}
			}
			return nil
		},
	}
	schema := r.Reflect(&Config{})
	schema.Title = "credgate configuration"
	schema.Description = "Schema for the credgate config.yaml file"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").With("operation", "marshal schema").Wrap(err)
	}
	return data, nil
}

func compileSchema() (*jschema.Schema, error) {
	data, err := Schema()
	if err != nil {
		return nil, err
	}

	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").With("operation", "parse schema").Wrap(err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource(schemaResource, doc); err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").With("operation", "add schema resource").Wrap(err)
	}
	sch, err := c.Compile(schemaResource)
	if err != nil {
		return nil, oops.Code("CONFIG_SCHEMA_FAILED").With("operation", "compile schema").Wrap(err)
	}
	return sch, nil
}

// validateTree checks a merged koanf tree against the schema.
func validateTree(raw map[string]any) error {
	sch, err := compiled()
	if err != nil {
		return err
	}

	data, err := jsonTree(raw)
	if err != nil {
		return err
	}
	doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
	if err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	if err := sch.Validate(doc); err != nil {
		return oops.Code("CONFIG_INVALID").Wrapf(err, "configuration does not match schema")
	}
	return nil
}
