package model

import (
	"encoding/json"
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// optionsSchema constrains the optional "options" form field. Embedded
// so validation works regardless of working directory.
const optionsSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "language": {
      "type": "string",
      "minLength": 2,
      "maxLength": 32
    },
    "page_policy": {
      "type": "string",
      "enum": ["truncate", "fail"]
    }
  }
}`

// ParseOptions validates raw request options against the schema and
// decodes them. Empty input yields default options.
func ParseOptions(raw []byte) (*Options, error) {
	if len(raw) == 0 {
		return &Options{}, nil
	}

	schemaLoader := gojsonschema.NewStringLoader(optionsSchema)
	docLoader := gojsonschema.NewBytesLoader(raw)

	res, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("options are not valid JSON: %w", err)
	}
	if !res.Valid() {
		msgs := ""
		for _, e := range res.Errors() {
			msgs += fmt.Sprintf("%s; ", e.String())
		}
		return nil, fmt.Errorf("options validation failed: %s", msgs)
	}

	var opts Options
	if err := json.Unmarshal(raw, &opts); err != nil {
		return nil, err
	}
	return &opts, nil
}
