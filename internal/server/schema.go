package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const sessionSchemaURL = "https://typerpg.dev/schema/session-submission.json"

const sessionSchemaJSON = `{
	"type": "object",
	"required": ["mode", "wpm", "totalWords", "correctWords", "incorrectWords"],
	"properties": {
		"mode": {"enum": ["daily", "endless"]},
		"wpm": {"type": "integer", "minimum": 0},
		"totalWords": {"type": "integer", "minimum": 0},
		"correctWords": {"type": "integer", "minimum": 0},
		"incorrectWords": {"type": "integer", "minimum": 0}
	}
}`

type sessionSchema struct {
	schema *jsonschema.Schema
}

func compileSessionSchema() (*sessionSchema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(sessionSchemaURL, strings.NewReader(sessionSchemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add session schema: %w", err)
	}
	schema, err := compiler.Compile(sessionSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile session schema: %w", err)
	}
	return &sessionSchema{schema: schema}, nil
}

// errInvalidJSON marks a body that is not JSON at all.
var errInvalidJSON = errors.New("invalid JSON")

// validate checks a raw request body and returns the violated constraints.
func (s *sessionSchema) validate(body []byte) ([]string, error) {
	var instance any
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&instance); err != nil {
		return nil, errInvalidJSON
	}
	err := s.schema.Validate(instance)
	if err == nil {
		return nil, nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return nil, err
	}
	return flatten(verr, nil), nil
}

func flatten(verr *jsonschema.ValidationError, out []string) []string {
	if len(verr.Causes) == 0 {
		loc := verr.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		return append(out, loc+": "+verr.Message)
	}
	for _, cause := range verr.Causes {
		out = flatten(cause, out)
	}
	return out
}
