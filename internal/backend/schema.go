package backend

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Listing responses are checked against these schemas before decoding so a
// drifting backend surfaces as ErrInvalidResponse instead of zero values.

const historySchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "type", "url"],
    "properties": {
      "id": {"type": "integer"},
      "type": {"type": "string", "enum": ["image", "video"]},
      "url": {"type": "string"},
      "prompt": {"type": ["string", "null"]},
      "camera": {"type": ["string", "null"]},
      "lens": {"type": ["string", "null"]},
      "focal_length": {"type": ["string", "null"]},
      "is_favorite": {"type": ["boolean", "integer", "null"]},
      "created_at": {"type": ["number", "null"]}
    }
  }
}`

const uploadsSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "base64_data"],
    "properties": {
      "id": {"type": "integer"},
      "base64_data": {"type": "string"},
      "created_at": {"type": ["number", "null"]}
    }
  }
}`

const proxiesSchemaJSON = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["id", "url"],
    "properties": {
      "id": {"type": "integer"},
      "url": {"type": "string"},
      "prompt": {"type": ["string", "null"]}
    }
  }
}`

var (
	historySchema = mustSchema("history", historySchemaJSON)
	uploadsSchema = mustSchema("uploads", uploadsSchemaJSON)
	proxiesSchema = mustSchema("proxies", proxiesSchemaJSON)
)

type responseSchema struct {
	name   string
	schema *gojsonschema.Schema
}

func mustSchema(name, src string) *responseSchema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("backend: invalid %s schema: %v", name, err))
	}
	return &responseSchema{name: name, schema: s}
}

func (s *responseSchema) validate(body []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return fmt.Errorf("%s: %w", s.name, err)
	}
	if result.Valid() {
		return nil
	}

	var msgs []string
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%s: %s", s.name, strings.Join(msgs, "; "))
}
