package board

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/xeipuuv/gojsonschema"
)

// ErrMalformedMessage is returned for push frames that cannot be applied.
var ErrMalformedMessage = errors.New("malformed task message")

const payloadSchemaJSON = `{
  "definitions": {
    "task": {
      "type": "object",
      "required": ["id"],
      "properties": {
        "id": { "type": "string", "minLength": 1 },
        "title": { "type": ["string", "null"] },
        "status": { "type": ["string", "null"] },
        "routedTo": { "type": ["string", "null"] },
        "owner": { "type": ["string", "null"] },
        "result": { "type": ["string", "null"] }
      }
    }
  },
  "oneOf": [
    { "$ref": "#/definitions/task" },
    { "type": "array", "items": { "$ref": "#/definitions/task" } }
  ]
}`

var payloadSchema = mustSchema(payloadSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("task payload schema: %v", err))
	}
	return s
}

// DecodePayload parses one push frame. A frame is either a single task
// record or an array of them. The frame is rejected as a whole when any
// record is invalid, so a bad frame never partially applies.
func DecodePayload(data []byte) ([]TaskUpdate, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedMessage)
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() && !root.IsArray() {
		return nil, fmt.Errorf("%w: expected object or array, got %s", ErrMalformedMessage, root.Type)
	}

	result, err := payloadSchema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			issues = append(issues, desc.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrMalformedMessage, strings.Join(issues, "; "))
	}

	if root.IsArray() {
		var updates []TaskUpdate
		if err := json.Unmarshal(data, &updates); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
		}
		return updates, nil
	}

	var u TaskUpdate
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return []TaskUpdate{u}, nil
}

// EncodeTasks renders tasks as a push frame: a bare object for one task, an
// array otherwise.
func EncodeTasks(tasks ...Task) ([]byte, error) {
	if len(tasks) == 1 {
		return json.Marshal(tasks[0])
	}
	if tasks == nil {
		tasks = []Task{}
	}
	return json.Marshal(tasks)
}
