package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"tilefarm/schemas"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var errInvalidJSON = errors.New("invalid json")

// Validator holds the compiled request schemas, keyed by schema file name.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

func NewValidator() (*Validator, error) {
	v := &Validator{schemas: map[string]*jsonschema.Schema{}}
	for _, name := range []string{schemas.Tap, schemas.Select, schemas.HUD, schemas.Unlock, schemas.Trade} {
		s, err := schemas.Compile(name)
		if err != nil {
			return nil, err
		}
		v.schemas[name] = s
	}
	return v, nil
}

// Check validates body against the named schema. An empty body is checked as
// an empty object.
func (v *Validator) Check(name string, body []byte) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return errInvalidJSON
	}
	return s.Validate(doc)
}
