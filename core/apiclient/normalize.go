package apiclient

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Normalize returns the JSON tree of body where every empty-string or nil leaf, at any depth,
// is an explicit null. The backend reads null as "clear this field". Normalize is idempotent.
func Normalize(body interface{}) (interface{}, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, errors.Wrap(err, "marshalling body")
	}
	var tree interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber() // keep ids & amounts exactly as given
	if err = dec.Decode(&tree); err != nil {
		return nil, errors.Wrap(err, "decoding body")
	}
	return nullify(tree), nil
}

func nullify(val interface{}) interface{} {
	switch v := val.(type) {
	case map[string]interface{}:
		for key, item := range v {
			v[key] = nullify(item)
		}
		return v
	case []interface{}:
		for i, item := range v {
			v[i] = nullify(item)
		}
		return v
	case string:
		if v == "" {
			return nil
		}
		return v
	default:
		return v
	}
}
