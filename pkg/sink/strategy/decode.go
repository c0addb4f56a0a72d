package strategy

import (
	"bytes"
	"errors"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

// decode unmarshals data into v. Numbers are kept as json.Number so integer
// keys above 2^53 reach the graph unchanged.
func decode(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON value")
	}
	return nil
}

// valueOf is r.Value with numbers kept as json.Number.
func valueOf(r gjson.Result) any {
	switch {
	case r.Type == gjson.Number:
		return json.Number(r.Raw)
	case r.IsObject(), r.IsArray():
		var v any
		if err := decode([]byte(r.Raw), &v); err == nil {
			return v
		}
	}
	return r.Value()
}
