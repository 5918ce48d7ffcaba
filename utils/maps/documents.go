// Package maps keeps typed views over shared JSON documents. A view decodes
// only the fields it declares; saving it writes those fields back over the
// full document, so fields owned by other services survive the round trip.
package maps

import (
	"bytes"
	"encoding/json"
)

type PartialDocument interface {
	document() *BaseDocument
}

// BaseDocument is embedded by every typed view.
type BaseDocument struct {
	raw map[string]interface{}
}

func (doc *BaseDocument) document() *BaseDocument {
	return doc
}

// Decode fills doc from buf and remembers the whole document.
func Decode(buf []byte, doc PartialDocument) error {
	raw, err := decodeObject(buf)
	if err != nil {
		return err
	}
	if err = json.Unmarshal(buf, doc); err != nil {
		return err
	}
	doc.document().raw = raw
	return nil
}

// Encode writes the declared fields of doc over the remembered document.
// Nested objects are merged key by key, everything else is replaced.
func Encode(doc PartialDocument) ([]byte, error) {
	fields, err := fieldsOf(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(merge(doc.document().raw, fields))
}

func fieldsOf(doc PartialDocument) (map[string]interface{}, error) {
	buf, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return decodeObject(buf)
}

// decodeObject keeps numbers as json.Number so large ids are not rounded.
func decodeObject(buf []byte) (map[string]interface{}, error) {
	var raw map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(buf))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func merge(base map[string]interface{}, update map[string]interface{}) map[string]interface{} {
	res := make(map[string]interface{}, len(base)+len(update))
	for key, value := range base {
		res[key] = value
	}
	for key, value := range update {
		if updateObj, ok := value.(map[string]interface{}); ok {
			if baseObj, ok := res[key].(map[string]interface{}); ok {
				res[key] = merge(baseObj, updateObj)
				continue
			}
		}
		res[key] = value
	}
	return res
}
