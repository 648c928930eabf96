package types

import "encoding/json"

// Row is a column-name to typed-value mapping. It is the physical unit
// stored once in a table's primary-key index.
type Row map[string]Value

// wireValue is Value's JSON-serializable shadow; Value itself carries all
// three fields inline so a raw json.Marshal would round-trip fine, but an
// explicit codec keeps the on-disk format independent of field layout.
type wireValue struct {
	K Kind    `json:"k"`
	I int64   `json:"i,omitempty"`
	D float64 `json:"d,omitempty"`
	S string  `json:"s,omitempty"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireValue{K: v.Kind, I: v.I, D: v.D, S: v.S})
}

func (v *Value) UnmarshalJSON(b []byte) error {
	var w wireValue
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*v = Value{Kind: w.K, I: w.I, D: w.D, S: w.S}
	return nil
}

// EncodeRow serializes a row to bytes for storage as a PK index value.
func EncodeRow(r Row) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeRow is EncodeRow's inverse.
func DecodeRow(b []byte) (Row, error) {
	var r Row
	if err := json.Unmarshal(b, &r); err != nil {
		return nil, err
	}
	return r, nil
}

// EncodePKSet serializes a set of primary-key values in insertion order,
// the value side of a secondary index's (col_value -> set_of_pk_values)
// multimap.
func EncodePKSet(pks []Value) ([]byte, error) {
	return json.Marshal(pks)
}

func DecodePKSet(b []byte) ([]Value, error) {
	var pks []Value
	if err := json.Unmarshal(b, &pks); err != nil {
		return nil, err
	}
	return pks, nil
}
