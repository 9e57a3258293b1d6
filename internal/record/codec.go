package record

import (
	"encoding/json"
	"fmt"
)

// Codec converts records to and from the opaque payload blobs carried in
// length-prefixed frames. The wire encoding is a single JSON object per
// record; the connection layer never inspects the blob, so swapping the
// encoding is confined to this type.
type Codec struct{}

// Encode serializes one record into a payload blob.
func (Codec) Encode(rec Record) ([]byte, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encode record: %w", err)
	}
	return b, nil
}

// Decode deserializes a payload blob back into a record. Any blob that is
// a well-formed JSON object decodes successfully; the protocol performs
// no schema validation beyond that.
func (Codec) Decode(blob []byte) (Record, error) {
	var rec Record
	if err := json.Unmarshal(blob, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	return rec, nil
}
