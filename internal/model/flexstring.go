package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexString is a string that also accepts unquoted JSON scalars when
// decoding. The registry is not consistent about quoting: quantities such as
// dddMnozstvi arrive as numbers in some payloads and as strings in others,
// and every attribute is stored in its textual form. Composite values still
// fail to decode, so genuine schema mismatches stay detectable.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*f = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	case '{', '[':
		return fmt.Errorf("cannot decode composite JSON value %q into string", data)
	case 'n': // null
		*f = ""
	default:
		// Numbers and booleans keep their literal text.
		*f = FlexString(data)
	}
	return nil
}
