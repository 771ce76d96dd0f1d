// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package battle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// Fields is a participant's field map: hp, mp, active character, status
// effects, cooldowns and so on.
//
// Scalars round-trip as int64, float64, string, bool or nil. Any other value
// is stored as JSON and comes back as map[string]any / []any with integral
// numbers as int64.
type Fields map[string]any

// Field value tags. A stored value is "<tag>:<payload>".
const (
	tagInt    = 'i'
	tagFloat  = 'f'
	tagString = 's'
	tagBool   = 'b'
	tagNull   = 'n'
	tagJSON   = 'j'
)

var (
	digitsPattern  = regexp.MustCompile(`^[0-9]+$`)
	decimalPattern = regexp.MustCompile(`^([0-9]+\.[0-9]*|\.[0-9]+)$`)
)

// EncodeField renders one field value in tagged form.
func EncodeField(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return tagged(tagNull, ""), nil
	case string:
		return tagged(tagString, x), nil
	case bool:
		return tagged(tagBool, strconv.FormatBool(x)), nil
	case int:
		return tagged(tagInt, strconv.FormatInt(int64(x), 10)), nil
	case int8:
		return tagged(tagInt, strconv.FormatInt(int64(x), 10)), nil
	case int16:
		return tagged(tagInt, strconv.FormatInt(int64(x), 10)), nil
	case int32:
		return tagged(tagInt, strconv.FormatInt(int64(x), 10)), nil
	case int64:
		return tagged(tagInt, strconv.FormatInt(x, 10)), nil
	case uint:
		return encodeUint(uint64(x))
	case uint8:
		return encodeUint(uint64(x))
	case uint16:
		return encodeUint(uint64(x))
	case uint32:
		return encodeUint(uint64(x))
	case uint64:
		return encodeUint(x)
	case float32:
		return tagged(tagFloat, strconv.FormatFloat(float64(x), 'g', -1, 32)), nil
	case float64:
		return tagged(tagFloat, strconv.FormatFloat(x, 'g', -1, 64)), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return tagged(tagInt, strconv.FormatInt(i, 10)), nil
		}
		f, err := x.Float64()
		if err != nil {
			return "", fmt.Errorf("invalid number %q: %w", x.String(), err)
		}
		return tagged(tagFloat, strconv.FormatFloat(f, 'g', -1, 64)), nil
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", fmt.Errorf("encode %T: %w", v, err)
		}
		return tagged(tagJSON, string(b)), nil
	}
}

func encodeUint(u uint64) (string, error) {
	if u > math.MaxInt64 {
		return "", fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return tagged(tagInt, strconv.FormatUint(u, 10)), nil
}

func tagged(tag byte, payload string) string {
	return string(tag) + ":" + payload
}

// DecodeField reverses EncodeField. Values without a recognised tag, and
// values whose payload does not parse under their tag, are handed to
// DecodeLegacyField: an older writer may have stored text such as "i:abc".
func DecodeField(raw string) any {
	if v, ok := decodeTagged(raw); ok {
		return v
	}
	return DecodeLegacyField(raw)
}

func decodeTagged(raw string) (any, bool) {
	if len(raw) < 2 || raw[1] != ':' {
		return nil, false
	}
	payload := raw[2:]
	switch raw[0] {
	case tagString:
		return payload, true
	case tagInt:
		i, err := strconv.ParseInt(payload, 10, 64)
		return i, err == nil
	case tagFloat:
		f, err := strconv.ParseFloat(payload, 64)
		return f, err == nil
	case tagBool:
		b, err := strconv.ParseBool(payload)
		return b, err == nil
	case tagNull:
		return nil, payload == ""
	case tagJSON:
		v, err := decodeJSON(payload)
		return v, err == nil
	default:
		return nil, false
	}
}

// DecodeLegacyField decodes an untagged value the way records written by
// the first-generation writer were read, in this order:
//  1. JSON (encoded composites, and any other valid JSON literal)
//  2. all digits: integer
//  3. decimal number: float
//  4. raw text
//
// The order matters: JSON must be tried first so numeric-looking encoded
// composites are not read as numbers. Signs are only accepted by the JSON
// step, so "-.5" stays text.
func DecodeLegacyField(raw string) any {
	if v, err := decodeJSON(raw); err == nil {
		return v
	}
	if digitsPattern.MatchString(raw) {
		if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return i
		}
	}
	if decimalPattern.MatchString(raw) {
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

// decodeJSON decodes exactly one JSON value, turning numbers into int64 when
// integral and float64 otherwise. Anything but whitespace after the value is
// an error.
func decodeJSON(s string) (any, error) {
	data := []byte(s)
	if !json.Valid(data) {
		return nil, errors.New("invalid JSON")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return normalizeNumbers(v), nil
}

func normalizeNumbers(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		if f, err := x.Float64(); err == nil {
			return f
		}
		return x.String()
	case map[string]any:
		for k, e := range x {
			x[k] = normalizeNumbers(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalizeNumbers(e)
		}
		return x
	default:
		return v
	}
}

// encodeFields encodes every field into HSET arguments.
func encodeFields(fields Fields) (map[string]any, error) {
	out := make(map[string]any, len(fields))
	for name, value := range fields {
		enc, err := EncodeField(value)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		out[name] = enc
	}
	return out, nil
}

func decodeFields(raw map[string]string) Fields {
	out := make(Fields, len(raw))
	for name, value := range raw {
		out[name] = DecodeField(value)
	}
	return out
}
