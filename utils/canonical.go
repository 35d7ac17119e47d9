package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ============================================================================
// CANONICAL JSON + TURN ID HASHING
// ============================================================================

// CanonicalJSON serializes a JSON-compatible value deterministically:
// object keys sorted lexicographically at every depth, numbers in their
// shortest lossless decimal form, arrays in order, null as "null".
// Two maps with the same key/value pairs always serialize identically
// regardless of insertion order.
func CanonicalJSON(value interface{}) (string, error) {
	var sb strings.Builder
	if err := writeCanonical(&sb, value); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// TurnID computes the stable identifier for a tool call as a hex-encoded
// SHA-256 digest of "tool:canonical(params)". Empty or nil params hash to
// the canonical empty object.
func TurnID(tool string, params map[string]interface{}) string {
	canonical, err := CanonicalJSON(normalizeParams(params))
	if err != nil {
		// Non-serializable params still need a stable identity; fall back
		// to the error text which is deterministic for a given input.
		canonical = fmt.Sprintf("!%s", err.Error())
	}
	sum := sha256.Sum256([]byte(tool + ":" + canonical))
	return hex.EncodeToString(sum[:])
}

func normalizeParams(params map[string]interface{}) interface{} {
	if params == nil {
		return map[string]interface{}{}
	}
	return params
}

func writeCanonical(sb *strings.Builder, value interface{}) error {
	switch v := value.(type) {
	case nil:
		sb.WriteString("null")
	case bool:
		if v {
			sb.WriteString("true")
		} else {
			sb.WriteString("false")
		}
	case string:
		return writeJSONString(sb, v)
	case json.Number:
		return writeNumber(sb, v.String())
	case float64:
		sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
	case float32:
		sb.WriteString(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case int:
		sb.WriteString(strconv.FormatInt(int64(v), 10))
	case int64:
		sb.WriteString(strconv.FormatInt(v, 10))
	case []interface{}:
		sb.WriteByte('[')
		for i, item := range v {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeCanonical(sb, item); err != nil {
				return err
			}
		}
		sb.WriteByte(']')
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		sb.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				sb.WriteByte(',')
			}
			if err := writeJSONString(sb, k); err != nil {
				return err
			}
			sb.WriteByte(':')
			if err := writeCanonical(sb, v[k]); err != nil {
				return err
			}
		}
		sb.WriteByte('}')
	default:
		// Anything else (typed structs, custom slices) round-trips through
		// encoding/json into the neutral representation first.
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("canonical json: unsupported value: %w", err)
		}
		var decoded interface{}
		dec := json.NewDecoder(strings.NewReader(string(data)))
		dec.UseNumber()
		if err := dec.Decode(&decoded); err != nil {
			return fmt.Errorf("canonical json: decode round-trip failed: %w", err)
		}
		return writeCanonical(sb, decoded)
	}
	return nil
}

// writeNumber renders a json.Number in shortest lossless decimal form.
// Integers keep their exact text; everything else goes through float64
// shortest round-trip formatting.
func writeNumber(sb *strings.Builder, raw string) error {
	if i, err := strconv.ParseInt(raw, 10, 64); err == nil {
		sb.WriteString(strconv.FormatInt(i, 10))
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("canonical json: invalid number %q: %w", raw, err)
	}
	sb.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

func writeJSONString(sb *strings.Builder, s string) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	sb.Write(data)
	return nil
}
