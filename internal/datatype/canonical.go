package datatype

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"

	"github.com/roach88/dataccess/internal/geometry"
)

// DomainRowKey is the hash domain for row identity keys.
// Version suffix enables future algorithm migration.
const DomainRowKey = "dataccess/rowkey/v1"

// Value tags used by both the canonical and the persisted encodings.
const (
	tagNull   = "z"
	tagInt    = "i"
	tagUInt   = "u"
	tagBool   = "b"
	tagFloat  = "f"
	tagNumber = "n"
	tagString = "s"
	tagBytes  = "x"
	tagGeom   = "g"
	tagTime   = "t"
	tagList   = "a"
)

// MarshalCanonical produces the canonical byte form of a value tuple.
// CRITICAL: this is the ONLY serialization used for row identity.
//
// Rules:
//  1. Each value is a two-element array [tag, payload]
//  2. All numbers share one tag and a normalized decimal payload, so Int(5),
//     UInt(5), Float(5) and Num("5.00") encode identically
//  3. Strings are NFC normalized and never HTML-escaped
//  4. Geometries encode SRID and WKB, times encode UTC RFC 3339
func MarshalCanonical(values []Value) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range values {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeTagged(&buf, v, true); err != nil {
			return nil, fmt.Errorf("value[%d]: %w", i, err)
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// RowKey returns the domain-separated SHA-256 of the canonical tuple.
func RowKey(values []Value) (string, error) {
	canonical, err := MarshalCanonical(values)
	if err != nil {
		return "", fmt.Errorf("RowKey: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainRowKey, canonical), nil
}

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// MarshalValue encodes v losslessly as tagged JSON. Unlike MarshalCanonical it
// keeps the numeric kind, so UnmarshalValue restores the same Go type.
func MarshalValue(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTagged(&buf, v, false); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeTagged(buf *bytes.Buffer, v Value, canonical bool) error {
	tag, payload, err := tagged(v, canonical)
	if err != nil {
		return err
	}
	buf.WriteByte('[')
	buf.Write(marshalCanonicalString(tag))
	buf.WriteByte(',')
	if list, ok := v.(List); ok {
		buf.WriteByte('[')
		for i, e := range list {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeTagged(buf, e, canonical); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
		}
		buf.WriteByte(']')
	} else if tag == tagNull {
		buf.WriteString("null")
	} else {
		buf.Write(marshalCanonicalString(payload))
	}
	buf.WriteByte(']')
	return nil
}

func tagged(v Value, canonical bool) (tag, payload string, err error) {
	switch x := v.(type) {
	case nil, Null:
		return tagNull, "", nil
	case Int:
		if canonical {
			return tagNumber, strconv.FormatInt(int64(x), 10), nil
		}
		return tagInt, strconv.FormatInt(int64(x), 10), nil
	case UInt:
		if canonical {
			return tagNumber, strconv.FormatUint(uint64(x), 10), nil
		}
		return tagUInt, strconv.FormatUint(uint64(x), 10), nil
	case Float:
		f := float64(x)
		if canonical && !math.IsNaN(f) && !math.IsInf(f, 0) {
			return tagNumber, decimal.NewFromFloat(f).String(), nil
		}
		return tagFloat, strconv.FormatFloat(f, 'g', -1, 64), nil
	case Num:
		return tagNumber, x.String(), nil
	case Bool:
		return tagBool, strconv.FormatBool(bool(x)), nil
	case Str:
		return tagString, string(x), nil
	case Bytes:
		return tagBytes, base64.StdEncoding.EncodeToString(x), nil
	case Geom:
		return tagGeom, strconv.Itoa(x.SRID()) + ";" + base64.StdEncoding.EncodeToString(x.WKB()), nil
	case Time:
		return tagTime, x.UTC().Format(time.RFC3339Nano), nil
	case List:
		return tagList, "", nil
	default:
		return "", "", fmt.Errorf("unsupported value type %T", v)
	}
}

// marshalCanonicalString produces a JSON string with NFC normalization and no
// HTML escaping. U+2028 and U+2029 are emitted literally.
func marshalCanonicalString(s string) []byte {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(norm.NFC.String(s))
	out := bytes.TrimSuffix(buf.Bytes(), []byte{'\n'})
	return unescapeLineSeparators(out)
}

// unescapeLineSeparators turns the \u2028 and \u2029 escapes that
// encoding/json always emits back into literal characters. An escaped
// backslash followed by "u2028" is left untouched.
func unescapeLineSeparators(data []byte) []byte {
	if !bytes.Contains(data, []byte(`\u202`)) {
		return data
	}
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		if data[i] == '\\' && i+1 < len(data) {
			if data[i+1] == 'u' && i+5 < len(data) &&
				string(data[i+2:i+5]) == "202" && (data[i+5] == '8' || data[i+5] == '9') {
				if data[i+5] == '8' {
					out = append(out, "\u2028"...)
				} else {
					out = append(out, "\u2029"...)
				}
				i += 5
				continue
			}
			// Any other escape pair is copied whole so "\\u2028" stays escaped.
			out = append(out, data[i], data[i+1])
			i++
			continue
		}
		out = append(out, data[i])
	}
	return out
}

// UnmarshalValue decodes the tagged JSON written by MarshalValue.
func UnmarshalValue(data []byte) (Value, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("tagged value: %w", err)
	}
	if len(raw) != 2 {
		return nil, fmt.Errorf("tagged value: want [tag, payload], got %d elements", len(raw))
	}
	var tag string
	if err := json.Unmarshal(raw[0], &tag); err != nil {
		return nil, fmt.Errorf("tagged value tag: %w", err)
	}
	if tag == tagNull {
		return Null{}, nil
	}
	if tag == tagList {
		var elems []json.RawMessage
		if err := json.Unmarshal(raw[1], &elems); err != nil {
			return nil, fmt.Errorf("array payload: %w", err)
		}
		out := make(List, len(elems))
		for i, e := range elems {
			v, err := UnmarshalValue(e)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}
	var p string
	if err := json.Unmarshal(raw[1], &p); err != nil {
		return nil, fmt.Errorf("tagged value payload: %w", err)
	}
	switch tag {
	case tagInt:
		n, err := strconv.ParseInt(p, 10, 64)
		return Int(n), err
	case tagUInt:
		n, err := strconv.ParseUint(p, 10, 64)
		return UInt(n), err
	case tagFloat:
		f, err := strconv.ParseFloat(p, 64)
		return Float(f), err
	case tagNumber:
		return NewNumeric(p)
	case tagBool:
		b, err := strconv.ParseBool(p)
		return Bool(b), err
	case tagString:
		return Str(p), nil
	case tagBytes:
		b, err := base64.StdEncoding.DecodeString(p)
		return Bytes(b), err
	case tagGeom:
		sridText, wkb64, ok := strings.Cut(p, ";")
		if !ok {
			return nil, fmt.Errorf("geometry payload %q: missing srid", p)
		}
		srid, err := strconv.Atoi(sridText)
		if err != nil {
			return nil, fmt.Errorf("geometry srid: %w", err)
		}
		wkb, err := base64.StdEncoding.DecodeString(wkb64)
		if err != nil {
			return nil, fmt.Errorf("geometry wkb: %w", err)
		}
		g, err := geometry.FromWKB(wkb, srid)
		if err != nil {
			return nil, err
		}
		return Geom{g}, nil
	case tagTime:
		t, err := time.Parse(time.RFC3339Nano, p)
		return Time{t}, err
	default:
		return nil, fmt.Errorf("unknown value tag %q", tag)
	}
}
