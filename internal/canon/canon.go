// Package canon implements the attestation canonicalization/hashing pipeline
// (§4.A): a deterministic mapping from a tagged value tree to a unique byte
// sequence and its SHA-256 digest, identical regardless of implementation
// language, field order, or Unicode source form.
//
// Grounded on certenIO-certen-validator/pkg/commitment/commitment.go's
// CanonicalizeJSON/canonicalizeValue/HashCanonical shape (recursive map-key
// sort over interface{}, SHA-256 over the result), generalized here with
// explicit numeric/instant/string canonicalization rules and a hand-rolled
// writer so the output bytes are not at the mercy of encoding/json's own
// float and HTML-escaping choices.
package canon

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Int tags a value as an integer quantity (no decimal point on emission).
type Int int64

// Decimal tags a value as a fractional quantity, rounded to 6 fractional
// digits with trailing zeros trimmed on emission.
type Decimal float64

// Instant tags a value as an instant, emitted as RFC 3339 UTC with
// millisecond precision and the literal "Z" suffix.
type Instant time.Time

var walletLike = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Canonicalize converts v into its canonical minified JSON byte sequence.
// v may be built from map[string]any / []any and the tag types above, plain
// Go scalars (string, bool, nil, int/int64, float64), or json.Number (as
// produced by Parse) — Canonicalize(Parse(Canonicalize(v))) is idempotent,
// which is the self-validation property required by §4.A.
func Canonicalize(v any) ([]byte, error) {
	norm, err := normalize(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := write(&buf, norm); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Digest returns the SHA-256 digest of Canonicalize(v).
func Digest(v any) ([32]byte, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256Sum(b), nil
}

// DigestHex returns Digest(v) as lowercase hex.
func DigestHex(v any) (string, error) {
	d, err := Digest(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(d[:]), nil
}

// Equal reports whether a and b canonicalize to identical byte sequences.
func Equal(a, b any) (bool, error) {
	ca, err := Canonicalize(a)
	if err != nil {
		return false, err
	}
	cb, err := Canonicalize(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}

// Parse decodes canonical (or any valid) JSON bytes into a tree suitable for
// re-canonicalization, preserving each number's original textual form via
// json.Number so Canonicalize can tell integers from fractional values on
// round-trip.
func Parse(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("canon: parse: %w", err)
	}
	return v, nil
}

// SelfValidate is the test helper required by §4.A: re-parsing and
// re-canonicalizing candidate canonical bytes must reproduce them exactly.
func SelfValidate(candidate []byte) error {
	v, err := Parse(candidate)
	if err != nil {
		return err
	}
	again, err := Canonicalize(v)
	if err != nil {
		return err
	}
	if !bytes.Equal(candidate, again) {
		return fmt.Errorf("canon: not self-canonical: got %q, want %q", again, candidate)
	}
	return nil
}

// normalize walks v, applying the canonical-form rules and producing a tree
// of map[string]any / []any / string / json.Number / bool / nil.
func normalize(v any) (any, error) {
	switch vv := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return vv, nil
	case Int:
		return json.Number(strconv.FormatInt(int64(vv), 10)), nil
	case Decimal:
		return formatDecimal(float64(vv))
	case Instant:
		return formatInstant(time.Time(vv))
	case time.Time:
		return formatInstant(vv)
	case string:
		return normalizeString(vv)
	case json.Number:
		return normalizeNumber(vv)
	case int:
		return json.Number(strconv.Itoa(vv)), nil
	case int64:
		return json.Number(strconv.FormatInt(vv, 10)), nil
	case float64:
		return formatDecimal(vv)
	case map[string]any:
		out := make(map[string]any, len(vv))
		for k, elem := range vv {
			nk, err := normalizeString(k)
			if err != nil {
				return nil, err
			}
			nv, err := normalize(elem)
			if err != nil {
				return nil, err
			}
			out[nk.(string)] = nv
		}
		return out, nil
	case []any:
		out := make([]any, len(vv))
		for i, elem := range vv {
			nv, err := normalize(elem)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("canon: unsupported value type %T", v)
	}
}

func normalizeString(s string) (any, error) {
	if !utf8.ValidString(s) {
		return nil, fmt.Errorf("canon: string is not valid UTF-8")
	}
	n := norm.NFC.String(s)
	if walletLike.MatchString(n) {
		n = lowerHex(n)
	}
	return n, nil
}

func lowerHex(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'F' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

func normalizeNumber(n json.Number) (any, error) {
	s := n.String()
	if isIntegerText(s) {
		f, err := n.Float64()
		if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
			return nil, fmt.Errorf("canon: non-finite number %q", s)
		}
		// re-emit without a leading '+' or redundant leading zeros.
		i, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			// outside int64 range but syntactically integral; pass through.
			return n, nil
		}
		return json.Number(strconv.FormatInt(i, 10)), nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("canon: invalid number %q", s)
	}
	return formatDecimal(f)
}

func isIntegerText(s string) bool {
	for _, c := range s {
		if c == '.' || c == 'e' || c == 'E' {
			return false
		}
	}
	return true
}

// formatDecimal rounds f to 6 fractional digits (half away from zero, which
// coincides with half-up for the non-negative quantities this service
// canonicalizes) and trims trailing zeros, collapsing to an integer-shaped
// token (no decimal point) when nothing fractional survives.
func formatDecimal(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("canon: non-finite number")
	}
	rounded := math.Round(f*1e6) / 1e6
	s := strconv.FormatFloat(rounded, 'f', 6, 64)
	s = trimTrailingZeros(s)
	return json.Number(s), nil
}

func trimTrailingZeros(s string) string {
	if !bytesContains(s, '.') {
		return s
	}
	i := len(s)
	for i > 0 && s[i-1] == '0' {
		i--
	}
	if i > 0 && s[i-1] == '.' {
		i--
	}
	return s[:i]
}

func bytesContains(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}

func formatInstant(t time.Time) (any, error) {
	if t.Location() != time.UTC {
		return nil, fmt.Errorf("canon: instant is not UTC")
	}
	return t.Format("2006-01-02T15:04:05.000Z"), nil
}

// write serializes a normalized tree (the output of normalize) as minified
// JSON, sorting object keys by Unicode code-point order.
func write(buf *bytes.Buffer, v any) error {
	switch vv := v.(type) {
	case nil:
		buf.WriteString("null")
		return nil
	case bool:
		if vv {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case json.Number:
		buf.WriteString(vv.String())
		return nil
	case string:
		writeString(buf, vv)
		return nil
	case map[string]any:
		keys := make([]string, 0, len(vv))
		for k := range vv {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := write(buf, vv[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
		return nil
	case []any:
		buf.WriteByte('[')
		for i, elem := range vv {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := write(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
		return nil
	default:
		return fmt.Errorf("canon: unsupported normalized type %T", v)
	}
}

const hexDigits = "0123456789abcdef"

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			if r < 0x20 {
				buf.WriteString(`\u00`)
				buf.WriteByte(hexDigits[(r>>4)&0xf])
				buf.WriteByte(hexDigits[r&0xf])
				continue
			}
			buf.WriteRune(r)
		}
	}
	buf.WriteByte('"')
}
