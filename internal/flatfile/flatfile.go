// Package flatfile reads and writes the fixed-width text records used to
// exchange data with legacy systems and by the AFIP registry downloads.
package flatfile

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	money "github.com/rezonia/afipws/internal/decimal"
)

// Kind selects padding and conversion for a field
type Kind byte

const (
	// Alpha is left aligned, space padded
	Alpha Kind = 'A'
	// Numeric is right aligned, zero padded
	Numeric Kind = 'N'
	// Implied is a zero padded number with Decimals implied decimal places
	Implied Kind = 'I'
)

// DateLayout is the date format used inside records
const DateLayout = "20060102"

// Field is one column of a record
type Field struct {
	Name     string
	Length   int
	Kind     Kind
	Decimals int
}

// A, N and I build fields
func A(name string, length int) Field { return Field{Name: name, Length: length, Kind: Alpha} }
func N(name string, length int) Field { return Field{Name: name, Length: length, Kind: Numeric} }
func I(name string, length, decimals int) Field {
	return Field{Name: name, Length: length, Kind: Implied, Decimals: decimals}
}

// Record maps field names to their textual values
type Record map[string]string

// Format is an ordered field list
type Format []Field

// Width is the total line length
func (f Format) Width() int {
	w := 0
	for _, field := range f {
		w += field.Length
	}
	return w
}

// Format renders values into a fixed-width line. Missing values are blank
// (alpha) or zero (numeric).
func (f Format) Format(values map[string]any) (string, error) {
	var b strings.Builder
	for _, field := range f {
		s, err := field.render(values[field.Name])
		if err != nil {
			return "", fmt.Errorf("field %s: %w", field.Name, err)
		}
		b.WriteString(s)
	}
	return b.String(), nil
}

// Write renders values as a latin-1 line of Width bytes and appends CRLF
func (f Format) Write(w io.Writer, values map[string]any) error {
	line, err := f.Format(values)
	if err != nil {
		return err
	}
	encoded, err := charmap.ISO8859_1.NewEncoder().String(line)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}
	_, err = io.WriteString(w, encoded+"\r\n")
	return err
}

// Parse splits a line into a record. Short lines yield empty trailing fields.
func (f Format) Parse(line string) Record {
	line = strings.TrimRight(line, "\r\n")
	runes := []rune(line)
	rec := make(Record, len(f))
	pos := 0
	for _, field := range f {
		end := pos + field.Length
		var raw string
		switch {
		case pos >= len(runes):
			raw = ""
		case end > len(runes):
			raw = string(runes[pos:])
		default:
			raw = string(runes[pos:end])
		}
		rec[field.Name] = field.parse(raw)
		pos = end
	}
	return rec
}

// ReadAll parses every non-empty line of r
func (f Format) ReadAll(r io.Reader) ([]Record, error) {
	var out []Record
	err := f.Each(r, func(rec Record) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}

// Each calls fn for every non-empty line of r, stopping at the first error
func (f Format) Each(r io.Reader, fn func(Record) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		if !utf8.ValidString(line) {
			decoded, err := charmap.ISO8859_1.NewDecoder().String(line)
			if err != nil {
				return fmt.Errorf("failed to decode record: %w", err)
			}
			line = decoded
		}
		if err := fn(f.Parse(line)); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read records: %w", err)
	}
	return nil
}

func (field Field) render(v any) (string, error) {
	switch field.Kind {
	case Alpha:
		s := toString(v)
		if utf8.RuneCountInString(s) > field.Length {
			s = string([]rune(s)[:field.Length])
		}
		return s + strings.Repeat(" ", field.Length-utf8.RuneCountInString(s)), nil
	case Numeric:
		s := toString(v)
		if s == "" {
			s = "0"
		}
		if !isInteger(s) {
			return "", fmt.Errorf("value %q is not numeric", s)
		}
		return padNumber(s, field.Length)
	case Implied:
		d, err := toDecimal(v)
		if err != nil {
			return "", err
		}
		scaled := d.Shift(int32(field.Decimals)).Round(0)
		return padNumber(scaled.String(), field.Length)
	}
	return "", fmt.Errorf("unknown kind %q", field.Kind)
}

func (field Field) parse(raw string) string {
	switch field.Kind {
	case Numeric:
		s := strings.TrimSpace(raw)
		if s == "" {
			return ""
		}
		neg := strings.HasPrefix(s, "-")
		s = strings.TrimLeft(strings.TrimPrefix(s, "-"), "0")
		if s == "" {
			s = "0"
		}
		if neg {
			s = "-" + s
		}
		return s
	case Implied:
		s := strings.TrimSpace(raw)
		if s == "" {
			return ""
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return s
		}
		return d.Shift(-int32(field.Decimals)).StringFixed(int32(field.Decimals))
	default:
		return strings.TrimSpace(raw)
	}
}

func padNumber(s string, length int) (string, error) {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
		length--
	}
	if len(s) > length {
		return "", fmt.Errorf("value %s exceeds %d digits", s, length)
	}
	s = strings.Repeat("0", length-len(s)) + s
	if neg {
		s = "-" + s
	}
	return s, nil
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func toString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		if x {
			return "S"
		}
		return "N"
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(DateLayout)
	case decimal.Decimal:
		return x.String()
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return x, nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case string:
		if strings.TrimSpace(x) == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(strings.TrimSpace(x))
	}
	return decimal.Zero, fmt.Errorf("cannot convert %T to decimal", v)
}

// Int reads a numeric field, zero when blank or malformed
func (r Record) Int(name string) int64 {
	v, _ := strconv.ParseInt(r[name], 10, 64)
	return v
}

// Decimal reads an implied-decimal field
func (r Record) Decimal(name string) decimal.Decimal {
	d, err := money.FromString(r[name])
	if err != nil {
		return decimal.Zero
	}
	return d
}

// Date reads a YYYYMMDD field
func (r Record) Date(name string) time.Time {
	t, err := time.Parse(DateLayout, r[name])
	if err != nil {
		return time.Time{}
	}
	return t
}
