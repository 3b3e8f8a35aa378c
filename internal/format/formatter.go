// Package format turns raw field values into cell text.
package format

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var (
	ErrUnknownFormat = errors.New("unknown format")
	ErrInvalidValue  = errors.New("value does not fit format")
)

// lineBreaks turns each line break into a single space, keeping other whitespace.
var lineBreaks = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// DateTimeLayout is the layout raw time values are rendered with.
const DateTimeLayout = "2006-01-02 15:04:05"

// Spec names a format and its optional parameters, e.g. {Name: "decimal", Params: [3]}.
type Spec struct {
	Name   string
	Params []any
}

// ParseSpec builds a parameterless Spec from a tag such as "text".
func ParseSpec(tag string) Spec {
	return Spec{Name: strings.TrimSpace(tag)}
}

func (s Spec) String() string {
	if len(s.Params) == 0 {
		return s.Name
	}
	return fmt.Sprintf("%s%v", s.Name, s.Params)
}

// Formatter renders a non-nil value according to spec.
type Formatter interface {
	Format(value any, spec Spec) (string, error)
}

// Standard is the formatter used when the caller does not inject one.
type Standard struct {
	// SanitizeFormulas prefixes text starting with = + - @ with a single quote, so
	// spreadsheet applications do not evaluate it.
	SanitizeFormulas bool
	BooleanTrue      string
	BooleanFalse     string
	DateLayout       string
	DateTimeLayout   string
	TimeLayout       string
}

func Default() *Standard {
	return &Standard{
		BooleanTrue:    "Yes",
		BooleanFalse:   "No",
		DateLayout:     "2006-01-02",
		DateTimeLayout: DateTimeLayout,
		TimeLayout:     "15:04:05",
	}
}

func (f *Standard) Format(value any, spec Spec) (string, error) {
	s, err := f.format(value, spec)
	if err != nil {
		return "", fmt.Errorf("format %q: %w", spec.Name, err)
	}
	if f.SanitizeFormulas {
		s = sanitizeFormula(s)
	}
	return s, nil
}

func (f *Standard) format(value any, spec Spec) (string, error) {
	switch spec.Name {
	case "", "raw":
		return ToString(value), nil
	case "text":
		return strings.TrimSpace(ToString(value)), nil
	case "ntext":
		return lineBreaks.Replace(strings.TrimSpace(ToString(value))), nil
	case "integer":
		n, err := toFloat(value)
		if err != nil {
			return "", err
		}
		return humanize.Comma(int64(math.Round(n))), nil
	case "decimal":
		n, err := toFloat(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(n, 'f', intParam(spec, 2), 64), nil
	case "percent":
		n, err := toFloat(value)
		if err != nil {
			return "", err
		}
		return strconv.FormatFloat(n*100, 'f', intParam(spec, 0), 64) + "%", nil
	case "boolean":
		b, err := toBool(value)
		if err != nil {
			return "", err
		}
		if b {
			return f.BooleanTrue, nil
		}
		return f.BooleanFalse, nil
	case "date":
		return formatTime(value, stringParam(spec, f.DateLayout))
	case "datetime":
		return formatTime(value, stringParam(spec, f.DateTimeLayout))
	case "time":
		return formatTime(value, stringParam(spec, f.TimeLayout))
	case "size":
		n, err := toFloat(value)
		if err != nil {
			return "", err
		}
		if n < 0 {
			return "", fmt.Errorf("%w: negative size %v", ErrInvalidValue, n)
		}
		return humanize.IBytes(uint64(n)), nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownFormat, spec.Name)
}

// ToString casts common driver and Go types to text without fmt where possible.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(DateTimeLayout)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprint(val)
}

func toFloat(val any) (float64, error) {
	switch v := val.(type) {
	case int:
		return float64(v), nil
	case int8:
		return float64(v), nil
	case int16:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case uint:
		return float64(v), nil
	case uint8:
		return float64(v), nil
	case uint16:
		return float64(v), nil
	case uint32:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case string, []byte:
		n, err := strconv.ParseFloat(strings.TrimSpace(ToString(v)), 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, ToString(v))
		}
		return n, nil
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidValue, val)
}

func toBool(val any) (bool, error) {
	switch v := val.(type) {
	case bool:
		return v, nil
	case string, []byte:
		b, err := strconv.ParseBool(strings.TrimSpace(ToString(v)))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrInvalidValue, ToString(v))
		}
		return b, nil
	}
	n, err := toFloat(val)
	if err != nil {
		return false, fmt.Errorf("%w: %T is not a boolean", ErrInvalidValue, val)
	}
	return n != 0, nil
}

func formatTime(val any, layout string) (string, error) {
	switch v := val.(type) {
	case time.Time:
		return v.Format(layout), nil
	case *time.Time:
		return v.Format(layout), nil
	case int64:
		return time.Unix(v, 0).UTC().Format(layout), nil
	case int:
		return time.Unix(int64(v), 0).UTC().Format(layout), nil
	case string, []byte:
		s := strings.TrimSpace(ToString(v))
		for _, l := range []string{time.RFC3339Nano, DateTimeLayout, "2006-01-02"} {
			if t, err := time.Parse(l, s); err == nil {
				return t.Format(layout), nil
			}
		}
		return "", fmt.Errorf("%w: %q is not a time", ErrInvalidValue, s)
	}
	return "", fmt.Errorf("%w: %T is not a time", ErrInvalidValue, val)
}

func intParam(spec Spec, fallback int) int {
	if len(spec.Params) == 0 {
		return fallback
	}
	switch p := spec.Params[0].(type) {
	case int:
		return p
	case int64:
		return int(p)
	case float64:
		return int(p)
	case string:
		if n, err := strconv.Atoi(p); err == nil {
			return n
		}
	}
	return fallback
}

func stringParam(spec Spec, fallback string) string {
	if len(spec.Params) == 0 {
		return fallback
	}
	if s, ok := spec.Params[0].(string); ok && s != "" {
		return s
	}
	return fallback
}

// Formula Injection Mitigation (CSV Injection)
func sanitizeFormula(s string) string {
	if len(s) > 0 {
		switch s[0] {
		case '=', '+', '-', '@':
			return "'" + s
		}
	}
	return s
}
