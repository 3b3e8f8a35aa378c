package format

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type named string

func (n named) String() string { return "named:" + string(n) }

func TestStandard_Format(t *testing.T) {
	f := Default()
	ts := time.Date(2024, 3, 9, 14, 5, 6, 0, time.UTC)

	tests := []struct {
		value any
		spec  Spec
		want  string
	}{
		{"abc", Spec{}, "abc"},
		{[]byte("bytes"), ParseSpec("raw"), "bytes"},
		{int64(42), ParseSpec("raw"), "42"},
		{3.25, ParseSpec("raw"), "3.25"},
		{true, ParseSpec("raw"), "1"},
		{ts, ParseSpec("raw"), "2024-03-09 14:05:06"},
		{named("x"), ParseSpec("raw"), "named:x"},
		{struct{ A int }{1}, ParseSpec("raw"), "{1}"},
		{"  padded  ", ParseSpec("text"), "padded"},
		{"line one\r\nline two", ParseSpec("ntext"), "line one line two"},
		{"a\n\nb\rc", ParseSpec("ntext"), "a  b c"},
		{" keep  inner\tgaps\n", ParseSpec("ntext"), "keep  inner\tgaps"},
		{1234567, ParseSpec("integer"), "1,234,567"},
		{"12.6", ParseSpec("integer"), "13"},
		{3.14159, ParseSpec("decimal"), "3.14"},
		{3.14159, Spec{Name: "decimal", Params: []any{4}}, "3.1416"},
		{[]byte("2.5"), ParseSpec("decimal"), "2.50"},
		{0.256, ParseSpec("percent"), "26%"},
		{0.256, Spec{Name: "percent", Params: []any{1}}, "25.6%"},
		{true, ParseSpec("boolean"), "Yes"},
		{"false", ParseSpec("boolean"), "No"},
		{int64(1), ParseSpec("boolean"), "Yes"},
		{ts, ParseSpec("date"), "2024-03-09"},
		{ts, ParseSpec("datetime"), "2024-03-09 14:05:06"},
		{ts, ParseSpec("time"), "14:05:06"},
		{ts, Spec{Name: "date", Params: []any{"02/01/2006"}}, "09/03/2024"},
		{"2024-03-09T14:05:06Z", ParseSpec("date"), "2024-03-09"},
		{[]byte("2024-03-09 14:05:06"), ParseSpec("time"), "14:05:06"},
		{int64(0), ParseSpec("date"), "1970-01-01"},
		{2048, ParseSpec("size"), "2.0 KiB"},
	}

	for _, tt := range tests {
		t.Run(tt.spec.String(), func(t *testing.T) {
			got, err := f.Format(tt.value, tt.spec)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStandard_FormatErrors(t *testing.T) {
	f := Default()

	_, err := f.Format("x", ParseSpec("bogus"))
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, err = f.Format("abc", ParseSpec("decimal"))
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = f.Format("maybe", ParseSpec("boolean"))
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = f.Format(-1, ParseSpec("size"))
	assert.True(t, errors.Is(err, ErrInvalidValue))

	_, err = f.Format(struct{}{}, ParseSpec("date"))
	assert.True(t, errors.Is(err, ErrInvalidValue))
}

func TestStandard_SanitizeFormulas(t *testing.T) {
	f := Default()
	f.SanitizeFormulas = true

	for in, want := range map[string]string{
		"=SUM(A1:A2)": "'=SUM(A1:A2)",
		"+1":          "'+1",
		"-1":          "'-1",
		"@cmd":        "'@cmd",
		"plain":       "plain",
		"":            "",
	} {
		got, err := f.Format(in, ParseSpec("raw"))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestToString(t *testing.T) {
	assert.Equal(t, "", ToString(nil))
	assert.Equal(t, "-7", ToString(int32(-7)))
	assert.Equal(t, "18446744073709551615", ToString(uint64(18446744073709551615)))
	assert.Equal(t, "0", ToString(false))
	assert.Equal(t, "1.5", ToString(float32(1.5)))
}
