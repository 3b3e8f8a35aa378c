package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type address struct {
	City string
	Zip  string `csv:"zip_code"`
}

type user struct {
	ID       int
	Name     string `csv:"name"`
	Password string `csv:"-"`
	Address  *address
	internal string
}

func TestOrdered(t *testing.T) {
	o := NewOrdered([]string{"b", "a", "c"}, []any{2, 1})

	assert.Equal(t, []string{"b", "a", "c"}, Fields(o))
	v, ok := o.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = o.Get("c")
	assert.True(t, ok)
	assert.Nil(t, v)

	_, ok = o.Get("missing")
	assert.False(t, ok)
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"ID", "name", "Address"}, Fields(user{}))
	assert.Equal(t, []string{"ID", "name", "Address"}, Fields(&user{}))
	assert.Equal(t, []string{"a", "b", "z"}, Fields(map[string]any{"z": 1, "a": 2, "b": 3}))
	assert.Equal(t, []string{"1", "2"}, Fields(map[int]string{2: "x", 1: "y"}))
	assert.Nil(t, Fields(nil))
	assert.Nil(t, Fields(42))
}

func TestValue(t *testing.T) {
	u := &user{ID: 7, Name: "ann", Address: &address{City: "Oslo", Zip: "0150"}}

	tests := []struct {
		name   string
		rec    any
		path   string
		want   any
		wantOK bool
	}{
		{"struct field", u, "ID", 7, true},
		{"tagged field", u, "name", "ann", true},
		{"skipped field", u, "Password", nil, false},
		{"unexported field", u, "internal", nil, false},
		{"nested struct", u, "Address.City", "Oslo", true},
		{"nested tag", u, "Address.zip_code", "0150", true},
		{"nil pointer in path", &user{}, "Address.City", nil, false},
		{"map", map[string]any{"id": 1}, "id", 1, true},
		{"nested map", map[string]any{"a": map[string]any{"b": "c"}}, "a.b", "c", true},
		{"map missing", map[string]any{"id": 1}, "nope", nil, false},
		{"map nil value", map[string]any{"id": nil}, "id", nil, true},
		{"slice index", map[string]any{"tags": []string{"x", "y"}}, "tags.1", "y", true},
		{"slice out of range", map[string]any{"tags": []string{"x"}}, "tags.3", nil, false},
		{"ordered", NewOrdered([]string{"k"}, []any{"v"}), "k", "v", true},
		{"int keyed map", map[int]string{3: "three"}, "3", "three", true},
		{"nil record", nil, "x", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Value(tt.rec, tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNil(t *testing.T) {
	var p *user
	var m map[string]any
	assert.True(t, IsNil(nil))
	assert.True(t, IsNil(p))
	assert.True(t, IsNil(m))
	assert.False(t, IsNil(0))
	assert.False(t, IsNil(""))
	assert.False(t, IsNil(&user{}))
}
