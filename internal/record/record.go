// Package record gives the exporter uniform read access to rows coming from different
// sources: ordered rows from databases, maps, and structs.
package record

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Labeler is implemented by sources or records that know human-readable names for their
// fields. An empty label means "no opinion".
type Labeler interface {
	FieldLabel(field string) string
}

// Getter is implemented by records with named lookups.
type Getter interface {
	Get(name string) (any, bool)
}

// Ordered is a row of named values that keeps the order its fields were produced in.
type Ordered struct {
	keys   []string
	values []any
	index  map[string]int
}

// NewOrdered pairs keys and values positionally. Extra values are dropped.
func NewOrdered(keys []string, values []any) *Ordered {
	o := &Ordered{
		keys:   keys,
		values: make([]any, len(keys)),
		index:  make(map[string]int, len(keys)),
	}
	for i, k := range keys {
		if i < len(values) {
			o.values[i] = values[i]
		}
		o.index[k] = i
	}
	return o
}

func (o *Ordered) Keys() []string { return o.keys }

func (o *Ordered) Values() []any { return o.values }

func (o *Ordered) Len() int { return len(o.keys) }

func (o *Ordered) Get(name string) (any, bool) {
	i, ok := o.index[name]
	if !ok {
		return nil, false
	}
	return o.values[i], true
}

// Fields lists the field names of rec in their natural order: insertion order for
// ordered rows, declaration order for structs, sorted keys for maps.
func Fields(rec any) []string {
	if o, ok := rec.(interface{ Keys() []string }); ok {
		return o.Keys()
	}

	v := indirect(reflect.ValueOf(rec))
	switch v.Kind() {
	case reflect.Map:
		keys := make([]string, 0, v.Len())
		for _, k := range v.MapKeys() {
			keys = append(keys, fmt.Sprint(k.Interface()))
		}
		sort.Strings(keys)
		return keys
	case reflect.Struct:
		var names []string
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if name, ok := structFieldName(t.Field(i)); ok {
				names = append(names, name)
			}
		}
		return names
	}
	return nil
}

// Value resolves a dotted path such as "owner.address.city" against rec.
// ok is false when any segment is missing.
func Value(rec any, path string) (any, bool) {
	cur := rec
	for _, seg := range strings.Split(path, ".") {
		next, ok := lookup(cur, seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

func lookup(rec any, name string) (any, bool) {
	if rec == nil {
		return nil, false
	}
	if g, ok := rec.(Getter); ok {
		return g.Get(name)
	}

	v := indirect(reflect.ValueOf(rec))
	switch v.Kind() {
	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			for _, k := range v.MapKeys() {
				if fmt.Sprint(k.Interface()) == name {
					return v.MapIndex(k).Interface(), true
				}
			}
			return nil, false
		}
		mv := v.MapIndex(reflect.ValueOf(name).Convert(v.Type().Key()))
		if !mv.IsValid() {
			return nil, false
		}
		return mv.Interface(), true
	case reflect.Struct:
		t := v.Type()
		for i := 0; i < t.NumField(); i++ {
			if fname, ok := structFieldName(t.Field(i)); ok && fname == name {
				return v.Field(i).Interface(), true
			}
		}
		return nil, false
	case reflect.Slice, reflect.Array:
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || i >= v.Len() {
			return nil, false
		}
		return v.Index(i).Interface(), true
	}
	return nil, false
}

// IsNil reports whether v is nil or a nil pointer, map, slice or interface.
func IsNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func structFieldName(f reflect.StructField) (string, bool) {
	if !f.IsExported() {
		return "", false
	}
	tag := f.Tag.Get("csv")
	if tag == "-" {
		return "", false
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, true
	}
	return f.Name, true
}

func indirect(v reflect.Value) reflect.Value {
	for v.IsValid() && (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}
