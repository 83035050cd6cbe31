package collection

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Params holds keyword parameters bound to a transform.
type Params map[string]any

// Param declares one keyword parameter accepted by a transform.
type Param struct {
	Name     string
	Required bool
	Default  any
}

// Mapper is a transform with all of its parameters bound. It must return a
// record; returning the input record unchanged is allowed.
type Mapper func(r *Record) (*Record, error)

// Transform is a per-record function together with the parameters it
// accepts. Binding checks parameters when the transform is registered, not
// when the backend evaluates it.
type Transform struct {
	// Name labels the transform in plans and error messages.
	Name string

	// Params declares accepted keyword parameters. Binding a name that is
	// not declared fails.
	Params []Param

	// Apply computes the output record.
	Apply func(r *Record, p Params) (*Record, error)

	// Schema returns the band names produced for the given input bands.
	// Nil means the band schema is left unchanged.
	Schema func(bands []string, p Params) []string
}

// Func wraps a parameterless function as a Transform.
func Func(name string, fn func(*Record) (*Record, error)) Transform {
	t := Transform{Name: name}
	if fn != nil {
		t.Apply = func(r *Record, _ Params) (*Record, error) { return fn(r) }
	}
	return t
}

// Bind validates params against the declared parameters and returns the
// resulting Mapper. Declared defaults fill parameters not given.
func (t Transform) Bind(params Params) (Mapper, Params, error) {
	if t.Apply == nil {
		return nil, nil, fmt.Errorf("%s: %w", t.label(), ErrNotCallable)
	}

	bound := make(Params, len(t.Params))
	for _, p := range t.Params {
		if p.Default != nil {
			bound[p.Name] = p.Default
		}
	}

	for _, name := range slices.Sorted(maps.Keys(params)) {
		if !slices.ContainsFunc(t.Params, func(p Param) bool { return p.Name == name }) {
			return nil, nil, fmt.Errorf("%s: %w %q", t.label(), ErrUnknownParam, name)
		}
		bound[name] = params[name]
	}

	for _, p := range t.Params {
		if _, ok := bound[p.Name]; p.Required && !ok {
			return nil, nil, fmt.Errorf("%s: %w %q", t.label(), ErrMissingParam, p.Name)
		}
	}

	apply := t.Apply
	name := t.label()
	return func(r *Record) (*Record, error) {
		out, err := apply(r, bound)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if out == nil {
			return nil, fmt.Errorf("%s: transform returned no record", name)
		}
		return out, nil
	}, bound, nil
}

// OutputBands applies the transform's schema function to bands.
func (t Transform) OutputBands(bands []string, params Params) []string {
	if t.Schema == nil {
		return bands
	}
	return t.Schema(slices.Clone(bands), params)
}

func (t Transform) label() string {
	if t.Name == "" {
		return "transform"
	}
	return t.Name
}

// Compose fuses mappers into one mapper applying them in order, so a backend
// makes a single pass over the collection.
func Compose(mappers ...Mapper) Mapper {
	return func(r *Record) (*Record, error) {
		var err error
		for _, m := range mappers {
			if r, err = m(r); err != nil {
				return nil, err
			}
		}
		return r, nil
	}
}

// PreserveMetadata wraps t so the output record keeps the input record's
// ID, timestamp and every property the transform did not set itself.
func PreserveMetadata(t Transform) Transform {
	apply := t.Apply
	if apply == nil {
		return t
	}
	t.Apply = func(r *Record, p Params) (*Record, error) {
		out, err := apply(r.Clone(), p)
		if err != nil || out == nil {
			return out, err
		}
		out.ID = r.ID
		out.Time = r.Time
		for k, v := range r.Properties {
			if _, ok := out.Properties[k]; !ok {
				out.SetProperty(k, v)
			}
		}
		return out, nil
	}
	return t
}

// AddBands returns a schema function appending names not already present.
func AddBands(names ...string) func([]string, Params) []string {
	return func(bands []string, _ Params) []string {
		for _, n := range names {
			if !slices.Contains(bands, n) {
				bands = append(bands, n)
			}
		}
		return bands
	}
}

// describe renders a label such as "map(qa,source(x))".
func describe(kind string, names []string) string {
	return kind + "(" + strings.Join(names, ",") + ")"
}
