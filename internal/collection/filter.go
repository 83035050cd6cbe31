package collection

import (
	"fmt"

	"github.com/planetlabs/go-ogc/filter"
)

// MatchFilter evaluates a CQL2 expression against the properties of r.
// Logical operators, boolean literals and comparisons between properties
// and string or number literals are supported. A missing property never matches.
func MatchFilter(f *filter.Filter, r *Record) (bool, error) {
	if f == nil || f.Expression == nil {
		return true, nil
	}
	return evalBool(f.Expression, r)
}

// ValidateFilter checks that every node of f is supported by MatchFilter,
// without evaluating it.
func ValidateFilter(f *filter.Filter) error {
	if f == nil || f.Expression == nil {
		return nil
	}
	return validateBool(f.Expression)
}

func validateBool(expr filter.BooleanExpression) error {
	switch e := expr.(type) {
	case *filter.And:
		return validateArgs(e.Args)
	case *filter.Or:
		return validateArgs(e.Args)
	case *filter.Not:
		return validateBool(e.Arg)
	case *filter.Boolean:
		return nil
	case *filter.Comparison:
		if _, ok := comparisons[e.Name]; !ok {
			return fmt.Errorf("%w: operator %q", ErrUnsupportedFilter, e.Name)
		}
		for _, arg := range []filter.ScalarExpression{e.Left, e.Right} {
			switch arg.(type) {
			case *filter.Property, *filter.String, *filter.Number:
			default:
				return fmt.Errorf("%w: %T", ErrUnsupportedFilter, arg)
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedFilter, expr)
	}
}

func validateArgs(args []filter.BooleanExpression) error {
	for _, arg := range args {
		if err := validateBool(arg); err != nil {
			return err
		}
	}
	return nil
}

var comparisons = map[string]func(order int) bool{
	"=":  func(o int) bool { return o == 0 },
	"<>": func(o int) bool { return o != 0 },
	"<":  func(o int) bool { return o < 0 },
	"<=": func(o int) bool { return o <= 0 },
	">":  func(o int) bool { return o > 0 },
	">=": func(o int) bool { return o >= 0 },
}

func evalBool(expr filter.BooleanExpression, r *Record) (bool, error) {
	switch e := expr.(type) {
	case *filter.And:
		for _, arg := range e.Args {
			ok, err := evalBool(arg, r)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	case *filter.Or:
		for _, arg := range e.Args {
			ok, err := evalBool(arg, r)
			if err != nil || ok {
				return ok, err
			}
		}
		return false, nil
	case *filter.Not:
		ok, err := evalBool(e.Arg, r)
		return !ok, err
	case *filter.Boolean:
		return e.Value, nil
	case *filter.Comparison:
		return evalComparison(e, r)
	default:
		return false, fmt.Errorf("%w: %T", ErrUnsupportedFilter, expr)
	}
}

func evalComparison(c *filter.Comparison, r *Record) (bool, error) {
	left, ok, err := scalar(c.Left, r)
	if err != nil || !ok {
		return false, err
	}
	right, ok, err := scalar(c.Right, r)
	if err != nil || !ok {
		return false, err
	}

	order, err := compareValues(left, right)
	if err != nil {
		return false, err
	}
	test, ok := comparisons[c.Name]
	if !ok {
		return false, fmt.Errorf("%w: operator %q", ErrUnsupportedFilter, c.Name)
	}
	return test(order), nil
}

// scalar resolves a literal or property reference. ok is false when the
// property is absent.
func scalar(expr filter.ScalarExpression, r *Record) (any, bool, error) {
	switch e := expr.(type) {
	case *filter.Property:
		v, ok := r.Property(e.Name)
		return v, ok && v != nil, nil
	case *filter.String:
		return e.Value, true, nil
	case *filter.Number:
		return e.Value, true, nil
	default:
		return nil, false, fmt.Errorf("%w: %T", ErrUnsupportedFilter, expr)
	}
}

func compareValues(a, b any) (int, error) {
	if x, ok := toFloat(a); ok {
		if y, ok := toFloat(b); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := a.(string); ok {
		if y, ok := b.(string); ok {
			switch {
			case x < y:
				return -1, nil
			case x > y:
				return 1, nil
			}
			return 0, nil
		}
	}
	if x, ok := a.(bool); ok {
		if y, ok := b.(bool); ok {
			if x == y {
				return 0, nil
			}
			if !x {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, fmt.Errorf("%w: cannot compare %T with %T", ErrUnsupportedFilter, a, b)
}
