package remote

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter is a where-clause understood by the remote table API.
// Expr renders it in the API's syntax: (FIELD,eq,value) joined with ~and / ~or.
type Filter interface {
	Expr() string
	// Match evaluates the filter against a decoded row.
	Match(row map[string]any) bool
}

type eqFilter struct {
	field string
	value string
}

// Eq matches rows whose field equals value.
func Eq(field string, value any) Filter {
	return eqFilter{field: field, value: fmt.Sprint(value)}
}

func (f eqFilter) Expr() string {
	return fmt.Sprintf("(%s,eq,%s)", f.field, f.value)
}

func (f eqFilter) Match(row map[string]any) bool {
	v, ok := row[f.field]
	if !ok || v == nil {
		return false
	}
	switch t := v.(type) {
	case float64:
		if n, err := strconv.ParseFloat(f.value, 64); err == nil {
			return n == t
		}
		return false
	case string:
		return strings.TrimSpace(t) == f.value
	default:
		return fmt.Sprint(t) == f.value
	}
}

type joinFilter struct {
	op    string
	parts []Filter
}

// And matches rows matching every part.
func And(parts ...Filter) Filter {
	return joinFilter{op: "and", parts: parts}
}

// Or matches rows matching any part.
func Or(parts ...Filter) Filter {
	return joinFilter{op: "or", parts: parts}
}

func (f joinFilter) Expr() string {
	exprs := make([]string, 0, len(f.parts))
	for _, p := range f.parts {
		exprs = append(exprs, p.Expr())
	}
	return strings.Join(exprs, "~"+f.op)
}

func (f joinFilter) Match(row map[string]any) bool {
	if len(f.parts) == 0 {
		return f.op == "and"
	}
	for _, p := range f.parts {
		matched := p.Match(row)
		if f.op == "or" && matched {
			return true
		}
		if f.op == "and" && !matched {
			return false
		}
	}
	return f.op == "and"
}
