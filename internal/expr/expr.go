// Package expr evaluates the small expression language that schemas use for
// conditions, computed lengths and link indices. Expressions are parsed with
// the Go expression grammar but only integer arithmetic, comparisons, boolean
// logic and references to named values are allowed.
package expr

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"strconv"
	"strings"
)

// ErrUnsupported is returned for syntax that is valid Go but not part of the
// expression language.
var ErrUnsupported = errors.New("unsupported expression")

// Resolver returns the value of a dotted name like "header.count" or
// "items[2].value".
type Resolver interface {
	Resolve(name string) (int64, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(name string) (int64, bool)

// Resolve calls the function.
func (f ResolverFunc) Resolve(name string) (int64, bool) {
	return f(name)
}

// Map is a Resolver backed by a map.
type Map map[string]int64

// Resolve returns the map value for the name.
func (m Map) Resolve(name string) (int64, bool) {
	v, ok := m[name]
	return v, ok
}

// Expression is a parsed expression that can be evaluated multiple times.
type Expression struct {
	source string
	root   ast.Expr
}

// Parse parses the expression source.
func Parse(source string) (*Expression, error) {
	root, err := parser.ParseExpr(source)
	if err != nil {
		return nil, fmt.Errorf("parsing expression '%s': %w", source, err)
	}
	if err := validate(root); err != nil {
		return nil, fmt.Errorf("validating expression '%s': %w", source, err)
	}
	return &Expression{source: source, root: root}, nil
}

// String returns the expression source.
func (e *Expression) String() string {
	return e.source
}

// Eval evaluates the expression. Comparisons and boolean operators
// return 1 for true and 0 for false.
func (e *Expression) Eval(resolver Resolver) (int64, error) {
	return eval(e.root, resolver)
}

// Bool evaluates the expression and returns whether the result is non zero.
func (e *Expression) Bool(resolver Resolver) (bool, error) {
	v, err := e.Eval(resolver)
	return v != 0, err
}

// Eval parses and evaluates the expression source.
func Eval(source string, resolver Resolver) (int64, error) {
	e, err := Parse(source)
	if err != nil {
		return 0, err
	}
	return e.Eval(resolver)
}

func validate(node ast.Expr) error {
	switch n := node.(type) {
	case *ast.BasicLit:
		if n.Kind != token.INT {
			return fmt.Errorf("%w: literal %s", ErrUnsupported, n.Value)
		}
	case *ast.Ident:
	case *ast.ParenExpr:
		return validate(n.X)
	case *ast.UnaryExpr:
		return validate(n.X)
	case *ast.BinaryExpr:
		if err := validate(n.X); err != nil {
			return err
		}
		return validate(n.Y)
	case *ast.SelectorExpr, *ast.IndexExpr:
		if _, err := name(node); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %T", ErrUnsupported, node)
	}
	return nil
}

// name converts selector and index chains into a dotted name.
func name(node ast.Expr) (string, error) {
	switch n := node.(type) {
	case *ast.Ident:
		return n.Name, nil
	case *ast.SelectorExpr:
		base, err := name(n.X)
		if err != nil {
			return "", err
		}
		return base + "." + n.Sel.Name, nil
	case *ast.IndexExpr:
		base, err := name(n.X)
		if err != nil {
			return "", err
		}
		lit, ok := n.Index.(*ast.BasicLit)
		if !ok || lit.Kind != token.INT {
			return "", fmt.Errorf("%w: non constant index", ErrUnsupported)
		}
		i, err := strconv.ParseInt(lit.Value, 0, 64)
		if err != nil {
			return "", fmt.Errorf("parsing index: %w", err)
		}
		return fmt.Sprintf("%s[%d]", base, i), nil
	default:
		return "", fmt.Errorf("%w: %T in name", ErrUnsupported, node)
	}
}

func eval(node ast.Expr, resolver Resolver) (int64, error) {
	switch n := node.(type) {
	case *ast.BasicLit:
		v, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64)
		if err != nil {
			return 0, fmt.Errorf("parsing number '%s': %w", n.Value, err)
		}
		return v, nil

	case *ast.Ident:
		switch n.Name {
		case "true":
			return 1, nil
		case "false":
			return 0, nil
		}
		return lookup(n, resolver)

	case *ast.SelectorExpr, *ast.IndexExpr:
		return lookup(n, resolver)

	case *ast.ParenExpr:
		return eval(n.X, resolver)

	case *ast.UnaryExpr:
		return evalUnary(n, resolver)

	case *ast.BinaryExpr:
		return evalBinary(n, resolver)

	default:
		return 0, fmt.Errorf("%w: %T", ErrUnsupported, node)
	}
}

func lookup(node ast.Expr, resolver Resolver) (int64, error) {
	s, err := name(node)
	if err != nil {
		return 0, err
	}
	if resolver == nil {
		return 0, fmt.Errorf("unknown name '%s'", s)
	}
	v, ok := resolver.Resolve(s)
	if !ok {
		return 0, fmt.Errorf("unknown name '%s'", s)
	}
	return v, nil
}

func evalUnary(n *ast.UnaryExpr, resolver Resolver) (int64, error) {
	x, err := eval(n.X, resolver)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case token.SUB:
		return -x, nil
	case token.ADD:
		return x, nil
	case token.NOT:
		return boolValue(x == 0), nil
	case token.XOR:
		return ^x, nil
	default:
		return 0, fmt.Errorf("%w: unary operator %s", ErrUnsupported, n.Op)
	}
}

func evalBinary(n *ast.BinaryExpr, resolver Resolver) (int64, error) {
	x, err := eval(n.X, resolver)
	if err != nil {
		return 0, err
	}

	// short circuit evaluation allows guarding lookups that might fail
	switch n.Op {
	case token.LAND:
		if x == 0 {
			return 0, nil
		}
	case token.LOR:
		if x != 0 {
			return 1, nil
		}
	}

	y, err := eval(n.Y, resolver)
	if err != nil {
		return 0, err
	}

	switch n.Op {
	case token.ADD:
		return x + y, nil
	case token.SUB:
		return x - y, nil
	case token.MUL:
		return x * y, nil
	case token.QUO, token.REM:
		if y == 0 {
			return 0, errors.New("division by zero")
		}
		if n.Op == token.QUO {
			return x / y, nil
		}
		return x % y, nil
	case token.AND:
		return x & y, nil
	case token.OR:
		return x | y, nil
	case token.XOR:
		return x ^ y, nil
	case token.AND_NOT:
		return x &^ y, nil
	case token.SHL:
		return x << uint64(y&63), nil
	case token.SHR:
		return x >> uint64(y&63), nil
	case token.EQL:
		return boolValue(x == y), nil
	case token.NEQ:
		return boolValue(x != y), nil
	case token.LSS:
		return boolValue(x < y), nil
	case token.LEQ:
		return boolValue(x <= y), nil
	case token.GTR:
		return boolValue(x > y), nil
	case token.GEQ:
		return boolValue(x >= y), nil
	case token.LAND, token.LOR:
		return boolValue(y != 0), nil
	default:
		return 0, fmt.Errorf("%w: operator %s", ErrUnsupported, n.Op)
	}
}

func boolValue(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
