package metadata

import (
	"strconv"
	"strings"

	"github.com/tsgonest/tsoapi/internal/diagnostic"
)

// ExprKind classifies an initializer expression.
type ExprKind int

const (
	ExprOther ExprKind = iota
	ExprString
	ExprNumber
	ExprTrue
	ExprFalse
	ExprArray
)

// Expr is the syntactic form of an initializer (`= ...`).
type Expr struct {
	Kind ExprKind
	// Text is the unquoted value for strings and the raw source otherwise.
	Text     string
	Elements []*Expr
}

// Value evaluates a literal initializer. Only string, number, boolean and
// array-of-literal expressions are accepted.
func (e *Expr) Value() (any, error) {
	switch e.Kind {
	case ExprString:
		return e.Text, nil
	case ExprNumber:
		return parseNumber(e.Text)
	case ExprTrue:
		return true, nil
	case ExprFalse:
		return false, nil
	case ExprArray:
		values := make([]any, 0, len(e.Elements))
		for _, el := range e.Elements {
			v, err := el.Value()
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		return values, nil
	default:
		return nil, diagnostic.Errorf(diagnostic.CategoryMalformedDefault, "Malformed default value %s", e.Text)
	}
}

func parseNumber(text string) (any, error) {
	s := strings.ReplaceAll(text, "_", "")
	if len(s) > 2 && s[0] == '0' {
		switch s[1] {
		case 'x', 'X', 'o', 'O', 'b', 'B':
			n, err := strconv.ParseInt(strings.ToLower(s[:2])+s[2:], 0, 64)
			if err != nil {
				return nil, diagnostic.Errorf(diagnostic.CategoryMalformedDefault, "Malformed default value %s", text)
			}
			return float64(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, diagnostic.Errorf(diagnostic.CategoryMalformedDefault, "Malformed default value %s", text)
	}
	return f, nil
}
