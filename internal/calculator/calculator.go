// Package calculator evaluates spoken arithmetic.
package calculator

import (
	"errors"
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	ErrNoExpression  = errors.New("no arithmetic expression found")
	ErrDivideByZero  = errors.New("division by zero")
	ErrBadExpression = errors.New("invalid arithmetic expression")
)

var (
	exprRe    = regexp.MustCompile(`[\d\s+\-*/().]+`)
	operandRe = regexp.MustCompile(`\d`)
)

type wordOperator struct {
	re     *regexp.Regexp
	symbol string
}

// Longer phrases come first so "divided by" wins over "divide".
var wordOperators = compileOperators([][2]string{
	{"multiplied by", "*"},
	{"divided by", "/"},
	{"divide by", "/"},
	{"plus", "+"},
	{"minus", "-"},
	{"times", "*"},
	{"into", "*"},
	{"over", "/"},
	{"divide", "/"},
	{"x", "*"},
})

func compileOperators(pairs [][2]string) []wordOperator {
	out := make([]wordOperator, len(pairs))
	for i, p := range pairs {
		out[i] = wordOperator{re: regexp.MustCompile(`\b` + regexp.QuoteMeta(p[0]) + `\b`), symbol: " " + p[1] + " "}
	}
	return out
}

const (
	unclearReply = "I couldn't understand the calculation. Please try again."
	invalidReply = "I couldn't calculate that. Please check your expression."
	zeroReply    = "I can't divide by zero."
)

// Answer evaluates the arithmetic in query and phrases the result.
func Answer(query string) string {
	v, err := Evaluate(query)
	switch {
	case err == nil:
		return "The answer is " + Format(v)
	case errors.Is(err, ErrNoExpression):
		return unclearReply
	case errors.Is(err, ErrDivideByZero):
		return zeroReply
	default:
		return invalidReply
	}
}

// Evaluate extracts the expression from query and computes it. Division
// is always floating point.
func Evaluate(query string) (float64, error) {
	expr := Extract(query)
	if expr == "" {
		return 0, ErrNoExpression
	}
	node, err := parser.ParseExpr(expr)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBadExpression, err)
	}
	v, err := eval(node)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: result out of range", ErrBadExpression)
	}
	return v, nil
}

// Extract rewrites operator words to symbols and returns the longest run
// of arithmetic characters.
func Extract(query string) string {
	q := " " + strings.ToLower(query) + " "
	for _, filler := range []string{"what is", "what's", "calculate", "how much is", "equals", "?"} {
		q = strings.ReplaceAll(q, filler, " ")
	}
	for _, op := range wordOperators {
		q = op.re.ReplaceAllString(q, op.symbol)
	}

	best := ""
	for _, m := range exprRe.FindAllString(q, -1) {
		m = strings.Join(strings.Fields(m), " ")
		if len(m) > len(best) && operandRe.MatchString(m) {
			best = m
		}
	}
	return best
}

func eval(n ast.Expr) (float64, error) {
	switch e := n.(type) {
	case *ast.BasicLit:
		if e.Kind != token.INT && e.Kind != token.FLOAT {
			return 0, fmt.Errorf("%w: literal %s", ErrBadExpression, e.Value)
		}
		return strconv.ParseFloat(e.Value, 64)
	case *ast.ParenExpr:
		return eval(e.X)
	case *ast.UnaryExpr:
		x, err := eval(e.X)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.SUB:
			return -x, nil
		case token.ADD:
			return x, nil
		}
	case *ast.BinaryExpr:
		x, err := eval(e.X)
		if err != nil {
			return 0, err
		}
		y, err := eval(e.Y)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case token.ADD:
			return x + y, nil
		case token.SUB:
			return x - y, nil
		case token.MUL:
			return x * y, nil
		case token.QUO:
			if y == 0 {
				return 0, ErrDivideByZero
			}
			return x / y, nil
		}
	}
	return 0, fmt.Errorf("%w: unsupported %T", ErrBadExpression, n)
}

// Format drops a trailing ".0" and rounds away float noise.
func Format(v float64) string {
	v = math.Round(v*1e10) / 1e10
	return strconv.FormatFloat(v, 'f', -1, 64)
}
