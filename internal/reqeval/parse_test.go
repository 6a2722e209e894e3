package reqeval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.te.io/tescenario/lib"
)

func TestParseExprSimpleValue(t *testing.T) {
	t.Parallel()
	expr, err := ParseExpr("IPV6")
	require.NoError(t, err)
	assert.Equal(t, lib.ReqValue{Name: "IPV6"}, expr)
}

func TestParseExprNegation(t *testing.T) {
	t.Parallel()
	expr, err := ParseExpr("!IPV6")
	require.NoError(t, err)
	assert.Equal(t, lib.ReqNot{Expr: lib.ReqValue{Name: "IPV6"}}, expr)
}

func TestParseExprAndOrPrecedence(t *testing.T) {
	t.Parallel()
	// "|" binds looser than "&": A & B | C == (A & B) | C.
	expr, err := ParseExpr("A & B | C")
	require.NoError(t, err)
	want := lib.ReqOr{
		L: lib.ReqAnd{L: lib.ReqValue{Name: "A"}, R: lib.ReqValue{Name: "B"}},
		R: lib.ReqValue{Name: "C"},
	}
	assert.Equal(t, want, expr)
}

func TestParseExprParens(t *testing.T) {
	t.Parallel()
	expr, err := ParseExpr("A & (B | C)")
	require.NoError(t, err)
	want := lib.ReqAnd{
		L: lib.ReqValue{Name: "A"},
		R: lib.ReqOr{L: lib.ReqValue{Name: "B"}, R: lib.ReqValue{Name: "C"}},
	}
	assert.Equal(t, want, expr)
}

func TestParseExprRejectsUnbalancedParens(t *testing.T) {
	t.Parallel()
	_, err := ParseExpr("(A & B")
	assert.Error(t, err)
}

func TestParseExprRejectsEmpty(t *testing.T) {
	t.Parallel()
	_, err := ParseExpr("")
	assert.Error(t, err)
}

func TestParseExprRejectsTrailingTokens(t *testing.T) {
	t.Parallel()
	_, err := ParseExpr("A B")
	assert.Error(t, err)
}
