package reqeval

import (
	"fmt"
	"strings"

	"go.te.io/tescenario/lib"
)

// ParseExpr parses the CLI string form of a requirement expression.
//
// The original implementation's logic_expr_parse is not present in the
// retrieved sources, but reqs.c's own reqs_expr_to_string_buf shows the
// grammar a requirement expression serializes to: "!" for negation, "&"
// for conjunction, "|" for disjunction (| binding looser than &), with
// parentheses used only to disambiguate surrounding a "|" beneath a "&"
// or "!". This parser accepts exactly that grammar in reverse.
func ParseExpr(s string) (lib.ReqExpr, error) {
	p := &exprParser{toks: tokenize(s)}
	expr, err := p.parseOr()
	if err != nil {
		return nil, fmt.Errorf("reqeval: parsing %q: %w", s, err)
	}
	if p.pos != len(p.toks) {
		return nil, fmt.Errorf("reqeval: parsing %q: unexpected trailing token %q", s, p.toks[p.pos])
	}
	return expr, nil
}

type exprParser struct {
	toks []string
	pos  int
}

func (p *exprParser) peek() string {
	if p.pos >= len(p.toks) {
		return ""
	}
	return p.toks[p.pos]
}

func (p *exprParser) next() string {
	t := p.peek()
	p.pos++
	return t
}

func (p *exprParser) parseOr() (lib.ReqExpr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peek() == "|" {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = lib.ReqOr{L: left, R: right}
	}
	return left, nil
}

func (p *exprParser) parseAnd() (lib.ReqExpr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek() == "&" {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = lib.ReqAnd{L: left, R: right}
	}
	return left, nil
}

func (p *exprParser) parseUnary() (lib.ReqExpr, error) {
	if p.peek() == "!" {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return lib.ReqNot{Expr: inner}, nil
	}
	return p.parsePrimary()
}

func (p *exprParser) parsePrimary() (lib.ReqExpr, error) {
	tok := p.next()
	switch tok {
	case "":
		return nil, fmt.Errorf("unexpected end of expression")
	case "(":
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	case ")", "&", "|", "!":
		return nil, fmt.Errorf("unexpected token %q", tok)
	default:
		return lib.ReqValue{Name: tok}, nil
	}
}

// tokenize splits s into "(", ")", "!", "&", "|" and bare identifier
// tokens, the same vocabulary reqs_expr_to_string_buf emits.
func tokenize(s string) []string {
	var toks []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			toks = append(toks, cur.String())
			cur.Reset()
		}
	}
	for _, r := range s {
		switch r {
		case '(', ')', '!', '&', '|':
			flush()
			toks = append(toks, string(r))
		case ' ', '\t', '\n':
			flush()
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return toks
}
