package condition

import "strconv"

// maxNesting bounds parser and evaluator recursion. Rule conditions are
// short one-liners; anything deeper is rejected rather than risked.
const maxNesting = 64

// Parse turns a condition expression into its AST. Parsing happens once, at
// rule admission time; the returned tree is immutable and safe to share.
func Parse(input string) (Node, error) {
	p := &parser{lex: &lexer{input: input}}
	if err := p.advance(); err != nil {
		return nil, err
	}
	n, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if p.cur.kind != tokEOF {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "unexpected trailing input"}
	}
	return n, nil
}

type parser struct {
	lex *lexer
	cur token
}

func (p *parser) advance() error {
	tok, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = tok
	return nil
}

func (p *parser) isKeyword(kw string) bool {
	return p.cur.kind == tokIdent && p.cur.text == kw
}

func (p *parser) parseOr(depth int) (Node, error) {
	if depth > maxNesting {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expression nested too deeply"}
	}
	left, err := p.parseAnd(depth + 1)
	if err != nil {
		return nil, err
	}
	for p.isKeyword("or") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseAnd(depth + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd(depth int) (Node, error) {
	if depth > maxNesting {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expression nested too deeply"}
	}
	left, err := p.parseNot(depth + 1)
	if err != nil {
		return nil, err
	}
	for p.isKeyword("and") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parseNot(depth + 1)
		if err != nil {
			return nil, err
		}
		left = Binary{Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot(depth int) (Node, error) {
	if depth > maxNesting {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expression nested too deeply"}
	}
	if p.isKeyword("not") {
		pos := p.cur.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		// "not in" at this position is a syntax error; membership negation
		// belongs after a left operand.
		if p.isKeyword("in") {
			return nil, &SyntaxError{Pos: pos, Msg: `"not in" requires a left operand`}
		}
		expr, err := p.parseNot(depth + 1)
		if err != nil {
			return nil, err
		}
		return Not{Expr: expr}, nil
	}
	return p.parseComparison(depth + 1)
}

func (p *parser) parseComparison(depth int) (Node, error) {
	left, err := p.parsePrimary(depth + 1)
	if err != nil {
		return nil, err
	}

	switch {
	case p.cur.kind == tokOp:
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary(depth + 1)
		if err != nil {
			return nil, err
		}
		return Compare{Op: op, Left: left, Right: right}, nil

	case p.isKeyword("in"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary(depth + 1)
		if err != nil {
			return nil, err
		}
		return Compare{Op: "in", Left: left, Right: right}, nil

	case p.isKeyword("not"):
		// Only "not in" is legal here.
		pos := p.cur.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if !p.isKeyword("in") {
			return nil, &SyntaxError{Pos: pos, Msg: `expected "in" after "not"`}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := p.parsePrimary(depth + 1)
		if err != nil {
			return nil, err
		}
		return Compare{Op: "not in", Left: left, Right: right}, nil
	}

	return left, nil
}

func (p *parser) parsePrimary(depth int) (Node, error) {
	if depth > maxNesting {
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expression nested too deeply"}
	}

	switch p.cur.kind {
	case tokString:
		n := Literal{Value: p.cur.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil

	case tokNumber:
		n, err := parseNumber(p.cur)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil

	case tokLBracket:
		return p.parseList(depth + 1)

	case tokLParen:
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		if p.cur.kind != tokRParen {
			return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expected )"}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return inner, nil

	case tokIdent:
		name := p.cur.text
		pos := p.cur.pos
		switch name {
		case "true":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Literal{Value: true}, nil
		case "false":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Literal{Value: false}, nil
		case "and", "or", "not", "in":
			return nil, &SyntaxError{Pos: pos, Msg: "unexpected keyword " + strconv.Quote(name)}
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tokLParen {
			return p.parseCall(name, depth+1)
		}
		return Attr{Name: name}, nil

	default:
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expected expression"}
	}
}

func (p *parser) parseList(depth int) (Node, error) {
	if err := p.advance(); err != nil { // consume [
		return nil, err
	}
	var elems []Node
	if p.cur.kind == tokRBracket {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return List{Elems: elems}, nil
	}
	for {
		elem, err := p.parseListElem(depth + 1)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if p.cur.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.cur.kind == tokRBracket {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return List{Elems: elems}, nil
		}
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expected , or ] in list"}
	}
}

// parseListElem admits only literals. Membership tests run against literal
// lists; attribute references or calls inside a list are rejected.
func (p *parser) parseListElem(depth int) (Node, error) {
	switch p.cur.kind {
	case tokString:
		n := Literal{Value: p.cur.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	case tokNumber:
		n, err := parseNumber(p.cur)
		if err != nil {
			return nil, err
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil
	case tokIdent:
		switch p.cur.text {
		case "true":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Literal{Value: true}, nil
		case "false":
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Literal{Value: false}, nil
		}
	}
	return nil, &SyntaxError{Pos: p.cur.pos, Msg: "lists may contain only literals"}
}

func (p *parser) parseCall(name string, depth int) (Node, error) {
	if err := p.advance(); err != nil { // consume (
		return nil, err
	}
	var args []Node
	if p.cur.kind == tokRParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return Call{Name: name, Args: args}, nil
	}
	for {
		arg, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if p.cur.kind == tokComma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		if p.cur.kind == tokRParen {
			if err := p.advance(); err != nil {
				return nil, err
			}
			return Call{Name: name, Args: args}, nil
		}
		return nil, &SyntaxError{Pos: p.cur.pos, Msg: "expected , or ) in call"}
	}
}

func parseNumber(tok token) (Node, error) {
	if n, err := strconv.ParseInt(tok.text, 10, 64); err == nil {
		return Literal{Value: n}, nil
	}
	f, err := strconv.ParseFloat(tok.text, 64)
	if err != nil {
		return nil, &SyntaxError{Pos: tok.pos, Msg: "malformed number " + strconv.Quote(tok.text)}
	}
	return Literal{Value: f}, nil
}
