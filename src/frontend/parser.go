// parser.go is a hand-written recursive-descent parser producing an *ast.Program
// directly (skipping a separate concrete-syntax-tree stage), unlike the teacher's
// goyacc-generated tree.go: goyacc needs its table generator run as part of the
// build, which this module's toolchain-free build cannot do. The lexer still
// feeds its tokens through a channel from its own goroutine, but scan collects
// the whole stream into a slice before the parser starts walking it.

package frontend

import (
	"fmt"
	"strconv"

	"vsopc/src/ast"
	"vsopc/src/util"
)

// Parse lexes and parses src, returning the resolved-shape (but not yet
// class-graph-resolved) AST, or the first syntax error encountered.
func Parse(src string) (*ast.Program, error) {
	toks, err := scan(src)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseProgram()
}

// Tokenize lexes src into its flat token stream, used by the -l CLI mode.
func Tokenize(src string) ([]token, error) {
	return scan(src)
}

// scan runs the lexer to completion and collects its token stream, stopping at
// the first error token.
func scan(src string) ([]token, error) {
	l := newLexer(src)
	go l.run()

	var toks []token
	for t := range l.items {
		if t.typ == tokError {
			return nil, fmt.Errorf("vsopc: %d:%d: lexical error: %s", t.line, t.col, t.val)
		}
		toks = append(toks, t)
		if t.typ == tokEOF {
			break
		}
	}
	return toks, nil
}

// parser walks a pre-scanned token slice with arbitrary lookahead.
type parser struct {
	toks []token
	pos  int
}

func (p *parser) cur() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(n int) token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *parser) advance() token {
	t := p.cur()
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) at(typ tokenType) bool {
	return p.cur().typ == typ
}

func (p *parser) expect(typ tokenType) (token, error) {
	if !p.at(typ) {
		return token{}, p.errf("expected %s, found %s", tokenName(typ), tokenName(p.cur().typ))
	}
	return p.advance(), nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	t := p.cur()
	return fmt.Errorf("vsopc: %d:%d: syntax error: %s", t.line, t.col, fmt.Sprintf(format, args...))
}

func (t token) pos() util.Pos {
	return util.Pos{Line: t.line, Col: t.col}
}

// -------------------------
// ----- declarations ------
// -------------------------

func (p *parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{Classes: map[string]*ast.Class{}}
	for !p.at(tokEOF) {
		c, err := p.parseClass()
		if err != nil {
			return nil, err
		}
		prog.Order = append(prog.Order, c)
		if _, dup := prog.Classes[c.Name]; !dup {
			prog.Classes[c.Name] = c
		}
	}
	return prog, nil
}

func (p *parser) parseClass() (*ast.Class, error) {
	kw, err := p.expect(tokClass)
	if err != nil {
		return nil, err
	}
	name, err := p.expect(tokTypeIdentifier)
	if err != nil {
		return nil, err
	}
	c := &ast.Class{Name: name.val, ParentName: "Object", Pos: kw.pos()}

	if p.at(tokExtends) {
		p.advance()
		parent, err := p.expect(tokTypeIdentifier)
		if err != nil {
			return nil, err
		}
		c.ParentName = parent.val
	}

	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	for !p.at(tokRBrace) {
		id, err := p.expect(tokObjectIdentifier)
		if err != nil {
			return nil, err
		}
		if p.at(tokLParen) {
			m, err := p.parseMethod(id)
			if err != nil {
				return nil, err
			}
			m.Owner = c
			c.Methods = append(c.Methods, m)
		} else {
			f, err := p.parseField(id)
			if err != nil {
				return nil, err
			}
			f.Owner = c
			c.Fields = append(c.Fields, f)
		}
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	return c, nil
}

// parseField parses the remainder of a field declaration after its name has
// already been consumed: ": Type [<- Expr] ;".
func (p *parser) parseField(name token) (*ast.Field, error) {
	if _, err := p.expect(tokColon); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	f := &ast.Field{Name: name.val, Type: typ, Pos: name.pos()}
	if p.at(tokAssign) {
		p.advance()
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		f.Init = init
	}
	if _, err := p.expect(tokSemicolon); err != nil {
		return nil, err
	}
	return f, nil
}

// parseMethod parses the remainder of a method declaration after its name has
// already been consumed: "( [Formals] ) : Type Block".
func (p *parser) parseMethod(name token) (*ast.Method, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	m := &ast.Method{Name: name.val, Pos: name.pos()}
	if !p.at(tokRParen) {
		for {
			fname, err := p.expect(tokObjectIdentifier)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(tokColon); err != nil {
				return nil, err
			}
			ftyp, err := p.parseType()
			if err != nil {
				return nil, err
			}
			m.Formals = append(m.Formals, &ast.Formal{Name: fname.val, Type: ftyp, Pos: fname.pos()})
			if !p.at(tokComma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	m.ReturnType = typ
	body, err := p.parseBlockOrExpr()
	if err != nil {
		return nil, err
	}
	m.Body = body
	return m, nil
}

func (p *parser) parseType() (string, error) {
	switch p.cur().typ {
	case tokInt32, tokBool, tokString_, tokUnit:
		return p.advance().val, nil
	case tokTypeIdentifier:
		return p.advance().val, nil
	}
	return "", p.errf("expected a type, found %s", tokenName(p.cur().typ))
}

// -----------------------
// ----- expressions -----
// -----------------------

// parseBlockOrExpr parses a method body or a block expression: "{" Expr {";"
// Expr} "}". A single-expression block collapses to that expression rather than
// a one-element KindBlock, matching how the rest of the checker/lowerer treat a
// bare expression and a singleton block identically.
func (p *parser) parseBlockOrExpr() (*ast.Expr, error) {
	open, err := p.expect(tokLBrace)
	if err != nil {
		return nil, err
	}
	var exprs []*ast.Expr
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, e)
		if !p.at(tokSemicolon) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(tokRBrace); err != nil {
		return nil, err
	}
	if len(exprs) == 1 {
		return exprs[0], nil
	}
	return &ast.Expr{Kind: ast.KindBlock, Pos: open.pos(), Exprs: exprs}, nil
}

func (p *parser) parseExpr() (*ast.Expr, error) {
	return p.parseAssign()
}

// parseAssign handles "ObjectId <- Expr", right-associative and lowest
// precedence; anything else falls through to the boolean/and level.
func (p *parser) parseAssign() (*ast.Expr, error) {
	if p.at(tokObjectIdentifier) && p.peekAt(1).typ == tokAssign {
		name := p.advance()
		p.advance() // <-
		rhs, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.KindAssign, Pos: name.pos(), Name: name.val, Rhs: rhs}, nil
	}
	return p.parseAnd()
}

func (p *parser) parseAnd() (*ast.Expr, error) {
	lhs, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.at(tokAnd) {
		op := p.advance()
		rhs, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Expr{Kind: ast.KindBinOp, Pos: op.pos(), Op: "and", Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseNot() (*ast.Expr, error) {
	if p.at(tokNot) {
		op := p.advance()
		operand, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.KindUnOp, Pos: op.pos(), Op: "not", Operand: operand}, nil
	}
	return p.parseCompare()
}

func (p *parser) parseCompare() (*ast.Expr, error) {
	lhs, err := p.parseAdd()
	if err != nil {
		return nil, err
	}
	switch p.cur().typ {
	case tokEquals, tokLower, tokLowerEqual:
		op := p.advance()
		rhs, err := p.parseAdd()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.KindBinOp, Pos: op.pos(), Op: tokenName(op.typ), Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

func (p *parser) parseAdd() (*ast.Expr, error) {
	lhs, err := p.parseMul()
	if err != nil {
		return nil, err
	}
	for p.cur().typ == tokPlus || p.cur().typ == tokMinus {
		op := p.advance()
		rhs, err := p.parseMul()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Expr{Kind: ast.KindBinOp, Pos: op.pos(), Op: tokenName(op.typ), Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseMul() (*ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().typ == tokTimes || p.cur().typ == tokDiv {
		op := p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Expr{Kind: ast.KindBinOp, Pos: op.pos(), Op: tokenName(op.typ), Lhs: lhs, Rhs: rhs}
	}
	return lhs, nil
}

func (p *parser) parseUnary() (*ast.Expr, error) {
	if p.at(tokMinus) {
		op := p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.KindUnOp, Pos: op.pos(), Op: "-", Operand: operand}, nil
	}
	return p.parseIsnull()
}

func (p *parser) parseIsnull() (*ast.Expr, error) {
	if p.at(tokIsnull) {
		op := p.advance()
		operand, err := p.parseIsnull()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.KindUnOp, Pos: op.pos(), Op: "isnull", Operand: operand}, nil
	}
	return p.parsePow()
}

func (p *parser) parsePow() (*ast.Expr, error) {
	lhs, err := p.parsePostfix()
	if err != nil {
		return nil, err
	}
	if p.at(tokPow) {
		op := p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.KindBinOp, Pos: op.pos(), Op: "^", Lhs: lhs, Rhs: rhs}, nil
	}
	return lhs, nil
}

// parsePostfix handles the ".method(args)" call suffix chain on an atom.
func (p *parser) parsePostfix() (*ast.Expr, error) {
	e, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	for p.at(tokDot) {
		dot := p.advance()
		name, err := p.expect(tokObjectIdentifier)
		if err != nil {
			return nil, err
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		e = &ast.Expr{Kind: ast.KindCall, Pos: dot.pos(), Receiver: e, Method: name.val, Args: args}
	}
	return e, nil
}

func (p *parser) parseArgs() ([]*ast.Expr, error) {
	if _, err := p.expect(tokLParen); err != nil {
		return nil, err
	}
	var args []*ast.Expr
	if !p.at(tokRParen) {
		for {
			a, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if !p.at(tokComma) {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(tokRParen); err != nil {
		return nil, err
	}
	return args, nil
}

func (p *parser) parseAtom() (*ast.Expr, error) {
	t := p.cur()
	switch t.typ {
	case tokInteger:
		p.advance()
		n, err := parseIntegerLiteral(t.val)
		if err != nil {
			return nil, p.errFor(t, "%s", err)
		}
		return &ast.Expr{Kind: ast.KindInteger, Pos: t.pos(), IntVal: n}, nil
	case tokTrue:
		p.advance()
		return &ast.Expr{Kind: ast.KindBoolean, Pos: t.pos(), BoolVal: true}, nil
	case tokFalse:
		p.advance()
		return &ast.Expr{Kind: ast.KindBoolean, Pos: t.pos(), BoolVal: false}, nil
	case tokString:
		p.advance()
		s, err := unescape(t.val)
		if err != nil {
			return nil, p.errFor(t, "%s", err)
		}
		return &ast.Expr{Kind: ast.KindString, Pos: t.pos(), StrVal: s}, nil
	case tokSelf:
		p.advance()
		return &ast.Expr{Kind: ast.KindSelf, Pos: t.pos()}, nil
	case tokNew:
		p.advance()
		cname, err := p.expect(tokTypeIdentifier)
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.KindNew, Pos: t.pos(), Name: cname.val}, nil
	case tokIf:
		return p.parseIf()
	case tokWhile:
		return p.parseWhile()
	case tokLet:
		return p.parseLet()
	case tokLBrace:
		return p.parseBlockOrExpr()
	case tokLParen:
		p.advance()
		if p.at(tokRParen) {
			p.advance()
			return &ast.Expr{Kind: ast.KindUnit, Pos: t.pos()}, nil
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
		return e, nil
	case tokObjectIdentifier:
		p.advance()
		if p.at(tokLParen) {
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			return &ast.Expr{Kind: ast.KindCall, Pos: t.pos(), Method: t.val, Args: args}, nil
		}
		return &ast.Expr{Kind: ast.KindIdentifier, Pos: t.pos(), Name: t.val}, nil
	}
	return nil, p.errf("unexpected token %s while parsing an expression", tokenName(t.typ))
}

func (p *parser) errFor(t token, format string, args ...interface{}) error {
	return fmt.Errorf("vsopc: %d:%d: syntax error: %s", t.line, t.col, fmt.Sprintf(format, args...))
}

func (p *parser) parseIf() (*ast.Expr, error) {
	kw := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokThen); err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	e := &ast.Expr{Kind: ast.KindIf, Pos: kw.pos(), Cond: cond, Then: then}
	if p.at(tokElse) {
		p.advance()
		els, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.Else = els
	}
	return e, nil
}

func (p *parser) parseWhile() (*ast.Expr, error) {
	kw := p.advance()
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokDo); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Expr{Kind: ast.KindWhile, Pos: kw.pos(), Cond: cond, Body: body}, nil
}

func (p *parser) parseLet() (*ast.Expr, error) {
	kw := p.advance()
	name, err := p.expect(tokObjectIdentifier)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(tokColon); err != nil {
		return nil, err
	}
	typ, err := p.parseType()
	if err != nil {
		return nil, err
	}
	e := &ast.Expr{Kind: ast.KindLet, Pos: kw.pos(), LetName: name.val, LetType: typ}
	if p.at(tokAssign) {
		p.advance()
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		e.LetInit = init
	}
	if _, err := p.expect(tokIn); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	e.LetBody = body
	return e, nil
}

// parseIntegerLiteral parses a decimal or 0x-hex literal into an int32,
// matching spec.md's 32-bit wraparound-on-overflow rule rather than rejecting
// out-of-range literals.
func parseIntegerLiteral(s string) (int32, error) {
	n, err := strconv.ParseUint(trimIntegerBase(s), intBase(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer literal %q", s)
	}
	return int32(uint32(n)), nil
}

func intBase(s string) int {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return 16
	}
	return 10
}

func trimIntegerBase(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
