package parserstate

import (
	"strconv"

	"github.com/tsvm-lang/teascript/internal/ast"
	"github.com/tsvm-lang/teascript/internal/teaerr"
	"github.com/tsvm-lang/teascript/internal/value"
)

// binaryOpTexts/bitOpTexts partition the infix operator vocabulary
// between ast.NewBinaryOp and ast.NewBitOp.
var binaryOpTexts = map[string]bool{
	"+": true, "-": true, "*": true, "/": true, "mod": true,
	"<": true, "<=": true, ">": true, ">=": true, "==": true, "!=": true,
	"and": true, "or": true, "@@": true, "%": true,
}

var bitOpTexts = map[string]bool{
	"bit_and": true, "bit_or": true, "bit_xor": true,
	"bit_lsh": true, "bit_rsh": true,
}

// Parser drives ast.Insert/ast.Close over a Token stream to build one
// statement's AST per call, rotating the right spine as each new token
// arrives and closing it back up at statement boundaries. One Parser
// instance parses one complete chunk of source into a Node; State
// (parserstate.go) wraps repeated Parser runs for incremental, partial
// parsing.
type Parser struct {
	toks []Token
	pos  int
}

func newParser(toks []Token) *Parser {
	return &Parser{toks: toks}
}

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) peekAt(n int) Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}
func (p *Parser) advance() Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) skipNewlines() {
	for p.cur().Kind == TokNewline || p.cur().Kind == TokSemicolon {
		p.advance()
	}
}

func (p *Parser) expect(kind TokenKind, text string) (Token, error) {
	t := p.cur()
	if t.Kind != kind || (text != "" && t.Text != text) {
		return Token{}, teaerr.Newf(teaerr.KindParsing, t.Loc, "expected %q, got %q", text, t.Text)
	}
	return p.advance(), nil
}

// ParseProgram parses the whole token stream as a statement-list block,
// matching the top-level Expression/ModeCondition shape the compiler and
// VM tests already build by hand (internal/tsvm/vm_test.go).
func (p *Parser) ParseProgram() (ast.Node, error) {
	root := ast.NewExpression(p.cur().Loc, ast.ModeCondition)
	p.skipNewlines()
	for p.cur().Kind != TokEOF {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		root.AddChild(stmt)
		p.skipNewlines()
	}
	return root, nil
}

func (p *Parser) parseBlock() (ast.Node, error) {
	if _, err := p.expect(TokLBrace, "{"); err != nil {
		return nil, err
	}
	block := ast.NewExpression(p.cur().Loc, ast.ModeCondition)
	p.skipNewlines()
	for p.cur().Kind != TokRBrace {
		if p.cur().Kind == TokEOF {
			return nil, teaerr.New(teaerr.KindParsing, p.cur().Loc, "unterminated block, expected '}'")
		}
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		block.AddChild(stmt)
		p.skipNewlines()
	}
	p.advance() // consume '}'
	return block, nil
}

// parseStatement recognizes the statement-level constructs (If,
// Repeat, Forall, Function, control nodes) and falls back to a plain
// expression statement (which covers Assign too, since assignment is
// just the highest-precedence infix operator of 's table).
func (p *Parser) parseStatement() (ast.Node, error) {
	t := p.cur()

	// label: repeat { ... }
	if t.Kind == TokIdent && p.peekAt(1).Kind == TokColon && p.peekAt(2).Kind == TokKeyword && p.peekAt(2).Text == "repeat" {
		label := t.Text
		p.advance()
		p.advance()
		return p.parseRepeat(label)
	}
	if t.Kind == TokIdent && p.peekAt(1).Kind == TokColon && p.peekAt(2).Kind == TokKeyword && p.peekAt(2).Text == "forall" {
		label := t.Text
		p.advance()
		p.advance()
		return p.parseForall(label)
	}

	if t.Kind == TokKeyword {
		switch t.Text {
		case "if":
			return p.parseIf()
		case "repeat":
			p.advance()
			return p.parseRepeat("")
		case "forall":
			p.advance()
			return p.parseForall("")
		case "function":
			return p.parseFunctionDef()
		case "stop", "loop":
			return p.parseLoopCtl()
		case "return", "exit", "yield":
			return p.parseUnaryResultCtl()
		case "suspend":
			p.advance()
			return ast.NewSuspend(t.Loc), nil
		}
	}

	return p.parseExpr()
}

func (p *Parser) parseIf() (ast.Node, error) {
	loc := p.advance().Loc // 'if'
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := ast.NewIf(loc)
	node.AddChild(cond)
	node.AddChild(then)

	save := p.pos
	p.skipNewlinesNoConsumeSemis()
	if p.cur().Kind == TokKeyword && p.cur().Text == "else" {
		p.advance()
		if p.cur().Kind == TokKeyword && p.cur().Text == "if" {
			elseIf, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			node.AddChild(elseIf)
		} else {
			elseBlock, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			node.AddChild(elseBlock)
		}
	} else {
		p.pos = save
	}
	return node, nil
}

// skipNewlinesNoConsumeSemis skips newlines only, used between a
// then-block's closing brace and a possible "else" so a statement
// separator on the same construct doesn't swallow an unrelated following
// statement's semicolon.
func (p *Parser) skipNewlinesNoConsumeSemis() {
	for p.cur().Kind == TokNewline {
		p.advance()
	}
}

func (p *Parser) parseRepeat(label string) (ast.Node, error) {
	loc := p.cur().Loc
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := ast.NewRepeat(loc, label)
	node.AddChild(body)
	return node, nil
}

func (p *Parser) parseForall(label string) (ast.Node, error) {
	loc := p.cur().Loc
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	varTok, err := p.expect(TokIdent, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokKeyword, "in"); err != nil {
		return nil, err
	}
	seq, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokRParen, ")"); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	node := ast.NewForall(loc, label, varTok.Text)
	node.AddChild(seq)
	node.AddChild(body)
	return node, nil
}

func (p *Parser) parseFunctionDef() (ast.Node, error) {
	loc := p.advance().Loc // 'function'
	nameTok, err := p.expect(TokIdent, "")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokLParen, "("); err != nil {
		return nil, err
	}
	spec := ast.NewParamSpec(loc)
	for p.cur().Kind != TokRParen {
		const_ := false
		shared := false
		if p.cur().Kind == TokKeyword && p.cur().Text == "const" {
			const_ = true
			p.advance()
		}
		if p.cur().Kind == TokOp && p.cur().Text == "@" {
			shared = true
			p.advance()
		}
		nameTok, err := p.expect(TokIdent, "")
		if err != nil {
			return nil, err
		}
		var param *ast.Param
		if p.cur().Kind == TokOp && p.cur().Text == ":=" {
			p.advance()
			def, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			param = ast.NewFromParamOr(nameTok.Loc, nameTok.Text, const_, shared, def)
		} else {
			param = ast.NewFromParam(nameTok.Loc, nameTok.Text, const_, shared)
		}
		spec.AddChild(param)
		if p.cur().Kind == TokComma {
			p.advance()
		}
	}
	p.advance() // ')'
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	fn := ast.NewFunction(loc, nameTok.Text)
	fn.AddChild(spec)
	fn.AddChild(body)
	return fn, nil
}

// parseLoopCtl handles `stop [label] [expr]` and `loop [label]`.
func (p *Parser) parseLoopCtl() (ast.Node, error) {
	t := p.advance()
	label := ""
	if p.cur().Kind == TokIdent {
		label = p.advance().Text
	}
	if t.Text == "loop" {
		return ast.NewLoop(t.Loc, label), nil
	}
	node := ast.NewStop(t.Loc, label)
	if p.atExpressionStart() {
		result, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		node.AddChild(result)
	}
	return node, nil
}

// parseUnaryResultCtl handles `return [expr]`, `exit [expr]`, `yield
// [expr]`.
func (p *Parser) parseUnaryResultCtl() (ast.Node, error) {
	t := p.advance()
	var result ast.Node
	if p.atExpressionStart() {
		r, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		result = r
	}
	switch t.Text {
	case "return":
		n := ast.NewReturn(t.Loc)
		if result != nil {
			n.AddChild(result)
		}
		return n, nil
	case "exit":
		n := ast.NewExit(t.Loc)
		if result != nil {
			n.AddChild(result)
		}
		return n, nil
	default: // yield
		n := ast.NewYield(t.Loc)
		if result != nil {
			n.AddChild(result)
		}
		return n, nil
	}
}

// atExpressionStart reports whether the current token can begin an
// expression, used to decide whether stop/return/exit/yield carry an
// optional trailing result expression.
func (p *Parser) atExpressionStart() bool {
	switch p.cur().Kind {
	case TokNewline, TokSemicolon, TokRBrace, TokEOF:
		return false
	}
	return true
}

// parseExpr parses one expression using the "Rebuilding during add"
// incremental rotation: ast.Insert absorbs each newly-seen infix operator
// into the in-progress tree at the correct precedence, and ast.Close
// attaches the next complete operand into the resulting open slot.
func (p *Parser) parseExpr() (ast.Node, error) {
	def, const_, err := p.parseAssignPrefix()
	if err != nil {
		return nil, err
	}

	root, err := p.parseUnaryPrimary()
	if err != nil {
		return nil, err
	}

	for {
		t := p.cur()
		opText := ""
		if t.Kind == TokOp || t.Kind == TokKeyword {
			opText = t.Text
		}
		switch {
		case opText == ":=" || opText == "@=":
			assignShared := opText == "@="
			mode := ast.AssignPlain
			if def {
				mode = ast.AssignDef
			} else if const_ {
				mode = ast.AssignConst
			}
			node := ast.NewAssign(t.Loc, mode, assignShared)
			p.advance()
			root = ast.Insert(root, node)
			rhs, err := p.parseUnaryPrimary()
			if err != nil {
				return nil, err
			}
			if _, ok := ast.Close(root, rhs); !ok {
				return nil, teaerr.New(teaerr.KindCompile, t.Loc, "assignment target is not assignable")
			}
		case binaryOpTexts[opText]:
			node := ast.NewBinaryOp(t.Loc, opText)
			p.advance()
			root = ast.Insert(root, node)
			rhs, err := p.parseUnaryPrimary()
			if err != nil {
				return nil, err
			}
			if _, ok := ast.Close(root, rhs); !ok {
				return nil, teaerr.New(teaerr.KindCompile, t.Loc, "malformed binary expression")
			}
		case bitOpTexts[opText]:
			node := ast.NewBitOp(t.Loc, opText)
			p.advance()
			root = ast.Insert(root, node)
			rhs, err := p.parseUnaryPrimary()
			if err != nil {
				return nil, err
			}
			if _, ok := ast.Close(root, rhs); !ok {
				return nil, teaerr.New(teaerr.KindCompile, t.Loc, "malformed bit expression")
			}
		default:
			return root, nil
		}
	}
}

// parseAssignPrefix consumes an optional `def`/`const` keyword preceding
// an assignment's LHS ("Assign": "three modes — plain assign,
// def-assign (declares), const-assign (declares const)").
func (p *Parser) parseAssignPrefix() (def, const_ bool, err error) {
	if p.cur().Kind == TokKeyword && p.cur().Text == "def" {
		p.advance()
		def = true
	} else if p.cur().Kind == TokKeyword && p.cur().Text == "const" {
		p.advance()
		const_ = true
	}
	return
}

// parseUnaryPrimary parses an optional unary prefix operator followed by
// a postfix-decorated primary (dot/subscript/call chains), which together
// form one operand slot in the precedence-climbing loop above.
func (p *Parser) parseUnaryPrimary() (ast.Node, error) {
	t := p.cur()
	unaryOp := ""
	switch {
	case t.Kind == TokKeyword && t.Text == "not":
		unaryOp = ast.OpNot
	case t.Kind == TokKeyword && t.Text == "bit_not":
		unaryOp = ast.OpBitNot
	case t.Kind == TokKeyword && t.Text == "typeof":
		unaryOp = ast.OpTypeof
	case t.Kind == TokKeyword && t.Text == "typename":
		unaryOp = ast.OpTypename
	case t.Kind == TokOp && t.Text == "-":
		unaryOp = ast.OpNeg
	case t.Kind == TokOp && t.Text == "+":
		unaryOp = ast.OpPos
	case t.Kind == TokOp && t.Text == "@?":
		unaryOp = ast.OpShareCnt
	}
	if unaryOp != "" {
		p.advance()
		operand, err := p.parseUnaryPrimary()
		if err != nil {
			return nil, err
		}
		node := ast.NewUnaryOp(t.Loc, unaryOp)
		node.AddChild(operand)
		return node, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Node, error) {
	node, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		switch {
		case t.Kind == TokOp && t.Text == ".":
			p.advance()
			if p.cur().Kind == TokInt {
				idxTok := p.advance()
				idx, _ := strconv.ParseInt(idxTok.Text, 10, 64)
				dot := ast.NewDotOpByIndex(t.Loc, idx)
				dot.AddChild(node)
				node = dot
				continue
			}
			nameTok, err := p.expect(TokIdent, "")
			if err != nil {
				return nil, err
			}
			dot := ast.NewDotOpByKey(t.Loc, nameTok.Text)
			dot.AddChild(node)
			node = dot
		case t.Kind == TokLBracket:
			p.advance()
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokRBracket, "]"); err != nil {
				return nil, err
			}
			sub := ast.NewSubscript(t.Loc)
			sub.AddChild(node)
			sub.AddChild(idx)
			node = sub
		case t.Kind == TokLParen:
			p.advance()
			args := ast.NewParamList(t.Loc)
			for p.cur().Kind != TokRParen {
				arg, err := p.parseExpr()
				if err != nil {
					return nil, err
				}
				args.AddChild(arg)
				if p.cur().Kind == TokComma {
					p.advance()
				}
			}
			p.advance() // ')'
			call := ast.NewCallFunc(t.Loc)
			call.AddChild(node)
			call.AddChild(args)
			node = call
		default:
			return node, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	t := p.cur()
	switch t.Kind {
	case TokInt:
		p.advance()
		iv, err := strconv.ParseInt(t.Text, 10, 64)
		if err != nil {
			return nil, teaerr.Newf(teaerr.KindParsing, t.Loc, "invalid integer literal %q", t.Text)
		}
		return ast.NewConstant(t.Loc, value.I64Val(iv)), nil
	case TokFloat:
		p.advance()
		fv, err := strconv.ParseFloat(t.Text, 64)
		if err != nil {
			return nil, teaerr.Newf(teaerr.KindParsing, t.Loc, "invalid float literal %q", t.Text)
		}
		return ast.NewConstant(t.Loc, value.F64Val(fv)), nil
	case TokString:
		p.advance()
		return ast.NewConstant(t.Loc, value.StringVal(t.Text)), nil
	case TokIdent:
		p.advance()
		return ast.NewIdentifier(t.Loc, t.Text), nil
	case TokKeyword:
		switch t.Text {
		case "true":
			p.advance()
			return ast.NewConstant(t.Loc, value.BoolVal(true)), nil
		case "false":
			p.advance()
			return ast.NewConstant(t.Loc, value.BoolVal(false)), nil
		case "NaV":
			p.advance()
			return ast.NewConstant(t.Loc, value.NaV()), nil
		}
	case TokLParen:
		return p.parseParenOrTuple()
	}
	return nil, teaerr.Newf(teaerr.KindParsing, t.Loc, "unexpected token %q", t.Text)
}

// parseParenOrTuple parses `( expr )` as a grouped expression, or `( a,
// b, key: val )` as a Tuple literal ("Tuple / array duality", // "Expression ... composed Tuple if several").
func (p *Parser) parseParenOrTuple() (ast.Node, error) {
	loc := p.advance().Loc // '('
	group := ast.NewExpression(loc, ast.ModeExpression)
	for p.cur().Kind != TokRParen {
		elemLoc := p.cur().Loc
		key := ""
		hasKey := false
		if p.cur().Kind == TokIdent && p.peekAt(1).Kind == TokColon {
			key = p.advance().Text
			p.advance() // ':'
			hasKey = true
		}
		val, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		group.AddChild(ast.NewTupleElement(elemLoc, key, hasKey, val))
		if p.cur().Kind == TokComma {
			p.advance()
		}
	}
	p.advance() // ')'
	return group, nil
}
