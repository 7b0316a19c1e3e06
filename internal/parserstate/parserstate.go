package parserstate

import (
	"github.com/tsvm-lang/teascript/internal/ast"
)

// State produces AST roots from text and supports incremental/partial
// parsing with open-statement detection.
//
// Its shape follows pipeline.PipelineContext carrying accumulated
// tokens across LexerProcessor/ParserProcessor stages (internal/lexer,
// internal/parser/processor.go), simplified to one tokenize-then-parse
// pass per Feed call since this package has no need for a multi-pass
// trait/analyzer pipeline.
type State struct {
	name   string
	source string
}

// New creates a State with no buffered source. name is used for
// diagnostics and attached to every Token/Node's SourceLocation.
func New(name string) *State {
	return &State{name: name}
}

// Parse tokenizes and parses src as one complete program in a single
// call (the common case: a whole file or REPL submission already known
// to be complete). It returns the AST root ready for
// internal/compiler.Compile or direct Evaluate.
func Parse(name, src string) (ast.Node, error) {
	toks, err := tokenizeAll(name, src)
	if err != nil {
		return nil, err
	}
	return newParser(toks).ParseProgram()
}

// tokenizeAll drains a Lexer into a slice, appending a terminating EOF.
func tokenizeAll(name, src string) ([]Token, error) {
	lex := NewLexer(name, src)
	var toks []Token
	for {
		tok, err := lex.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Kind == TokEOF {
			return toks, nil
		}
	}
}

// Feed appends a chunk of source to the State's buffer. Source-location
// continuity across chunks is preserved by re-tokenizing the whole
// accumulated buffer from byte 0 each call rather than trying to splice
// partial token streams — simpler, and the buffer is bounded by one
// interactive session's input, not a large file.
func (s *State) Feed(chunk string) {
	s.source += chunk
}

// IsOpenStatement reports whether the buffered source, if parsed right
// now, would end mid-construct — an unterminated string, a brace/paren/
// bracket nesting that hasn't closed — so a REPL host knows to keep
// prompting for continuation lines rather than attempting to parse.
func (s *State) IsOpenStatement() bool {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s.source); i++ {
		c := s.source[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '(', '{', '[':
			depth++
		case ')', '}', ']':
			depth--
		}
	}
	return inString || depth > 0
}

// TryParse attempts to parse the buffered source. If IsOpenStatement is
// true it returns ok=false without attempting a parse (the buffer is
// known-incomplete); otherwise it parses and, on success, clears the
// buffer so the State is ready for the next statement.
func (s *State) TryParse() (root ast.Node, ok bool, err error) {
	if s.IsOpenStatement() {
		return nil, false, nil
	}
	if s.source == "" {
		return nil, false, nil
	}
	root, err = Parse(s.name, s.source)
	if err != nil {
		return nil, false, err
	}
	s.source = ""
	return root, true, nil
}

// Reset discards any buffered, not-yet-parsed source.
func (s *State) Reset() {
	s.source = ""
}
