package css

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
	"unicode"

	parse "github.com/tdewolff/parse/v2"
	"github.com/tdewolff/parse/v2/css"
	"go.uber.org/zap"
)

// Parser parses stylesheet text into the document model.
type Parser struct {
	log *zap.Logger
}

// NewParser creates a new stylesheet parser.
func NewParser(log *zap.Logger) *Parser {
	if log == nil {
		log = zap.NewNop()
	}
	return &Parser{log: log.Named("css-parser")}
}

// Parse parses stylesheet text into a Stylesheet. The optional source
// parameter identifies what is being parsed (for debug logging). On a
// grammar error the items parsed so far are returned together with the
// error.
func (p *Parser) Parse(data []byte, source ...string) (*Stylesheet, error) {
	if len(source) > 0 && source[0] != "" {
		p.log.Debug("Parsing stylesheet", zap.String("source", source[0]), zap.Int("bytes", len(data)))
	}

	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), false)

	decls, items, err := p.parseBlock(parser)
	if len(decls) > 0 {
		// declarations cannot appear outside a rule at the top level
		p.log.Debug("Ignoring stray declarations outside rules", zap.Int("count", len(decls)))
	}
	return &Stylesheet{Items: items}, err
}

// ParseDeclarations parses an inline declaration list, the form used by
// style attributes.
func (p *Parser) ParseDeclarations(data []byte) ([]Declaration, error) {
	parser := css.NewParser(parse.NewInput(bytes.NewReader(data)), true)
	decls, _, err := p.parseBlock(parser)
	return decls, err
}

// parseBlock consumes grammar items until the matching end of the current
// block (or end of input), collecting both declarations (@font-face style
// bodies, inline declaration lists) and rules (top level, @media style
// bodies).
func (p *Parser) parseBlock(parser *css.Parser) ([]Declaration, []StylesheetItem, error) {
	var (
		decls     []Declaration
		items     []StylesheetItem
		selectors []string
	)

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			err := parser.Err()
			if err == nil || errors.Is(err, io.EOF) {
				return decls, items, nil
			}
			return decls, items, err

		case css.EndAtRuleGrammar:
			return decls, items, nil

		case css.QualifiedRuleGrammar:
			// one selector of a comma separated group, the ruleset follows
			selectors = append(selectors, parseSelectors(data, parser.Values())...)

		case css.BeginRulesetGrammar:
			selectors = append(selectors, parseSelectors(data, parser.Values())...)
			ruleDecls, err := p.parseDeclarations(parser)
			if err != nil {
				return decls, items, err
			}
			items = append(items, StylesheetItem{Rule: &Rule{Selectors: selectors, Declarations: ruleDecls}})
			selectors = nil

		case css.BeginAtRuleGrammar:
			at, err := p.parseAtRule(parser, string(data), parser.Values())
			if at != nil {
				items = append(items, StylesheetItem{AtRule: at})
			}
			if err != nil {
				return decls, items, err
			}

		case css.AtRuleGrammar:
			// statement form without a block, e.g. @import or @charset
			items = append(items, StylesheetItem{AtRule: &AtRule{Name: string(data), Prelude: tokenText(parser.Values())}})

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			decls = append(decls, parseDeclaration(string(data), parser.Values()))
		}
	}
}

// parseDeclarations parses property declarations until EndRulesetGrammar.
func (p *Parser) parseDeclarations(parser *css.Parser) ([]Declaration, error) {
	var decls []Declaration

	for {
		gt, _, data := parser.Next()

		switch gt {
		case css.ErrorGrammar:
			err := parser.Err()
			if err == nil || errors.Is(err, io.EOF) {
				return decls, nil
			}
			return decls, err

		case css.EndRulesetGrammar:
			return decls, nil

		case css.DeclarationGrammar, css.CustomPropertyGrammar:
			decls = append(decls, parseDeclaration(string(data), parser.Values()))
		}
	}
}

// parseAtRule parses the body of a block at-rule, recursing into nested
// blocks.
func (p *Parser) parseAtRule(parser *css.Parser, name string, prelude []css.Token) (*AtRule, error) {
	at := &AtRule{Name: name, Prelude: tokenText(prelude), HasBlock: true}

	decls, items, err := p.parseBlock(parser)
	at.Declarations, at.Items = decls, items
	if err != nil {
		return at, err
	}

	p.log.Debug("Parsed at-rule block", zap.String("rule", name), zap.Int("declarations", len(decls)), zap.Int("rules", len(items)))
	return at, nil
}

// parseSelectors builds selector strings from prelude token data, splitting
// a comma separated group on top level commas only (commas inside
// parentheses or brackets, e.g. :is(h1, h2), stay put).
func parseSelectors(data []byte, values []css.Token) []string {
	var (
		sels  []string
		sb    strings.Builder
		depth int
	)
	sb.Write(data)

	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			sels = append(sels, s)
		}
		sb.Reset()
	}

	for _, t := range values {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken, css.LeftBracketToken:
			depth++
		case css.RightParenthesisToken, css.RightBracketToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				flush()
				continue
			}
		case css.WhitespaceToken:
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
			continue
		}
		sb.Write(t.Data)
	}
	flush()
	return sels
}

// parseDeclaration converts declaration value tokens into a value tree after
// extracting a trailing !important marker.
func parseDeclaration(name string, tokens []css.Token) Declaration {
	tokens, important := stripImportant(tokens)
	return Declaration{Property: name, Value: parseValue(tokens), Important: important}
}

// stripImportant removes a trailing "!important" (with any surrounding
// whitespace) from the token list.
func stripImportant(tokens []css.Token) ([]css.Token, bool) {
	i := len(tokens) - 1
	for i >= 0 && tokens[i].TokenType == css.WhitespaceToken {
		i--
	}
	if i < 1 || tokens[i].TokenType != css.IdentToken || !strings.EqualFold(string(tokens[i].Data), "important") {
		return tokens, false
	}
	j := i - 1
	for j >= 0 && tokens[j].TokenType == css.WhitespaceToken {
		j--
	}
	if j < 0 || tokens[j].TokenType != css.DelimToken || string(tokens[j].Data) != "!" {
		return tokens, false
	}
	return tokens[:j], true
}

// parseValue maps declaration value tokens onto the value union. A value
// with top level commas stays Raw so that comma splitting of grouped
// properties operates on the original text. Otherwise the value splits into
// whitespace separated atoms, each parsed on its own, a lone atom stands
// by itself and several atoms form a List.
func parseValue(tokens []css.Token) Value {
	tokens = trimSpaceTokens(tokens)
	if len(tokens) == 0 {
		return Raw{}
	}

	if hasTopLevelComma(tokens) {
		return Raw{Text: tokenText(tokens)}
	}

	atoms := splitAtoms(tokens)
	vals := make([]Value, 0, len(atoms))
	for _, a := range atoms {
		vals = append(vals, parseAtom(a))
	}
	if len(vals) == 1 {
		return vals[0]
	}
	return List{Items: vals}
}

// parseAtom classifies a single whitespace delimited atom.
func parseAtom(tokens []css.Token) Value {
	if len(tokens) == 1 {
		t := tokens[0]
		switch t.TokenType {
		case css.DimensionToken:
			v, unit := parseDimension(string(t.Data))
			if unit == "" {
				return Dimension{Value: v}
			}
			return Dimension{Value: v, Unit: Unit{Numerator: []string{unit}}}
		case css.NumberToken:
			v, _ := strconv.ParseFloat(string(t.Data), 64)
			return Dimension{Value: v}
		case css.PercentageToken:
			v, _ := strconv.ParseFloat(strings.TrimSuffix(string(t.Data), "%"), 64)
			return Dimension{Value: v, Unit: Unit{Numerator: []string{"%"}}}
		case css.StringToken:
			return parseString(string(t.Data))
		}
		// custom property values arrive as one raw token, whitespace included
		return Raw{Text: strings.TrimSpace(string(t.Data))}
	}

	if tokens[0].TokenType == css.FunctionToken && balancedCall(tokens) {
		return parseCall(tokens)
	}
	return Raw{Text: tokenText(tokens)}
}

// parseCall builds a Call from a complete function token group, splitting
// arguments on top level commas and parsing each argument recursively.
func parseCall(tokens []css.Token) Value {
	name := strings.TrimSuffix(string(tokens[0].Data), "(")
	inner := tokens[1 : len(tokens)-1]

	var args []Value
	for _, seg := range splitArgs(inner) {
		args = append(args, parseValue(seg))
	}
	return Call{Name: name, Args: args}
}

// balancedCall reports whether the token group is exactly one function call,
// the closing parenthesis of the opening function being the last token.
func balancedCall(tokens []css.Token) bool {
	depth := 0
	for i, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			depth--
			if depth == 0 {
				return i == len(tokens)-1
			}
			if depth < 0 {
				return false
			}
		}
	}
	return false
}

// splitArgs splits call argument tokens on top level commas.
func splitArgs(tokens []css.Token) [][]css.Token {
	var (
		segs  [][]css.Token
		cur   []css.Token
		depth int
	)
	for _, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				segs = append(segs, trimSpaceTokens(cur))
				cur = nil
				continue
			}
		}
		cur = append(cur, t)
	}
	cur = trimSpaceTokens(cur)
	if len(cur) > 0 || len(segs) > 0 {
		segs = append(segs, cur)
	}
	return segs
}

// splitAtoms splits value tokens into atoms on top level whitespace.
// Whitespace inside a function call belongs to the call atom.
func splitAtoms(tokens []css.Token) [][]css.Token {
	var (
		atoms [][]css.Token
		cur   []css.Token
		depth int
	)
	for _, t := range tokens {
		switch t.TokenType {
		case css.WhitespaceToken:
			if depth == 0 {
				if len(cur) > 0 {
					atoms = append(atoms, cur)
					cur = nil
				}
				continue
			}
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			if depth > 0 {
				depth--
			}
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		atoms = append(atoms, cur)
	}
	return atoms
}

// hasTopLevelComma reports whether a comma occurs outside any parentheses.
func hasTopLevelComma(tokens []css.Token) bool {
	depth := 0
	for _, t := range tokens {
		switch t.TokenType {
		case css.FunctionToken, css.LeftParenthesisToken:
			depth++
		case css.RightParenthesisToken:
			if depth > 0 {
				depth--
			}
		case css.CommaToken:
			if depth == 0 {
				return true
			}
		}
	}
	return false
}

// trimSpaceTokens drops leading and trailing whitespace tokens.
func trimSpaceTokens(tokens []css.Token) []css.Token {
	for len(tokens) > 0 && tokens[0].TokenType == css.WhitespaceToken {
		tokens = tokens[1:]
	}
	for len(tokens) > 0 && tokens[len(tokens)-1].TokenType == css.WhitespaceToken {
		tokens = tokens[:len(tokens)-1]
	}
	return tokens
}

// tokenText joins token data into normalized text, collapsing whitespace
// runs to a single space.
func tokenText(tokens []css.Token) string {
	var parts []string
	for _, t := range tokens {
		if t.TokenType != css.WhitespaceToken {
			parts = append(parts, string(t.Data))
		} else if len(parts) > 0 {
			parts = append(parts, " ")
		}
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

// parseDimension extracts numeric value and unit from dimension token text.
func parseDimension(s string) (float64, string) {
	numEnd := 0
	for i, r := range s {
		if unicode.IsDigit(r) || r == '.' || r == '-' || r == '+' {
			numEnd = i + 1
		} else {
			break
		}
	}
	if numEnd == 0 {
		return 0, ""
	}
	num, _ := strconv.ParseFloat(s[:numEnd], 64)
	return num, s[numEnd:]
}

// parseString splits a string token into its quote character and verbatim
// inner content.
func parseString(s string) Value {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return Str{Text: s[1 : len(s)-1], Quote: s[0]}
	}
	return Raw{Text: s}
}
