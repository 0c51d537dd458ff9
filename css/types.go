package css

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Unit describes the unit part of a Dimension. Numerator keeps unit symbols
// in order, position 0 is the one that prints. Backup preserves the original
// spelling and is consulted only when the numerator list is empty.
type Unit struct {
	Numerator []string
	Backup    string
}

// First returns the authoritative unit symbol.
func (u Unit) First() string {
	if len(u.Numerator) > 0 {
		return u.Numerator[0]
	}
	return u.Backup
}

// WithFirst returns a copy of the unit with the authoritative symbol
// replaced. The receiver is not modified.
func (u Unit) WithFirst(sym string) Unit {
	if len(u.Numerator) == 0 {
		if sym == "" {
			return u
		}
		return Unit{Numerator: []string{sym}, Backup: u.Backup}
	}
	num := make([]string, len(u.Numerator))
	copy(num, u.Numerator)
	num[0] = sym
	return Unit{Numerator: num, Backup: u.Backup}
}

func (u Unit) String() string {
	return u.First()
}

// Value is a single node in a declaration's value tree. Exactly five shapes
// exist: Dimension, List, Call, Raw and Str.
type Value interface {
	fmt.Stringer
	valueNode()
}

// Dimension is a numeric magnitude with a unit descriptor.
type Dimension struct {
	Value float64
	Unit  Unit
}

// List is an ordered sequence of values separated by whitespace.
type List struct {
	Items []Value
}

// Call is a function invocation with ordered arguments.
type Call struct {
	Name string
	Args []Value
}

// Raw is unparsed value text. It may still carry convertible length tokens,
// the conversion engine tokenizes it on demand.
type Raw struct {
	Text string
}

// Str is a quoted string. Text keeps the inner content verbatim, including
// any escapes, so serialization round-trips exactly.
type Str struct {
	Text  string
	Quote byte
}

func (Dimension) valueNode() {}
func (List) valueNode()      {}
func (Call) valueNode()      {}
func (Raw) valueNode()       {}
func (Str) valueNode()       {}

// FormatNumber renders a magnitude the way it appears in stylesheet output:
// shortest decimal form, never scientific notation.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func (d Dimension) String() string {
	return FormatNumber(d.Value) + d.Unit.First()
}

func (l List) String() string {
	parts := make([]string, len(l.Items))
	for i, item := range l.Items {
		parts[i] = item.String()
	}
	return strings.Join(parts, " ")
}

func (c Call) String() string {
	parts := make([]string, len(c.Args))
	for i, arg := range c.Args {
		parts[i] = arg.String()
	}
	return c.Name + "(" + strings.Join(parts, ", ") + ")"
}

func (r Raw) String() string {
	return r.Text
}

func (s Str) String() string {
	q := s.Quote
	if q == 0 {
		q = '"'
	}
	return string(q) + s.Text + string(q)
}

// Declaration is one property/value pair. The conversion engine rewrites
// Value by swapping in a freshly built tree, it never edits nodes in place.
type Declaration struct {
	Property  string
	Value     Value
	Important bool
}

func (d Declaration) String() string {
	var sb strings.Builder
	sb.WriteString(d.Property)
	sb.WriteString(": ")
	if d.Value != nil {
		sb.WriteString(d.Value.String())
	}
	if d.Important {
		sb.WriteString(" !important")
	}
	return sb.String()
}

// Rule is a selector group with its ordered declarations. Order and
// duplicate properties are preserved exactly as parsed.
type Rule struct {
	Selectors    []string
	Declarations []Declaration
}

// AtRule covers every @-construct: statement forms such as @import or
// @charset (HasBlock false, Prelude only), declaration blocks such as
// @font-face or @page, and grouping blocks such as @media, @supports or
// @keyframes whose nested content lands in Items.
type AtRule struct {
	Name         string
	Prelude      string
	HasBlock     bool
	Declarations []Declaration
	Items        []StylesheetItem
}

// StylesheetItem is a single top-level item. Exactly one of Rule or AtRule
// is non-nil.
type StylesheetItem struct {
	Rule   *Rule
	AtRule *AtRule
}

// Stylesheet is a parsed stylesheet, items in source order.
type Stylesheet struct {
	Items []StylesheetItem
}

// VisitDeclarations calls fn for every declaration in document order,
// descending into at-rule bodies and nested blocks. Traversal stops on the
// first error, which is returned.
func (s *Stylesheet) VisitDeclarations(fn func(*Declaration) error) error {
	return visitItems(s.Items, fn)
}

func visitItems(items []StylesheetItem, fn func(*Declaration) error) error {
	for i := range items {
		switch {
		case items[i].Rule != nil:
			if err := visitDeclarations(items[i].Rule.Declarations, fn); err != nil {
				return err
			}
		case items[i].AtRule != nil:
			at := items[i].AtRule
			if err := visitDeclarations(at.Declarations, fn); err != nil {
				return err
			}
			if err := visitItems(at.Items, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

func visitDeclarations(decls []Declaration, fn func(*Declaration) error) error {
	for i := range decls {
		if err := fn(&decls[i]); err != nil {
			return err
		}
	}
	return nil
}

// WriteTo writes the stylesheet to w in source order, implementing
// io.WriterTo. Output is normalized pretty-printed form: two space indent,
// one declaration per line, blank line between top level items.
func (s *Stylesheet) WriteTo(w io.Writer) (int64, error) {
	var total int64
	for i := range s.Items {
		n, err := writeItem(w, &s.Items[i], "")
		total += int64(n)
		if err != nil {
			return total, err
		}
		if i < len(s.Items)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += int64(n)
			if err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// String returns the stylesheet text.
func (s *Stylesheet) String() string {
	var sb strings.Builder
	s.WriteTo(&sb) //nolint:errcheck
	return sb.String()
}

func writeItem(w io.Writer, item *StylesheetItem, indent string) (int, error) {
	switch {
	case item.Rule != nil:
		return writeRule(w, item.Rule, indent)
	case item.AtRule != nil:
		return writeAtRule(w, item.AtRule, indent)
	}
	return 0, nil
}

func writeRule(w io.Writer, rule *Rule, indent string) (int, error) {
	var total int
	n, err := fmt.Fprintf(w, "%s%s {\n", indent, strings.Join(rule.Selectors, ", "))
	total += n
	if err != nil {
		return total, err
	}
	n, err = writeDeclarations(w, rule.Declarations, indent+"  ")
	total += n
	if err != nil {
		return total, err
	}
	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += n
	return total, err
}

func writeDeclarations(w io.Writer, decls []Declaration, indent string) (int, error) {
	var total int
	for i := range decls {
		n, err := fmt.Fprintf(w, "%s%s;\n", indent, decls[i].String())
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func writeAtRule(w io.Writer, at *AtRule, indent string) (int, error) {
	var total int

	head := at.Name
	if at.Prelude != "" {
		head += " " + at.Prelude
	}

	if !at.HasBlock {
		n, err := fmt.Fprintf(w, "%s%s;\n", indent, head)
		total += n
		return total, err
	}

	n, err := fmt.Fprintf(w, "%s%s {\n", indent, head)
	total += n
	if err != nil {
		return total, err
	}

	n, err = writeDeclarations(w, at.Declarations, indent+"  ")
	total += n
	if err != nil {
		return total, err
	}

	for i := range at.Items {
		n, err = writeItem(w, &at.Items[i], indent+"  ")
		total += n
		if err != nil {
			return total, err
		}
		if i < len(at.Items)-1 {
			n, err = fmt.Fprint(w, "\n")
			total += n
			if err != nil {
				return total, err
			}
		}
	}

	n, err = fmt.Fprintf(w, "%s}\n", indent)
	total += n
	return total, err
}
