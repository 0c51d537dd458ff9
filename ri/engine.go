package ri

import (
	"fmt"
	"strings"
	"sync"

	"ric/css"
)

// Engine rewrites stylesheet declaration values into resolution
// independent form. Safe for concurrent conversions, reconfiguration is a
// setup time operation and must not interleave with active conversions.
type Engine struct {
	mu  sync.RWMutex
	cfg *Config
}

// New creates an engine with defaults overridden by opts. A nil opts keeps
// all defaults.
func New(opts *Options) (*Engine, error) {
	cfg, err := defaultConfig().apply(opts)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: &cfg}, nil
}

// Configure merges a partial option set over the current configuration,
// re-derives MinScaleFactor and swaps the result in. On error the previous
// configuration stays active.
func (e *Engine) Configure(opts *Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cfg, err := e.cfg.apply(opts)
	if err != nil {
		return err
	}
	e.cfg = &cfg
	return nil
}

// Config returns a copy of the effective configuration.
func (e *Engine) Config() Config {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return *e.cfg
}

// VisitDeclaration converts every length in one declaration's value tree.
// The rewritten tree replaces the old one only when the whole declaration
// converts, on error the declaration keeps its original value.
func (e *Engine) VisitDeclaration(d *css.Declaration) error {
	if d == nil || d.Value == nil {
		return nil
	}

	e.mu.RLock()
	cfg := e.cfg
	e.mu.RUnlock()

	val, err := convertValue(cfg, d.Property, d.Value)
	if err != nil {
		return fmt.Errorf("property %q: %w", d.Property, err)
	}
	d.Value = val
	return nil
}

// VisitStylesheet converts every declaration in document order, descending
// into at-rule bodies. The first failing declaration aborts the traversal,
// declarations already converted keep their new values.
func (e *Engine) VisitStylesheet(s *css.Stylesheet) error {
	return s.VisitDeclarations(e.VisitDeclaration)
}

// convertValue dispatches one value node, building a fresh node rather
// than editing in place. Priority: function calls recurse per argument,
// raw text of a comma grouped property splits into segments, other raw
// text tokenizes whole, lists recurse per element and dimensions convert
// directly. Quoted strings never convert.
func convertValue(cfg *Config, property string, v css.Value) (css.Value, error) {
	switch node := v.(type) {
	case css.Call:
		args := make([]css.Value, len(node.Args))
		for i, a := range node.Args {
			conv, err := convertValue(cfg, property, a)
			if err != nil {
				return nil, err
			}
			args[i] = conv
		}
		return css.Call{Name: node.Name, Args: args}, nil

	case css.Raw:
		if cfg.IsGrouped(property) && strings.Contains(node.Text, ",") {
			return convertGroups(cfg, node.Text)
		}
		text, err := cfg.convertTokens(node.Text)
		if err != nil {
			return nil, err
		}
		return css.Raw{Text: text}, nil

	case css.List:
		items := make([]css.Value, len(node.Items))
		for i, item := range node.Items {
			conv, err := convertValue(cfg, property, item)
			if err != nil {
				return nil, err
			}
			items[i] = conv
		}
		return css.List{Items: items}, nil

	case css.Dimension:
		res := cfg.ConvertScalar(node.Value, node.Unit.First())
		return css.Dimension{Value: res.Value, Unit: node.Unit.WithFirst(res.Unit)}, nil
	}

	return v, nil
}

// convertGroups converts each comma separated segment independently and
// rejoins with comma-space, preserving segment order.
func convertGroups(cfg *Config, text string) (css.Value, error) {
	segs := strings.Split(text, ",")
	for i, seg := range segs {
		conv, err := cfg.convertTokens(seg)
		if err != nil {
			return nil, err
		}
		segs[i] = conv
	}
	return css.Raw{Text: strings.Join(segs, ", ")}, nil
}
