// Package ri converts fixed size stylesheet lengths into resolution
// independent form: values in the source unit scale into a root relative
// unit against a base size, with a clamp floor keeping small values usable
// at low resolutions.
package ri

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/multierr"
)

// Default conversion parameters.
const (
	DefaultBaseSize     = 24.0
	DefaultRIUnit       = "rem"
	DefaultUnit         = "px"
	DefaultAbsoluteUnit = "apx"
	DefaultMinUnitSize  = 1.0
	DefaultMinSize      = 16.0
	DefaultPrecision    = 5
)

// DefaultGroupedProperties returns the properties whose raw values split on
// commas into independently converted segments.
func DefaultGroupedProperties() []string {
	return []string{
		"background",
		"background-position",
		"background-size",
		"border-radius",
		"box-shadow",
		"transform-origin",
	}
}

// Options is a partial engine configuration. A nil field keeps the current
// (or default) value, GroupedProperties replaces the comma group set only
// when non-nil.
type Options struct {
	BaseSize          *float64
	RIUnit            *string
	Unit              *string
	AbsoluteUnit      *string
	MinUnitSize       *float64
	MinSize           *float64
	Precision         *int
	GroupedProperties []string
}

// Config is the effective engine configuration, immutable once built.
// MinScaleFactor is derived, never set directly.
type Config struct {
	BaseSize     float64
	RIUnit       string
	Unit         string
	AbsoluteUnit string
	MinUnitSize  float64
	MinSize      float64
	Precision    int

	MinScaleFactor float64

	grouped map[string]struct{}
}

func defaultConfig() Config {
	cfg := Config{
		BaseSize:     DefaultBaseSize,
		RIUnit:       DefaultRIUnit,
		Unit:         DefaultUnit,
		AbsoluteUnit: DefaultAbsoluteUnit,
		MinUnitSize:  DefaultMinUnitSize,
		MinSize:      DefaultMinSize,
		Precision:    DefaultPrecision,
		grouped:      groupedSet(DefaultGroupedProperties()),
	}
	cfg.MinScaleFactor = cfg.MinSize / cfg.BaseSize
	return cfg
}

// apply merges opts over the receiver, validates the result and re-derives
// MinScaleFactor. On error the returned config must not be used.
func (c Config) apply(opts *Options) (Config, error) {
	if opts != nil {
		if opts.BaseSize != nil {
			c.BaseSize = *opts.BaseSize
		}
		if opts.RIUnit != nil {
			c.RIUnit = *opts.RIUnit
		}
		if opts.Unit != nil {
			c.Unit = *opts.Unit
		}
		if opts.AbsoluteUnit != nil {
			c.AbsoluteUnit = *opts.AbsoluteUnit
		}
		if opts.MinUnitSize != nil {
			c.MinUnitSize = *opts.MinUnitSize
		}
		if opts.MinSize != nil {
			c.MinSize = *opts.MinSize
		}
		if opts.Precision != nil {
			c.Precision = *opts.Precision
		}
		if opts.GroupedProperties != nil {
			c.grouped = groupedSet(opts.GroupedProperties)
		}
	}

	if err := c.validate(); err != nil {
		return c, err
	}
	c.MinScaleFactor = c.MinSize / c.BaseSize
	return c, nil
}

func (c Config) validate() error {
	var err error
	if !(c.BaseSize > 0) || math.IsInf(c.BaseSize, 0) {
		err = multierr.Append(err, fmt.Errorf("base size must be a positive finite number, got %v", c.BaseSize))
	}
	if !(c.MinSize > 0) || math.IsInf(c.MinSize, 0) {
		err = multierr.Append(err, fmt.Errorf("minimum size must be a positive finite number, got %v", c.MinSize))
	}
	if !(c.MinUnitSize >= 0) || math.IsInf(c.MinUnitSize, 0) {
		err = multierr.Append(err, fmt.Errorf("minimum unit size must be a non-negative finite number, got %v", c.MinUnitSize))
	}
	if c.Precision < 0 {
		err = multierr.Append(err, fmt.Errorf("precision must be non-negative, got %d", c.Precision))
	}
	if c.RIUnit == "" {
		err = multierr.Append(err, fmt.Errorf("resolution independent unit must not be empty"))
	}
	if c.Unit == "" {
		err = multierr.Append(err, fmt.Errorf("source unit must not be empty"))
	}
	if c.AbsoluteUnit == "" {
		err = multierr.Append(err, fmt.Errorf("absolute unit must not be empty"))
	}
	if c.Unit != "" && c.Unit == c.AbsoluteUnit {
		err = multierr.Append(err, fmt.Errorf("source unit %q and absolute unit must differ", c.Unit))
	}
	return err
}

// IsGrouped reports whether the property's comma separated segments are
// converted independently. The lookup is case insensitive.
func (c *Config) IsGrouped(property string) bool {
	_, ok := c.grouped[strings.ToLower(property)]
	return ok
}

// GroupedProperties returns the active comma group set, sorted.
func (c *Config) GroupedProperties() []string {
	props := make([]string, 0, len(c.grouped))
	for p := range c.grouped {
		props = append(props, p)
	}
	sort.Strings(props)
	return props
}

func groupedSet(props []string) map[string]struct{} {
	set := make(map[string]struct{}, len(props))
	for _, p := range props {
		set[strings.ToLower(p)] = struct{}{}
	}
	return set
}
