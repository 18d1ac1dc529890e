// Package schema holds the relation-type catalogue: which typed relations may
// be drawn between which asset types.
package schema

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/dd0wney/cluso-canvas/pkg/validation"
	"gopkg.in/yaml.v3"
)

// AnyType matches every asset type in a From or To list
const AnyType = "*"

// RelationType declares a relation and the asset types it may connect
type RelationType struct {
	Name  string   `json:"name" yaml:"name" validate:"required,typename,max=64"`
	Label string   `json:"label" yaml:"label" validate:"required,max=128"`
	From  []string `json:"from" yaml:"from" validate:"required,min=1,dive,required"`
	To    []string `json:"to" yaml:"to" validate:"required,min=1,dive,required"`
}

func (rt RelationType) allowsFrom(assetType string) bool {
	return slices.Contains(rt.From, assetType) || slices.Contains(rt.From, AnyType)
}

func (rt RelationType) allowsTo(assetType string) bool {
	return slices.Contains(rt.To, assetType) || slices.Contains(rt.To, AnyType)
}

// Direction tells whether a drawn connection keeps or flips its endpoints
type Direction int

const (
	// Outgoing relations are created source -> target
	Outgoing Direction = iota
	// Incoming relations are created target -> source
	Incoming
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Option is one entry of the disambiguation list
type Option struct {
	Type      RelationType `json:"type"`
	Direction Direction    `json:"direction"`
}

// Endpoints orders source/target for the relation to create
func (o Option) Endpoints(source, target string) (from, to string) {
	if o.Direction == Incoming {
		return target, source
	}
	return source, target
}

// Catalogue is an immutable set of relation types
type Catalogue struct {
	types  []RelationType
	byName map[string]RelationType
}

type catalogueFile struct {
	RelationTypes []RelationType `yaml:"relationTypes"`
}

// NewCatalogue validates types and builds a catalogue
func NewCatalogue(types []RelationType) (*Catalogue, error) {
	c := &Catalogue{
		types:  make([]RelationType, 0, len(types)),
		byName: make(map[string]RelationType, len(types)),
	}
	for i := range types {
		rt := types[i]
		if err := validation.Struct(&rt); err != nil {
			return nil, fmt.Errorf("relation type %d: %w", i, err)
		}
		if _, dup := c.byName[rt.Name]; dup {
			return nil, fmt.Errorf("relation type %q declared twice", rt.Name)
		}
		rt.From = slices.Clone(rt.From)
		rt.To = slices.Clone(rt.To)
		c.types = append(c.types, rt)
		c.byName[rt.Name] = rt
	}
	return c, nil
}

// ParseCatalogue decodes a YAML catalogue document
func ParseCatalogue(data []byte) (*Catalogue, error) {
	var f catalogueFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}
	return NewCatalogue(f.RelationTypes)
}

// LoadCatalogue reads a YAML catalogue from path
func LoadCatalogue(path string) (*Catalogue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseCatalogue(data)
}

// Lookup returns the relation type with the given name
func (c *Catalogue) Lookup(name string) (RelationType, bool) {
	rt, ok := c.byName[name]
	return rt, ok
}

// Types returns every relation type in declaration order
func (c *Catalogue) Types() []RelationType {
	return slices.Clone(c.types)
}

// ValidOutgoingTypes lists the relation types assetType may start, by label
func (c *Catalogue) ValidOutgoingTypes(assetType string) []RelationType {
	out := make([]RelationType, 0)
	for _, rt := range c.types {
		if rt.allowsFrom(assetType) {
			out = append(out, rt)
		}
	}
	sortByLabel(out)
	return out
}

// ValidIncomingTypes lists the relation types that may end at assetType, by label
func (c *Catalogue) ValidIncomingTypes(assetType string) []RelationType {
	out := make([]RelationType, 0)
	for _, rt := range c.types {
		if rt.allowsTo(assetType) {
			out = append(out, rt)
		}
	}
	sortByLabel(out)
	return out
}

// TypesBetween returns the ordered disambiguation list for a connection drawn
// from an asset of type src to one of type tgt: outgoing options first, then
// incoming, each alphabetical by label.
func (c *Catalogue) TypesBetween(src, tgt string) []Option {
	out := make([]Option, 0)
	for _, rt := range c.ValidOutgoingTypes(src) {
		if rt.allowsTo(tgt) {
			out = append(out, Option{Type: rt, Direction: Outgoing})
		}
	}
	for _, rt := range c.ValidIncomingTypes(src) {
		if rt.allowsFrom(tgt) {
			out = append(out, Option{Type: rt, Direction: Incoming})
		}
	}
	return out
}

// Compatible reports whether any relation type connects src and tgt in
// either direction
func (c *Catalogue) Compatible(src, tgt string) bool {
	for _, rt := range c.types {
		if (rt.allowsFrom(src) && rt.allowsTo(tgt)) || (rt.allowsFrom(tgt) && rt.allowsTo(src)) {
			return true
		}
	}
	return false
}

// Permits reports whether relType may be drawn from an src asset to a tgt asset
func (c *Catalogue) Permits(relType, src, tgt string) bool {
	rt, ok := c.byName[relType]
	return ok && rt.allowsFrom(src) && rt.allowsTo(tgt)
}

func sortByLabel(types []RelationType) {
	slices.SortStableFunc(types, func(a, b RelationType) int {
		if c := strings.Compare(strings.ToLower(a.Label), strings.ToLower(b.Label)); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})
}
