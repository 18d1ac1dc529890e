package modelservice

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-canvas/pkg/geom"
	"github.com/dd0wney/cluso-canvas/pkg/model"
	"github.com/dd0wney/cluso-canvas/pkg/store"
)

// seedRelation defaults asserted and visible to true when omitted
type seedRelation struct {
	ID       string `yaml:"id"`
	From     string `yaml:"from"`
	To       string `yaml:"to"`
	Type     string `yaml:"type"`
	Label    string `yaml:"label"`
	Asserted *bool  `yaml:"asserted"`
	Visible  *bool  `yaml:"visible"`
	Hidden   bool   `yaml:"hidden"`
}

type seedAsset struct {
	ID       string     `yaml:"id"`
	Type     string     `yaml:"type"`
	Name     string     `yaml:"name"`
	Position geom.Point `yaml:"position"`
}

type seedFile struct {
	Assets    []seedAsset    `yaml:"assets"`
	Groups    []model.Group  `yaml:"groups"`
	Relations []seedRelation `yaml:"relations"`
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

// ParseSeed decodes a YAML diagram seed
func ParseSeed(data []byte) (*Diagram, error) {
	var f seedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse seed: %w", err)
	}
	d := &Diagram{}
	for _, a := range f.Assets {
		d.Assets = append(d.Assets, model.Asset{ID: a.ID, Type: a.Type, Name: a.Name, Position: a.Position, Asserted: true})
	}
	d.Groups = f.Groups
	for _, r := range f.Relations {
		d.Relations = append(d.Relations, model.Relation{
			ID: r.ID, From: r.From, To: r.To, Type: r.Type, Label: r.Label,
			Asserted: boolOr(r.Asserted, true), Visible: boolOr(r.Visible, true), Hidden: r.Hidden,
		})
	}
	return d, nil
}

// LoadSeed reads a YAML diagram seed from disk
func LoadSeed(path string) (*Diagram, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed %s: %w", path, err)
	}
	return ParseSeed(data)
}

// Seed replaces the service contents with d. Relation endpoints and
// membership are checked; relation types are trusted.
func (m *Memory) Seed(d *Diagram) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := store.New(store.Options{})
	for _, a := range d.Assets {
		a.GroupID = ""
		if a.ID == "" {
			a.ID = m.newID()
		}
		if err := st.UpsertAsset(a, store.OriginLocal); err != nil {
			return fmt.Errorf("seed asset %s: %w", a.ID, err)
		}
	}
	for _, g := range d.Groups {
		if err := st.UpsertGroup(g, store.OriginLocal); err != nil {
			return fmt.Errorf("seed group %s: %w", g.ID, err)
		}
	}
	for _, r := range d.Relations {
		if r.ID == "" {
			r.ID = m.newID()
		}
		if err := st.UpsertRelation(r, store.OriginLocal); err != nil {
			return fmt.Errorf("seed relation %s: %w", r.ID, err)
		}
	}
	m.st = st
	m.refreshInferred(newChangeset())
	return nil
}
