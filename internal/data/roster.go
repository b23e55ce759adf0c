package data

import (
	"errors"
	"fmt"
	"os"

	"github.com/l1jgo/turnloop/internal/component"
	"github.com/l1jgo/turnloop/internal/world"
	"gopkg.in/yaml.v3"
)

// ErrUnknownTemplate is returned when a spawn names a template that is not
// defined.
var ErrUnknownTemplate = errors.New("unknown actor template")

// ActorTemplate holds static data for an actor type loaded from YAML.
type ActorTemplate struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Glyph       string `yaml:"glyph"`
	Player      bool   `yaml:"player"`
	Speed       int    `yaml:"speed"` // energy per round; action_cost = one action
	HP          int    `yaml:"hp"`
	Power       int    `yaml:"power"`
	Regen       int    `yaml:"regen"` // rounds between regen ticks, 0 = never
	Sight       int    `yaml:"sight"`
	Disposition string `yaml:"disposition"` // dormant, hostile, confused, fleeing, scripted
}

// SpawnEntry places one actor. Name overrides the template name.
type SpawnEntry struct {
	Template string `yaml:"template"`
	Name     string `yaml:"name"`
	X        int    `yaml:"x"`
	Y        int    `yaml:"y"`
}

type rosterFile struct {
	Templates []ActorTemplate `yaml:"templates"`
	Spawns    []SpawnEntry    `yaml:"spawns"`
}

// RosterTable holds actor templates indexed by ID plus the ordered spawn
// list. Spawn order is creation order, which is the round tie-break.
type RosterTable struct {
	templates map[string]*ActorTemplate
	spawns    []SpawnEntry
}

// LoadRoster loads actor templates and spawns from a YAML file.
func LoadRoster(path string) (*RosterTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read roster: %w", err)
	}
	var f rosterFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse roster: %w", err)
	}
	t := &RosterTable{
		templates: make(map[string]*ActorTemplate, len(f.Templates)),
		spawns:    f.Spawns,
	}
	for i := range f.Templates {
		tpl := &f.Templates[i]
		if _, dup := t.templates[tpl.ID]; dup {
			return nil, fmt.Errorf("parse roster: duplicate template %q", tpl.ID)
		}
		t.templates[tpl.ID] = tpl
	}
	return t, nil
}

// Get returns a template by ID, or nil.
func (t *RosterTable) Get(id string) *ActorTemplate {
	return t.templates[id]
}

// Count returns the number of loaded templates.
func (t *RosterTable) Count() int {
	return len(t.templates)
}

// SpawnCount returns the number of spawn entries.
func (t *RosterTable) SpawnCount() int {
	return len(t.spawns)
}

// Specs resolves every spawn entry against its template, in file order.
func (t *RosterTable) Specs() ([]world.SpawnSpec, error) {
	out := make([]world.SpawnSpec, 0, len(t.spawns))
	for i, sp := range t.spawns {
		tpl := t.templates[sp.Template]
		if tpl == nil {
			return nil, fmt.Errorf("spawn %d: %q: %w", i, sp.Template, ErrUnknownTemplate)
		}
		disp, ok := component.ParseDisposition(tpl.Disposition)
		if !ok {
			return nil, fmt.Errorf("template %q: bad disposition %q", tpl.ID, tpl.Disposition)
		}
		name := sp.Name
		if name == "" {
			name = tpl.Name
		}
		out = append(out, world.SpawnSpec{
			Name:        name,
			Template:    tpl.ID,
			Glyph:       tpl.Glyph,
			Player:      tpl.Player,
			Speed:       tpl.Speed,
			HP:          tpl.HP,
			Power:       tpl.Power,
			Regen:       tpl.Regen,
			Sight:       tpl.Sight,
			Disposition: disp,
			X:           sp.X,
			Y:           sp.Y,
		})
	}
	return out, nil
}
