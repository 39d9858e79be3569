// Package catalog serves immutable scenario definitions.
package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/brezcode/brezcode-platform-sub008/internal/models"
	"github.com/brezcode/brezcode-platform-sub008/internal/utils"
)

//go:embed default_scenarios.json
var defaultScenarios []byte

type Catalog interface {
	Get(id string) (*models.ScenarioDefinition, error)
	List() []models.ScenarioDefinition
}

type memCatalog struct {
	byID  map[string]models.ScenarioDefinition
	order []string
}

// Default returns the catalog bundled with the binary.
func Default() (Catalog, error) {
	return Load(bytes.NewReader(defaultScenarios))
}

// Load decodes a JSON array of scenarios and validates every entry.
func Load(r io.Reader) (Catalog, error) {
	var defs []models.ScenarioDefinition
	if err := json.NewDecoder(r).Decode(&defs); err != nil {
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}
	return New(defs...)
}

func New(defs ...models.ScenarioDefinition) (Catalog, error) {
	if len(defs) == 0 {
		return nil, errors.New("scenario catalog is empty")
	}
	c := &memCatalog{byID: make(map[string]models.ScenarioDefinition, len(defs))}
	for i, d := range defs {
		if err := validate(d); err != nil {
			return nil, fmt.Errorf("scenario %d: %w", i, err)
		}
		if _, dup := c.byID[d.ID]; dup {
			return nil, fmt.Errorf("duplicate scenario id %q", d.ID)
		}
		d.Objectives = append([]string(nil), d.Objectives...)
		d.Tags = append([]string(nil), d.Tags...)
		c.byID[d.ID] = d
		c.order = append(c.order, d.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

func validate(d models.ScenarioDefinition) error {
	switch {
	case strings.TrimSpace(d.ID) == "":
		return errors.New("id is required")
	case strings.TrimSpace(d.AvatarType) == "":
		return fmt.Errorf("%s: avatar_type is required", d.ID)
	case strings.TrimSpace(d.CustomerPersona) == "":
		return fmt.Errorf("%s: customer_persona is required", d.ID)
	case !d.CustomerMood.Valid():
		return fmt.Errorf("%s: unknown customer_mood %q", d.ID, d.CustomerMood)
	case len(d.Objectives) == 0:
		return fmt.Errorf("%s: at least one objective is required", d.ID)
	}
	return nil
}

func (c *memCatalog) Get(id string) (*models.ScenarioDefinition, error) {
	d, ok := c.byID[id]
	if !ok {
		return nil, utils.E(utils.CodeScenarioNotFound, "Catalog.Get", "scenario not found", nil)
	}
	d.Objectives = append([]string(nil), d.Objectives...)
	d.Tags = append([]string(nil), d.Tags...)
	return &d, nil
}

func (c *memCatalog) List() []models.ScenarioDefinition {
	out := make([]models.ScenarioDefinition, 0, len(c.order))
	for _, id := range c.order {
		d, _ := c.Get(id)
		out = append(out, *d)
	}
	return out
}
