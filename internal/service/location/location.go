// Package location resolves district identifiers to static farm context.
package location

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"ai-voice-query-service/internal/models"
)

//go:embed districts.yaml
var defaultDistricts []byte

// Directory is a read-only district table. It is safe for concurrent use.
type Directory struct {
	districts map[string]models.Location
}

type file struct {
	Districts map[string]models.Location `yaml:"districts"`
}

// Parse builds a Directory from YAML. IDs are matched case-insensitively.
func Parse(data []byte) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("location: parse districts: %w", err)
	}
	d := &Directory{districts: make(map[string]models.Location, len(f.Districts))}
	for id, loc := range f.Districts {
		id = strings.ToLower(strings.TrimSpace(id))
		if id == "" || loc.Name == "" {
			return nil, fmt.Errorf("location: district %q has no name", id)
		}
		loc.DistrictID = id
		d.districts[id] = loc
	}
	return d, nil
}

// Default returns the embedded district table.
func Default() *Directory {
	d, err := Parse(defaultDistricts)
	if err != nil {
		panic(err)
	}
	return d
}

// Lookup returns a copy of the district profile for id.
func (d *Directory) Lookup(id string) (*models.Location, bool) {
	loc, ok := d.districts[strings.ToLower(strings.TrimSpace(id))]
	if !ok {
		return nil, false
	}
	return &loc, true
}

// IDs returns the known district IDs in sorted order.
func (d *Directory) IDs() []string {
	ids := make([]string, 0, len(d.districts))
	for id := range d.districts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
