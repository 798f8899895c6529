package allocator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/noah-isme/pe-space-master/internal/models"
)

// FacilityMap is an ordered sport -> space table. Sport keys are stored in
// trimmed title case; iteration order is insertion order.
type FacilityMap struct {
	entries []models.FacilityMapping
	index   map[string]int
}

// SpaceResolution is the Facility Mapper's answer for one sport.
type SpaceResolution struct {
	Sport   string
	Space   string
	Fuzzy   bool
	Failure models.FailureKind
	Reason  string
}

// NewFacilityMap builds a map from mappings in order. A repeated sport keeps
// its first position and takes the later space. Rows with a blank sport or
// space are dropped.
func NewFacilityMap(mappings []models.FacilityMapping) FacilityMap {
	m := FacilityMap{index: make(map[string]int, len(mappings))}
	for _, mapping := range mappings {
		m.set(mapping.Sport, mapping.Space)
	}
	return m
}

// DefaultFacilities returns the built-in sport -> space table.
func DefaultFacilities() []models.FacilityMapping {
	return []models.FacilityMapping{
		{Sport: "Football", Space: "Field"},
		{Sport: "Rugby", Space: "Field"},
		{Sport: "Athletics", Space: "Field"},
		{Sport: "Cricket", Space: "Field"},
		{Sport: "Rounders", Space: "Field"},
		{Sport: "Netball", Space: "Tennis Courts"},
		{Sport: "Tennis", Space: "Tennis Courts"},
		{Sport: "Hockey", Space: "Astro"},
		{Sport: "Gymnastics", Space: "Gym"},
		{Sport: "Trampolining", Space: "Gym"},
		{Sport: "Basketball", Space: "Sports Hall"},
		{Sport: "Badminton", Space: "Sports Hall"},
		{Sport: "Volleyball", Space: "Sports Hall"},
		{Sport: "Dodgeball", Space: "Sports Hall"},
		{Sport: "Fitness", Space: "Fitness Room"},
		{Sport: "Theory", Space: "Classroom 1"},
		{Sport: "Dance", Space: "Studio"},
	}
}

// DefaultFacilityMap is NewFacilityMap(DefaultFacilities()).
func DefaultFacilityMap() FacilityMap {
	return NewFacilityMap(DefaultFacilities())
}

func (m *FacilityMap) set(sport, space string) {
	key := TitleCase(sport)
	space = strings.TrimSpace(space)
	if key == "" || space == "" {
		return
	}
	if i, ok := m.index[key]; ok {
		m.entries[i].Space = space
		return
	}
	m.index[key] = len(m.entries)
	m.entries = append(m.entries, models.FacilityMapping{Sport: key, Space: space})
}

// Len returns the number of mappings.
func (m FacilityMap) Len() int {
	return len(m.entries)
}

// Entries returns a copy of the mappings in table order.
func (m FacilityMap) Entries() []models.FacilityMapping {
	out := make([]models.FacilityMapping, len(m.entries))
	copy(out, m.entries)
	return out
}

// Spaces returns the distinct spaces in the table, sorted.
func (m FacilityMap) Spaces() []string {
	seen := make(map[string]struct{}, len(m.entries))
	out := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if _, ok := seen[e.Space]; ok {
			continue
		}
		seen[e.Space] = struct{}{}
		out = append(out, e.Space)
	}
	sort.Strings(out)
	return out
}

// MapSpace resolves the space for a sport: exact title-case lookup first,
// then the first mapping (in table order) whose sport is contained in the
// resolved sport name, so "Girls Football" lands on the "Football" space.
func (m FacilityMap) MapSpace(sport string) SpaceResolution {
	name := TitleCase(sport)
	if i, ok := m.index[name]; ok {
		return SpaceResolution{Sport: name, Space: m.entries[i].Space, Reason: models.ReasonMatch}
	}
	lower := strings.ToLower(name)
	for _, e := range m.entries {
		if strings.Contains(lower, strings.ToLower(e.Sport)) {
			return SpaceResolution{Sport: name, Space: e.Space, Fuzzy: true, Reason: models.ReasonMatch}
		}
	}
	return SpaceResolution{
		Sport:   name,
		Space:   models.SpaceTBC,
		Failure: models.FailureUnmappedSport,
		Reason:  fmt.Sprintf("Sport '%s' not in Facility List", strings.TrimSpace(sport)),
	}
}
