package allocator

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/pe-space-master/internal/models"
	"github.com/noah-isme/pe-space-master/internal/tabular"
)

// ErrMissingSportColumn is returned for a curriculum with neither a Sport nor an Activity column.
var ErrMissingSportColumn = errors.New("curriculum file needs a 'Sport' or 'Activity' column")

const (
	colYear     = "Year"
	colClass    = "Class"
	colDay      = "Day"
	colStart    = "Start"
	colEnd      = "End"
	colSport    = "Sport"
	colActivity = "Activity"
	colWeek     = "Week"
	colStaff    = "Staff"
	colSpace    = "Space"
)

// ParseCurriculum converts a rule table into curriculum rules, normalising
// cells once so the resolver never sees loose spreadsheet values. Dates that
// cannot be parsed are kept as raw text and leave Start or End zero.
func ParseCurriculum(t *tabular.Table) ([]models.CurriculumRule, error) {
	if !t.Has(colSport) && !t.Has(colActivity) {
		return nil, ErrMissingSportColumn
	}
	if err := t.Require(colYear, colClass, colStart, colEnd); err != nil {
		return nil, err
	}

	rules := make([]models.CurriculumRule, 0, len(t.Rows))
	for _, row := range t.Rows {
		sport := CleanCell(row.Get(colSport))
		if sport == "" {
			sport = CleanCell(row.Get(colActivity))
		}
		rule := models.CurriculumRule{
			Row:      row.Line,
			Year:     NormalizeYear(row.Get(colYear)),
			Class:    strings.ToUpper(CleanCell(row.Get(colClass))),
			Day:      CleanCell(row.Get(colDay)),
			StartRaw: row.Get(colStart),
			EndRaw:   row.Get(colEnd),
			Sport:    sport,
		}
		if rule.Day != "" && !isWildcardDay(rule.Day) {
			rule.Day = NormalizeDay(rule.Day)
		}
		rule.Start, _ = ParseDayFirst(rule.StartRaw)
		rule.End, _ = ParseDayFirst(rule.EndRaw)
		rules = append(rules, rule)
	}
	return rules, nil
}

// ParseTimetable converts a timetable table into rows with five period cells.
func ParseTimetable(t *tabular.Table) ([]models.TimetableRow, error) {
	if err := t.Require(colWeek, colDay); err != nil {
		return nil, err
	}
	rows := make([]models.TimetableRow, 0, len(t.Rows))
	for _, r := range t.Rows {
		row := models.TimetableRow{
			Row:   r.Line,
			Week:  NormalizeWeek(r.Get(colWeek)),
			Day:   NormalizeDay(r.Get(colDay)),
			Staff: CleanCell(r.Get(colStaff)),
		}
		if row.Staff == "" {
			row.Staff = models.StaffNone
		}
		for p := 0; p < models.PeriodCount; p++ {
			row.Periods[p] = CleanCell(r.Get(PeriodLabel(p + 1)))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

type facilityDocument struct {
	Facilities []models.FacilityMapping `yaml:"facilities"`
}

// ReadFacilities loads sport -> space mappings from YAML or CSV. YAML may be
// a bare list of {sport, space} items or a document with a facilities key.
func ReadFacilities(name string, r io.Reader) ([]models.FacilityMapping, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("read facilities: %w", err)
		}
		var root yaml.Node
		if err := yaml.Unmarshal(data, &root); err != nil {
			return nil, fmt.Errorf("decode facilities yaml: %w", err)
		}
		return decodeFacilityNode(&root)
	default:
		t, err := tabular.Read(name, r, 1)
		if err != nil {
			return nil, err
		}
		if err := t.Require(colSport, colSpace); err != nil {
			return nil, err
		}
		out := make([]models.FacilityMapping, 0, len(t.Rows))
		for _, row := range t.Rows {
			out = append(out, models.FacilityMapping{Sport: CleanCell(row.Get(colSport)), Space: CleanCell(row.Get(colSpace))})
		}
		return out, nil
	}
}

// decodeFacilityNode accepts an empty document, a bare list or a document
// with a facilities key. An empty table decodes to an empty slice.
func decodeFacilityNode(root *yaml.Node) ([]models.FacilityMapping, error) {
	out := []models.FacilityMapping{}
	if len(root.Content) == 0 {
		return out, nil
	}
	node := root.Content[0]
	switch node.Kind {
	case yaml.MappingNode:
		var doc facilityDocument
		if err := node.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode facilities yaml: %w", err)
		}
		out = append(out, doc.Facilities...)
	case yaml.SequenceNode:
		if err := node.Decode(&out); err != nil {
			return nil, fmt.Errorf("decode facilities yaml: %w", err)
		}
	case yaml.ScalarNode:
		if node.Tag != "!!null" {
			return nil, fmt.Errorf("facilities yaml must be a list or a facilities document")
		}
	default:
		return nil, fmt.Errorf("facilities yaml must be a list or a facilities document")
	}
	return out, nil
}

// LoadFacilityFile reads a facility table from disk.
func LoadFacilityFile(path string) (FacilityMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return FacilityMap{}, fmt.Errorf("open facilities file: %w", err)
	}
	defer f.Close() //nolint:errcheck
	mappings, err := ReadFacilities(path, f)
	if err != nil {
		return FacilityMap{}, err
	}
	return NewFacilityMap(mappings), nil
}

// WriteFacilities encodes mappings as a YAML facilities document.
func WriteFacilities(w io.Writer, mappings []models.FacilityMapping) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(facilityDocument{Facilities: mappings}); err != nil {
		return fmt.Errorf("encode facilities yaml: %w", err)
	}
	return enc.Close()
}
