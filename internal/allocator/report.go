package allocator

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/noah-isme/pe-space-master/internal/models"
)

var weekdayOrder = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// FilterRecords returns the records matching every non-empty filter field
// (case-insensitive). The input order is preserved.
func FilterRecords(records []models.AllocationRecord, f models.RecordFilter) []models.AllocationRecord {
	out := make([]models.AllocationRecord, 0, len(records))
	for _, r := range records {
		if matches(f.Staff, r.Staff) && matches(f.Week, r.Week) && matches(f.Day, r.Day) &&
			matches(f.Period, r.Period) && matches(f.Space, r.Space) && matches(f.Sport, r.Sport) {
			out = append(out, r)
		}
	}
	return out
}

func matches(want, got string) bool {
	want = strings.TrimSpace(want)
	return want == "" || strings.EqualFold(want, strings.TrimSpace(got))
}

type conflictKey struct {
	date, period, space string
}

// ConflictReport returns every record that shares its date, period and space
// with another record. Unallocated records are never conflicts. Each record
// appears once; the result is ordered by date then period, ties keeping run order.
func ConflictReport(records []models.AllocationRecord) []models.AllocationRecord {
	counts := make(map[conflictKey]int)
	for _, r := range records {
		if bookable(r.Space) {
			counts[conflictKey{r.Date, r.Period, r.Space}]++
		}
	}
	out := make([]models.AllocationRecord, 0)
	for _, r := range records {
		if bookable(r.Space) && counts[conflictKey{r.Date, r.Period, r.Space}] > 1 {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return periodNumber(out[i].Period) < periodNumber(out[j].Period)
	})
	return out
}

func bookable(space string) bool {
	s := strings.TrimSpace(space)
	return s != "" && s != models.SpaceTBC && !strings.EqualFold(s, "nan")
}

// SpaceHeatmap counts classes per space and period within one week.
func SpaceHeatmap(records []models.AllocationRecord, week string) models.SpaceHeatmap {
	scoped := FilterRecords(records, models.RecordFilter{Week: week})
	heat := models.SpaceHeatmap{Week: week, Periods: distinctPeriods(scoped), Rows: []models.SpaceHeatmapRow{}}

	col := make(map[string]int, len(heat.Periods))
	for i, p := range heat.Periods {
		col[p] = i
	}
	bySpace := make(map[string]*models.SpaceHeatmapRow)
	var spaces []string
	for _, r := range scoped {
		row, ok := bySpace[r.Space]
		if !ok {
			row = &models.SpaceHeatmapRow{Space: r.Space, Counts: make([]int, len(heat.Periods))}
			bySpace[r.Space] = row
			spaces = append(spaces, r.Space)
		}
		row.Counts[col[r.Period]]++
		row.Total++
	}
	sort.Strings(spaces)
	for _, s := range spaces {
		heat.Rows = append(heat.Rows, *bySpace[s])
	}
	return heat
}

// TeacherGrid lays out one teacher's week as periods by weekdays. When two
// records land in the same position the first one is shown.
func TeacherGrid(records []models.AllocationRecord, staff, week string) models.TeacherGrid {
	scoped := FilterRecords(records, models.RecordFilter{Staff: staff, Week: week})
	grid := models.TeacherGrid{Staff: staff, Week: week, Days: []string{}, Periods: distinctPeriods(scoped), Rows: []models.TeacherGridRow{}}

	present := make(map[string]bool)
	for _, r := range scoped {
		present[r.Day] = true
	}
	for _, d := range weekdayOrder {
		if present[d] {
			grid.Days = append(grid.Days, d)
		}
	}

	cells := make(map[[2]string]models.AllocationRecord)
	for _, r := range scoped {
		key := [2]string{r.Period, r.Day}
		if _, taken := cells[key]; !taken {
			cells[key] = r
		}
	}
	for _, p := range grid.Periods {
		row := models.TeacherGridRow{Period: p, Cells: make([]models.GridCell, len(grid.Days))}
		for i, d := range grid.Days {
			r, ok := cells[[2]string{p, d}]
			if !ok {
				row.Cells[i] = models.GridCell{Status: models.GridCellEmpty}
				continue
			}
			status := models.GridCellAllocated
			if !r.Allocated() {
				status = models.GridCellUnallocated
			}
			row.Cells[i] = models.GridCell{Text: GridCellText(r), Status: status}
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

// GridCellText renders a record as "Class\nSport\n(Space)".
func GridCellText(r models.AllocationRecord) string {
	return fmt.Sprintf("%s\n%s\n(%s)", r.Class, r.Sport, r.Space)
}

// ActivityCounts returns sessions per resolved sport, busiest first.
func ActivityCounts(records []models.AllocationRecord) []models.ActivityCount {
	counts := make(map[string]int)
	for _, r := range records {
		if r.Sport == "" || r.Sport == models.SportNone {
			continue
		}
		counts[r.Sport]++
	}
	out := make([]models.ActivityCount, 0, len(counts))
	for sport, n := range counts {
		out = append(out, models.ActivityCount{Sport: sport, Sessions: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Sessions != out[j].Sessions {
			return out[i].Sessions > out[j].Sessions
		}
		return out[i].Sport < out[j].Sport
	})
	return out
}

// FreeSpaces lists the known facility spaces not booked in a week/day/period slot.
func FreeSpaces(records []models.AllocationRecord, facilities FacilityMap, week, day, period string) []string {
	used := make(map[string]struct{})
	for _, r := range FilterRecords(records, models.RecordFilter{Week: week, Day: day, Period: period}) {
		used[r.Space] = struct{}{}
	}
	free := make([]string, 0)
	for _, s := range facilities.Spaces() {
		if _, busy := used[s]; !busy {
			free = append(free, s)
		}
	}
	return free
}

// StaffList returns the distinct staff names of a run, sorted.
func StaffList(records []models.AllocationRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Staff]; ok {
			continue
		}
		seen[r.Staff] = struct{}{}
		out = append(out, r.Staff)
	}
	sort.Strings(out)
	return out
}

// Summarize counts allocated and unallocated records and groups the reasons
// for the unallocated ones.
func Summarize(records []models.AllocationRecord) models.AllocationSummary {
	summary := models.AllocationSummary{Total: len(records), Reasons: []models.ReasonCount{}}
	reasons := make(map[string]int)
	for _, r := range records {
		if r.Allocated() {
			summary.Allocated++
			continue
		}
		summary.Unallocated++
		reasons[r.Reason]++
	}
	for reason, n := range reasons {
		summary.Reasons = append(summary.Reasons, models.ReasonCount{Reason: reason, Count: n})
	}
	sort.Slice(summary.Reasons, func(i, j int) bool {
		if summary.Reasons[i].Count != summary.Reasons[j].Count {
			return summary.Reasons[i].Count > summary.Reasons[j].Count
		}
		return summary.Reasons[i].Reason < summary.Reasons[j].Reason
	})
	summary.Conflicts = len(ConflictReport(records))
	return summary
}

func distinctPeriods(records []models.AllocationRecord) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.Period]; ok {
			continue
		}
		seen[r.Period] = struct{}{}
		out = append(out, r.Period)
	}
	sort.Slice(out, func(i, j int) bool {
		return periodNumber(out[i]) < periodNumber(out[j])
	})
	return out
}

func periodNumber(label string) int {
	n, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(label, "Period")))
	if err != nil {
		return 1 << 30
	}
	return n
}
