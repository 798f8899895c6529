package allocator

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/pe-space-master/internal/models"
	"github.com/noah-isme/pe-space-master/internal/tabular"
)

const curriculumCSV = `Year,Class,Day,Start,End,Activity
7.0,h,All,01/09/2025,20/12/2025,Football
Y8,ALL,tue,1/9/2025,20/12/2025,Netball
9,all,,31/12/2025,01/01/2026,nan
,,,,,
10,B,nan,garbage,20/12/2025,Dance
`

const timetableCSV = `week,Day,Staff,Period 1,Period 2,Period 3,Period 4,Period 5
A,monday,Mr Jones,7Hope,Lunch,,8Kestrel,
Week B,Tue,,nan,9X,,,
`

func TestParseCurriculum(t *testing.T) {
	table, err := tabular.Read("rules.csv", strings.NewReader(curriculumCSV), 1)
	require.NoError(t, err)

	rules, err := ParseCurriculum(table)
	require.NoError(t, err)
	require.Len(t, rules, 4)

	assert.Equal(t, "7", rules[0].Year)
	assert.Equal(t, "H", rules[0].Class)
	assert.Equal(t, "All", rules[0].Day)
	assert.Equal(t, "Football", rules[0].Sport)
	assert.Equal(t, 2, rules[0].Row)
	assert.Equal(t, "2025-09-01", rules[0].Start.Format(time.DateOnly))
	assert.Equal(t, "2025-12-20", rules[0].End.Format(time.DateOnly))

	assert.Equal(t, "8", rules[1].Year)
	assert.Equal(t, "Tuesday", rules[1].Day)

	assert.Empty(t, rules[2].Sport)
	assert.Empty(t, rules[2].Day)

	assert.Equal(t, 6, rules[3].Row)
	assert.False(t, rules[3].HasValidWindow())
	assert.Equal(t, "garbage", rules[3].StartRaw)
}

func TestParseCurriculumMissingColumns(t *testing.T) {
	table, err := tabular.Read("rules.csv", strings.NewReader("Year,Class,Start,End\n7,A,01/09/2025,02/09/2025\n"), 1)
	require.NoError(t, err)
	_, err = ParseCurriculum(table)
	assert.ErrorIs(t, err, ErrMissingSportColumn)

	table, err = tabular.Read("rules.csv", strings.NewReader("Year,Sport,Start,End\n7,Rugby,01/09/2025,02/09/2025\n"), 1)
	require.NoError(t, err)
	_, err = ParseCurriculum(table)
	assert.ErrorIs(t, err, tabular.ErrMissingColumn)
}

func TestParseTimetable(t *testing.T) {
	table, err := tabular.Read("timetable.csv", strings.NewReader(timetableCSV), 1)
	require.NoError(t, err)

	rows, err := ParseTimetable(table)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Week A", rows[0].Week)
	assert.Equal(t, "Monday", rows[0].Day)
	assert.Equal(t, [5]string{"7Hope", "Lunch", "", "8Kestrel", ""}, rows[0].Periods)

	assert.Equal(t, "Week B", rows[1].Week)
	assert.Equal(t, "Tuesday", rows[1].Day)
	assert.Equal(t, models.StaffNone, rows[1].Staff)
	assert.Equal(t, "", rows[1].Periods[0])
	assert.Equal(t, "9X", rows[1].Periods[1])
}

func TestParseTimetableRequiresWeekAndDay(t *testing.T) {
	table, err := tabular.Read("timetable.csv", strings.NewReader("Staff,Period 1\nJones,7A\n"), 1)
	require.NoError(t, err)
	_, err = ParseTimetable(table)
	assert.ErrorIs(t, err, tabular.ErrMissingColumn)
}

func TestLoadedInputsDriveASchedule(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Year", "Class", "Day", "Start", "End", "Sport"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{7, "ALL", "All", 45901, 46011, "Girls Football"}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	ruleTable, err := tabular.Read("curriculum.xlsx", bytes.NewReader(buf.Bytes()), 1)
	require.NoError(t, err)
	rules, err := ParseCurriculum(ruleTable)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, "2025-09-01", rules[0].Start.Format(time.DateOnly))

	ttTable, err := tabular.Read("timetable.csv", strings.NewReader(timetableCSV), 1)
	require.NoError(t, err)
	timetable, err := ParseTimetable(ttTable)
	require.NoError(t, err)

	records, err := GenerateSchedule(SchedulePlan{Start: date(t, "2025-09-01")}, timetable, rules, DefaultFacilityMap())
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "Field", records[0].Space)
	assert.Equal(t, "No rule found for Y8", records[1].Reason)
	assert.Equal(t, "No rule found for Y9", records[2].Reason)
}

func TestReadFacilities(t *testing.T) {
	t.Run("yaml document", func(t *testing.T) {
		doc := "facilities:\n  - sport: Football\n    space: Field\n  - sport: Dance\n    space: Studio\n"
		got, err := ReadFacilities("facilities.yaml", strings.NewReader(doc))
		require.NoError(t, err)
		assert.Equal(t, []models.FacilityMapping{{Sport: "Football", Space: "Field"}, {Sport: "Dance", Space: "Studio"}}, got)
	})

	t.Run("yaml list", func(t *testing.T) {
		got, err := ReadFacilities("facilities.yml", strings.NewReader("- sport: Hockey\n  space: Astro\n"))
		require.NoError(t, err)
		assert.Equal(t, []models.FacilityMapping{{Sport: "Hockey", Space: "Astro"}}, got)
	})

	t.Run("csv", func(t *testing.T) {
		got, err := ReadFacilities("facilities.csv", strings.NewReader("sport,space\nTennis, Tennis Courts\n"))
		require.NoError(t, err)
		assert.Equal(t, []models.FacilityMapping{{Sport: "Tennis", Space: "Tennis Courts"}}, got)
	})

	t.Run("empty yaml table", func(t *testing.T) {
		for _, doc := range []string{"facilities: []\n", "facilities:\n", "[]\n", ""} {
			got, err := ReadFacilities("facilities.yaml", strings.NewReader(doc))
			require.NoError(t, err, doc)
			assert.Empty(t, got, doc)
		}
	})

	t.Run("yaml scalar", func(t *testing.T) {
		_, err := ReadFacilities("facilities.yaml", strings.NewReader("Football\n"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := ReadFacilities("facilities.yaml", strings.NewReader("facilities: [unclosed"))
		assert.Error(t, err)
	})
}

func TestFacilityFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facilities.yaml")
	var buf bytes.Buffer
	require.NoError(t, WriteFacilities(&buf, DefaultFacilities()))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))

	m, err := LoadFacilityFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultFacilities(), m.Entries())

	_, err = LoadFacilityFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseDayFirst(t *testing.T) {
	cases := map[string]string{
		"01/09/2025":          "2025-09-01",
		"1/9/2025":            "2025-09-01",
		"13.10.2025":          "2025-10-13",
		"2025-09-01":          "2025-09-01",
		"2025-09-01 00:00:00": "2025-09-01",
		"45901":               "2025-09-01",
		"1 Sep 2025":          "2025-09-01",
	}
	for raw, want := range cases {
		got, ok := ParseDayFirst(raw)
		require.True(t, ok, raw)
		assert.Equal(t, want, got.Format(time.DateOnly), raw)
	}
	for _, raw := range []string{"", "nan", "09/13/2025", "soon"} {
		_, ok := ParseDayFirst(raw)
		assert.False(t, ok, raw)
	}
}

func TestNormalizers(t *testing.T) {
	assert.Equal(t, "7", NormalizeYear("7.0"))
	assert.Equal(t, "10", NormalizeYear("Year 10"))
	assert.Equal(t, "", NormalizeYear("nan"))
	assert.Equal(t, "Thursday", NormalizeDay("thurs"))
	assert.Equal(t, "Week B", NormalizeWeek(" week   b "))
	assert.Equal(t, "Girls Football", TitleCase("  girls FOOTBALL "))
	assert.Equal(t, "", CleanCell(" <NA> "))
}
