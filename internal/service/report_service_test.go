package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/pe-space-master/internal/allocator"
	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

type recordSourceStub struct {
	records    []models.AllocationRecord
	facilities []models.FacilityMapping
	err        error
	ended      bool
}

func (s recordSourceStub) SessionActive(context.Context, string) (bool, error) {
	return !s.ended, nil
}

func (s recordSourceStub) Records(context.Context, string) ([]models.AllocationRecord, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.records, nil
}

func (s recordSourceStub) FacilityMap(context.Context, string) (allocator.FacilityMap, error) {
	if s.facilities == nil {
		return allocator.DefaultFacilityMap(), nil
	}
	return allocator.NewFacilityMap(s.facilities), nil
}

func stubRecords() []models.AllocationRecord {
	return []models.AllocationRecord{
		{Date: "2025-09-01", Week: models.WeekA, Day: "Monday", Period: "Period 1", Class: "7Hope", Sport: "Football", Space: "Field", Reason: models.ReasonMatch, Staff: "Mr Jones"},
		{Date: "2025-09-01", Week: models.WeekA, Day: "Monday", Period: "Period 1", Class: "8Kestrel", Sport: "Rugby", Space: "Field", Reason: models.ReasonMatch, Staff: "Ms Patel"},
		{Date: "2025-09-02", Week: models.WeekA, Day: "Tuesday", Period: "Period 3", Class: "9X", Sport: models.SportNone, Space: models.SpaceTBC, Reason: "No rule found for Y9", Staff: "Mr Jones"},
		{Date: "2025-09-08", Week: models.WeekB, Day: "Monday", Period: "Period 2", Class: "7Hope", Sport: "Dance", Space: "Dance Studio", Reason: models.ReasonMatch, Staff: "Mr Jones"},
	}
}

func TestReportServiceTeacherSchedule(t *testing.T) {
	svc := NewReportService(recordSourceStub{records: stubRecords()}, nil, nil)

	_, err := svc.TeacherSchedule(context.Background(), "s1", dto.TeacherScheduleQuery{})
	requireAppError(t, err, appErrors.ErrValidation.Code)

	resp, err := svc.TeacherSchedule(context.Background(), "s1", dto.TeacherScheduleQuery{Staff: "mr jones"})
	require.NoError(t, err)
	assert.Equal(t, models.WeekA, resp.Grid.Week)
	assert.Equal(t, []string{"Monday", "Tuesday"}, resp.Grid.Days)
	assert.Len(t, resp.Records, 2)

	resp, err = svc.TeacherSchedule(context.Background(), "s1", dto.TeacherScheduleQuery{Staff: "Mr Jones", Week: "b"})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Dance", resp.Records[0].Sport)
}

func TestReportServiceViews(t *testing.T) {
	svc := NewReportService(recordSourceStub{records: stubRecords()}, nil, nil)
	ctx := context.Background()

	heat, err := svc.Heatmap(ctx, "s1", dto.WeekQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Period 1", "Period 3"}, heat.Periods)

	activities, err := svc.Activities(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, models.ActivityCount{Sport: "Dance", Sessions: 1}, activities[0])
	assert.Len(t, activities, 3)

	conflicts, err := svc.Conflicts(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, conflicts, 2)

	staff, err := svc.Staff(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Mr Jones", "Ms Patel"}, staff)
}

func TestReportServiceFreeSpaces(t *testing.T) {
	source := recordSourceStub{
		records: stubRecords(),
		facilities: []models.FacilityMapping{
			{Sport: "Football", Space: "Field"},
			{Sport: "Dance", Space: "Dance Studio"},
			{Sport: "Hockey", Space: "Astro"},
		},
	}
	svc := NewReportService(source, nil, nil)

	_, err := svc.FreeSpaces(context.Background(), "s1", dto.FreeSpacesQuery{Day: "Monday"})
	requireAppError(t, err, appErrors.ErrValidation.Code)

	resp, err := svc.FreeSpaces(context.Background(), "s1", dto.FreeSpacesQuery{Week: "week a", Day: "mon", Period: "1"})
	require.NoError(t, err)
	assert.Equal(t, "Monday", resp.Day)
	assert.Equal(t, "Period 1", resp.Period)
	assert.Equal(t, []string{"Astro", "Dance Studio"}, resp.Spaces)
}

func TestReportServiceRequiresRun(t *testing.T) {
	svc := NewReportService(recordSourceStub{err: appErrors.ErrNotRun}, nil, nil)
	_, err := svc.Conflicts(context.Background(), "s1")
	requireAppError(t, err, appErrors.ErrNotRun.Code)
}

func TestPeriodLabel(t *testing.T) {
	assert.Equal(t, "Period 3", periodLabel("3"))
	assert.Equal(t, "Period 3", periodLabel("P3"))
	assert.Equal(t, "Period 4", periodLabel(" period 4 "))
	assert.Equal(t, "Lunch", periodLabel("lunch"))
}
