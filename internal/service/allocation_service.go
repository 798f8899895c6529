package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-space-master/internal/allocator"
	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	"github.com/noah-isme/pe-space-master/internal/tabular"
	appErrors "github.com/noah-isme/pe-space-master/pkg/errors"
)

type sessionStore interface {
	Get(ctx context.Context, id string) (*models.AllocationSession, error)
	Save(ctx context.Context, session *models.AllocationSession, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

type sessionMetrics interface {
	RecordSessionLookup(hit bool)
	ObserveAllocationRun(state models.RunState, summary models.AllocationSummary, duration time.Duration)
}

// AllocationConfig carries the run defaults applied when a request leaves a field empty.
type AllocationConfig struct {
	StartDate  time.Time
	Weeks      int
	WeekPolicy string
	StartWeek  string
	HeaderRow  int
	Debug      bool
	SessionTTL time.Duration
	Facilities []models.FacilityMapping
}

// AllocationService owns the per-session allocation workflow: uploads, the
// facility table, runs and the records they produce.
type AllocationService struct {
	sessions  sessionStore
	metrics   sessionMetrics
	validator *validator.Validate
	logger    *zap.Logger
	cfg       AllocationConfig
	now       func() time.Time

	locks sessionLocks
}

// sessionLocks serialises work on one session while leaving other sessions free.
type sessionLocks struct {
	mu   sync.Mutex
	byID map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	if l.byID == nil {
		l.byID = make(map[string]*sessionLock)
	}
	entry, ok := l.byID[id]
	if !ok {
		entry = &sessionLock{}
		l.byID[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.byID, id)
		}
		l.mu.Unlock()
	}
}

// NewAllocationService constructs an AllocationService.
func NewAllocationService(sessions sessionStore, metrics sessionMetrics, validate *validator.Validate, logger *zap.Logger, cfg AllocationConfig) *AllocationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if cfg.HeaderRow < 1 {
		cfg.HeaderRow = 1
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	if len(cfg.Facilities) == 0 {
		cfg.Facilities = allocator.DefaultFacilities()
	}
	return &AllocationService{
		sessions:  sessions,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

// UploadTimetable parses and stores the rotating timetable of a session.
func (s *AllocationService) UploadTimetable(ctx context.Context, sessionID, filename string, r io.Reader, headerRow int) (*models.UploadInfo, error) {
	table, err := s.readTable(filename, r, headerRow)
	if err != nil {
		return nil, err
	}
	rows, err := allocator.ParseTimetable(table)
	if err != nil {
		return nil, invalidTable(filename, err)
	}

	info := s.uploadInfo(filename, table, len(rows))
	err = s.update(ctx, sessionID, func(session *models.AllocationSession) error {
		session.Timetable = rows
		session.TimetableInfo = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("timetable uploaded", zap.String("session_id", sessionID), zap.String("file", filename), zap.Int("rows", len(rows)))
	return info, nil
}

// UploadCurriculum parses and stores the curriculum rules of a session.
func (s *AllocationService) UploadCurriculum(ctx context.Context, sessionID, filename string, r io.Reader, headerRow int) (*models.UploadInfo, error) {
	table, err := s.readTable(filename, r, headerRow)
	if err != nil {
		return nil, err
	}
	rules, err := allocator.ParseCurriculum(table)
	if err != nil {
		return nil, invalidTable(filename, err)
	}

	invalid := 0
	for _, rule := range rules {
		if !rule.HasValidWindow() {
			invalid++
		}
	}

	info := s.uploadInfo(filename, table, len(rules))
	err = s.update(ctx, sessionID, func(session *models.AllocationSession) error {
		session.Curriculum = rules
		session.CurriculumInfo = info
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("curriculum uploaded",
		zap.String("session_id", sessionID),
		zap.String("file", filename),
		zap.Int("rules", len(rules)),
		zap.Int("invalid_windows", invalid),
	)
	return info, nil
}

// Run allocates the session's timetable and replaces any previous result set.
// Plan errors leave the session in FAILED state and return a validation error.
func (s *AllocationService) Run(ctx context.Context, sessionID string, req dto.RunAllocationRequest) (*models.AllocationRun, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid run parameters")
	}

	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.Ready() {
		return nil, appErrors.Clone(appErrors.ErrNoData, "upload both the timetable and the curriculum before running")
	}

	debug := s.cfg.Debug
	if req.Debug != nil {
		debug = *req.Debug
	}

	run := &models.AllocationRun{
		ID:        uuid.NewString(),
		State:     models.RunStateRunning,
		StartedAt: s.now().UTC(),
	}
	session.Run = run
	if err := s.save(ctx, session); err != nil {
		return nil, err
	}

	plan, planErr := s.plan(req)
	var records []models.AllocationRecord
	if planErr == nil {
		run.Policy = string(plan.Policy)
		opts := []allocator.Option{
			allocator.WithProgress(func(done, total int) {
				s.logger.Debug("allocation progress", zap.String("run_id", run.ID), zap.Int("done", done), zap.Int("total", total))
				run.Days = total
			}),
		}
		if debug {
			opts = append(opts, allocator.WithTrace(func(record models.AllocationRecord, trace []string) {
				s.logger.Debug("allocation trace",
					zap.String("run_id", run.ID),
					zap.String("date", record.Date),
					zap.String("period", record.Period),
					zap.String("class", record.Class),
					zap.Strings("trace", trace),
				)
			}))
		}
		facilities := allocator.NewFacilityMap(s.facilitiesOf(session))
		records, planErr = allocator.GenerateSchedule(plan, session.Timetable, session.Curriculum, facilities, opts...)
	}

	completed := s.now().UTC()
	run.CompletedAt = &completed
	if planErr != nil {
		run.State = models.RunStateFailed
		run.Error = planErr.Error()
		run.Records = nil
		if err := s.save(ctx, session); err != nil {
			return nil, err
		}
		s.observeRun(run, models.AllocationSummary{}, completed.Sub(run.StartedAt))
		s.logger.Warn("allocation run failed", zap.String("session_id", sessionID), zap.String("run_id", run.ID), zap.Error(planErr))
		return nil, appErrors.Wrap(planErr, appErrors.ErrValidation.Code, http.StatusBadRequest, planErr.Error())
	}

	run.State = models.RunStateComplete
	run.Records = records
	if err := s.save(ctx, session); err != nil {
		run.State = models.RunStateFailed
		run.Records = nil
		run.Error = "allocation results could not be stored"
		if retryErr := s.save(ctx, session); retryErr != nil {
			s.logger.Error("allocation run state not stored", zap.String("session_id", sessionID), zap.String("run_id", run.ID), zap.Error(retryErr))
		}
		s.observeRun(run, models.AllocationSummary{}, completed.Sub(run.StartedAt))
		return nil, err
	}

	summary := allocator.Summarize(records)
	s.observeRun(run, summary, completed.Sub(run.StartedAt))
	s.logger.Info("allocation run complete",
		zap.String("session_id", sessionID),
		zap.String("run_id", run.ID),
		zap.String("policy", run.Policy),
		zap.Int("days", run.Days),
		zap.Int("records", summary.Total),
		zap.Int("unallocated", summary.Unallocated),
		zap.Int("conflicts", summary.Conflicts),
	)
	return run, nil
}

// Status reports what the session holds and the state of its latest run.
func (s *AllocationService) Status(ctx context.Context, sessionID string) (*dto.AllocationStatusResponse, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	resp := &dto.AllocationStatusResponse{
		SessionID:  session.ID,
		State:      models.RunStateNotRun,
		Timetable:  session.TimetableInfo,
		Curriculum: session.CurriculumInfo,
		Facilities: len(s.facilitiesOf(session)),
	}
	if run := session.Run; run != nil {
		resp.State = run.State
		resp.Run = &dto.RunInfo{
			ID:          run.ID,
			State:       run.State,
			StartedAt:   run.StartedAt,
			CompletedAt: run.CompletedAt,
			Days:        run.Days,
			Policy:      run.Policy,
			Records:     len(run.Records),
			Error:       run.Error,
		}
		if run.State == models.RunStateComplete {
			summary := allocator.Summarize(run.Records)
			resp.Summary = &summary
		}
	}
	return resp, nil
}

// Records returns the records of the latest completed run.
func (s *AllocationService) Records(ctx context.Context, sessionID string) ([]models.AllocationRecord, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Run == nil || session.Run.State != models.RunStateComplete {
		return nil, appErrors.Clone(appErrors.ErrNotRun, "run the allocation first")
	}
	return session.Run.Records, nil
}

// Results filters the latest run and returns one page of it.
func (s *AllocationService) Results(ctx context.Context, sessionID string, query dto.ResultsQuery) ([]models.AllocationRecord, *models.Pagination, error) {
	records, err := s.Records(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	filtered := allocator.FilterRecords(records, query.RecordFilter)

	page := query.Page
	if page < 1 {
		page = 1
	}
	size := query.PageSize
	if size <= 0 {
		size = 100
	}
	if size > 1000 {
		size = 1000
	}

	total := len(filtered)
	start := (page - 1) * size
	if start > total {
		start = total
	}
	end := start + size
	if end > total {
		end = total
	}

	return filtered[start:end], &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Summary totals the latest run.
func (s *AllocationService) Summary(ctx context.Context, sessionID string) (*models.AllocationSummary, error) {
	records, err := s.Records(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	summary := allocator.Summarize(records)
	return &summary, nil
}

// Resolve explains the allocation of one class on one date against the
// session's curriculum and facilities. The outcome always carries a trace.
func (s *AllocationService) Resolve(ctx context.Context, sessionID string, req dto.ResolveRequest) (*models.AllocationOutcome, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid resolve request")
	}
	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "date must be YYYY-MM-DD")
	}

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.CurriculumInfo == nil {
		return nil, appErrors.Clone(appErrors.ErrNoData, "upload the curriculum first")
	}

	facilities := allocator.NewFacilityMap(s.facilitiesOf(session))
	outcome := allocator.ResolveAllocation(strings.TrimSpace(req.Class), date, session.Curriculum, facilities, true)
	return &outcome, nil
}

// Facilities returns the session's facility table, or the default table when
// the session has not edited it.
func (s *AllocationService) Facilities(ctx context.Context, sessionID string) ([]models.FacilityMapping, error) {
	session, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return allocator.NewFacilityMap(s.facilitiesOf(session)).Entries(), nil
}

// ReplaceFacilities swaps the session's facility table. Blank and duplicate
// sports are folded the same way the allocator reads them.
func (s *AllocationService) ReplaceFacilities(ctx context.Context, sessionID string, req dto.ReplaceFacilitiesRequest) ([]models.FacilityMapping, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid facility table")
	}
	entries := allocator.NewFacilityMap(req.Facilities).Entries()
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "facility table has no usable entries")
	}

	err := s.update(ctx, sessionID, func(session *models.AllocationSession) error {
		if session.Run != nil && session.Run.State == models.RunStateRunning {
			return appErrors.Clone(appErrors.ErrConflict, "an allocation run is in progress")
		}
		session.Facilities = entries
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("facility table replaced", zap.String("session_id", sessionID), zap.Int("entries", len(entries)))
	return entries, nil
}

// ResetFacilities restores the configured default facility table.
func (s *AllocationService) ResetFacilities(ctx context.Context, sessionID string) ([]models.FacilityMapping, error) {
	err := s.update(ctx, sessionID, func(session *models.AllocationSession) error {
		session.Facilities = nil
		return nil
	})
	if err != nil {
		return nil, err
	}
	return allocator.NewFacilityMap(s.cfg.Facilities).Entries(), nil
}

// FacilityMap returns the session's facility table ready for lookups.
func (s *AllocationService) FacilityMap(ctx context.Context, sessionID string) (allocator.FacilityMap, error) {
	entries, err := s.Facilities(ctx, sessionID)
	if err != nil {
		return allocator.FacilityMap{}, err
	}
	return allocator.NewFacilityMap(entries), nil
}

// SessionActive reports whether the session still holds state in the store.
func (s *AllocationService) SessionActive(ctx context.Context, sessionID string) (bool, error) {
	if strings.TrimSpace(sessionID) == "" {
		return false, nil
	}
	if _, err := s.sessions.Get(ctx, sessionID); err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) && appErr.Code == appErrors.ErrCacheMiss.Code {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return true, nil
}

// EndSession drops everything held for the session.
func (s *AllocationService) EndSession(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *AllocationService) plan(req dto.RunAllocationRequest) (allocator.SchedulePlan, error) {
	plan := allocator.SchedulePlan{
		Start:     s.cfg.StartDate,
		Weeks:     req.Weeks,
		Days:      req.Days,
		StartWeek: s.cfg.StartWeek,
	}
	if req.StartDate != "" {
		start, err := time.Parse(time.DateOnly, req.StartDate)
		if err != nil {
			return plan, fmt.Errorf("start date: %w", err)
		}
		plan.Start = start
	}
	if req.EndDate != "" {
		end, err := time.Parse(time.DateOnly, req.EndDate)
		if err != nil {
			return plan, fmt.Errorf("end date: %w", err)
		}
		plan.End = end
	}
	if plan.End.IsZero() && plan.Days == 0 && plan.Weeks == 0 {
		plan.Weeks = s.cfg.Weeks
	}
	if req.StartWeek != "" {
		plan.StartWeek = req.StartWeek
	}

	rawPolicy := req.Policy
	if rawPolicy == "" {
		rawPolicy = s.cfg.WeekPolicy
	}
	policy, err := allocator.ParseWeekPolicy(rawPolicy)
	if err != nil {
		return plan, err
	}
	plan.Policy = policy
	return plan, plan.Validate()
}

func (s *AllocationService) readTable(filename string, r io.Reader, headerRow int) (*tabular.Table, error) {
	if headerRow < 1 {
		headerRow = s.cfg.HeaderRow
	}
	table, err := tabular.Read(filename, r, headerRow)
	if err != nil {
		return nil, invalidTable(filename, err)
	}
	return table, nil
}

func (s *AllocationService) uploadInfo(filename string, table *tabular.Table, rows int) *models.UploadInfo {
	columns := make([]string, len(table.Headers))
	copy(columns, table.Headers)
	return &models.UploadInfo{
		Filename:   filename,
		Rows:       rows,
		Columns:    columns,
		UploadedAt: s.now().UTC(),
	}
}

func (s *AllocationService) facilitiesOf(session *models.AllocationSession) []models.FacilityMapping {
	if len(session.Facilities) > 0 {
		return session.Facilities
	}
	return s.cfg.Facilities
}

func (s *AllocationService) observeRun(run *models.AllocationRun, summary models.AllocationSummary, duration time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveAllocationRun(run.State, summary, duration)
}

// load fetches the session, starting an empty one on a cache miss.
func (s *AllocationService) load(ctx context.Context, sessionID string) (*models.AllocationSession, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "missing session")
	}
	session, err := s.sessions.Get(ctx, sessionID)
	if err == nil {
		s.recordLookup(true)
		return session, nil
	}
	var appErr *appErrors.Error
	if !errors.As(err, &appErr) || appErr.Code != appErrors.ErrCacheMiss.Code {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	s.recordLookup(false)
	return &models.AllocationSession{ID: sessionID, UpdatedAt: s.now().UTC()}, nil
}

func (s *AllocationService) save(ctx context.Context, session *models.AllocationSession) error {
	session.UpdatedAt = s.now().UTC()
	if err := s.sessions.Save(ctx, session, s.cfg.SessionTTL); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save session")
	}
	return nil
}

func (s *AllocationService) update(ctx context.Context, sessionID string, mutate func(*models.AllocationSession) error) error {
	unlock := s.locks.lock(sessionID)
	defer unlock()

	session, err := s.load(ctx, sessionID)
	if err != nil {
		return err
	}
	if err := mutate(session); err != nil {
		return err
	}
	return s.save(ctx, session)
}

func (s *AllocationService) recordLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordSessionLookup(hit)
	}
}

func invalidTable(filename string, err error) error {
	return appErrors.Wrap(err, appErrors.ErrInvalidTable.Code, appErrors.ErrInvalidTable.Status, fmt.Sprintf("%s: %s", filename, err.Error()))
}
