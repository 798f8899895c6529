package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/pe-space-master/internal/allocator"
	"github.com/noah-isme/pe-space-master/internal/dto"
	"github.com/noah-isme/pe-space-master/internal/models"
	"github.com/noah-isme/pe-space-master/internal/repository"
	"github.com/noah-isme/pe-space-master/internal/service"
	"github.com/noah-isme/pe-space-master/pkg/config"
	"github.com/noah-isme/pe-space-master/pkg/export"
	"github.com/noah-isme/pe-space-master/pkg/logger"
)

const offlineSession = "cli"

type allocateOptions struct {
	timetable  string
	curriculum string
	facilities string
	start      string
	end        string
	weeks      int
	days       int
	policy     string
	startWeek  string
	headerRow  int
	out        string
	debug      bool
}

func newAllocateCmd() *cobra.Command {
	opts := &allocateOptions{}
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Run one allocation from local files",
		Long: `Allocate every timetable cell over the requested school days without starting the API.

Examples:
  space-master allocate --timetable timetable.xlsx --curriculum curriculum.csv --weeks 6
  space-master allocate --timetable t.csv --curriculum c.csv --start 2025-09-01 --end 2025-10-24 --out allocations.xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadFrom(envFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			cfg.Log.Format = "console"
			if !opts.debug {
				cfg.Log.Level = "warn"
			} else {
				cfg.Log.Level = "debug"
			}
			logr, err := logger.New(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			defer logr.Sync() //nolint:errcheck

			return runAllocate(commandContext(cmd), cfg, logr, opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.timetable, "timetable", "", "timetable file (.csv or .xlsx)")
	f.StringVar(&opts.curriculum, "curriculum", "", "curriculum file (.csv or .xlsx)")
	f.StringVar(&opts.facilities, "facilities", "", "facility table (.yaml or .csv), defaults to the built-in table")
	f.StringVar(&opts.start, "start", "", "first date, YYYY-MM-DD")
	f.StringVar(&opts.end, "end", "", "last date, YYYY-MM-DD")
	f.IntVar(&opts.weeks, "weeks", 0, "number of school weeks")
	f.IntVar(&opts.days, "days", 0, "number of school days")
	f.StringVar(&opts.policy, "policy", "", "week policy: block-cycle, fixed-split or monday-toggle")
	f.StringVar(&opts.startWeek, "start-week", "", "week of the first date: A or B")
	f.IntVar(&opts.headerRow, "header-row", 0, "1-based header row of the uploaded tables")
	f.StringVarP(&opts.out, "out", "o", "", "write records to .xlsx, .csv or .pdf")
	f.BoolVar(&opts.debug, "debug", false, "log the resolution trace of every record")
	_ = cmd.MarkFlagRequired("timetable")
	_ = cmd.MarkFlagRequired("curriculum")
	return cmd
}

func runAllocate(ctx context.Context, cfg *config.Config, logr *zap.Logger, opts *allocateOptions, w io.Writer) error {
	svc := service.NewAllocationService(repository.NewMemorySessionRepository(), nil, nil, logr, service.AllocationConfig{
		StartDate:  cfg.Allocation.StartDate,
		Weeks:      cfg.Allocation.Weeks,
		WeekPolicy: cfg.Allocation.WeekPolicy,
		StartWeek:  cfg.Allocation.StartWeek,
		HeaderRow:  cfg.Allocation.HeaderRow,
		Debug:      cfg.Allocation.Debug,
		SessionTTL: cfg.Session.TTL,
	})

	if err := uploadFile(opts.timetable, func(name string, r io.Reader) error {
		_, err := svc.UploadTimetable(ctx, offlineSession, name, r, opts.headerRow)
		return err
	}); err != nil {
		return err
	}
	if err := uploadFile(opts.curriculum, func(name string, r io.Reader) error {
		_, err := svc.UploadCurriculum(ctx, offlineSession, name, r, opts.headerRow)
		return err
	}); err != nil {
		return err
	}

	facilitiesFile := opts.facilities
	if facilitiesFile == "" {
		facilitiesFile = cfg.Allocation.FacilitiesFile
	}
	if facilitiesFile != "" {
		fm, err := allocator.LoadFacilityFile(facilitiesFile)
		if err != nil {
			return err
		}
		if _, err := svc.ReplaceFacilities(ctx, offlineSession, dto.ReplaceFacilitiesRequest{Facilities: fm.Entries()}); err != nil {
			return err
		}
	}

	req := dto.RunAllocationRequest{
		StartDate: opts.start,
		EndDate:   opts.end,
		Weeks:     opts.weeks,
		Days:      opts.days,
		Policy:    opts.policy,
		StartWeek: opts.startWeek,
	}
	if opts.debug {
		req.Debug = &opts.debug
	}
	run, err := svc.Run(ctx, offlineSession, req)
	if err != nil {
		return err
	}

	records, err := svc.Records(ctx, offlineSession)
	if err != nil {
		return err
	}
	summary := allocator.Summarize(records)
	styles := newStyles(noColor)
	fmt.Fprintln(w, renderSummary(styles, run.Policy, run.Days, summary))
	fmt.Fprintln(w, renderConflicts(styles, allocator.ConflictReport(records)))

	if opts.out == "" {
		return nil
	}
	if err := writeRecords(opts.out, records); err != nil {
		return err
	}
	fmt.Fprintln(w, styles.muted.Render(fmt.Sprintf("%d records written to %s", len(records), opts.out)))
	return nil
}

func uploadFile(path string, fn func(name string, r io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck
	return fn(filepath.Base(path), f)
}

func writeRecords(path string, records []models.AllocationRecord) error {
	data := service.RecordsDataset(records)
	title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))

	var (
		payload []byte
		err     error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		payload, err = export.NewXLSXExporter().Render(data, title)
	case ".csv":
		payload, err = export.NewCSVExporter().Render(data)
	case ".pdf":
		payload, err = export.NewPDFExporter().Render(data, title)
	default:
		return fmt.Errorf("unsupported output format %q, use .xlsx, .csv or .pdf", filepath.Ext(path))
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", path, err)
	}
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
