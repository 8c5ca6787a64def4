// services/pipeline_service.go
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/nclcancer/survival/config"
	"github.com/nclcancer/survival/frame"
	"github.com/nclcancer/survival/models"
	"github.com/nclcancer/survival/scraper"
	"github.com/nclcancer/survival/staging"
	"github.com/nclcancer/survival/transform"
	"github.com/nclcancer/survival/utils"
	"github.com/nclcancer/survival/workbook"
)

// Source finds and downloads published data files. *scraper.Client
// implements it.
type Source interface {
	ListPages(ctx context.Context, publication string) ([]string, error)
	ListLinks(ctx context.Context, page string) (map[string]string, error)
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Loader writes transformed tables to the warehouse. *database.Store
// implements it.
type Loader interface {
	Replace(ctx context.Context, destination string, t *frame.Table) (int64, error)
	LogLoad(ctx context.Context, rec models.LoadRecord) error
}

// Report counts what happened to the staged files of one run.
type Report struct {
	Processed int
	Skipped   int
	Failed    int
}

// Pipeline runs the scrape, discover and process steps. Files are handled
// one at a time, in name order.
type Pipeline struct {
	cfg      config.Config
	policies transform.Policies
	core     transform.GeographySet
	source   Source
	store    staging.Store
	loader   Loader
	logger   *log.Logger
	now      func() time.Time
}

// NewPipeline wires a pipeline. now defaults to time.Now.
func NewPipeline(cfg config.Config, policies transform.Policies, core transform.GeographySet,
	source Source, store staging.Store, loader Loader, logger *log.Logger, now func() time.Time) *Pipeline {
	if now == nil {
		now = time.Now
	}
	return &Pipeline{
		cfg:      cfg,
		policies: policies,
		core:     core,
		source:   source,
		store:    store,
		loader:   loader,
		logger:   logger,
		now:      now,
	}
}

// Run optionally scrapes, then processes every staged file. A failed scrape
// is logged and the files already staged are still processed.
func (p *Pipeline) Run(ctx context.Context, scrape bool) (Report, error) {
	if scrape {
		if err := p.Scrape(ctx); err != nil {
			p.logger.Warn("Service: scrape step failed, processing staged files only", "err", err)
		}
	}
	return p.Process(ctx)
}

// Scrape downloads the latest target files into the staging store. Only a
// failure to list the publication's pages is returned; every other problem
// is logged and the remaining targets are still tried.
func (p *Pipeline) Scrape(ctx context.Context) error {
	pages, err := p.source.ListPages(ctx, p.cfg.Publication)
	if err != nil {
		return fmt.Errorf("failed to list pages of %s: %w", p.cfg.Publication, err)
	}

	saved := 0
	for _, target := range p.policies.Sources {
		page := firstContaining(pages, target.PageMatch)
		if page == "" {
			p.logger.Warn("Service: no publication page found", "match", target.PageMatch)
			continue
		}
		links, err := p.source.ListLinks(ctx, page)
		if err != nil {
			p.logger.Warn("Service: failed to list file links", "page", page, "err", err)
			continue
		}
		for _, id := range target.TargetIDs {
			label, err := scraper.SelectLink(links, id)
			if err != nil {
				p.logger.Warn("Service: skipping target", "page", page, "target", id, "err", err)
				continue
			}
			data, err := p.source.Fetch(ctx, links[label])
			if err != nil {
				p.logger.Warn("Service: download failed", "file", label, "err", err)
				continue
			}
			name := label + p.cfg.Extension
			if err := p.store.Write(ctx, name, data); err != nil {
				p.logger.Warn("Service: failed to stage file", "file", name, "err", err)
				continue
			}
			p.logger.Info("Service: staged file", "file", name, "bytes", len(data))
			saved++
		}
	}
	p.logger.Info("Service: scrape complete", "staged", saved)
	return nil
}

func firstContaining(pages []string, match string) string {
	for _, page := range pages {
		if strings.Contains(page, match) {
			return page
		}
	}
	return ""
}

// Discover lists the staged files with their kind. Files matching neither
// dataset prefix come back as models.KindUnknown.
func (p *Pipeline) Discover(ctx context.Context) ([]models.StagedFile, error) {
	names, err := p.store.List(ctx, p.cfg.Extension)
	if err != nil {
		return nil, fmt.Errorf("failed to list staged files: %w", err)
	}
	files := make([]models.StagedFile, len(names))
	for i, name := range names {
		files[i] = models.StagedFile{
			Name: name,
			Kind: models.Classify(name, p.policies.Index.FilePrefix, p.policies.Adult.FilePrefix),
		}
	}
	return files, nil
}

// Process transforms and loads every staged file. A file that fails is
// logged and counted; the others are still processed.
func (p *Pipeline) Process(ctx context.Context) (Report, error) {
	files, err := p.Discover(ctx)
	if err != nil {
		return Report{}, err
	}

	run := transform.Run{Started: p.now().UTC(), Core: p.core}
	var rep Report
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		if f.Kind == models.KindUnknown {
			p.logger.Debug("Service: ignoring file", "file", f.Name)
			rep.Skipped++
			continue
		}

		p.logger.Info("Service: processing file", "file", f.Name, "kind", f.Kind)
		if err := p.processFile(ctx, f, run); err != nil {
			p.logger.Error("Service: failed to process file", "file", f.Name, "err", err)
			rep.Failed++
			continue
		}
		rep.Processed++
	}

	p.logger.Info("Service: run complete", "processed", rep.Processed, "skipped", rep.Skipped, "failed", rep.Failed)
	return rep, nil
}

func (p *Pipeline) processFile(ctx context.Context, f models.StagedFile, run transform.Run) error {
	rc, err := p.store.Open(ctx, f.Name)
	if err != nil {
		return fmt.Errorf("failed to open staged file: %w", err)
	}
	defer rc.Close()

	wb, err := workbook.Open(rc, f.Name)
	if err != nil {
		return err
	}
	defer wb.Close()

	rec := models.LoadRecord{FileName: f.Name, Kind: f.Kind.String(), UploadedAt: run.Started}
	var out *frame.Table
	switch f.Kind {
	case models.KindIndex:
		pol := p.policies.Index
		raw, err := wb.ReadSheet(pol.Sheet, pol.SkipRows)
		if err != nil {
			return err
		}
		if out, err = transform.Index(raw, pol, run); err != nil {
			return fmt.Errorf("failed to transform index data: %w", err)
		}
		rec.Destination = p.cfg.DestinationIndex

	case models.KindAdult:
		pol := p.policies.Adult
		raw, err := wb.ReadSheet(pol.Sheet, pol.SkipRows)
		if err != nil {
			return err
		}
		if date, err := wb.SnapshotDate(pol.NotesSheet, pol.NotesSkipRows); err != nil {
			p.logger.Warn("Service: no snapshot date, continuing without it", "file", f.Name, "err", err)
		} else {
			rec.DateSnapshot = &date
		}
		if window, ok := utils.DiagnosisWindow(f.Name); ok {
			rec.DiagnosisWindow = &window
		} else {
			p.logger.Warn("Service: no diagnosis window in file name, continuing without it", "file", f.Name)
		}
		file := transform.File{Name: f.Name, SnapshotDate: rec.DateSnapshot}
		if out, err = transform.Adult(raw, pol, run, file); err != nil {
			return fmt.Errorf("failed to transform adult data: %w", err)
		}
		rec.Destination = p.cfg.DestinationAdult

	default:
		return fmt.Errorf("unsupported dataset kind %s", f.Kind)
	}

	n, err := p.loader.Replace(ctx, rec.Destination, out)
	if err != nil {
		return err
	}
	rec.RowCount = n
	if err := p.loader.LogLoad(ctx, rec); err != nil {
		p.logger.Warn("Service: load not recorded in load log", "file", f.Name, "err", err)
	}
	return nil
}
