package main

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/italolelis/media_downloader/internal/config"
	"github.com/italolelis/media_downloader/internal/downloader"
	"github.com/italolelis/media_downloader/internal/logctx"
	"github.com/italolelis/media_downloader/internal/media"
	"github.com/italolelis/media_downloader/internal/notifier"
	"github.com/italolelis/media_downloader/internal/report"
	"github.com/italolelis/media_downloader/internal/resolver"
	"github.com/italolelis/media_downloader/internal/storage"
	"github.com/italolelis/media_downloader/internal/stream"
)

// processor runs the resolve, select and download stages for each input
// URI in turn. A failing URI is recorded and the batch moves on.
type processor struct {
	cfg      *config.Config
	inquire  resolver.InquireFunc
	streams  *stream.Resolver
	engine   *downloader.Engine
	history  storage.DownloadWriteRepository
	notifier notifier.Notifier
	runID    string

	// out receives tables, progress receives the progress bar. A nil
	// progress disables the bar.
	out      io.Writer
	progress io.Writer

	bar     *report.ProgressBar
	barName string
	now     func() time.Time
}

// run processes uris and returns how many failed.
func (p *processor) run(ctx context.Context, uris []string) int {
	logger := logctx.LoggerFromContext(ctx)

	var (
		failed  int
		records []storage.DownloadRecord
	)

	for _, uri := range uris {
		if ctx.Err() != nil {
			logger.Warn("batch interrupted", "remaining", len(uris)-len(records))

			break
		}

		jobCtx := logctx.WithJobID(ctx, uuid.NewString())

		record, err := p.process(jobCtx, uri)
		if err != nil {
			failed++

			record.Status = storage.StatusFailed
			record.Error = err.Error()

			logctx.LoggerFromContext(jobCtx).Error("failed to process input", "input_uri", uri, "err", err)
		}

		record.UpdatedAt = p.now()
		p.track(jobCtx, record)

		records = append(records, record)
	}

	p.notify(ctx, records)

	return failed
}

func (p *processor) process(ctx context.Context, uri string) (storage.DownloadRecord, error) {
	logger := logctx.LoggerFromContext(ctx)
	record := storage.DownloadRecord{InputURI: uri, RunID: p.runID}

	logger.Info("inquire", "input_uri", uri)

	resp, err := p.inquire(ctx, resolver.Config{
		Endpoint: p.cfg.RouterEndpoint,
		Timeout:  p.cfg.ConnectTimeout,
	}, uri)
	if err != nil {
		return record, err
	}

	if p.cfg.PrintStreams {
		record.Status = storage.StatusSkipped

		return record, report.PrintStreams(p.out, &resp.Media)
	}

	rs, err := p.streams.Resolve(ctx, stream.Options{
		Stream:         p.cfg.Stream,
		OutputTemplate: p.cfg.OutputTemplate,
		SkipDownload:   p.cfg.SkipDownload,
	}, uri, resp)
	if err != nil {
		return record, err
	}

	record.Profile = rs.Quality.Profile
	record.ContentLength = rs.ContentLength

	if rs.SaveTo != nil {
		record.FilePath = rs.SaveTo.FullPath
	}

	if p.cfg.SkipDownload {
		record.Status = storage.StatusSkipped

		return record, report.PrintDownload(p.out, rs)
	}

	p.barName = "stdout"
	if rs.SaveTo != nil {
		p.barName = rs.SaveTo.FileName
	}

	err = p.engine.Download(ctx, downloader.Options{
		OutputTemplate: p.cfg.OutputTemplate,
		HTTPRange:      p.cfg.HTTPRange,
		OverwriteFile:  p.cfg.OverwriteFile,
	}, rs)

	if p.bar != nil {
		p.bar.Finish(err == nil)
		p.bar = nil
	}

	if err != nil {
		return record, err
	}

	record.Status = storage.StatusCompleted

	return record, nil
}

// updateProgress feeds the progress bar of the running download, creating
// it on the first event.
func (p *processor) updateProgress(pr media.Progress) {
	if p.progress == nil {
		return
	}

	if p.bar == nil {
		p.bar = report.NewProgressBar(context.Background(), p.progress, p.barName)
	}

	p.bar.Update(pr)
}

func (p *processor) track(ctx context.Context, record storage.DownloadRecord) {
	if p.history == nil {
		return
	}

	if err := p.history.TrackDownload(ctx, record); err != nil {
		logctx.LoggerFromContext(ctx).Error("failed to record download", "input_uri", record.InputURI, "err", err)
	}
}

func (p *processor) notify(ctx context.Context, records []storage.DownloadRecord) {
	if p.notifier == nil || len(records) == 0 {
		return
	}

	if err := p.notifier.Notify(ctx, notifier.Summary(records)); err != nil {
		logctx.LoggerFromContext(ctx).Error("failed to send notification", "err", err)
	}
}
