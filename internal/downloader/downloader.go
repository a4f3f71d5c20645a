// Package downloader transfers a resolved stream to its destination over
// HTTP, resuming partial files with byte ranges.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/media_downloader/internal/downloader/progress"
	"github.com/italolelis/media_downloader/internal/logctx"
	"github.com/italolelis/media_downloader/internal/media"
	"github.com/italolelis/media_downloader/internal/telemetry"
)

const (
	filePerm = 0644

	defaultProgressInterval = 200 * time.Millisecond
)

type Options struct {
	OutputTemplate string
	// HTTPRange is an explicit byte range such as "100-" or "0-1023",
	// without the "bytes=" prefix.
	HTTPRange     string
	OverwriteFile bool
}

// Plan is the outcome of range negotiation for one download.
type Plan struct {
	// Range is the value sent in the Range header, empty for none.
	Range string
	// Append is set when received bytes extend the existing file.
	Append bool
	// Complete is set when the destination already holds the whole stream.
	Complete bool
	// Offset is the resource position the transfer starts from.
	Offset uint64
}

type Engine struct {
	client           *http.Client
	telemetry        *telemetry.Telemetry
	stdout           io.Writer
	progressInterval time.Duration
	onProgress       media.ProgressFunc
}

type Option func(*Engine)

// WithStdout sets the writer used when the output template is media.Stdout.
func WithStdout(w io.Writer) Option {
	return func(e *Engine) {
		e.stdout = w
	}
}

// WithProgress registers fn to receive progress events at most once per
// interval.
func WithProgress(interval time.Duration, fn media.ProgressFunc) Option {
	return func(e *Engine) {
		if interval > 0 {
			e.progressInterval = interval
		}

		e.onProgress = fn
	}
}

func NewEngine(client *http.Client, tel *telemetry.Telemetry, opts ...Option) *Engine {
	e := &Engine{
		client:           client,
		telemetry:        tel,
		stdout:           os.Stdout,
		progressInterval: defaultProgressInterval,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Download transfers rs to its destination. It returns nil without
// transferring anything when the destination is already complete.
func (e *Engine) Download(ctx context.Context, opts Options, rs *media.ResolvedStream) error {
	return e.telemetry.InstrumentDownload(ctx, func(ctx context.Context) (bool, error) {
		logger := logctx.LoggerFromContext(ctx)

		plan, err := PlanRange(opts, rs)
		if err != nil {
			return false, err
		}

		if plan.Complete {
			logger.Info("the stream has been downloaded already", "file_path", rs.SaveTo.FullPath)

			return true, nil
		}

		logDetails(ctx, opts, rs, plan)

		return false, e.transfer(ctx, opts, rs, plan)
	})
}

// PlanRange decides which byte range to request for rs. Writing to stdout
// never touches the filesystem and only honours an explicit range.
func PlanRange(opts Options, rs *media.ResolvedStream) (Plan, error) {
	if opts.OutputTemplate == media.Stdout || rs.SaveTo == nil {
		return Plan{Range: opts.HTTPRange, Offset: rangeStart(opts.HTTPRange)}, nil
	}

	var (
		size   uint64
		exists bool
	)

	info, err := os.Stat(rs.SaveTo.FullPath)

	switch {
	case err == nil:
		size, exists = uint64(info.Size()), true
	case !errors.Is(err, fs.ErrNotExist):
		return Plan{}, &media.FilesystemError{URI: rs.InputURI, Op: "stat", Path: rs.SaveTo.FullPath, Err: err}
	}

	switch {
	case opts.OverwriteFile, !exists && opts.HTTPRange == "":
		return Plan{}, nil
	case opts.HTTPRange != "":
		return Plan{Range: opts.HTTPRange, Append: true, Offset: rangeStart(opts.HTTPRange)}, nil
	case rs.LengthKnown() && size == rs.ContentLength:
		return Plan{Complete: true, Offset: size}, nil
	case size == 0:
		return Plan{}, nil
	default:
		return Plan{Range: strconv.FormatUint(size, 10) + "-", Append: true, Offset: size}, nil
	}
}

func (e *Engine) transfer(ctx context.Context, opts Options, rs *media.ResolvedStream, plan Plan) error {
	logger := logctx.LoggerFromContext(ctx)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rs.URI, nil)
	if err != nil {
		return &media.TransferError{URI: rs.InputURI, Err: err}
	}

	if plan.Range != "" {
		req.Header.Set("Range", "bytes="+plan.Range)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return &media.TransferError{URI: rs.InputURI, Err: err}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		if plan.Append {
			logger.Warn("server ignored the requested range, restarting from the beginning", "range", plan.Range)

			plan.Append = false
			plan.Offset = 0
		}
	case http.StatusPartialContent:
	default:
		return &media.TransferError{
			URI:        rs.InputURI,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	out, closeOut, err := e.open(opts, rs, plan)
	if err != nil {
		return err
	}
	defer closeOut()

	total := rs.ContentLength
	if !rs.LengthKnown() && resp.ContentLength > 0 {
		total = plan.Offset + uint64(resp.ContentLength)
	}

	pr := progress.NewReader(resp.Body, plan.Offset, total, e.progressInterval, e.onProgress)

	_, err = io.Copy(out, pr)

	final := pr.Finish()

	e.telemetry.RecordBytes(ctx, int64(pr.Transferred()))

	if err != nil {
		return &media.TransferError{URI: rs.InputURI, Err: fmt.Errorf("failed to copy stream: %w", err)}
	}

	if err := closeOut(); err != nil {
		return &media.FilesystemError{URI: rs.InputURI, Op: "close", Path: rs.SaveTo.FullPath, Err: err}
	}

	logger.Info("download completed",
		"transferred", humanize.Bytes(pr.Transferred()),
		"rate", humanize.Bytes(uint64(final.Rate))+"/s",
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)

	return nil
}

// open returns the destination writer and a close function that is safe to
// call more than once.
func (e *Engine) open(opts Options, rs *media.ResolvedStream, plan Plan) (io.Writer, func() error, error) {
	if opts.OutputTemplate == media.Stdout || rs.SaveTo == nil {
		return e.stdout, func() error { return nil }, nil
	}

	flags := os.O_WRONLY | os.O_CREATE
	if plan.Append && !opts.OverwriteFile {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}

	f, err := os.OpenFile(rs.SaveTo.FullPath, flags, filePerm)
	if err != nil {
		return nil, nil, &media.FilesystemError{URI: rs.InputURI, Op: "open", Path: rs.SaveTo.FullPath, Err: err}
	}

	var closed bool

	return f, func() error {
		if closed {
			return nil
		}

		closed = true

		return f.Close()
	}, nil
}

// Span is the byte span a download covers.
type Span struct {
	Start uint64
	End   uint64
	Total uint64
}

// SpanOf returns the span covered by a transfer of a stream with the given
// length using byteRange. An open end extends to length.
func SpanOf(length uint64, byteRange string) Span {
	s := Span{End: length, Total: length}
	if byteRange == "" {
		return s
	}

	begin, end, _ := strings.Cut(byteRange, "-")

	if v, err := strconv.ParseUint(begin, 10, 64); err == nil {
		s.Start = v
	}

	if v, err := strconv.ParseUint(end, 10, 64); err == nil {
		s.End = v
	}

	if s.End > s.Start {
		s.Total = s.End - s.Start
	} else {
		s.Total = 0
	}

	return s
}

func rangeStart(byteRange string) uint64 {
	return SpanOf(0, byteRange).Start
}

func logDetails(ctx context.Context, opts Options, rs *media.ResolvedStream, plan Plan) {
	logger := logctx.LoggerFromContext(ctx)

	verb := "extracting"
	if opts.OutputTemplate == media.Stdout || rs.SaveTo == nil {
		verb = "streaming"
	}

	span := SpanOf(rs.ContentLength, plan.Range)

	attrs := []any{"from", rs.InputURI}
	if rs.SaveTo != nil {
		attrs = append(attrs, "path", rs.SaveTo.DirPath, "to", rs.SaveTo.FileName)
	}

	attrs = append(attrs,
		"start_at", humanize.Bytes(span.Start),
		"end_at", humanize.Bytes(span.End),
		"total", humanize.Bytes(span.Total),
	)

	logger.Info(verb+" the stream", attrs...)
}
