package progress

import (
	"io"
	"time"

	"github.com/VividCortex/ewma"
	"github.com/italolelis/media_downloader/internal/media"
)

// Reader wraps an io.Reader and reports progress via a callback at most once
// per interval, plus once more when Finish is called.
type Reader struct {
	Reader     io.Reader
	OnProgress media.ProgressFunc

	offset   uint64 // bytes already on disk before the transfer
	total    uint64 // 0 when unknown
	interval time.Duration

	totalRead  uint64
	lastRead   uint64 // totalRead at the last report
	start      time.Time
	lastReport time.Time
	rate       ewma.MovingAverage
	now        func() time.Time
}

func NewReader(r io.Reader, offset, total uint64, interval time.Duration, cb media.ProgressFunc) *Reader {
	return newReader(r, offset, total, interval, cb, time.Now)
}

func newReader(r io.Reader, offset, total uint64, interval time.Duration, cb media.ProgressFunc, now func() time.Time) *Reader {
	start := now()

	return &Reader{
		Reader:     r,
		OnProgress: cb,
		offset:     offset,
		total:      total,
		interval:   interval,
		start:      start,
		lastReport: start,
		rate:       ewma.NewMovingAverage(),
		now:        now,
	}
}

func (pr *Reader) Read(p []byte) (int, error) {
	n, err := pr.Reader.Read(p)
	if n > 0 {
		pr.totalRead += uint64(n)

		if now := pr.now(); now.Sub(pr.lastReport) >= pr.interval {
			pr.report(now)
		}
	}

	return n, err
}

// Transferred returns the number of bytes read through pr.
func (pr *Reader) Transferred() uint64 {
	return pr.totalRead
}

// Finish emits the final progress event and returns it.
func (pr *Reader) Finish() media.Progress {
	return pr.report(pr.now())
}

func (pr *Reader) report(now time.Time) media.Progress {
	if d := now.Sub(pr.lastReport).Seconds(); d > 0 {
		pr.rate.Add(float64(pr.totalRead-pr.lastRead) / d)
	}

	pr.lastReport = now
	pr.lastRead = pr.totalRead

	p := media.Progress{
		Transferred: pr.offset + pr.totalRead,
		Total:       pr.total,
		Rate:        pr.rate.Value(),
		Elapsed:     now.Sub(pr.start),
	}

	if p.Total > p.Transferred && p.Rate > 0 {
		p.ETA = time.Duration(float64(p.Total-p.Transferred) / p.Rate * float64(time.Second))
	}

	if pr.OnProgress != nil {
		pr.OnProgress(p)
	}

	return p
}
