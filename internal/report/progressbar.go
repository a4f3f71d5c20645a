package report

import (
	"context"
	"io"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/media_downloader/internal/media"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// ProgressBar renders media.Progress events as a terminal progress bar.
type ProgressBar struct {
	progress *mpb.Progress
	bar      *mpb.Bar

	mu   sync.Mutex
	last media.Progress
}

func NewProgressBar(ctx context.Context, w io.Writer, name string) *ProgressBar {
	pb := &ProgressBar{
		progress: mpb.NewWithContext(ctx,
			mpb.WithOutput(w),
			mpb.WithWidth(64),
		),
	}

	pb.bar = pb.progress.AddBar(0,
		mpb.PrependDecorators(
			decor.Name(name, decor.WC{C: decor.DindentRight | decor.DextraSpace}),
			decor.Counters(decor.SizeB1024(0), "% .1f / % .1f", decor.WCSyncSpace),
		),
		mpb.AppendDecorators(
			decor.OnComplete(decor.Percentage(decor.WCSyncSpace), "done"),
			decor.Any(pb.rate, decor.WCSyncSpace),
			decor.Any(pb.eta, decor.WCSyncSpace),
		),
	)

	return pb
}

// Update is a media.ProgressFunc.
func (pb *ProgressBar) Update(p media.Progress) {
	pb.mu.Lock()
	pb.last = p
	pb.mu.Unlock()

	if p.Total > 0 {
		pb.bar.SetTotal(int64(p.Total), false)
	}

	pb.bar.SetCurrent(int64(p.Transferred))
}

// Finish completes the bar, or aborts it when ok is false, and waits for the
// final render.
func (pb *ProgressBar) Finish(ok bool) {
	if ok {
		pb.bar.SetTotal(-1, true)
	} else {
		pb.bar.Abort(false)
	}

	pb.progress.Wait()
}

func (pb *ProgressBar) rate(decor.Statistics) string {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	return humanize.Bytes(uint64(pb.last.Rate)) + "/s"
}

func (pb *ProgressBar) eta(s decor.Statistics) string {
	if s.Completed {
		pb.mu.Lock()
		defer pb.mu.Unlock()

		return FormatETA(pb.last.Elapsed)
	}

	pb.mu.Lock()
	defer pb.mu.Unlock()

	return "ETA " + FormatETA(pb.last.ETA)
}
