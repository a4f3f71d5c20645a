package report_test

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/italolelis/media_downloader/internal/media"
	"github.com/italolelis/media_downloader/internal/report"
	"github.com/italolelis/media_downloader/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintStreams(t *testing.T) {
	var buf bytes.Buffer

	err := report.PrintStreams(&buf, &media.Media{
		Identifier: "abc",
		Title:      "A Title",
		Streams: []*media.Stream{
			{MimeType: `video/mp4; codecs="avc1.42001E, mp4a.40.2"`, ContentLength: 2048, Quality: media.Quality{Profile: "high-quality", Bitrate: 128000}},
			{MimeType: "audio/webm", Quality: media.Quality{Profile: "audio"}},
		},
	})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)

	assert.Equal(t, "A Title (abc)", lines[0])
	assert.Equal(t, []string{"PROFILE", "CONTAINER", "CODECS", "BITRATE", "LENGTH"}, strings.Fields(lines[1]))
	assert.Contains(t, lines[2], "high-quality")
	assert.Contains(t, lines[2], "mp4")
	assert.Contains(t, lines[2], "avc1.42001E, mp4a.40.2")
	assert.Contains(t, lines[2], "128 kbps")
	assert.Contains(t, lines[2], "2.0 kB")
	assert.Equal(t, []string{"audio", "webm", "-", "-", "0", "B"}, strings.Fields(lines[3]))
}

func TestPrintDownload(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, report.PrintDownload(&buf, &media.ResolvedStream{
		Stream: media.Stream{ContentLength: 1000},
		SaveTo: &media.SaveTo{FullPath: "/media/a.mp4"},
	}))
	assert.Contains(t, buf.String(), "/media/a.mp4")
	assert.Contains(t, buf.String(), "1.0 kB")

	buf.Reset()

	require.NoError(t, report.PrintDownload(&buf, &media.ResolvedStream{}))
	assert.Contains(t, buf.String(), "(stream to stdout)")
}

func TestPrintHistory(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, report.PrintHistory(&buf, []storage.DownloadRecord{
		{InputURI: "https://example.com/a", Status: storage.StatusCompleted, FilePath: "/media/a.mp4", UpdatedAt: time.Now()},
		{InputURI: "https://example.com/b", Status: storage.StatusFailed, Error: "timed out", UpdatedAt: time.Now()},
	}))

	out := buf.String()
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "failed: timed out")
	assert.Contains(t, out, "/media/a.mp4")
	assert.Equal(t, 3, strings.Count(out, "\n"))
}

func TestPrintPaths(t *testing.T) {
	var buf bytes.Buffer

	require.NoError(t, report.PrintPaths(&buf, []string{"/etc/xdg/x/config.yaml", "config.yaml"}, []string{"config.yaml"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{"/etc/xdg/x/config.yaml", "false"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{"config.yaml", "true"}, strings.Fields(lines[1]))
}

func TestFormatETA(t *testing.T) {
	assert.Equal(t, "-", report.FormatETA(0))
	assert.Equal(t, "1m5s", report.FormatETA(65*time.Second+200*time.Millisecond))
}

func TestProgressBar(t *testing.T) {
	var buf bytes.Buffer

	pb := report.NewProgressBar(context.Background(), &buf, "abc.mp4")
	pb.Update(media.Progress{Transferred: 500, Total: 1000, Rate: 100, ETA: 5 * time.Second})
	pb.Update(media.Progress{Transferred: 1000, Total: 1000, Rate: 100})
	pb.Finish(true)

	assert.Contains(t, buf.String(), "abc.mp4")
}
