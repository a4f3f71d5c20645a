// Package report renders resolver results, download destinations and the
// download history for the terminal.
package report

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/media_downloader/internal/media"
	"github.com/italolelis/media_downloader/internal/storage"
	"github.com/italolelis/media_downloader/internal/stream"
)

const stdoutDestination = "(stream to stdout)"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// PrintStreams writes one row per stream variant of m.
func PrintStreams(w io.Writer, m *media.Media) error {
	fmt.Fprintf(w, "%s (%s)\n", m.Title, m.Identifier)

	tw := newTable(w)
	fmt.Fprintln(tw, "PROFILE\tCONTAINER\tCODECS\tBITRATE\tLENGTH")

	for _, s := range m.Streams {
		codecs := stream.Codecs(s.MimeType)
		if codecs == "" {
			codecs = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.Quality.Profile,
			stream.Container(s.MimeType),
			codecs,
			bitrate(s.Quality.Bitrate),
			humanize.Bytes(s.ContentLength),
		)
	}

	if err := tw.Flush(); err != nil {
		return err
	}

	_, err := fmt.Fprintln(w, "Streams with '0 B' in length will have it determined at download")

	return err
}

func bitrate(bps uint32) string {
	if bps == 0 {
		return "-"
	}

	return humanize.SIWithDigits(float64(bps), 0, "bps")
}

// PrintDownload writes the destination and length of rs.
func PrintDownload(w io.Writer, rs *media.ResolvedStream) error {
	destination := stdoutDestination
	if rs.SaveTo != nil {
		destination = rs.SaveTo.FullPath
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "DESTINATION\tLENGTH")
	fmt.Fprintf(tw, "%s\t%s\n", destination, humanize.Bytes(rs.ContentLength))

	return tw.Flush()
}

// PrintHistory writes the download history, most recent first.
func PrintHistory(w io.Writer, records []storage.DownloadRecord) error {
	tw := newTable(w)
	fmt.Fprintln(tw, "UPDATED\tSTATUS\tPROFILE\tLENGTH\tINPUT\tFILE")

	for _, r := range records {
		status := r.Status
		if r.Error != "" {
			status += ": " + r.Error
		}

		file := r.FilePath
		if file == "" {
			file = "-"
		}

		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			humanize.Time(r.UpdatedAt),
			status,
			orDash(r.Profile),
			humanize.Bytes(r.ContentLength),
			r.InputURI,
			file,
		)
	}

	return tw.Flush()
}

// PrintPaths writes the configuration file search paths, marking the ones
// that were read.
func PrintPaths(w io.Writer, paths, used []string) error {
	read := make(map[string]bool, len(used))
	for _, p := range used {
		read[p] = true
	}

	tw := newTable(w)

	for _, p := range paths {
		fmt.Fprintf(tw, "%s\t%s\n", p, strconv.FormatBool(read[p]))
	}

	return tw.Flush()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}

// FormatETA renders an ETA for display, "-" when unknown.
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return "-"
	}

	return d.Round(time.Second).String()
}
