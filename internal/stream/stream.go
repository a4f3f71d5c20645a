// Package stream selects one variant from a resolver response, completes
// its metadata and works out where it will be saved.
package stream

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/italolelis/media_downloader/internal/logctx"
	"github.com/italolelis/media_downloader/internal/media"
	"github.com/italolelis/media_downloader/internal/telemetry"
)

type Options struct {
	// Stream is the profile slug to select. Empty selects the first stream.
	Stream         string
	OutputTemplate string
	// SkipDownload resolves the destination without creating directories.
	SkipDownload bool
}

type Resolver struct {
	client    *http.Client
	telemetry *telemetry.Telemetry
	now       func() time.Time
}

func NewResolver(client *http.Client, tel *telemetry.Telemetry) *Resolver {
	return &Resolver{
		client:    client,
		telemetry: tel,
		now:       time.Now,
	}
}

// Select returns the first stream whose profile equals profile, or the
// first stream when profile is empty.
func Select(streams []*media.Stream, profile string) (*media.Stream, bool) {
	for _, s := range streams {
		if profile == "" || s.Quality.Profile == profile {
			return s, true
		}
	}

	return nil, false
}

// Resolve picks the stream for inputURI from resp, probes it when its type
// or length is missing and computes the destination. The selected variant
// in resp is updated with the probed metadata.
func (r *Resolver) Resolve(ctx context.Context, opts Options, inputURI string, resp *media.Response) (*media.ResolvedStream, error) {
	logger := logctx.LoggerFromContext(ctx)

	s, ok := Select(resp.Media.Streams, opts.Stream)
	if !ok {
		return nil, &media.NoMatchingProfileError{URI: inputURI, Profile: opts.Stream}
	}

	logger.Debug("selected stream", "profile", s.Quality.Profile, "bitrate", s.Quality.Bitrate)

	if s.NeedsProbe() {
		if err := r.probe(ctx, inputURI, s); err != nil {
			return nil, err
		}
	}

	rs := &media.ResolvedStream{
		Stream:   *s,
		InputURI: inputURI,
	}
	rs.Placeholders = Placeholders(resp.Media, &rs.Stream, r.now())

	if opts.OutputTemplate == media.Stdout {
		return rs, nil
	}

	saveTo, err := r.destination(opts, inputURI, rs.Placeholders)
	if err != nil {
		return nil, err
	}

	rs.SaveTo = saveTo

	logger.Debug("resolved destination", "file_path", saveTo.FullPath)

	return rs, nil
}

// probe sends a HEAD request for the stream and fills in its content type
// and length.
func (r *Resolver) probe(ctx context.Context, inputURI string, s *media.Stream) error {
	logger := logctx.LoggerFromContext(ctx)
	logger.Debug("send HTTP HEAD request", "stream_uri", s.URI)

	return r.telemetry.InstrumentProbe(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, s.URI, nil)
		if err != nil {
			return &media.ProbeError{URI: inputURI, StreamURI: s.URI, Err: err}
		}

		resp, err := r.client.Do(req)
		if err != nil {
			return &media.ProbeError{URI: inputURI, StreamURI: s.URI, Err: err}
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &media.ProbeError{
				URI:        inputURI,
				StreamURI:  s.URI,
				StatusCode: resp.StatusCode,
				Err:        fmt.Errorf("unexpected status %s", resp.Status),
			}
		}

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			s.MimeType = ct
		}

		if resp.ContentLength >= 0 {
			s.ContentLength = uint64(resp.ContentLength)
			s.Probed = true
		}

		logger.Debug("probed stream",
			"mime_type", s.MimeType,
			"content_length", humanize.Bytes(s.ContentLength),
			"length_known", s.LengthKnown(),
		)

		return nil
	})
}
