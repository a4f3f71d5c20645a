// Package media holds the values passed between the resolver, the stream
// resolver and the download engine.
package media

import (
	"time"
)

// Stdout is the output template value that streams to standard output
// instead of writing a file.
const Stdout = "-"

// StatusOK is the resolver status code for a successful inquiry.
const StatusOK int32 = 0

type Status struct {
	Code     int32
	Message  string
	Error    int32
	HTTPCode int32
}

type Response struct {
	Status Status
	Media  Media
}

// OK reports whether the resolver accepted the inquiry. Media must not be
// read otherwise.
func (r *Response) OK() bool {
	return r.Status.Code == StatusOK
}

type Media struct {
	Identifier string
	Title      string
	Author     string
	Streams    []*Stream
}

type Quality struct {
	Profile string
	Width   uint32
	Height  uint32
	Bitrate uint32
}

// Stream is one downloadable variant of a media resource.
type Stream struct {
	URI           string
	MimeType      string
	ContentLength uint64
	Quality       Quality

	// Probed is set once MimeType and ContentLength were taken from a
	// metadata probe. A probed length of zero means the resource is empty,
	// an unprobed zero means the length is unknown.
	Probed bool
}

// LengthKnown reports whether ContentLength can be trusted for completion
// checks.
func (s *Stream) LengthKnown() bool {
	return s.ContentLength > 0 || s.Probed
}

// NeedsProbe reports whether the stream misses metadata the engine relies on.
func (s *Stream) NeedsProbe() bool {
	return s.MimeType == "" || s.ContentLength == 0
}

type SaveTo struct {
	DirPath  string
	FileName string
	FullPath string
}

// ResolvedStream is a stream with confirmed metadata and a destination.
// SaveTo is nil when the output is Stdout.
type ResolvedStream struct {
	Stream

	InputURI     string
	Placeholders map[string]string
	SaveTo       *SaveTo
}

// Progress is emitted by the download engine while bytes are transferred.
type Progress struct {
	Transferred uint64
	Total       uint64
	Rate        float64 // bytes per second
	ETA         time.Duration
	Elapsed     time.Duration
}

// ProgressFunc receives progress events. It is called from the goroutine
// performing the transfer.
type ProgressFunc func(Progress)
