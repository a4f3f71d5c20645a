package media

import "fmt"

// ResolverError represents a failed inquiry: the resolver could not be
// reached in time, the reply was malformed, or the service reported a
// failure status.
type ResolverError struct {
	URI      string // Input URI that was inquired
	Endpoint string // Resolver endpoint
	Reason   string // Service message or transport failure description
	Err      error  // Underlying error, if any
}

func (e *ResolverError) Error() string {
	return fmt.Sprintf("resolver %s failed for %s: %s", e.Endpoint, e.URI, e.Reason)
}

func (e *ResolverError) Unwrap() error {
	return e.Err
}

// NoMatchingProfileError is returned when the requested stream profile is
// not present in the resolver response.
type NoMatchingProfileError struct {
	URI     string
	Profile string
}

func (e *NoMatchingProfileError) Error() string {
	if e.Profile == "" {
		return fmt.Sprintf("no streams available for %s", e.URI)
	}

	return fmt.Sprintf("nothing matched profile %q for %s", e.Profile, e.URI)
}

// ProbeError represents a failed metadata probe of a stream URI.
type ProbeError struct {
	URI        string // Input URI
	StreamURI  string // Stream URI that was probed
	StatusCode int    // HTTP status code, if applicable (0 for non-HTTP errors)
	Err        error
}

func (e *ProbeError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("probe of %s failed (HTTP %d)", e.URI, e.StatusCode)
	}

	return fmt.Sprintf("probe of %s failed: %v", e.URI, e.Err)
}

func (e *ProbeError) Unwrap() error {
	return e.Err
}

// FilesystemError represents failures creating or inspecting the
// destination. A missing destination file is never reported as one.
type FilesystemError struct {
	URI  string
	Op   string // "mkdir", "stat", "open"
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("filesystem error for %s: %s %s: %v", e.URI, e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error {
	return e.Err
}

// TransferError wraps any failure while streaming bytes to the destination.
type TransferError struct {
	URI        string
	StatusCode int // HTTP status code, if applicable
	Err        error
}

func (e *TransferError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("transfer of %s failed (HTTP %d)", e.URI, e.StatusCode)
	}

	return fmt.Sprintf("transfer of %s failed: %v", e.URI, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
