package media

import (
	"errors"
	"fmt"
	"os"
	"testing"
)

// TestResolverError_Error verifies error message formatting
func TestResolverError_Error(t *testing.T) {
	err := &ResolverError{
		URI:      "https://example.com/watch?v=1",
		Endpoint: "tcp://localhost:5514",
		Reason:   "unsupported host",
	}

	expected := "resolver tcp://localhost:5514 failed for https://example.com/watch?v=1: unsupported host"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

// TestNoMatchingProfileError_Error verifies both the empty and named profile forms
func TestNoMatchingProfileError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *NoMatchingProfileError
		want string
	}{
		{
			name: "named profile",
			err:  &NoMatchingProfileError{URI: "https://a", Profile: "low-quality"},
			want: `nothing matched profile "low-quality" for https://a`,
		},
		{
			name: "no streams",
			err:  &NoMatchingProfileError{URI: "https://a"},
			want: "no streams available for https://a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestProbeError_Error verifies error message formatting
func TestProbeError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *ProbeError
		want string
	}{
		{
			name: "with HTTP status code",
			err:  &ProbeError{URI: "https://a", StatusCode: 404},
			want: "probe of https://a failed (HTTP 404)",
		},
		{
			name: "without HTTP status code",
			err:  &ProbeError{URI: "https://a", Err: errors.New("connection refused")},
			want: "probe of https://a failed: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

// TestTypedErrors_Unwrap verifies error chain traversal
func TestTypedErrors_Unwrap(t *testing.T) {
	cause := errors.New("underlying cause")

	tests := []struct {
		name string
		err  error
	}{
		{"ResolverError", &ResolverError{URI: "u", Err: cause}},
		{"ProbeError", &ProbeError{URI: "u", Err: cause}},
		{"FilesystemError", &FilesystemError{URI: "u", Op: "stat", Path: "/x", Err: cause}},
		{"TransferError", &TransferError{URI: "u", Err: cause}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unwrapped := errors.Unwrap(tt.err); unwrapped != cause {
				t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
			}

			wrapped := fmt.Errorf("context: %w", tt.err)
			if !errors.Is(wrapped, cause) {
				t.Error("errors.Is() should find cause in wrapped chain")
			}
		})
	}
}

// TestFilesystemError_As verifies programmatic error type detection
func TestFilesystemError_As(t *testing.T) {
	wrapped := fmt.Errorf("download: %w", &FilesystemError{URI: "u", Op: "mkdir", Path: "/ro", Err: os.ErrPermission})

	var target *FilesystemError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As() should extract FilesystemError from wrapped chain")
	}

	if target.Op != "mkdir" || target.Path != "/ro" {
		t.Errorf("got Op=%q Path=%q", target.Op, target.Path)
	}

	if !errors.Is(wrapped, os.ErrPermission) {
		t.Error("errors.Is() should find os.ErrPermission")
	}
}

func TestStream_LengthKnown(t *testing.T) {
	tests := []struct {
		name   string
		stream Stream
		want   bool
	}{
		{"unprobed zero is unknown", Stream{}, false},
		{"probed zero is known empty", Stream{Probed: true}, true},
		{"non-zero length", Stream{ContentLength: 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.stream.LengthKnown(); got != tt.want {
				t.Errorf("LengthKnown() = %v, want %v", got, tt.want)
			}
		})
	}
}
