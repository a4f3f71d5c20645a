package storage

import (
	"context"
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

var ErrNotFound = errors.New("download not found")

// DownloadRecord is the latest outcome for one input URI.
type DownloadRecord struct {
	InputURI      string
	RunID         string
	Profile       string
	FilePath      string
	ContentLength uint64
	Status        string
	Error         string
	UpdatedAt     time.Time
}

type DownloadReadRepository interface {
	GetDownloads(ctx context.Context, limit int) ([]DownloadRecord, error)
	GetDownload(ctx context.Context, inputURI string) (*DownloadRecord, error)
}

type DownloadWriteRepository interface {
	TrackDownload(ctx context.Context, record DownloadRecord) error
}

// GenerateRunID returns a unique string for this process (hostname+pid+random).
func GenerateRunID() string {
	host, _ := os.Hostname()

	return host + "-" + strconv.Itoa(os.Getpid()) + "-" + uuid.NewString()[:8]
}
