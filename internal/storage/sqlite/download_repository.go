package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/italolelis/media_downloader/internal/storage"
)

type DownloadRepository struct {
	db *sql.DB
}

func NewDownloadRepository(dbConn *sql.DB) *DownloadRepository {
	return &DownloadRepository{db: dbConn}
}

// TrackDownload stores record as the latest outcome for its input URI.
func (r *DownloadRepository) TrackDownload(ctx context.Context, record storage.DownloadRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO downloads (input_uri, run_id, profile, file_path, content_length, status, error, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(input_uri) DO UPDATE SET
			run_id = excluded.run_id,
			profile = excluded.profile,
			file_path = excluded.file_path,
			content_length = excluded.content_length,
			status = excluded.status,
			error = excluded.error,
			updated_at = excluded.updated_at
	`,
		record.InputURI,
		record.RunID,
		record.Profile,
		record.FilePath,
		int64(record.ContentLength),
		record.Status,
		record.Error,
		record.UpdatedAt.UTC(),
	)

	return err
}

// GetDownloads returns the most recently updated records first. A limit of
// zero or less returns every record.
func (r *DownloadRepository) GetDownloads(ctx context.Context, limit int) ([]storage.DownloadRecord, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT input_uri, run_id, profile, file_path, content_length, status, error, updated_at
		FROM downloads
		ORDER BY updated_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var downloads []storage.DownloadRecord

	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}

		downloads = append(downloads, *record)
	}

	return downloads, rows.Err()
}

// GetDownload returns the record for inputURI or storage.ErrNotFound.
func (r *DownloadRepository) GetDownload(ctx context.Context, inputURI string) (*storage.DownloadRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT input_uri, run_id, profile, file_path, content_length, status, error, updated_at
		FROM downloads
		WHERE input_uri = ?`, inputURI)

	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}

	return record, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*storage.DownloadRecord, error) {
	var (
		record        storage.DownloadRecord
		runID         sql.NullString
		profile       sql.NullString
		filePath      sql.NullString
		contentLength sql.NullInt64
		errMsg        sql.NullString
		updatedAt     sql.NullTime
	)

	if err := s.Scan(
		&record.InputURI,
		&runID,
		&profile,
		&filePath,
		&contentLength,
		&record.Status,
		&errMsg,
		&updatedAt,
	); err != nil {
		return nil, err
	}

	record.RunID = runID.String
	record.Profile = profile.String
	record.FilePath = filePath.String
	record.ContentLength = uint64(contentLength.Int64)
	record.Error = errMsg.String
	record.UpdatedAt = updatedAt.Time

	return &record, nil
}
