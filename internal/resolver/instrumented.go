package resolver

import (
	"context"

	"github.com/italolelis/media_downloader/internal/media"
	"github.com/italolelis/media_downloader/internal/telemetry"
)

// Instrumented wraps an InquireFunc with telemetry.
func Instrumented(tel *telemetry.Telemetry, inquire InquireFunc) InquireFunc {
	return func(ctx context.Context, cfg Config, uri string) (*media.Response, error) {
		var resp *media.Response

		err := tel.InstrumentInquiry(ctx, func(ctx context.Context) error {
			var err error
			resp, err = inquire(ctx, cfg, uri)

			return err
		})
		if err != nil {
			return nil, err
		}

		return resp, nil
	}
}
