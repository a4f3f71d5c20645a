// Package resolver talks to the media resolver service: it sends one
// inquiry per input URI over a ZeroMQ request socket and decodes the reply.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-zeromq/zmq4"
	"github.com/italolelis/media_downloader/internal/logctx"
	"github.com/italolelis/media_downloader/internal/media"
)

const (
	DefaultEndpoint = "tcp://localhost:5514"
	DefaultTimeout  = 30 * time.Second
)

// Config of a single inquiry.
type Config struct {
	Endpoint string
	Timeout  time.Duration
}

// InquireFunc matches Inquire so callers can decorate it.
type InquireFunc func(ctx context.Context, cfg Config, uri string) (*media.Response, error)

type reply struct {
	msg zmq4.Msg
	err error
}

// Inquire asks the resolver about uri. A new socket is opened for every
// call and closed before returning; a REQ socket cannot pipeline requests.
// Stream profiles of a successful response are slugified.
func Inquire(ctx context.Context, cfg Config, uri string) (*media.Response, error) {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	logger := logctx.LoggerFromContext(ctx).With("endpoint", cfg.Endpoint)

	fail := func(reason string, err error) error {
		return &media.ResolverError{URI: uri, Endpoint: cfg.Endpoint, Reason: reason, Err: err}
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	logger.Debug("connect to resolver", "timeout", cfg.Timeout.String())

	sck := zmq4.NewReq(ctx, zmq4.WithDialerTimeout(cfg.Timeout), zmq4.WithTimeout(cfg.Timeout))
	defer sck.Close()

	if err := sck.Dial(cfg.Endpoint); err != nil {
		return nil, fail("could not connect", err)
	}

	logger.Debug("inquire", "input_uri", humanizeURI(uri))

	if err := sck.Send(zmq4.NewMsg(EncodeInquiry(uri))); err != nil {
		return nil, fail("could not send inquiry", err)
	}

	// Recv has no deadline of its own; closing the socket on return
	// unblocks the goroutine.
	replies := make(chan reply, 1)

	go func() {
		msg, err := sck.Recv()
		replies <- reply{msg: msg, err: err}
	}()

	var r reply

	select {
	case <-ctx.Done():
		return nil, fail("timed out awaiting a response", ctx.Err())
	case r = <-replies:
	}

	if r.err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fail("timed out awaiting a response", r.err)
		}

		return nil, fail("could not receive response", r.err)
	}

	resp, err := DecodeResponse(r.msg.Bytes())
	if err != nil {
		return nil, fail("malformed response", err)
	}

	if !resp.OK() {
		return nil, fail(statusReason(resp.Status), nil)
	}

	for _, s := range resp.Media.Streams {
		s.Quality.Profile = Slugify(s.Quality.Profile)
	}

	logger.Debug("received response", "identifier", resp.Media.Identifier, "stream_count", len(resp.Media.Streams))

	return resp, nil
}

func statusReason(s media.Status) string {
	msg := s.Message
	if msg == "" {
		msg = fmt.Sprintf("status code %d", s.Code)
	}

	if s.HTTPCode != 0 {
		return fmt.Sprintf("%s (HTTP %d)", msg, s.HTTPCode)
	}

	return msg
}

// humanizeURI drops the scheme and a trailing slash for log output.
func humanizeURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return uri
	}

	s := u.Host + u.RequestURI()
	if len(s) > 1 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}

	return s
}
