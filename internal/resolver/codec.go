package resolver

import (
	"errors"
	"fmt"

	"github.com/italolelis/media_downloader/internal/media"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of the v1beta1 message schema shared with the resolver.
const (
	inquiryMedia    protowire.Number = 1
	mediaInquiryURI protowire.Number = 1
	responseStatus  protowire.Number = 1
	responseMedia   protowire.Number = 2
	statusMessage   protowire.Number = 1
	statusCode      protowire.Number = 2
	statusError     protowire.Number = 3
	statusHTTP      protowire.Number = 4
	httpCode        protowire.Number = 1
	mediaTitle      protowire.Number = 1
	mediaIdentifier protowire.Number = 2
	mediaAuthor     protowire.Number = 3
	mediaStream     protowire.Number = 4
	streamQuality   protowire.Number = 1
	streamURI       protowire.Number = 2
	streamMimeType  protowire.Number = 3
	streamLength    protowire.Number = 4
	qualityProfile  protowire.Number = 1
	qualityWidth    protowire.Number = 2
	qualityHeight   protowire.Number = 3
	qualityBitrate  protowire.Number = 4
)

var errEmptyMessage = errors.New("empty message")

// EncodeInquiry serializes an inquiry for the given input URI.
func EncodeInquiry(uri string) []byte {
	var inner []byte
	inner = protowire.AppendTag(inner, mediaInquiryURI, protowire.BytesType)
	inner = protowire.AppendString(inner, uri)

	var b []byte
	b = protowire.AppendTag(b, inquiryMedia, protowire.BytesType)

	return protowire.AppendBytes(b, inner)
}

// DecodeInquiry returns the input URI carried by an encoded inquiry.
func DecodeInquiry(b []byte) (string, error) {
	if len(b) == 0 {
		return "", errEmptyMessage
	}

	var uri string

	err := decodeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		if num != inquiryMedia {
			return 0, nil
		}

		return consumeMessage(typ, b, func(b []byte) error {
			return decodeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				if num != mediaInquiryURI {
					return 0, nil
				}

				return consumeString(typ, b, &uri), nil
			})
		})
	})
	if err != nil {
		return "", fmt.Errorf("failed to decode inquiry: %w", err)
	}

	return uri, nil
}

// EncodeResponse serializes a response. The resolver service owns the real
// encoder; this one exists for tooling and tests speaking the same schema.
func EncodeResponse(r *media.Response) []byte {
	var status []byte
	status = appendString(status, statusMessage, r.Status.Message)
	status = appendInt32(status, statusCode, r.Status.Code)
	status = appendInt32(status, statusError, r.Status.Error)

	if r.Status.HTTPCode != 0 {
		var h []byte
		h = appendInt32(h, httpCode, r.Status.HTTPCode)
		status = appendMessage(status, statusHTTP, h)
	}

	var m []byte
	m = appendString(m, mediaTitle, r.Media.Title)
	m = appendString(m, mediaIdentifier, r.Media.Identifier)
	m = appendString(m, mediaAuthor, r.Media.Author)

	for _, s := range r.Media.Streams {
		var q []byte
		q = appendString(q, qualityProfile, s.Quality.Profile)
		q = appendUint(q, qualityWidth, uint64(s.Quality.Width))
		q = appendUint(q, qualityHeight, uint64(s.Quality.Height))
		q = appendUint(q, qualityBitrate, uint64(s.Quality.Bitrate))

		var sb []byte
		sb = appendMessage(sb, streamQuality, q)
		sb = appendString(sb, streamURI, s.URI)
		sb = appendString(sb, streamMimeType, s.MimeType)
		sb = appendUint(sb, streamLength, s.ContentLength)

		m = appendMessage(m, mediaStream, sb)
	}

	var b []byte
	b = appendMessage(b, responseStatus, status)

	return appendMessage(b, responseMedia, m)
}

// DecodeResponse parses a response frame. Unknown fields are skipped.
func DecodeResponse(b []byte) (*media.Response, error) {
	if len(b) == 0 {
		return nil, errEmptyMessage
	}

	var r media.Response

	err := decodeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case responseStatus:
			return consumeMessage(typ, b, func(b []byte) error { return decodeStatus(b, &r.Status) })
		case responseMedia:
			return consumeMessage(typ, b, func(b []byte) error { return decodeMedia(b, &r.Media) })
		}

		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &r, nil
}

func decodeStatus(b []byte, s *media.Status) error {
	return decodeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case statusMessage:
			return consumeString(typ, b, &s.Message), nil
		case statusCode:
			return consumeInt32(typ, b, &s.Code), nil
		case statusError:
			return consumeInt32(typ, b, &s.Error), nil
		case statusHTTP:
			return consumeMessage(typ, b, func(b []byte) error {
				return decodeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					if num != httpCode {
						return 0, nil
					}

					return consumeInt32(typ, b, &s.HTTPCode), nil
				})
			})
		}

		return 0, nil
	})
}

func decodeMedia(b []byte, m *media.Media) error {
	return decodeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case mediaTitle:
			return consumeString(typ, b, &m.Title), nil
		case mediaIdentifier:
			return consumeString(typ, b, &m.Identifier), nil
		case mediaAuthor:
			return consumeString(typ, b, &m.Author), nil
		case mediaStream:
			return consumeMessage(typ, b, func(b []byte) error {
				s := &media.Stream{}
				if err := decodeStream(b, s); err != nil {
					return err
				}

				m.Streams = append(m.Streams, s)

				return nil
			})
		}

		return 0, nil
	})
}

func decodeStream(b []byte, s *media.Stream) error {
	return decodeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case streamQuality:
			return consumeMessage(typ, b, func(b []byte) error { return decodeQuality(b, &s.Quality) })
		case streamURI:
			return consumeString(typ, b, &s.URI), nil
		case streamMimeType:
			return consumeString(typ, b, &s.MimeType), nil
		case streamLength:
			return consumeUint64(typ, b, &s.ContentLength), nil
		}

		return 0, nil
	})
}

func decodeQuality(b []byte, q *media.Quality) error {
	return decodeMessage(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case qualityProfile:
			return consumeString(typ, b, &q.Profile), nil
		case qualityWidth:
			return consumeUint32(typ, b, &q.Width), nil
		case qualityHeight:
			return consumeUint32(typ, b, &q.Height), nil
		case qualityBitrate:
			return consumeUint32(typ, b, &q.Bitrate), nil
		}

		return 0, nil
	})
}

// decodeMessage walks the fields of b. field returns the number of bytes it
// consumed, 0 to have the field skipped, or a negative protowire error code.
func decodeMessage(b []byte, field func(num protowire.Number, typ protowire.Type, b []byte) (int, error)) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}

		b = b[n:]

		m, err := field(num, typ, b)
		if err != nil {
			return err
		}

		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}

		if m < 0 {
			return protowire.ParseError(m)
		}

		b = b[m:]
	}

	return nil
}

func consumeMessage(typ protowire.Type, b []byte, decode func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, nil
	}

	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return n, nil
	}

	return n, decode(v)
}

func consumeString(typ protowire.Type, b []byte, dst *string) int {
	if typ != protowire.BytesType {
		return 0
	}

	v, n := protowire.ConsumeString(b)
	if n >= 0 {
		*dst = v
	}

	return n
}

func consumeUint64(typ protowire.Type, b []byte, dst *uint64) int {
	if typ != protowire.VarintType {
		return 0
	}

	v, n := protowire.ConsumeVarint(b)
	if n >= 0 {
		*dst = v
	}

	return n
}

func consumeUint32(typ protowire.Type, b []byte, dst *uint32) int {
	var v uint64

	n := consumeUint64(typ, b, &v)
	if n > 0 {
		*dst = uint32(v)
	}

	return n
}

func consumeInt32(typ protowire.Type, b []byte, dst *int32) int {
	var v uint64

	n := consumeUint64(typ, b, &v)
	if n > 0 {
		*dst = int32(v)
	}

	return n
}

func appendString(b []byte, num protowire.Number, v string) []byte {
	if v == "" {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendString(b, v)
}

func appendUint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, v)
}

// appendInt32 sign-extends negative values the way protobuf encodes int32
// and enum fields.
func appendInt32(b []byte, num protowire.Number, v int32) []byte {
	if v == 0 {
		return b
	}

	b = protowire.AppendTag(b, num, protowire.VarintType)

	return protowire.AppendVarint(b, uint64(int64(v)))
}

func appendMessage(b []byte, num protowire.Number, v []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)

	return protowire.AppendBytes(b, v)
}
