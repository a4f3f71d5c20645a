package resolver_test

import (
	"testing"

	"github.com/italolelis/media_downloader/internal/media"
	"github.com/italolelis/media_downloader/internal/resolver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

func TestInquiry_RoundTrip(t *testing.T) {
	b := resolver.EncodeInquiry("https://example.com/watch?v=abc")

	uri, err := resolver.DecodeInquiry(b)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/watch?v=abc", uri)
}

func TestDecodeResponse(t *testing.T) {
	want := &media.Response{
		Status: media.Status{Code: -1, Message: "unsupported host", Error: 3, HTTPCode: 404},
		Media: media.Media{
			Identifier: "abc",
			Title:      "A Title",
			Author:     "Someone",
			Streams: []*media.Stream{
				{
					URI:           "https://cdn.example.com/hq.mp4",
					MimeType:      "video/mp4",
					ContentLength: 1 << 40,
					Quality:       media.Quality{Profile: "High Quality", Width: 1280, Height: 720, Bitrate: 128000},
				},
				{
					URI:     "https://cdn.example.com/lq.webm",
					Quality: media.Quality{Profile: "Low Quality", Bitrate: 64000},
				},
			},
		},
	}

	got, err := resolver.DecodeResponse(resolver.EncodeResponse(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.False(t, got.OK())
}

func TestDecodeResponse_SkipsUnknownFields(t *testing.T) {
	b := resolver.EncodeResponse(&media.Response{Media: media.Media{Title: "kept"}})

	// field 15 (varint) and field 16 (bytes) are not part of the schema
	b = protowire.AppendTag(b, 15, protowire.VarintType)
	b = protowire.AppendVarint(b, 42)
	b = protowire.AppendTag(b, 16, protowire.BytesType)
	b = protowire.AppendString(b, "thumbnail")

	got, err := resolver.DecodeResponse(b)
	require.NoError(t, err)
	assert.True(t, got.OK())
	assert.Equal(t, "kept", got.Media.Title)
}

func TestDecodeResponse_Malformed(t *testing.T) {
	valid := resolver.EncodeResponse(&media.Response{Media: media.Media{Title: "a long enough title"}})

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated varint", []byte{0xff}},
		{"truncated message", valid[:len(valid)-3]},
		{"length past end", []byte{0x12, 0x7f, 0x01}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolver.DecodeResponse(tt.data)
			assert.Error(t, err)
		})
	}
}
