package resolver_test

import (
	"testing"

	"github.com/italolelis/media_downloader/internal/resolver"
	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"High Quality", "high-quality"},
		{"Low Quality", "low-quality"},
		{"medium_360p", "medium-360p"},
		{"720p (HD)", "720p-hd"},
		{"audio/mp4 @ 128k", "audio-mp4-128k"},
		{"HD720p", "hd-720p"},
		{"hlsVariant", "hls-variant"},
		{"Qualité Supérieure", "qualite-superieure"},
		{"Rock & Roll", "rock-and-roll"},
		{"Высокое качество", "vysokoe-kachestvo"},
		{"Низкое качество", "nizkoe-kachestvo"},
		{"高清", "gao-qing"},
		{"Κνωσός", "knosos"},
		{"Hochauflösung", "hochaufloesung"},
		{"Ölfilm", "oelfilm"},
		{"APIs", "apis"},
		{"HDVideos", "hd-videos"},
		{"  --already-slug--  ", "already-slug"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, resolver.Slugify(tt.in))
		})
	}
}

func TestSlugify_NonLatinProfilesStayDistinct(t *testing.T) {
	high := resolver.Slugify("Высокое качество")
	low := resolver.Slugify("Низкое качество")

	assert.NotEmpty(t, high)
	assert.NotEmpty(t, low)
	assert.NotEqual(t, high, low)
}

func TestSlugify_Deterministic(t *testing.T) {
	assert.Equal(t, resolver.Slugify("Best Audio"), resolver.Slugify("Best Audio"))
	assert.Equal(t, resolver.Slugify("best audio"), resolver.Slugify("Best-Audio"))
}
