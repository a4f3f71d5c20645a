package stream

import (
	"errors"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/italolelis/media_downloader/internal/media"
)

const (
	DefaultOutputTemplate = "{title} ({identifier}).{container}"

	maxFileNameLength = 255
	dirPerm           = 0755
)

var (
	placeholderPattern = regexp.MustCompile(`\{([A-Za-z0-9_.]+)\}`)
	reservedChars      = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

	errEmptyFileName = errors.New("output template produced an empty file name")

	preferredExtensions = map[string]string{
		"application/vnd.apple.mpegurl": "m3u8",
		"application/x-mpegurl":         "m3u8",
		"audio/aac":                     "aac",
		"audio/flac":                    "flac",
		"audio/mp4":                     "m4a",
		"audio/mpeg":                    "mp3",
		"audio/ogg":                     "ogg",
		"audio/opus":                    "opus",
		"audio/webm":                    "webm",
		"video/3gpp":                    "3gp",
		"video/mp2t":                    "ts",
		"video/mp4":                     "mp4",
		"video/ogg":                     "ogv",
		"video/quicktime":               "mov",
		"video/webm":                    "webm",
		"video/x-flv":                   "flv",
		"video/x-matroska":              "mkv",
	}
)

// Container returns the file extension for a MIME type such as
// `video/mp4; codecs="avc1.42001E"`, or "bin" when it is unknown.
func Container(mimeType string) string {
	mt := mediaType(mimeType)
	if mt == "" {
		return "bin"
	}

	if ext, ok := preferredExtensions[mt]; ok {
		return ext
	}

	if exts, err := mime.ExtensionsByType(mt); err == nil && len(exts) > 0 {
		return strings.TrimPrefix(exts[0], ".")
	}

	return "bin"
}

// Codecs returns the codecs parameter of a MIME type, if any.
func Codecs(mimeType string) string {
	_, params, err := mime.ParseMediaType(mimeType)
	if err != nil {
		return ""
	}

	return params["codecs"]
}

func mediaType(mimeType string) string {
	mt, _, err := mime.ParseMediaType(mimeType)
	if err != nil {
		mt, _, _ = strings.Cut(mimeType, ";")
	}

	return strings.ToLower(strings.TrimSpace(mt))
}

// Placeholders returns the values available to output templates.
func Placeholders(m media.Media, s *media.Stream, now time.Time) map[string]string {
	return map[string]string{
		"identifier":      m.Identifier,
		"author":          m.Author,
		"title":           m.Title,
		"container":       Container(s.MimeType),
		"quality":         s.Quality.Profile,
		"quality.profile": s.Quality.Profile,
		"quality.bitrate": strconv.FormatUint(uint64(s.Quality.Bitrate), 10),
		"date.locale":     now.Format("Monday, January 2, 2006"),
		"date.iso8601":    now.UTC().Format("2006-01-02"),
	}
}

// Expand replaces {name} placeholders with their values. Unknown names are
// left as they are.
func Expand(tmpl string, values map[string]string) string {
	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(m string) string {
		if v, ok := values[m[1:len(m)-1]]; ok {
			return v
		}

		return m
	})
}

// SanitizeFileName removes characters that are not allowed in file names
// and truncates the result to 255 bytes, keeping the extension.
func SanitizeFileName(name string) string {
	name = strings.TrimSpace(reservedChars.ReplaceAllString(name, ""))
	if strings.Trim(name, ".") == "" {
		return ""
	}

	if len(name) <= maxFileNameLength {
		return name
	}

	ext := filepath.Ext(name)
	if len(ext) >= maxFileNameLength/2 {
		ext = ""
	}

	base := name[:len(name)-len(ext)]

	n := maxFileNameLength - len(ext)
	for n > 0 && !utf8.RuneStart(base[n]) {
		n--
	}

	return base[:n] + ext
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~"+string(filepath.Separator)) {
		return path, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	return filepath.Join(home, path[1:]), nil
}

// destination splits the output template into a directory and a file name.
// The directory is cleaned and home-expanded before placeholders are
// applied, and is never sanitized; only the file name is.
func (r *Resolver) destination(opts Options, inputURI string, values map[string]string) (*media.SaveTo, error) {
	tmpl := opts.OutputTemplate
	if tmpl == "" {
		tmpl = DefaultOutputTemplate
	}

	tmpl = filepath.FromSlash(tmpl)

	dir, err := ExpandHome(filepath.Clean(filepath.Dir(tmpl)))
	if err != nil {
		return nil, &media.FilesystemError{URI: inputURI, Op: "expand", Path: filepath.Dir(tmpl), Err: err}
	}

	dirPath := Expand(dir, values)

	fileName := SanitizeFileName(Expand(filepath.Base(tmpl), values))
	if fileName == "" {
		return nil, &media.FilesystemError{URI: inputURI, Op: "name", Path: dirPath, Err: errEmptyFileName}
	}

	if !opts.SkipDownload {
		if err := os.MkdirAll(dirPath, dirPerm); err != nil {
			return nil, &media.FilesystemError{URI: inputURI, Op: "mkdir", Path: dirPath, Err: err}
		}
	}

	return &media.SaveTo{
		DirPath:  dirPath,
		FileName: fileName,
		FullPath: filepath.Join(dirPath, fileName),
	}, nil
}
