// Package input collects the URIs to process from the command line or from
// standard input.
package input

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"
)

// Read returns the normalised, de-duplicated URIs given in args, or read
// from r one per line when args is empty. On r, everything after a '#' is
// a comment.
func Read(args []string, r io.Reader) ([]string, error) {
	var raw []string

	if len(args) > 0 {
		raw = args
	} else {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line, _, _ := strings.Cut(scanner.Text(), "#")
			raw = append(raw, line)
		}

		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
	}

	seen := make(map[string]struct{}, len(raw))
	uris := make([]string, 0, len(raw))

	for _, v := range raw {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}

		uri, err := Normalize(v)
		if err != nil {
			return nil, err
		}

		if _, ok := seen[uri]; ok {
			continue
		}

		seen[uri] = struct{}{}
		uris = append(uris, uri)
	}

	return uris, nil
}

// Normalize parses raw as an absolute http or https URI and rebuilds it from
// its components.
func Normalize(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid URI %q: %w", raw, err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%s: unsupported protocol (%s)", u.Scheme, raw)
	}

	if u.Host == "" {
		return "", fmt.Errorf("invalid URI %q: missing host", raw)
	}

	u.Host = strings.ToLower(u.Host)

	if u.Path == "" {
		u.Path = "/"
	}

	return u.String(), nil
}
