package source

import (
	"html"
	"regexp"
	"strings"
)

// linkPattern matches prefix followed by one path segment inside a value
// opened by quote, optionally as an absolute URL. A segment ends at the same
// quote, a query or a fragment, so deeper links never match and the other
// quote character is part of the name.
func linkPattern(quote, prefix string) *regexp.Regexp {
	return regexp.MustCompile(quote + `(?:[a-zA-Z][a-zA-Z0-9+.-]*://[^/"'\s]+)?` +
		regexp.QuoteMeta(prefix) + `/([^/` + quote + `?#<>\s\\]+)[` + quote + `?#]`)
}

// ParseListing extracts the direct children of one remote directory from its
// browsable markup. filePrefix and dirPrefix are the link paths of that exact
// directory for file and directory links; a link counts only when it is the
// prefix followed by a single segment. HTML entities are decoded before
// matching, so prefixes and names are compared in their decoded form; names
// stay percent-escaped as they appear in the link. A name that is linked as a
// file is never reported as a directory.
func ParseListing(markup, filePrefix, dirPrefix string) *Listing {
	markup = html.UnescapeString(markup)
	listing := NewListing()

	for _, name := range matchSegments(markup, filePrefix) {
		listing.AddFile(name)
	}
	for _, name := range matchSegments(markup, dirPrefix) {
		if _, isFile := listing.Files[name]; isFile {
			continue
		}
		listing.AddDir(name)
	}
	return listing
}

func matchSegments(markup, prefix string) []string {
	prefix = strings.TrimSuffix(prefix, "/")

	var names []string
	for _, quote := range []string{`"`, `'`} {
		for _, m := range linkPattern(quote, prefix).FindAllStringSubmatch(markup, -1) {
			name := m[1]
			if name == "." || name == ".." || name == "" {
				continue
			}
			names = append(names, name)
		}
	}
	return names
}
