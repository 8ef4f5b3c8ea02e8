package source

import (
	"reflect"
	"testing"
)

const (
	testDirPrefix  = "/BuilderIO/builder/tree/main/examples/next-js"
	testFilePrefix = "/BuilderIO/builder/blob/main/examples/next-js"
)

func TestParseListing(t *testing.T) {
	markup := `
<a href="/BuilderIO/builder/blob/main/examples/next-js/package.json">package.json</a>
<a href="/BuilderIO/builder/blob/main/examples/next-js/README.md#readme">README.md</a>
<a href="/BuilderIO/builder/tree/main/examples/next-js/pages">pages</a>
<a href="/BuilderIO/builder/blob/main/examples/next-js/pages/index.js">deeper file</a>
<a href="/BuilderIO/builder/tree/main/examples/next-js/pages/api">deeper dir</a>
<a href="/BuilderIO/builder/tree/main/examples/next-js-app/other">sibling template</a>
<a href="/BuilderIO/builder/blob/main/examples/next-js/package.json">duplicate</a>
<a href="/BuilderIO/builder/blob/main/examples/next-js/my%20file.txt">escaped</a>
<a href="/BuilderIO/builder/tree/main/examples/next-js/Tom&amp;Jerry">entity</a>
`
	listing := ParseListing(markup, testFilePrefix, testDirPrefix)

	wantFiles := []string{"README.md", "my%20file.txt", "package.json"}
	if got := listing.FileNames(); !reflect.DeepEqual(got, wantFiles) {
		t.Errorf("Expected files %v, got %v", wantFiles, got)
	}
	wantDirs := []string{"Tom&Jerry", "pages"}
	if got := listing.DirNames(); !reflect.DeepEqual(got, wantDirs) {
		t.Errorf("Expected dirs %v, got %v", wantDirs, got)
	}
}

func TestParseListingEmptyPage(t *testing.T) {
	listing := ParseListing("<html><body>Not Found</body></html>", testFilePrefix, testDirPrefix)
	if len(listing.Files) != 0 || len(listing.Dirs) != 0 {
		t.Errorf("Expected empty listing, got files=%v dirs=%v", listing.FileNames(), listing.DirNames())
	}
}

func TestParseListingFileWinsOverDir(t *testing.T) {
	markup := `"/BuilderIO/builder/blob/main/examples/next-js/same" "/BuilderIO/builder/tree/main/examples/next-js/same"`
	listing := ParseListing(markup, testFilePrefix, testDirPrefix)

	if _, ok := listing.Files["same"]; !ok {
		t.Error("Expected 'same' to be listed as a file")
	}
	if _, ok := listing.Dirs["same"]; ok {
		t.Error("Expected 'same' not to be listed as a directory too")
	}
}

func TestParseListingIsCaseSensitive(t *testing.T) {
	markup := `"/BuilderIO/builder/blob/main/examples/next-js/Readme.md" "/BuilderIO/builder/blob/main/examples/next-js/README.md"`
	listing := ParseListing(markup, testFilePrefix, testDirPrefix)
	if len(listing.Files) != 2 {
		t.Errorf("Expected 2 distinct files, got %v", listing.FileNames())
	}
}

func TestParseListingTrailingSlashPrefix(t *testing.T) {
	markup := `"/BuilderIO/builder/tree/main/examples/next-js/pages"`
	listing := ParseListing(markup, testFilePrefix+"/", testDirPrefix+"/")
	if got := listing.DirNames(); !reflect.DeepEqual(got, []string{"pages"}) {
		t.Errorf("Expected [pages], got %v", got)
	}
}

func TestParseListingQuotesInNames(t *testing.T) {
	markup := `<a href="/BuilderIO/builder/blob/main/examples/next-js/it's.txt">it's</a>
<a href='/BuilderIO/builder/blob/main/examples/next-js/say"hi".md'>quoted</a>
<a href="/BuilderIO/builder/blob/main/examples/next-js/don&#39;t.md">entity quote</a>`
	listing := ParseListing(markup, testFilePrefix, testDirPrefix)

	want := []string{"don't.md", "it's.txt", "say\"hi\".md"}
	if got := listing.FileNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("Expected files %v, got %v", want, got)
	}
}

func TestParseListingEntityInParentPath(t *testing.T) {
	markup := `<a href="/BuilderIO/builder/blob/main/examples/next-js/Tom&amp;Jerry/x.txt">x</a>
<a href="/BuilderIO/builder/tree/main/examples/next-js/Tom&amp;Jerry/nested">nested</a>
<a href="/BuilderIO/builder/blob/main/examples/next-js/Tom&amp;Jerry/nested/y.txt">deeper</a>`
	listing := ParseListing(markup, testFilePrefix+"/Tom&Jerry", testDirPrefix+"/Tom&Jerry")

	if got := listing.FileNames(); !reflect.DeepEqual(got, []string{"x.txt"}) {
		t.Errorf("Expected [x.txt], got %v", got)
	}
	if got := listing.DirNames(); !reflect.DeepEqual(got, []string{"nested"}) {
		t.Errorf("Expected [nested], got %v", got)
	}
}

func TestParseListingAbsoluteLinks(t *testing.T) {
	markup := `<a href="https://github.com/BuilderIO/builder/blob/main/examples/next-js/a.txt">a</a>`
	listing := ParseListing(markup, testFilePrefix, testDirPrefix)
	if got := listing.FileNames(); !reflect.DeepEqual(got, []string{"a.txt"}) {
		t.Errorf("Expected [a.txt], got %v", got)
	}
}
