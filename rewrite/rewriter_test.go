package rewrite

import (
	"testing"

	check "gopkg.in/check.v1"
)

// Initialize and register pointer instances of test suites to be
// executed by check testing package.
var (
	_ = check.Suite(new(toAbsoluteTestSuite))
	_ = check.Suite(new(extractReferencesTestSuite))
	_ = check.Suite(new(toLocalTestSuite))
)

// Test registers the [check] library with the go testing library and enables
// the running of the test suite using the go testing library.
func Test(t *testing.T) {
	check.TestingT(t)
}

type toAbsoluteTestSuite struct{}

func (s *toAbsoluteTestSuite) TestRootRelativeAttributes(c *check.C) {
	content := `<img src="/images/logo.png"><a href='/about'>about</a>` +
		`<body background=/bg.gif>`

	rewritten := ToAbsolute(content, "http://x.com", "http://x.com/sub")

	c.Assert(rewritten, check.Equals,
		`<img src="http://x.com/images/logo.png">`+
			`<a href='http://x.com/about'>about</a>`+
			`<body background=http://x.com/bg.gif>`,
	)
}

func (s *toAbsoluteTestSuite) TestPathRelativeAttributes(c *check.C) {
	content := `<img src="logo.png"><script src='js/app.js'></script>`

	rewritten := ToAbsolute(content, "http://x.com", "http://x.com/sub")

	c.Assert(rewritten, check.Equals,
		`<img src="http://x.com/sub/logo.png">`+
			`<script src='http://x.com/sub/js/app.js'></script>`,
	)
}

func (s *toAbsoluteTestSuite) TestSkippedSchemes(c *check.C) {
	content := `<a href="http://other.com/page">x</a>` +
		`<a href="mailto:me@x.com">m</a>` +
		`<a href="javascript:void(0)">j</a>` +
		`<a href="ftp://x.com/f">f</a>` +
		`<a href="#top">t</a>` +
		`<img src="//cdn.x.com/i.png">`

	c.Assert(ToAbsolute(content, "http://x.com", "http://x.com"), check.Equals, content)
}

func (s *toAbsoluteTestSuite) TestCSSConstructs(c *check.C) {
	content := `<style>
	@import "reset.css";
	body { background: url(/img/bg.png); }
	div { background-image: url('tile.gif'); }
	</style>`

	rewritten := ToAbsolute(content, "http://x.com", "http://x.com/css")

	c.Assert(rewritten, check.Equals, `<style>
	@import "http://x.com/css/reset.css";
	body { background: url(http://x.com/img/bg.png); }
	div { background-image: url('http://x.com/css/tile.gif'); }
	</style>`)
}

func (s *toAbsoluteTestSuite) TestRoundTripWithExtraction(c *check.C) {
	content := `<img src="/a.png">`

	rewritten := ToAbsolute(content, "http://x.com", "http://x.com")
	refs := ExtractReferences(rewritten)

	c.Assert(refs, check.HasLen, 1)
	c.Assert(refs[0].URL, check.Equals, "http://x.com/a.png")
}

type extractReferencesTestSuite struct{}

func (s *extractReferencesTestSuite) TestExtractAttributeReferences(c *check.C) {
	content := `<img src="http://x.com/i.png">` +
		`<body background='http://x.com/bg.gif'>` +
		`<iframe src="http://x.com/frame.html"></iframe>` +
		`<link rel="stylesheet" href="http://x.com/site.css">`

	refs := ExtractReferences(content)

	c.Assert(urlsOf(refs), check.DeepEquals, []string{
		"http://x.com/i.png",
		"http://x.com/bg.gif",
		"http://x.com/frame.html",
		"http://x.com/site.css",
	})
}

func (s *extractReferencesTestSuite) TestExtractCSSReferences(c *check.C) {
	content := `<style>
	@import "http://x.com/reset.css";
	body { background: url(http://x.com/bg.png); }
	li { list-style-image: url('http://x.com/dot.gif'); }
	</style>`

	refs := ExtractReferences(content)

	c.Assert(urlsOf(refs), check.DeepEquals, []string{
		"http://x.com/reset.css",
		"http://x.com/bg.png",
		"http://x.com/dot.gif",
	})
}

func (s *extractReferencesTestSuite) TestNonAbsoluteValuesAreDiscarded(c *check.C) {
	content := `<img src="relative.png">` +
		`<img src="javascript:void(0)">` +
		`<iframe src="ftp://x.com/f"></iframe>`

	c.Assert(ExtractReferences(content), check.HasLen, 0)
}

func (s *extractReferencesTestSuite) TestDuplicateKeysAreIgnored(c *check.C) {
	content := `<img src="http://x.com/i.png"><img src="http://x.com/i.png">`

	refs := ExtractReferences(content)

	c.Assert(refs, check.HasLen, 1)
	c.Assert(refs[0].Delimited, check.Equals, `"http://x.com/i.png"`)
}

func (s *extractReferencesTestSuite) TestHTTPSReferencesAreExtracted(c *check.C) {
	refs := ExtractReferences(`<img src="https://x.com/i.png">`)

	c.Assert(urlsOf(refs), check.DeepEquals, []string{"https://x.com/i.png"})
}

type toLocalTestSuite struct{}

// localNames is a NodeLookup stub mapping URLs to download filenames.
type localNames map[string]string

func (l localNames) LocalName(url string) (string, bool) {
	name, exists := l[url]

	return name, exists
}

func (s *toLocalTestSuite) TestRewriteToLocalPaths(c *check.C) {
	content := `<img src="http://x.com/i.png">` +
		`<style>body { background: url(http://x.com/bg.gif); }</style>`

	refs := ExtractReferences(content)
	store := localNames{
		"http://x.com/i.png":  "i.png",
		"http://x.com/bg.gif": "bg.gif",
	}

	rewritten := ToLocal(content, refs, store, "page_files")

	c.Assert(rewritten, check.Equals,
		`<img src="page_files/i.png">`+
			`<style>body { background: url(page_files/bg.gif); }</style>`,
	)
}

func (s *toLocalTestSuite) TestUnknownURLsAreLeftUntouched(c *check.C) {
	content := `<img src="http://x.com/missing.png">`
	refs := ExtractReferences(content)

	c.Assert(ToLocal(content, refs, localNames{}, "page_files"), check.Equals, content)
}

func (s *toLocalTestSuite) TestBaseHrefExtraction(c *check.C) {
	content := `<html><head><base href="http://x.com/base/"><title>t</title></head></html>`

	href, stripped, found := ExtractBaseHref(content)

	c.Assert(found, check.Equals, true)
	c.Assert(href, check.Equals, "http://x.com/base")
	c.Assert(stripped, check.Equals, `<html><head><title>t</title></head></html>`)
}

func (s *toLocalTestSuite) TestMissingBaseHref(c *check.C) {
	content := `<html><head></head></html>`

	_, stripped, found := ExtractBaseHref(content)

	c.Assert(found, check.Equals, false)
	c.Assert(stripped, check.Equals, content)
}

func urlsOf(refs []Reference) []string {
	urls := make([]string, len(refs))
	for i, ref := range refs {
		urls[i] = ref.URL
	}

	return urls
}
