package resource

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	titleRegex         = regexp.MustCompile(`(?i)<title.*?>(.*?)</title>`)
	repeatedSpaceRegex = regexp.MustCompile(`\s+`)

	policyPool = sync.Pool{
		New: func() interface{} {
			return bluemonday.StrictPolicy()
		},
	}
)

// stripTags removes all HTML tags together with script and style bodies,
// decodes HTML entities and collapses whitespace runs.
func stripTags(content string) string {
	policy := policyPool.Get().(*bluemonday.Policy)
	defer policyPool.Put(policy)

	clean := repeatedSpaceRegex.ReplaceAllString(policy.Sanitize(content), " ")

	return strings.TrimSpace(html.UnescapeString(clean))
}
