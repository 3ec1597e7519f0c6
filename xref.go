package epub

import (
	"regexp"
	"strings"
)

// RewriteCrossReferences turns absolute links to sibling chapters on host,
// href="http(s)://<host>/TR/<sibling>/", into relative links to the
// sibling's main content document, href="../<sibling>/Overview.xhtml". The
// quote character is kept. Links to self are left alone. Rewritten text no
// longer matches, so applying the rewrite again changes nothing.
func RewriteCrossReferences(content, self string, siblings []string, host string) string {
	if host == "" {
		host = DefaultPublishingHost
	}
	for _, name := range siblings {
		if name == "" || name == self {
			continue
		}
		content = crossReferencePattern(host, name).ReplaceAllString(content, "href=${1}../"+name+"/"+mainDocument)
	}
	return content
}

// crossReferencePattern matches absolute links to chapter name on host.
func crossReferencePattern(host, name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)href=(["'])https?://` + regexp.QuoteMeta(host) + `/TR/` + regexp.QuoteMeta(name) + `/`)
}

// siblingNames returns the chapter names of a collection other than self.
func siblingNames(names []string, self string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !strings.EqualFold(n, self) {
			out = append(out, n)
		}
	}
	return out
}
