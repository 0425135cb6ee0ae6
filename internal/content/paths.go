package content

import (
	"fmt"
	"regexp"
	"strings"

	"central-illustration/internal/models"
)

var proxyPrefix = regexp.MustCompile(`^(/proxy/[^/]+)(/|$)`)

// Path is the URL a running demo fetches one markdown slot from.
func Path(page int, ct models.ContentType) string {
	return fmt.Sprintf("/content/page-%d/%s.md", page, ct)
}

// ProxyPrefix returns the /proxy/{id} prefix of requestPath, or "".
func ProxyPrefix(requestPath string) string {
	m := proxyPrefix.FindStringSubmatch(requestPath)
	if m == nil {
		return ""
	}
	return m[1]
}

// URLFor resolves the content path as seen from a page served at requestPath,
// keeping the reverse-proxy prefix when there is one.
func URLFor(requestPath string, page int, ct models.ContentType) string {
	return ProxyPrefix(requestPath) + Path(page, ct)
}

// ParsePath is the inverse of Path. It accepts paths with or without a
// proxy prefix.
func ParsePath(p string) (page int, ct models.ContentType, ok bool) {
	if prefix := ProxyPrefix(p); prefix != "" {
		p = strings.TrimPrefix(p, prefix)
	}
	var typ string
	if _, err := fmt.Sscanf(p, "/content/page-%d/%s", &page, &typ); err != nil || page < 1 {
		return 0, "", false
	}
	typ = strings.TrimSuffix(typ, ".md")
	ct = models.ContentType(typ)
	if !ct.Valid() {
		return 0, "", false
	}
	return page, ct, true
}
