package lore

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractThreadLinks pulls sibling message ids out of a thread listing
// page. Anchors are matched against the archive's per-message URL pattern
// for the given list; ids come back in link-discovery order, first
// occurrence wins.
func ExtractThreadLinks(html []byte, list string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse thread page: %w", err)
	}

	pattern := regexp.MustCompile(
		`^/` + regexp.QuoteMeta(list) + `/[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}/$`)

	seen := make(map[string]bool)
	var ids []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if !pattern.MatchString(href) {
			return
		}

		id := strings.Split(href, "/")[2]
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	})

	return ids, nil
}
