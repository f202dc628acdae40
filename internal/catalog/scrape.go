package catalog

import (
	"context"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	logx "appwatch/pkg/logx"
)

// scrapeNotes pulls the "What's New" text from the public store page.
// Best-effort: the page markup is not an API and changes without
// notice, so any failure just yields empty notes.
func (c *Client) scrapeNotes(ctx context.Context, pageURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("notes scrape failed", logx.String("url", pageURL), logx.Err(err))
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		c.log.Debug("notes scrape parse failed", logx.String("url", pageURL), logx.Err(err))
		return ""
	}

	var parts []string
	sel := doc.Find(".whats-new__content p")
	if sel.Length() == 0 {
		sel = doc.Find("section.whats-new p")
	}
	sel.Each(func(_ int, s *goquery.Selection) {
		if t := strings.TrimSpace(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	return strings.Join(parts, "\n")
}
