// internal/page/article.go
package page

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/lodestar-research/lodestar/api/schemas"
)

// contentSelectors is the cascade tried in order when locating the main body
// of an article page. The first selector that yields substantive text wins.
var contentSelectors = []string{
	"article",
	"main",
	"[role=main]",
	".article-body",
	".post-content",
	".story-body",
	"#content",
	"body",
}

const minContentChars = 200

// ExtractArticle parses the current page into an ArticleRecord. It always
// returns a record: when the DOM cannot be read or yields no content, a
// degraded record carrying whatever was recoverable comes back along with the
// error that caused the degradation.
func ExtractArticle(ctx context.Context, session schemas.BrowserSession, logger *zap.Logger) (schemas.ArticleRecord, error) {
	record := schemas.ArticleRecord{Timestamp: time.Now().UTC()}
	if u, err := session.CurrentURL(ctx); err == nil {
		record.URL = u
	}

	html, err := session.OuterHTML(ctx)
	if err != nil {
		logger.Warn("Article extraction degraded: could not read page HTML.", zap.Error(err))
		record.Title = degradedPlaceholder
		record.Content = degradedPlaceholder
		return record, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		logger.Warn("Article extraction degraded: HTML parse failed.", zap.Error(err))
		record.Title = degradedPlaceholder
		record.Content = degradedPlaceholder
		return record, err
	}

	record.Title = strings.TrimSpace(doc.Find("title").First().Text())
	if h1 := strings.TrimSpace(doc.Find("h1").First().Text()); h1 != "" {
		record.Title = h1
	}

	doc.Find("script, style, noscript, nav, footer, header, aside").Remove()

	for _, sel := range contentSelectors {
		text := normalizeWhitespace(doc.Find(sel).First().Text())
		if len(text) >= minContentChars {
			record.Content = text
			break
		}
	}
	if record.Content == "" {
		record.Content = normalizeWhitespace(doc.Find("body").Text())
	}

	doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		if h := strings.TrimSpace(s.Text()); h != "" && len(record.Headings) < 20 {
			record.Headings = append(record.Headings, h)
		}
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "http") && len(record.Links) < 30 {
			record.Links = append(record.Links, href)
		}
	})

	return record, nil
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
