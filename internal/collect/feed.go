package collect

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/mmcdole/gofeed"
)

const maxPerFeed = 100

// FeedParser reads article titles from RSS/Atom feeds whose items link to
// wiki pages, such as a wiki's "featured articles" feed.
type FeedParser struct {
	parser *gofeed.Parser
}

// NewFeedParser creates a new FeedParser.
func NewFeedParser(userAgent string) *FeedParser {
	p := gofeed.NewParser()
	if userAgent != "" {
		p.UserAgent = userAgent
	}
	return &FeedParser{parser: p}
}

// Titles returns the distinct article titles referenced by the feed, in
// feed order.
func (fp *FeedParser) Titles(ctx context.Context, feedURL string) ([]string, error) {
	feed, err := fp.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parsing feed %s: %w", feedURL, err)
	}

	seen := make(map[string]struct{})
	var titles []string
	for _, item := range feed.Items {
		if len(titles) >= maxPerFeed {
			break
		}
		title := itemTitle(item)
		if title == "" {
			continue
		}
		if _, dup := seen[title]; dup {
			continue
		}
		seen[title] = struct{}{}
		titles = append(titles, title)
	}
	return titles, nil
}

// itemTitle prefers the page name of a /wiki/ link over the item title,
// which is often decorated ("Article du jour : ...").
func itemTitle(item *gofeed.Item) string {
	for _, link := range []string{item.Link, item.GUID} {
		if t := titleFromWikiLink(link); t != "" {
			return t
		}
	}
	return strings.TrimSpace(item.Title)
}

func titleFromWikiLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	_, page, ok := strings.Cut(u.Path, "/wiki/")
	if !ok || page == "" {
		return ""
	}
	return strings.TrimSpace(strings.ReplaceAll(page, "_", " "))
}
