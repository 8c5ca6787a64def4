// scraper/page_links.go
package scraper

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ListPages returns the absolute URLs of every page of publication linked
// from the publication's landing page, in document order, without duplicates.
func (c *Client) ListPages(ctx context.Context, publication string) ([]string, error) {
	landing := c.baseURL.ResolveReference(&url.URL{Path: publication})
	doc, err := c.document(ctx, landing.String())
	if err != nil {
		return nil, err
	}

	marker := "/" + strings.Trim(publication, "/") + "/"
	seen := map[string]bool{}
	var pages []string
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		ref, ok := resolve(landing, a.AttrOr("href", ""))
		if !ok || !strings.Contains(ref.Path+"/", marker) {
			return
		}
		ref.Fragment = ""
		if s := ref.String(); !seen[s] {
			seen[s] = true
			pages = append(pages, s)
		}
	})
	c.logger.Info("Scraper: found publication pages", "publication", publication, "count", len(pages))
	return pages, nil
}

// ListLinks returns the data file links on page keyed by label. The label is
// the unescaped file name without its extension, so
// ".../Index_2023.xlsx" is listed as "Index_2023".
func (c *Client) ListLinks(ctx context.Context, page string) (map[string]string, error) {
	pageURL, err := url.Parse(page)
	if err != nil {
		return nil, &FetchError{URL: page, Err: err}
	}
	doc, err := c.document(ctx, page)
	if err != nil {
		return nil, err
	}

	links := map[string]string{}
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		ref, ok := resolve(pageURL, a.AttrOr("href", ""))
		if !ok {
			return
		}
		label, ok := c.fileLabel(ref)
		if !ok {
			return
		}
		if _, dup := links[label]; !dup {
			links[label] = ref.String()
		}
	})
	c.logger.Info("Scraper: found file links", "page", page, "count", len(links))
	return links, nil
}

func (c *Client) document(ctx context.Context, page string) (*goquery.Document, error) {
	body, err := c.get(ctx, page)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &FetchError{URL: page, Err: fmt.Errorf("failed to parse HTML: %w", err)}
	}
	return doc, nil
}

func (c *Client) fileLabel(ref *url.URL) (string, bool) {
	base := path.Base(ref.Path)
	if c.extension == "" || !strings.HasSuffix(strings.ToLower(base), c.extension) {
		return "", false
	}
	stem := base[:len(base)-len(c.extension)]
	if unescaped, err := url.PathUnescape(stem); err == nil {
		stem = unescaped
	}
	return stem, stem != ""
}

func resolve(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "mailto:") {
		return nil, false
	}
	ref, err := base.Parse(href)
	if err != nil || (ref.Scheme != "http" && ref.Scheme != "https") {
		return nil, false
	}
	return ref, true
}
