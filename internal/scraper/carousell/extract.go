package carousell

import (
	"bytes"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

// Selectors for the server-rendered markup.
const (
	selCard      = ".product-card"
	selCardTitle = ".product-title"
	selCardPrice = ".product-price"
	selCardLink  = "a.product-link"
	selCardImage = ".product-image img"

	selDetailTitle       = ".product-detail-title"
	selDetailDescription = ".product-detail-description"
	selDetailPrice       = ".product-detail-price"
	selDetailCondition   = ".product-detail-condition"
	selDetailCategory    = ".product-detail-category"
	selDetailImages      = ".product-detail-images img"
)

// parseSearch extracts up to limit cards in document order.
func parseSearch(doc *goquery.Document, baseURL, pageURL string, limit int) []*types.RawListing {
	base, _ := url.Parse(baseURL)

	var raws []*types.RawListing
	doc.Find(selCard).EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if len(raws) >= limit {
			return false
		}

		priceText := strings.TrimSpace(card.Find(selCardPrice).First().Text())
		href, _ := card.Find(selCardLink).First().Attr("href")

		raw := types.NewRawListing(pageURL)
		raw.Set(types.FieldTitle, strings.TrimSpace(card.Find(selCardTitle).First().Text()))
		raw.Set(types.FieldPrice, priceText)
		raw.Set(types.FieldCurrency, types.DefaultCurrency)
		raw.Set(types.FieldURL, resolve(base, href))
		raw.Set(types.FieldImages, imageSources(card.Find(selCardImage).First()))
		raw.SetMeta("platform", Name)
		raw.SetMeta("originalPrice", priceText)

		raws = append(raws, raw)
		return true
	})
	return raws
}

// parseDetails extracts the detail fields of a listing page. The listing URL
// is the requested one, not whatever the page claims.
func parseDetails(doc *goquery.Document, listingURL string) *types.RawListing {
	text := func(sel string) string {
		return strings.TrimSpace(doc.Find(sel).First().Text())
	}
	priceText := text(selDetailPrice)

	raw := types.NewRawListing(listingURL)
	raw.Set(types.FieldTitle, text(selDetailTitle))
	raw.Set(types.FieldDescription, text(selDetailDescription))
	raw.Set(types.FieldPrice, priceText)
	raw.Set(types.FieldCurrency, types.DefaultCurrency)
	raw.Set(types.FieldURL, listingURL)
	raw.Set(types.FieldImages, imageSources(doc.Find(selDetailImages)))
	if v := text(selDetailCondition); v != "" {
		raw.Set(types.FieldCondition, v)
	}
	if v := text(selDetailCategory); v != "" {
		raw.Set(types.FieldCategory, v)
	}
	raw.SetMeta("platform", Name)
	raw.SetMeta("originalPrice", priceText)
	return raw
}

// fillFromMeta fills empty title, description, images and price from the
// page's Open Graph tags.
func fillFromMeta(raw *types.RawListing, body []byte, logger *slog.Logger) {
	root, err := htmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		logger.Debug("meta fallback unavailable", "url", raw.PageURL, "error", err)
		return
	}

	if raw.GetString(types.FieldTitle) == "" {
		if v := metaContent(root, "og:title"); v != "" {
			raw.Set(types.FieldTitle, v)
		}
	}
	if raw.GetString(types.FieldDescription) == "" {
		if v := metaContent(root, "og:description"); v != "" {
			raw.Set(types.FieldDescription, v)
		}
	}
	if raw.GetString(types.FieldPrice) == "" {
		if v := metaContent(root, "product:price:amount"); v != "" {
			raw.Set(types.FieldPrice, v)
			raw.SetMeta("originalPrice", v)
		}
		if v := metaContent(root, "product:price:currency"); v != "" {
			raw.Set(types.FieldCurrency, v)
		}
	}
	v, _ := raw.Get(types.FieldImages)
	if imgs, _ := v.([]string); len(imgs) == 0 {
		var found []string
		for _, n := range htmlquery.Find(root, "//meta[@property='og:image']") {
			if v := strings.TrimSpace(htmlquery.SelectAttr(n, "content")); v != "" {
				found = append(found, v)
			}
		}
		if len(found) > 0 {
			raw.Set(types.FieldImages, found)
		}
	}
}

func metaContent(root *html.Node, property string) string {
	n := htmlquery.FindOne(root, "//meta[@property='"+property+"']")
	if n == nil {
		return ""
	}
	return strings.TrimSpace(htmlquery.SelectAttr(n, "content"))
}

func imageSources(sel *goquery.Selection) []string {
	images := []string{}
	sel.Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src = strings.TrimSpace(src); src != "" {
			images = append(images, src)
		}
	})
	return images
}

// resolve turns a site-relative href into an absolute URL.
func resolve(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || base == nil {
		return href
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
