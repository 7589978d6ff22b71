package facebook

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/SecondPrice/internal/types"
)

const (
	selCardLink     = `a[href*="/marketplace/item/"]`
	selCardTitle    = "span.a8c37x1j"
	selCardPrice    = "span.d2edcug0"
	selCardLocation = "span.a8c37x1j + span.a8c37x1j"

	selDetailTitle       = "h1.a8c37x1j"
	selDetailPrice       = "span.d2edcug0"
	selDetailDescription = `div[data-pagelet="MainFeed"] span.d2edcug0.hpfvmrgz`
	selDetailLocation    = `[data-pagelet="MainFeed"] a.a8c37x1j[href*="facebook.com/marketplace/"]`
	selDetailImages      = `[data-pagelet="MainFeed"] img`
	selDetailCategory    = `[data-pagelet="MainFeed"] a.a8c37x1j[href*="/category/"]`
)

// parseSearch extracts every result card. Cards without an item link are
// skipped.
func parseSearch(page, baseURL, pageURL string) ([]*types.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	base, _ := url.Parse(baseURL)

	var raws []*types.RawListing
	doc.Find(selResultCards).Each(func(_ int, card *goquery.Selection) {
		link := card.Find(selCardLink).First()
		if link.Length() == 0 {
			return
		}
		href, _ := link.Attr("href")
		img, _ := card.Find("img").First().Attr("src")
		priceText := firstText(card, selCardPrice)

		raw := types.NewRawListing(pageURL)
		raw.Set(types.FieldTitle, firstText(card, selCardTitle))
		raw.Set(types.FieldPrice, priceText)
		raw.Set(types.FieldURL, resolve(base, href))
		if img = strings.TrimSpace(img); img != "" {
			raw.Set(types.FieldImages, []string{img})
		} else {
			raw.Set(types.FieldImages, []string{})
		}
		raw.SetMeta("platform", Name)
		raw.SetMeta("originalPrice", priceText)
		raw.SetMeta("location", firstText(card, selCardLocation))

		raws = append(raws, raw)
	})
	return raws, nil
}

// parseDetails extracts a rendered listing page.
func parseDetails(page, listingURL string) (*types.RawListing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, err
	}
	root := doc.Selection
	priceText := firstText(root, selDetailPrice)

	images := []string{}
	seen := make(map[string]bool)
	doc.Find(selDetailImages).Each(func(_ int, img *goquery.Selection) {
		src, _ := img.Attr("src")
		if src = strings.TrimSpace(src); src != "" && !seen[src] {
			seen[src] = true
			images = append(images, src)
		}
	})

	raw := types.NewRawListing(listingURL)
	raw.Set(types.FieldTitle, firstText(root, selDetailTitle))
	raw.Set(types.FieldDescription, firstText(root, selDetailDescription))
	raw.Set(types.FieldPrice, priceText)
	raw.Set(types.FieldURL, listingURL)
	raw.Set(types.FieldImages, images)
	if category := firstText(root, selDetailCategory); category != "" {
		raw.Set(types.FieldCategory, category)
	}
	raw.SetMeta("platform", Name)
	raw.SetMeta("originalPrice", priceText)
	raw.SetMeta("location", firstText(root, selDetailLocation))
	return raw, nil
}

func firstText(sel *goquery.Selection, selector string) string {
	return strings.TrimSpace(sel.Find(selector).First().Text())
}

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
