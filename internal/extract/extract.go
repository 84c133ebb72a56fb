// Package extract pulls normalized company and vessel records out of rendered
// detail pages and fleet payload rows.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/sajidahmed66/company-vessels/internal/fleet"
	"github.com/sajidahmed66/company-vessels/internal/scraper"
	"github.com/sajidahmed66/company-vessels/internal/site"
)

// Placeholder is stored for company name and address when the page carries
// neither. Both columns are non-null in the schema.
const Placeholder = "Unknown"

// Parser adapts the package extractors to the pipeline's parsing port.
type Parser struct{}

// Company implements scraper.Parser.
func (Parser) Company(snap scraper.PageSnapshot) scraper.CompanyInfo {
	return Company(snap)
}

// Vessels implements scraper.Parser.
func (Parser) Vessels(rows []fleet.VesselRow) []scraper.VesselRecord {
	return Vessels(rows)
}

// Company extracts the company record from a rendered detail page. Fields the
// page does not expose stay empty, except name and address which fall back to
// the placeholder.
func Company(snap scraper.PageSnapshot) scraper.CompanyInfo {
	info := scraper.CompanyInfo{SourceURL: snap.URL}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(snap.HTML))
	if err == nil {
		info.Name = strings.TrimSpace(doc.Find("h1.single__header-title").First().Text())
		info.FleetCount = statsCounter(doc, "Total Vessels")
		info.TotalDWT = statsCounter(doc, "Total DWT")
		info.Website, info.Address = contactDetails(doc)
	}

	pageURL := snap.FinalURL
	if pageURL == "" {
		pageURL = snap.URL
	}
	info.Country = site.CountryFromURL(pageURL)

	if info.Name == "" {
		info.Name = Placeholder
	}
	if info.Address == "" {
		info.Address = Placeholder
	}
	return info
}

// statsCounter scans the stats cards for the one whose heading contains label
// and returns its data-counter value. The counter attribute holds the final
// number after the page's count-up animation.
func statsCounter(doc *goquery.Document, label string) string {
	var value string
	doc.Find(".card--stats-2").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		if !strings.Contains(card.Find("h3").First().Text(), label) {
			return true
		}
		v, ok := card.Find("[data-counter]").First().Attr("data-counter")
		if !ok {
			return true
		}
		value = strings.TrimSpace(v)
		return false
	})
	return value
}

// contactDetails walks the contact list. The sprite reference on each item's
// icon tells the entries apart: a world icon (or a label that is already a
// URL) is the website, a map icon is the address.
func contactDetails(doc *goquery.Document) (website, address string) {
	doc.Find("li.list__item").Each(func(_ int, item *goquery.Selection) {
		icon := item.Find("svg use").First()
		label := item.Find(".list__item-label").First()
		if icon.Length() == 0 || label.Length() == 0 {
			return
		}
		ref := iconRef(icon)
		text := strings.TrimSpace(label.Text())

		if strings.Contains(ref, "world") || strings.HasPrefix(text, "http") {
			website = text
		}
		if strings.Contains(ref, "map") {
			address = text
		}
	})
	return website, address
}

// iconRef reads the sprite reference off an svg use element. The HTML parser
// splits xlink:href into a namespaced href attribute, so both spellings are
// checked.
func iconRef(icon *goquery.Selection) string {
	if v, ok := icon.Attr("xlink:href"); ok {
		return v
	}
	v, _ := icon.Attr("href")
	return v
}

// VesselName reduces the vessel_name payload fragment to a display name: the
// text of its first span when one exists, otherwise the flattened text of the
// whole fragment.
func VesselName(fragment string) string {
	fragment = strings.TrimSpace(fragment)
	if fragment == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	if span := doc.Find("span").First(); span.Length() > 0 {
		return strings.TrimSpace(span.Text())
	}
	return strings.TrimSpace(doc.Text())
}

// Vessel normalizes one payload row. Scalars pass through verbatim with
// surrounding whitespace trimmed; only the name fragment is reduced to text.
// Rows keep a zero IMO here, the store is the layer that drops them.
func Vessel(row fleet.VesselRow) scraper.VesselRecord {
	return scraper.VesselRecord{
		IMO:                row.IMO.Int64(),
		MMSI:               row.MMSI.Int64(),
		Name:               VesselName(row.Name.String()),
		VesselType:         strings.TrimSpace(row.Type.String()),
		CoreTypeKey:        strings.TrimSpace(row.CoreTypesKey.String()),
		CoreTypeName:       strings.TrimSpace(row.CoreTypesName.String()),
		Flag:               strings.TrimSpace(row.Flag.String()),
		DWT:                strings.TrimSpace(row.DWT.String()),
		LastPositionUpdate: strings.TrimSpace(row.LastPositionUpdate.String()),
		RegisteredOwner: scraper.Attribution{
			Name:                 strings.TrimSpace(row.RegisteredOwner.String()),
			CompanyIMO:           row.RegisteredOwnerCompanyIMO.Int64(),
			CountrySlug:          strings.TrimSpace(row.RegisteredOwnerCountrySlug.String()),
			NameSlug:             strings.TrimSpace(row.RegisteredOwnerNameSlug.String()),
			TotalDistinctVessels: int(row.RegisteredOwnerTotalVessels.Int64()),
		},
		CommercialManager: scraper.Attribution{
			Name:                 strings.TrimSpace(row.CommercialManager.String()),
			CompanyIMO:           row.CommercialManagerCompanyIMO.Int64(),
			CountrySlug:          strings.TrimSpace(row.CommercialManagerCountrySlug.String()),
			NameSlug:             strings.TrimSpace(row.CommercialManagerNameSlug.String()),
			TotalDistinctVessels: int(row.CommercialManagerTotalVessels.Int64()),
		},
		ISMManager: scraper.Attribution{
			Name:                 strings.TrimSpace(row.ISMManager.String()),
			CompanyIMO:           row.ISMManagerCompanyIMO.Int64(),
			CountrySlug:          strings.TrimSpace(row.ISMManagerCountrySlug.String()),
			NameSlug:             strings.TrimSpace(row.ISMManagerNameSlug.String()),
			TotalDistinctVessels: int(row.ISMManagerTotalVessels.Int64()),
		},
	}
}

// Vessels normalizes a payload batch in order.
func Vessels(rows []fleet.VesselRow) []scraper.VesselRecord {
	if len(rows) == 0 {
		return nil
	}
	out := make([]scraper.VesselRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, Vessel(row))
	}
	return out
}
