package usecase

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

// StoreBrand is reported for products without a recognized A-brand
const StoreBrand = "Huismerk"

// knownBrands are A-brands found at the start of Dutch supermarket product names
var knownBrands = []string{
	"Alpro", "Arla", "Barilla", "Becel", "Beemster", "Bertolli", "Blue Band",
	"Bonduelle", "Brinta", "Calvé", "Campina", "Chaudfontaine", "Chiquita",
	"Coca-Cola", "Conimex", "Danone", "De Ruijter", "Douwe Egberts", "Dr. Oetker",
	"Duo Penotti", "Fanta", "Grolsch", "Hak", "Heineken", "Honig", "Iglo",
	"Kellogg's", "Knorr", "Lassie", "Lay's", "Leerdammer", "Lipton", "Milka",
	"Milner", "Mona", "Nutella", "Oatly", "Old Amsterdam", "Optimel", "Pepsi",
	"Peijnenburg", "Président", "Quaker", "Red Bull", "Remia", "Spa",
	"Tony's Chocolonely", "Unox", "Venz", "Verkade", "Zaanlander", "Zwanenberg",
}

// storeBrandPrefixes are retailer house brands; they map to StoreBrand
var storeBrandPrefixes = []string{
	"AH Biologisch", "AH Excellent", "AH Terra", "AH", "Albert Heijn",
	"Jumbo", "1 de Beste", "Dirk", "Picnic", "Plus", "Aldi", "Milsani",
}

type brandEntry struct {
	lower string
	name  string
	store bool
}

// brandIndex is sorted longest first so "AH Excellent" wins over "AH"
var brandIndex = buildBrandIndex()

func buildBrandIndex() []brandEntry {
	entries := make([]brandEntry, 0, len(knownBrands)+len(storeBrandPrefixes))
	for _, b := range knownBrands {
		entries = append(entries, brandEntry{lower: strings.ToLower(b), name: b})
	}
	for _, b := range storeBrandPrefixes {
		entries = append(entries, brandEntry{lower: strings.ToLower(b), name: StoreBrand, store: true})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return len(entries[i].lower) > len(entries[j].lower)
	})
	return entries
}

// ExtractBrand matches the leading words of a product name against the known
// brand list. Never returns an empty string.
func ExtractBrand(productName string) string {
	name := strings.ToLower(strings.TrimSpace(multiSpacePattern.ReplaceAllString(productName, " ")))
	if name == "" {
		return StoreBrand
	}

	for _, entry := range brandIndex {
		if !strings.HasPrefix(name, entry.lower) {
			continue
		}
		// The brand has to end on a word boundary: "Hak" must not match "Hakvoort"
		if rest := name[len(entry.lower):]; rest != "" {
			r, _ := utf8.DecodeRuneInString(rest)
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				continue
			}
		}
		return entry.name
	}

	return StoreBrand
}
