package label

import "sort"

// DefaultLanguage is used for any requested language outside the supported set.
const DefaultLanguage = "en"

// languagePacks holds the translated UI strings of the label. Every language
// carries the same keys. The table is read-only after init.
var languagePacks = map[string]map[string]string{
	"en": {
		"title":                "Return Label",
		"recipient":            "Recipient",
		"order_label":          "Order Number",
		"name_label":           "Name",
		"return_address_label": "Return Address",
		"postage_required":     "POSTAGE REQUIRED",
		"paste_label":          "Please paste this address label on the outside of the box.",
		"put_inside":           "Please put this part inside the box on top of your products, so we can identify your return parcel upon arrival.",
	},
	"nl": {
		"title":                "Retourlabel",
		"recipient":            "Ontvanger",
		"order_label":          "Bestelnummer",
		"name_label":           "Naam",
		"return_address_label": "Retouradres",
		"postage_required":     "FRANKERING NOODZAKELIJK",
		"paste_label":          "Plak dit adreslabel op de buitenkant van de doos.",
		"put_inside":           "Leg dit deel in de doos bovenop uw producten, zodat we uw retourzending bij aankomst kunnen identificeren.",
	},
}

// ResolveLanguage returns lang when it is supported, DefaultLanguage otherwise.
// Matching is exact: no locale negotiation, no case folding.
func ResolveLanguage(lang string) string {
	if _, ok := languagePacks[lang]; ok {
		return lang
	}
	return DefaultLanguage
}

// Pack returns a copy of the language pack lang resolves to.
func Pack(lang string) map[string]string {
	src := languagePacks[ResolveLanguage(lang)]
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// SupportedLanguages lists the supported language codes in sorted order.
func SupportedLanguages() []string {
	out := make([]string, 0, len(languagePacks))
	for code := range languagePacks {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
