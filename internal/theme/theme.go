package theme

import "strings"

// Bundle holds the CSS utility classes a company brand applies to the page.
type Bundle struct {
	Name          string `json:"name"`
	BgGradient    string `json:"bgGradient"`
	PrimaryText   string `json:"primaryText"`
	SecondaryText string `json:"secondaryText"`
	MutedText     string `json:"mutedText"`
	CardAccentBg  string `json:"cardAccentBg"`
	IconCircleBg  string `json:"iconCircleBg"`
	PhoneText     string `json:"phoneText"`
	ButtonBg      string `json:"buttonBg"`
	ButtonHoverBg string `json:"buttonHoverBg"`
	FooterBg      string `json:"footerBg"`
}

const DefaultLogo = "/images/ecotrack-logo.png"

var (
	dhd = Bundle{
		Name:          "dhd",
		BgGradient:    "from-orange-50 to-white",
		PrimaryText:   "text-orange-900",
		SecondaryText: "text-orange-800",
		MutedText:     "text-gray-600",
		CardAccentBg:  "bg-orange-50",
		IconCircleBg:  "bg-orange-900",
		PhoneText:     "text-orange-600 hover:text-orange-700",
		ButtonBg:      "bg-orange-600",
		ButtonHoverBg: "hover:bg-orange-700",
		FooterBg:      "bg-orange-900",
	}

	hhdExpress = Bundle{
		Name:          "hhdexpress",
		BgGradient:    "from-blue-50 to-white",
		PrimaryText:   "text-blue-900",
		SecondaryText: "text-yellow-700",
		MutedText:     "text-gray-600",
		CardAccentBg:  "bg-blue-50",
		IconCircleBg:  "bg-yellow-400",
		PhoneText:     "text-yellow-600 hover:text-yellow-700",
		ButtonBg:      "bg-blue-600",
		ButtonHoverBg: "hover:bg-blue-700",
		FooterBg:      "bg-blue-900",
	}

	fallback = Bundle{
		Name:          "default",
		BgGradient:    "from-blue-50 to-white",
		PrimaryText:   "text-blue-900",
		SecondaryText: "text-blue-800",
		MutedText:     "text-gray-600",
		CardAccentBg:  "bg-blue-50",
		IconCircleBg:  "bg-blue-900",
		PhoneText:     "text-red-600 hover:text-red-700",
		ButtonBg:      "bg-red-600",
		ButtonHoverBg: "hover:bg-red-700",
		FooterBg:      "bg-blue-900",
	}

	byCompany = map[string]Bundle{
		"dhd":         dhd,
		"hhdexpress":  hhdExpress,
		"hhd express": hhdExpress,
	}
)

// Resolve picks the bundle for a company key, ignoring case and surrounding
// whitespace. Unknown or empty keys get the default bundle.
func Resolve(company string) Bundle {
	if b, ok := byCompany[strings.ToLower(strings.TrimSpace(company))]; ok {
		return b
	}
	return fallback
}

// Default returns the bundle used when no company matches.
func Default() Bundle {
	return fallback
}

// Logo returns the image path for a company, as stored.
func Logo(company string) string {
	if company == "" {
		return DefaultLogo
	}
	return "/images/" + company + ".png"
}
