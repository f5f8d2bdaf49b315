package maplink

import (
	"net/url"
	"strings"

	"stopdesk/internal/domain"
)

const searchURL = "https://www.google.com/maps/search/"

// FullAddress joins the non-empty address, locality and region with ", ".
func FullAddress(s domain.Stop) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.Address, s.Locality, s.Region} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

// Derive returns the link for the "open in maps" action: the stored map link,
// else a search over the full address, else "" (action disabled).
func Derive(s domain.Stop) string {
	if link := strings.TrimSpace(s.MapLink); link != "" {
		return link
	}
	addr := FullAddress(s)
	if addr == "" {
		return ""
	}
	return searchURL + "?api=1&query=" + escapeComponent(addr)
}

// componentUnescape restores the characters a browser leaves bare in a
// component-escaped string and spells spaces as %20.
var componentUnescape = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func escapeComponent(s string) string {
	return componentUnescape.Replace(url.QueryEscape(s))
}

// TelURL builds a dial link with all whitespace removed from the number.
func TelURL(phone string) string {
	n := strings.Join(strings.Fields(phone), "")
	if n == "" {
		return ""
	}
	return "tel:" + n
}
