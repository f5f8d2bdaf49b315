package page

import (
	"fmt"

	"stopdesk/internal/domain"
	"stopdesk/internal/i18n"
	"stopdesk/internal/maplink"
	"stopdesk/internal/theme"
	"stopdesk/internal/wilaya"
)

type Phone struct {
	Number string `json:"number"`
	Href   string `json:"href"`
}

type Hours struct {
	Day   string `json:"day"`
	Open  string `json:"open"`
	Close string `json:"close"`
}

// ShareMeta is the share/SEO metadata of a page.
type ShareMeta struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url,omitempty"`
}

// Model is everything a template needs to draw one page state.
type Model struct {
	State State        `json:"state"`
	Code  string       `json:"code"`
	Lang  i18n.Lang    `json:"lang"`
	Dir   string       `json:"dir"`
	T     i18n.Strings `json:"-"`
	Theme theme.Bundle `json:"theme"`
	Logo  string       `json:"logo"`
	Meta  ShareMeta    `json:"meta"`

	Name       string  `json:"name,omitempty"`
	Address    string  `json:"address,omitempty"`
	RegionLine string  `json:"regionLine,omitempty"`
	Phones     []Phone `json:"phones"`
	Hours      []Hours `json:"hours"`
	MapLink    string  `json:"mapLink,omitempty"`
	MapEnabled bool    `json:"mapEnabled"`
	EmbedURL   string  `json:"embedUrl,omitempty"`

	// Refresh is the meta-refresh delay in seconds for the loading state.
	Refresh int `json:"-"`
}

// Build derives the found-state view model for a stop. Optional fields fall
// back to localized placeholders at render time.
func Build(code string, s domain.Stop, lang i18n.Lang) Model {
	t := i18n.For(lang)
	m := Model{
		State: StateFound,
		Code:  code,
		Lang:  lang,
		Dir:   i18n.Dir(lang),
		T:     t,
		Theme: theme.Resolve(s.Company),
		Logo:  theme.Logo(s.Company),
		Meta:  Meta(code, &s),

		Name:     s.Name,
		Address:  s.Address,
		MapLink:  maplink.Derive(s),
		EmbedURL: s.EmbeddedMapURL,
		Phones:   []Phone{},
		Hours:    []Hours{},
	}
	if m.Name == "" {
		m.Name = t.GenericTitle
	}
	if m.Address == "" {
		m.Address = t.AddressUnavailable
	}
	m.MapEnabled = m.MapLink != ""

	if s.RegionCode != nil {
		if r := wilaya.Resolve(*s.RegionCode); r.OK {
			m.RegionLine = fmt.Sprintf("%s %s, %s", r.Postal, r.Name, t.Country)
		}
	}

	for _, p := range []string{s.Phone, s.Phone2} {
		if href := maplink.TelURL(p); href != "" {
			m.Phones = append(m.Phones, Phone{Number: p, Href: href})
		}
	}

	for _, d := range s.WorkingDays {
		m.Hours = append(m.Hours, Hours{
			Day:   i18n.TranslateDay(d.Day, lang),
			Open:  d.OpenTime,
			Close: d.CloseTime,
		})
	}
	return m
}

// Placeholder builds the loading or not-found model. No record is known yet,
// so the page uses French and the default brand.
func Placeholder(state State, code string) Model {
	t := i18n.For(i18n.French)
	return Model{
		State:  state,
		Code:   code,
		Lang:   i18n.French,
		Dir:    i18n.Dir(i18n.French),
		T:      t,
		Theme:  theme.Default(),
		Logo:   theme.DefaultLogo,
		Meta:   Meta(code, nil),
		Phones: []Phone{},
		Hours:  []Hours{},
	}
}

// Meta returns the share title and description for a code. A nil stop gives
// the generic text.
func Meta(code string, s *domain.Stop) ShareMeta {
	generic := i18n.For(i18n.French)
	if s == nil {
		return ShareMeta{Title: generic.GenericTitle, Description: generic.GenericDescription}
	}

	t := i18n.For(i18n.Parse(s.Language))
	out := ShareMeta{Title: t.GenericTitle, Description: t.GenericDescription}
	if s.Company != "" {
		out.Title = s.Company + " - StopDesk"
	}
	if s.Name != "" {
		out.Description = fmt.Sprintf("%s (Code: %s)", s.Name, code)
	}
	return out
}
