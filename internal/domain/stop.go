package domain

import (
	"strings"

	"stopdesk/internal/wilaya"
)

// WorkingDay is one line of a stop's opening hours.
type WorkingDay struct {
	Day       string `json:"day" bson:"day" yaml:"day"`
	OpenTime  string `json:"openTime" bson:"openTime" yaml:"openTime"`
	CloseTime string `json:"closeTime" bson:"closeTime" yaml:"closeTime"`
}

// RawStop is a stop document as it sits in the store. Fields are loosely
// typed; use Normalize before handing it to the rest of the system.
type RawStop struct {
	DeskURLCode    string       `json:"desk_url_code,omitempty" bson:"desk_url_code,omitempty" yaml:"desk_url_code"`
	Name           string       `json:"name,omitempty" bson:"name,omitempty" yaml:"name"`
	Phone          *string      `json:"phone,omitempty" bson:"phone,omitempty" yaml:"phone"`
	Phone2         *string      `json:"phone2,omitempty" bson:"phone2,omitempty" yaml:"phone2"`
	CodeWilaya     any          `json:"code_wilaya,omitempty" bson:"code_wilaya,omitempty" yaml:"code_wilaya"`
	Wilaya         *string      `json:"wilaya,omitempty" bson:"wilaya,omitempty" yaml:"wilaya"`
	Commune        *string      `json:"commune,omitempty" bson:"commune,omitempty" yaml:"commune"`
	Adresse        *string      `json:"adresse,omitempty" bson:"adresse,omitempty" yaml:"adresse"`
	Map            *string      `json:"map,omitempty" bson:"map,omitempty" yaml:"map"`
	IframeMap      *string      `json:"iframeMap,omitempty" bson:"iframeMap,omitempty" yaml:"iframeMap"`
	HubWorkingDays []WorkingDay `json:"hub_working_days,omitempty" bson:"hub_working_days,omitempty" yaml:"hub_working_days"`
	Company        *string      `json:"company,omitempty" bson:"company,omitempty" yaml:"company"`
	Lng            *string      `json:"lng,omitempty" bson:"lng,omitempty" yaml:"lng"`
}

// Stop is the normalized pickup point record. Empty strings mean absent.
type Stop struct {
	URLCode        string       `json:"urlCode"`
	Name           string       `json:"name,omitempty"`
	Phone          string       `json:"phone,omitempty"`
	Phone2         string       `json:"phone2,omitempty"`
	RegionCode     *int         `json:"regionCode,omitempty"`
	Region         string       `json:"region,omitempty"`
	Locality       string       `json:"locality,omitempty"`
	Address        string       `json:"address,omitempty"`
	MapLink        string       `json:"mapLink,omitempty"`
	EmbeddedMapURL string       `json:"embeddedMapUrl,omitempty"`
	WorkingDays    []WorkingDay `json:"workingDays,omitempty"`
	Company        string       `json:"company,omitempty"`
	Language       string       `json:"language,omitempty"`
}

// Normalize converts the stored document into a Stop. id is the document key,
// used as the url code when the document does not carry one.
func (r *RawStop) Normalize(id string) Stop {
	s := Stop{
		URLCode:        strings.TrimSpace(r.DeskURLCode),
		Name:           strings.TrimSpace(r.Name),
		Phone:          deref(r.Phone),
		Phone2:         deref(r.Phone2),
		Region:         deref(r.Wilaya),
		Locality:       deref(r.Commune),
		Address:        deref(r.Adresse),
		MapLink:        deref(r.Map),
		EmbeddedMapURL: deref(r.IframeMap),
		Company:        deref(r.Company),
		Language:       deref(r.Lng),
	}
	if s.URLCode == "" {
		s.URLCode = id
	}
	if code, ok := wilaya.Normalize(r.CodeWilaya); ok {
		s.RegionCode = &code
	}
	for _, d := range r.HubWorkingDays {
		if strings.TrimSpace(d.Day) == "" {
			continue
		}
		s.WorkingDays = append(s.WorkingDays, d)
	}
	return s
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}
