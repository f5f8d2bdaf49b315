package i18n

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Lang is a display language supported by the pickup page.
type Lang string

const (
	French Lang = "fr"
	Arabic Lang = "ar"
)

// Parse maps a language value to a supported language. Only "ar" selects
// Arabic; anything else renders in French.
func Parse(tag string) Lang {
	if strings.TrimSpace(tag) == string(Arabic) {
		return Arabic
	}
	return French
}

// Dir returns the text direction attribute for lang.
func Dir(lang Lang) string {
	if lang == Arabic {
		return "rtl"
	}
	return "ltr"
}

type Strings struct {
	Loading            string `json:"loading"`
	NotFound           string `json:"notFound"`
	PickupPoint        string `json:"pickupPoint"`
	AddressUnavailable string `json:"addressUnavailable"`
	Country            string `json:"country"`
	ContactStopdesk    string `json:"contactStopdesk"`
	NotAvailable       string `json:"notAvailable"`
	OpeningHours       string `json:"openingHours"`
	NotProvided        string `json:"notProvided"`
	OpenInMaps         string `json:"openInMaps"`
	PickupInstructions string `json:"pickupInstructions"`
	Instruction1       string `json:"instruction1"`
	Instruction2       string `json:"instruction2"`
	NoMap              string `json:"noMap"`
	GenericTitle       string `json:"genericTitle"`
	GenericDescription string `json:"genericDescription"`
}

var translations = map[Lang]Strings{
	French: {
		Loading:            "Chargement…",
		NotFound:           "Stopdesk introuvable:",
		PickupPoint:        "Point de Retrait",
		AddressUnavailable: "Adresse indisponible",
		Country:            "Algérie",
		ContactStopdesk:    "Contactez le Stopdesk",
		NotAvailable:       "Non disponible",
		OpeningHours:       "Horaires d'Ouverture",
		NotProvided:        "Non communiqué",
		OpenInMaps:         "Ouvrir dans Google Maps",
		PickupInstructions: "Instructions de Retrait",
		Instruction1:       "Présentez une pièce d'identité",
		Instruction2:       "Montrez ce SMS ou votre numéro de suivi",
		NoMap:              "Aucune carte disponible.",
		GenericTitle:       "EcoTrack Stopdesk",
		GenericDescription: "Informations sur votre point de retrait",
	},
	Arabic: {
		Loading:            "جاري التحميل…",
		NotFound:           "نقطة التوقف غير موجودة:",
		PickupPoint:        "نقطة الاستلام",
		AddressUnavailable: "العنوان غير متوفر",
		Country:            "الجزائر",
		ContactStopdesk:    "اتصل بمكتب التوصيل",
		NotAvailable:       "غير متوفر",
		OpeningHours:       "ساعات العمل",
		NotProvided:        "غير محدد",
		OpenInMaps:         "فتح في خرائط جوجل",
		PickupInstructions: "تعليمات الاستلام",
		Instruction1:       "قدّم بطاقة هوية",
		Instruction2:       "أظهر هذه الرسالة أو رقم التتبع الخاص بك",
		NoMap:              "لا توجد خريطة متاحة.",
		GenericTitle:       "EcoTrack Stopdesk",
		GenericDescription: "معلومات نقطة الاستلام الخاصة بك",
	},
}

// For returns the UI strings for lang, falling back to French.
func For(lang Lang) Strings {
	if s, ok := translations[lang]; ok {
		return s
	}
	return translations[French]
}

var days = map[string]map[Lang]string{
	"Lundi":    {French: "Lundi", Arabic: "الإثنين"},
	"Mardi":    {French: "Mardi", Arabic: "الثلاثاء"},
	"Mercredi": {French: "Mercredi", Arabic: "الأربعاء"},
	"Jeudi":    {French: "Jeudi", Arabic: "الخميس"},
	"Vendredi": {French: "Vendredi", Arabic: "الجمعة"},
	"Samedi":   {French: "Samedi", Arabic: "السبت"},
	"Dimanche": {French: "Dimanche", Arabic: "الأحد"},
}

// TranslateDay localizes a French weekday name. Unknown names come back unchanged.
func TranslateDay(day string, lang Lang) string {
	// Casers are stateful, one per call.
	key := cases.Title(language.French).String(day)
	names, ok := days[key]
	if !ok {
		return day
	}
	if s, ok := names[lang]; ok {
		return s
	}
	return names[French]
}
