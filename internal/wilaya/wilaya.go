package wilaya

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

var names = map[int]string{
	1:  "Adrar",
	2:  "Chlef",
	3:  "Laghouat",
	4:  "Oum El Bouaghi",
	5:  "Batna",
	6:  "Béjaïa",
	7:  "Biskra",
	8:  "Béchar",
	9:  "Blida",
	10: "Bouira",
	11: "Tamanrasset",
	12: "Tébessa",
	13: "Tlemcen",
	14: "Tiaret",
	15: "Tizi Ouzou",
	16: "Alger",
	17: "Djelfa",
	18: "Jijel",
	19: "Sétif",
	20: "Saïda",
	21: "Skikda",
	22: "Sidi Bel Abbès",
	23: "Annaba",
	24: "Guelma",
	25: "Constantine",
	26: "Médéa",
	27: "Mostaganem",
	28: "M'Sila",
	29: "Mascara",
	30: "Ouargla",
	31: "Oran",
	32: "El Bayadh",
	33: "Illizi",
	34: "Bordj Bou Arréridj",
	35: "Boumerdès",
	36: "El Tarf",
	37: "Tindouf",
	38: "Tissemsilt",
	39: "El Oued",
	40: "Khenchela",
	41: "Souk Ahras",
	42: "Tipaza",
	43: "Mila",
	44: "Aïn Defla",
	45: "Naâma",
	46: "Aïn Témouchent",
	47: "Ghardaïa",
	48: "Relizane",
	49: "Timimoun",
	50: "Bordj Badji Mokhtar",
	51: "Ouled Djellal",
	52: "Béni Abbès",
	53: "In Salah",
	54: "In Guezzam",
	55: "Touggourt",
	56: "Djanet",
	57: "El M'Ghair",
	58: "El Meniaa",
}

// Region is the display form of a wilaya code. OK is false when the code
// is absent, non-positive or not in the table.
type Region struct {
	Code   int
	Name   string
	Postal string
	OK     bool
}

// Name looks up the display name for a wilaya code.
func Name(code int) (string, bool) {
	if code <= 0 {
		return "", false
	}
	n, ok := names[code]
	return n, ok
}

// Postal builds the postal-style code: the integer followed by "000", no padding.
func Postal(code int) string {
	return strconv.Itoa(code) + "000"
}

// Normalize coerces a stored wilaya code (number or numeric string) to a
// positive integer.
func Normalize(v any) (int, bool) {
	var n int
	switch t := v.(type) {
	case nil:
		return 0, false
	case int:
		n = t
	case int32:
		n = int(t)
	case int64:
		n = int(t)
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, false
		}
		n = int(t)
	case json.Number:
		return Normalize(t.String())
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, false
		}
		i, err := strconv.Atoi(s)
		if err != nil {
			f, ferr := strconv.ParseFloat(s, 64)
			if ferr != nil {
				return 0, false
			}
			return Normalize(f)
		}
		n = i
	default:
		return 0, false
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}

// Resolve normalizes v and looks up its display name and postal code.
func Resolve(v any) Region {
	code, ok := Normalize(v)
	if !ok {
		return Region{}
	}
	name, ok := Name(code)
	if !ok {
		return Region{Code: code}
	}
	return Region{Code: code, Name: name, Postal: Postal(code), OK: true}
}
