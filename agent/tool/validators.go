package tool

import "strings"

// Cities outside the land-freight coverage area. Amazon and Pacific coast
// destinations are reachable only by river or air, which the company does
// not operate.
var blacklistedCities = map[string]struct{}{
	"leticia":                   {},
	"puerto narino":             {},
	"mitu":                      {},
	"inirida":                   {},
	"puerto inirida":            {},
	"carreno":                   {},
	"puerto carreno":            {},
	"san andres":                {},
	"providencia":               {},
	"santa catalina":            {},
	"bahia solano":              {},
	"nuqui":                     {},
	"jurado":                    {},
	"pizarro":                   {},
	"bajo baudo":                {},
	"guapi":                     {},
	"timbiqui":                  {},
	"lopez de micay":            {},
	"la tola":                   {},
	"el charco":                 {},
	"mosquera":                  {},
	"francisco pizarro":         {},
	"santa barbara de iscuande": {},
}

// Merchandise the company refuses to carry.
var forbiddenMerchandise = []string{
	"dinero", "efectivo", "joya", "oro", "esmeralda",
	"arma", "municion", "explosivo", "polvora",
	"droga", "estupefaciente", "sustancia psicoactiva",
	"animal vivo", "animales vivos", "semoviente", "mascota",
	"residuo peligroso", "material radiactivo",
}

var accentReplacer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u",
	"ü", "u", "ñ", "n",
	"Á", "a", "É", "e", "Í", "i", "Ó", "o", "Ú", "u",
	"Ü", "u", "Ñ", "n",
)

// Normalize lowercases and strips Spanish accents so user-typed city and
// merchandise names compare against the catalogs reliably.
func Normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(accentReplacer.Replace(s)))
}

// ValidCity reports whether land freight can be quoted to the given city.
func ValidCity(city string) bool {
	_, blocked := blacklistedCities[Normalize(city)]
	return !blocked
}

// ValidMerchandise reports whether the described cargo is carriable.
func ValidMerchandise(desc string) bool {
	n := Normalize(desc)
	for _, banned := range forbiddenMerchandise {
		if strings.Contains(n, banned) {
			return false
		}
	}
	return true
}

// MovingRequest reports whether the description looks like a household
// move, which is out of scope for the freight line.
func MovingRequest(desc string) bool {
	n := Normalize(desc)
	for _, kw := range []string{"mudanza", "trasteo", "enseres", "muebles de mi casa"} {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}

// ParcelRequest reports whether the description is small-parcel courier
// work rather than massive or semi-massive freight.
func ParcelRequest(desc string) bool {
	n := Normalize(desc)
	for _, kw := range []string{"paqueteo", "paquete pequeno", "sobre", "documento", "caja pequena", "domicilio"} {
		if strings.Contains(n, kw) {
			return true
		}
	}
	return false
}
