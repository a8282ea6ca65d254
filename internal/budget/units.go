package budget

import "strings"

// Unit is a measurement unit symbol from a fixed enumeration.
type Unit string

// Unit symbols, as written in the unit field of a concept record.
const (
	UnitMeter       Unit = "m"
	UnitSquareMeter Unit = "m2"
	UnitCubicMeter  Unit = "m3"
	UnitKilogram    Unit = "kg"
	UnitTonne       Unit = "t"
	UnitHour        Unit = "h"
	UnitEach        Unit = "ud"
	UnitLiter       Unit = "l"
	UnitLumpSum     Unit = "pa"
	UnitPercent     Unit = "%"
	UnitKilometer   Unit = "km"
)

// unitAliases maps lower-cased spellings found in interchange files onto the
// enumeration.
var unitAliases = map[string]Unit{
	"m": UnitMeter, "ml": UnitMeter, "m.": UnitMeter, "mts": UnitMeter,
	"m2": UnitSquareMeter, "m²": UnitSquareMeter, "m^2": UnitSquareMeter,
	"m3": UnitCubicMeter, "m³": UnitCubicMeter, "m^3": UnitCubicMeter,
	"kg": UnitKilogram, "kgs": UnitKilogram, "kg.": UnitKilogram,
	"t": UnitTonne, "tn": UnitTonne, "tm": UnitTonne,
	"h": UnitHour, "hr": UnitHour, "hora": UnitHour, "horas": UnitHour, "h.": UnitHour,
	"ud": UnitEach, "u": UnitEach, "un": UnitEach, "und": UnitEach, "uds": UnitEach, "ud.": UnitEach,
	"l": UnitLiter, "lt": UnitLiter, "litro": UnitLiter,
	"pa": UnitLumpSum, "p.a.": UnitLumpSum, "p.a": UnitLumpSum,
	"%": UnitPercent,
	"km": UnitKilometer,
}

// NormalizeUnit maps a raw unit spelling onto the unit enumeration. Empty
// input yields the empty unit; unrecognised spellings become UnitEach.
func NormalizeUnit(raw string) Unit {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return ""
	}
	if u, ok := unitAliases[s]; ok {
		return u
	}
	return UnitEach
}
