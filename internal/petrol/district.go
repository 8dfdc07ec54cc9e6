package petrol

import "strings"

// District is one of the five administrative districts of Cyprus. Upstream
// rows only carry a free-form area name, so stations are attributed to a
// district through the locality table below.
type District struct {
	ID     string `json:"-"`
	Name   string `json:"name"`
	NameEl string `json:"name_el"`
}

var (
	Famagusta = District{ID: "famagusta", Name: "Famagusta", NameEl: "Αμμόχωστος"}
	Larnaca   = District{ID: "larnaca", Name: "Larnaca", NameEl: "Λάρνακα"}
	Limassol  = District{ID: "limassol", Name: "Limassol", NameEl: "Λεμεσός"}
	Nicosia   = District{ID: "nicosia", Name: "Nicosia", NameEl: "Λευκωσία"}
	Paphos    = District{ID: "paphos", Name: "Paphos", NameEl: "Πάφος"}

	// UnknownDistrict is the sentinel for areas not present in the table.
	UnknownDistrict = District{ID: "unknown", Name: "Unknown", NameEl: "Αγνωστο"}
)

// Districts lists the real districts, without the Unknown sentinel.
func Districts() []District {
	return []District{Famagusta, Larnaca, Limassol, Nicosia, Paphos}
}

// Localities the upstream feed has been observed to use, keyed by their
// lowercased English or Greek name. The table is not exhaustive; misses
// resolve to UnknownDistrict rather than failing the row.
var areaDistricts = map[string]District{
	"famagusta":   Famagusta,
	"αμμόχωστος":  Famagusta,
	"paralimni":   Famagusta,
	"παραλίμνι":   Famagusta,
	"ayia napa":   Famagusta,
	"αγία νάπα":   Famagusta,
	"deryneia":    Famagusta,
	"δερύνεια":    Famagusta,
	"larnaca":     Larnaca,
	"λάρνακα":     Larnaca,
	"aradippou":   Larnaca,
	"αραδίππου":   Larnaca,
	"livadia":     Larnaca,
	"λιβάδια":     Larnaca,
	"athienou":    Larnaca,
	"αθηένου":     Larnaca,
	"limassol":    Limassol,
	"λεμεσός":     Limassol,
	"ypsonas":     Limassol,
	"ύψωνας":      Limassol,
	"kolossi":     Limassol,
	"κολόσσι":     Limassol,
	"germasogeia": Limassol,
	"γερμασόγεια": Limassol,
	"nicosia":     Nicosia,
	"λευκωσία":    Nicosia,
	"strovolos":   Nicosia,
	"στρόβολος":   Nicosia,
	"lakatamia":   Nicosia,
	"λακατάμια":   Nicosia,
	"latsia":      Nicosia,
	"λατσιά":      Nicosia,
	"engomi":      Nicosia,
	"έγκωμη":      Nicosia,
	"aglantzia":   Nicosia,
	"αγλαντζιά":   Nicosia,
	"paphos":      Paphos,
	"πάφος":       Paphos,
	"polis":       Paphos,
	"πόλις":       Paphos,
	"peyia":       Paphos,
	"πέγεια":      Paphos,
	"geroskipou":  Paphos,
	"γεροσκήπου":  Paphos,
}

// DistrictForArea resolves an upstream area name to its district.
func DistrictForArea(area string) District {
	if d, ok := areaDistricts[strings.ToLower(strings.TrimSpace(area))]; ok {
		return d
	}
	return UnknownDistrict
}
