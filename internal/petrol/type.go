package petrol

// Type identifies one of the five petroleum categories published upstream.
// The numeric ids are the identifiers the government form expects and are
// stable across deployments.
type Type uint32

const (
	Unlead95 Type = iota + 1
	Unlead98
	DieselHeat
	DieselAuto
	Kerosene
)

var typeNames = map[Type]string{
	Unlead95:   "Unleaded 95",
	Unlead98:   "Unleaded 98",
	DieselHeat: "Diesel Heating",
	DieselAuto: "Diesel Auto",
	Kerosene:   "Kerosene",
}

// All returns every known petroleum type in upstream id order.
func All() []Type {
	return []Type{Unlead95, Unlead98, DieselHeat, DieselAuto, Kerosene}
}

// TypeFromID maps an external identifier (1-5) to its Type.
func TypeFromID(id int) (Type, bool) {
	t := Type(id)
	_, ok := typeNames[t]
	return t, ok
}

// ID returns the external identifier used by the upstream form and the API paths.
func (t Type) ID() uint32 {
	return uint32(t)
}

// Valid reports whether t is one of the five known types.
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "Unknown"
}
