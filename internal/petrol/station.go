package petrol

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price wraps a decimal so it serialises as a bare JSON number, the shape
// the upstream feed and existing API consumers use.
type Price struct {
	decimal.Decimal
}

// NewPrice builds a Price from a decimal value.
func NewPrice(d decimal.Decimal) Price {
	return Price{Decimal: d}
}

// ParsePrice parses the upstream decimal text (e.g. "1.439").
func ParsePrice(s string) (Price, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Price{}, err
	}
	return Price{Decimal: d}, nil
}

func (p Price) MarshalJSON() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Price) UnmarshalJSON(data []byte) error {
	return p.Decimal.UnmarshalJSON(data)
}

// Station is one fuel station's price entry at a point in time. Latitude
// and longitude are kept verbatim as strings; upstream precision and
// formatting are untrusted.
type Station struct {
	Brand     string   `json:"brand"`
	Offline   bool     `json:"offline"`
	Company   string   `json:"company"`
	Address   string   `json:"address"`
	Latitude  string   `json:"latitude"`
	Longitude string   `json:"longitude"`
	Area      string   `json:"area"`
	Price     Price    `json:"price"`
	District  District `json:"district"`
}

// PriceList is the cached state for one petroleum type: the full station
// list from one successful fetch. It is replaced wholesale on refresh and
// never mutated in place; station order from upstream is preserved.
type PriceList struct {
	UpdatedAt     int64     `json:"updated_at"`
	UpdatedAtStr  string    `json:"updated_at_str"`
	PetroleumType uint32    `json:"petroleum_type"`
	Stations      []Station `json:"stations"`
}

// NewPriceList stamps a fetched station list with its completion time.
func NewPriceList(t Type, stations []Station, fetchedAt time.Time) PriceList {
	if stations == nil {
		stations = []Station{}
	}
	return PriceList{
		UpdatedAt:     fetchedAt.UnixMilli(),
		UpdatedAtStr:  fetchedAt.UTC().Format(time.RFC3339),
		PetroleumType: t.ID(),
		Stations:      stations,
	}
}
