package domain

import (
	"database/sql/driver"
	"fmt"
)

// ProviderID identifies the external source of an estimate. The same values are
// persisted with each estimated production entry.
type ProviderID string

const (
	ProviderPVGIS     ProviderID = "pvgis"
	ProviderOpenMeteo ProviderID = "open_meteo"
)

// Valid reports whether p is a known provider.
func (p ProviderID) Valid() bool {
	switch p {
	case ProviderPVGIS, ProviderOpenMeteo:
		return true
	default:
		return false
	}
}

func (p ProviderID) String() string { return string(p) }

// ParseProviderID converts a stored label into a ProviderID.
func ParseProviderID(s string) (ProviderID, error) {
	p := ProviderID(s)
	if !p.Valid() {
		return "", fmt.Errorf("unknown provider %q", s)
	}
	return p, nil
}

// Value implements driver.Valuer.
func (p ProviderID) Value() (driver.Value, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown provider %q", string(p))
	}
	return string(p), nil
}

// Scan implements sql.Scanner.
func (p *ProviderID) Scan(src any) error {
	var raw string
	switch v := src.(type) {
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ProviderID", src)
	}
	parsed, err := ParseProviderID(raw)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
