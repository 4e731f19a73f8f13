package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/erp/pricing/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Dimension is the physical dimension a unit measures. Conversion is only
// defined between units of the same dimension; crossing dimensions is a hard
// error, never a silent coercion.
type Dimension string

const (
	DimensionWeight  Dimension = "WEIGHT"
	DimensionLength  Dimension = "LENGTH"
	DimensionSurface Dimension = "SURFACE"
	DimensionVolume  Dimension = "VOLUME"
	DimensionPiece   Dimension = "PIECE"
)

// String returns the string representation of the dimension
func (d Dimension) String() string {
	return string(d)
}

// Unit is a value object representing a unit of measurement.
// It is immutable - all operations return new values.
// Every unit belongs to exactly one Dimension and carries a conversion
// rate to that dimension's base unit (KG, M, M2, M3, PCS). Routing every
// conversion through the base unit keeps the table O(units) instead of
// O(units squared).
type Unit struct {
	code      string
	dimension Dimension
	toBase    decimal.Decimal
}

// Common unit codes
const (
	UnitCodeT   = "T"   // Tonnes
	UnitCodeKG  = "KG"  // Kilograms (base WEIGHT)
	UnitCodeG   = "G"   // Grams
	UnitCodeMG  = "MG"  // Milligrams
	UnitCodeKM  = "KM"  // Kilometers
	UnitCodeM   = "M"   // Meters (base LENGTH)
	UnitCodeCM  = "CM"  // Centimeters
	UnitCodeMM  = "MM"  // Millimeters
	UnitCodeM2  = "M2"  // Square meters (base SURFACE)
	UnitCodeCM2 = "CM2" // Square centimeters
	UnitCodeMM2 = "MM2" // Square millimeters
	UnitCodeM3  = "M3"  // Cubic meters (base VOLUME)
	UnitCodeL   = "L"   // Liters
	UnitCodeML  = "ML"  // Milliliters
	UnitCodePCS = "PCS" // Pieces (base PIECE)
	UnitCodeU   = "U"   // Unit, alias dimensionally identical to PCS
	UnitCodeDZN = "DZN" // Dozen
)

// registry maps a normalized unit code to its dimension and base-unit rate.
// 1 <code> = <toBase> base units of the dimension.
var registry = map[string]Unit{
	UnitCodeT:   {code: UnitCodeT, dimension: DimensionWeight, toBase: decimal.NewFromInt(1000)},
	UnitCodeKG:  {code: UnitCodeKG, dimension: DimensionWeight, toBase: decimal.NewFromInt(1)},
	UnitCodeG:   {code: UnitCodeG, dimension: DimensionWeight, toBase: decimal.NewFromFloat(0.001)},
	UnitCodeMG:  {code: UnitCodeMG, dimension: DimensionWeight, toBase: decimal.NewFromFloat(0.000001)},
	UnitCodeKM:  {code: UnitCodeKM, dimension: DimensionLength, toBase: decimal.NewFromInt(1000)},
	UnitCodeM:   {code: UnitCodeM, dimension: DimensionLength, toBase: decimal.NewFromInt(1)},
	UnitCodeCM:  {code: UnitCodeCM, dimension: DimensionLength, toBase: decimal.NewFromFloat(0.01)},
	UnitCodeMM:  {code: UnitCodeMM, dimension: DimensionLength, toBase: decimal.NewFromFloat(0.001)},
	UnitCodeM2:  {code: UnitCodeM2, dimension: DimensionSurface, toBase: decimal.NewFromInt(1)},
	UnitCodeCM2: {code: UnitCodeCM2, dimension: DimensionSurface, toBase: decimal.NewFromFloat(0.0001)},
	UnitCodeMM2: {code: UnitCodeMM2, dimension: DimensionSurface, toBase: decimal.NewFromFloat(0.000001)},
	UnitCodeM3:  {code: UnitCodeM3, dimension: DimensionVolume, toBase: decimal.NewFromInt(1)},
	UnitCodeL:   {code: UnitCodeL, dimension: DimensionVolume, toBase: decimal.NewFromFloat(0.001)},
	UnitCodeML:  {code: UnitCodeML, dimension: DimensionVolume, toBase: decimal.NewFromFloat(0.000001)},
	UnitCodePCS: {code: UnitCodePCS, dimension: DimensionPiece, toBase: decimal.NewFromInt(1)},
	UnitCodeU:   {code: UnitCodeU, dimension: DimensionPiece, toBase: decimal.NewFromInt(1)},
	UnitCodeDZN: {code: UnitCodeDZN, dimension: DimensionPiece, toBase: decimal.NewFromInt(12)},
}

// ParseUnit resolves a unit code (case-insensitive, surrounding whitespace
// ignored) into a Unit. Unknown codes are invalid input.
func ParseUnit(code string) (Unit, error) {
	normalized := strings.TrimSpace(strings.ToUpper(code))
	if normalized == "" {
		return Unit{}, shared.NewDomainError("INVALID_INPUT", "unit code cannot be empty")
	}
	// Accept the common M² / M³ spellings
	normalized = strings.NewReplacer("²", "2", "³", "3").Replace(normalized)

	unit, ok := registry[normalized]
	if !ok {
		return Unit{}, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("unknown unit code: %s", code))
	}
	return unit, nil
}

// MustParseUnit parses a unit code and panics on error.
// Use only when you're certain the input is valid.
func MustParseUnit(code string) Unit {
	u, err := ParseUnit(code)
	if err != nil {
		panic(err)
	}
	return u
}

// Code returns the unit code (normalized to uppercase).
func (u Unit) Code() string {
	return u.code
}

// Dimension returns the physical dimension of the unit.
func (u Unit) Dimension() Dimension {
	return u.dimension
}

// IsZero returns true if this is a zero-value Unit.
func (u Unit) IsZero() bool {
	return u.code == ""
}

// IsBaseUnit returns true if this is the base unit of its dimension.
func (u Unit) IsBaseUnit() bool {
	return u.toBase.Equal(decimal.NewFromInt(1))
}

// SameDimension returns true if both units measure the same dimension.
func (u Unit) SameDimension(other Unit) bool {
	return u.dimension == other.dimension
}

// Equals returns true if both units have the same code.
func (u Unit) Equals(other Unit) bool {
	return u.code == other.code
}

// String returns a string representation of the Unit.
func (u Unit) String() string {
	return fmt.Sprintf("%s (%s)", u.code, u.dimension)
}

// Convert converts a quantity expressed in this unit into the target unit.
// Fails with ErrIncompatibleUnits when the dimensions differ.
func (u Unit) Convert(value decimal.Decimal, target Unit) (decimal.Decimal, error) {
	if !u.SameDimension(target) {
		return decimal.Zero, shared.ErrIncompatibleUnits
	}
	if u.Equals(target) {
		return value, nil
	}
	return value.Mul(u.toBase).Div(target.toBase), nil
}

// ConvertPrice converts a per-unit price expressed per this unit into a
// per-unit price per the target unit. This is the inverse of Convert:
// a price per KG becomes a thousandth of itself per G.
func (u Unit) ConvertPrice(pricePerUnit decimal.Decimal, target Unit) (decimal.Decimal, error) {
	if !u.SameDimension(target) {
		return decimal.Zero, shared.ErrIncompatibleUnits
	}
	if u.Equals(target) {
		return pricePerUnit, nil
	}
	return pricePerUnit.Mul(target.toBase).Div(u.toBase), nil
}

// Convert converts a quantity between two unit codes.
// Package-level convenience over Unit.Convert.
func Convert(value decimal.Decimal, fromCode, toCode string) (decimal.Decimal, error) {
	from, err := ParseUnit(fromCode)
	if err != nil {
		return decimal.Zero, err
	}
	to, err := ParseUnit(toCode)
	if err != nil {
		return decimal.Zero, err
	}
	return from.Convert(value, to)
}

// ConvertPrice converts a per-unit price between two unit codes.
func ConvertPrice(pricePerUnit decimal.Decimal, fromCode, toCode string) (decimal.Decimal, error) {
	from, err := ParseUnit(fromCode)
	if err != nil {
		return decimal.Zero, err
	}
	to, err := ParseUnit(toCode)
	if err != nil {
		return decimal.Zero, err
	}
	return from.ConvertPrice(pricePerUnit, to)
}

// SurfaceFromLengths computes a rectangular surface in square meters from two
// lengths expressed in lengthUnit. Inputs are normalized to the base LENGTH
// unit first.
func SurfaceFromLengths(length, width decimal.Decimal, lengthUnit Unit) (decimal.Decimal, error) {
	if lengthUnit.dimension != DimensionLength {
		return decimal.Zero, shared.ErrIncompatibleUnits
	}
	base := MustParseUnit(UnitCodeM)
	l, err := lengthUnit.Convert(length, base)
	if err != nil {
		return decimal.Zero, err
	}
	w, err := lengthUnit.Convert(width, base)
	if err != nil {
		return decimal.Zero, err
	}
	return l.Mul(w), nil
}

// VolumeFromLengths computes a box volume in cubic meters from three lengths
// expressed in lengthUnit.
func VolumeFromLengths(length, width, height decimal.Decimal, lengthUnit Unit) (decimal.Decimal, error) {
	surface, err := SurfaceFromLengths(length, width, lengthUnit)
	if err != nil {
		return decimal.Zero, err
	}
	base := MustParseUnit(UnitCodeM)
	h, err := lengthUnit.Convert(height, base)
	if err != nil {
		return decimal.Zero, err
	}
	return surface.Mul(h), nil
}

// SurfacePrice computes the price of a rectangular surface given its two
// side lengths and a price per surface unit.
func SurfacePrice(length, width decimal.Decimal, lengthUnit Unit, pricePerUnit decimal.Decimal, priceUnit Unit) (decimal.Decimal, error) {
	surface, err := SurfaceFromLengths(length, width, lengthUnit)
	if err != nil {
		return decimal.Zero, err
	}
	pricePerM2, err := priceUnit.ConvertPrice(pricePerUnit, MustParseUnit(UnitCodeM2))
	if err != nil {
		return decimal.Zero, err
	}
	return surface.Mul(pricePerM2), nil
}

// VolumePrice computes the price of a box volume given its three side lengths
// and a price per volume unit.
func VolumePrice(length, width, height decimal.Decimal, lengthUnit Unit, pricePerUnit decimal.Decimal, priceUnit Unit) (decimal.Decimal, error) {
	volume, err := VolumeFromLengths(length, width, height, lengthUnit)
	if err != nil {
		return decimal.Zero, err
	}
	pricePerM3, err := priceUnit.ConvertPrice(pricePerUnit, MustParseUnit(UnitCodeM3))
	if err != nil {
		return decimal.Zero, err
	}
	return volume.Mul(pricePerM3), nil
}

// MarshalJSON implements json.Marshaler.
func (u Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.code)
}

// UnmarshalJSON implements json.Unmarshaler.
func (u *Unit) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		return err
	}
	if code == "" {
		*u = Unit{}
		return nil
	}
	parsed, err := ParseUnit(code)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// Value implements driver.Valuer for database storage. Stores the code only.
func (u Unit) Value() (driver.Value, error) {
	return u.code, nil
}

// Scan implements sql.Scanner for database retrieval.
func (u *Unit) Scan(value any) error {
	if value == nil {
		*u = Unit{}
		return nil
	}

	var strVal string
	switch v := value.(type) {
	case string:
		strVal = v
	case []byte:
		strVal = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Unit", value)
	}

	if strVal == "" {
		*u = Unit{}
		return nil
	}

	parsed, err := ParseUnit(strVal)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
