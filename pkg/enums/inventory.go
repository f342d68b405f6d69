package enums

// PositionStatus gates whether an inventory position can be allocated.
type PositionStatus string

const (
	PositionStatusAvailable  PositionStatus = "available"
	PositionStatusQuarantine PositionStatus = "quarantine"
	PositionStatusBlocked    PositionStatus = "blocked"
	PositionStatusDamaged    PositionStatus = "damaged"
	PositionStatusExpired    PositionStatus = "expired"
)

var validPositionStatuses = []PositionStatus{
	PositionStatusAvailable,
	PositionStatusQuarantine,
	PositionStatusBlocked,
	PositionStatusDamaged,
	PositionStatusExpired,
}

// String implements fmt.Stringer.
func (p PositionStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PositionStatus.
func (p PositionStatus) IsValid() bool {
	for _, candidate := range validPositionStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// LocationType determines the shape of a warehouse location code.
type LocationType string

const (
	LocationTypeWhole    LocationType = "whole"
	LocationTypeFraction LocationType = "fraction"
)

var validLocationTypes = []LocationType{
	LocationTypeWhole,
	LocationTypeFraction,
}

// String implements fmt.Stringer.
func (l LocationType) String() string {
	return string(l)
}

// IsValid reports whether the value is a known LocationType.
func (l LocationType) IsValid() bool {
	for _, candidate := range validLocationTypes {
		if candidate == l {
			return true
		}
	}
	return false
}

// MovementType classifies stock_movements rows.
type MovementType string

const (
	MovementTypePicking    MovementType = "picking"
	MovementTypeReceiving  MovementType = "receiving"
	MovementTypeAdjustment MovementType = "adjustment"
)

var validMovementTypes = []MovementType{
	MovementTypePicking,
	MovementTypeReceiving,
	MovementTypeAdjustment,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

