// Package locationcode parses warehouse location codes.
//
// A whole location is aisle-rack-level, e.g. T01-01-01. A fraction location
// splits a level into quadrants A-D and uses a single level digit followed by
// the quadrant, e.g. T01-01-1A.
package locationcode

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/angelmondragon/wavepick-backend/pkg/enums"
)

var (
	wholePattern    = regexp.MustCompile(`^([A-Z]\d{2})-(\d{2})-(\d{2})$`)
	fractionPattern = regexp.MustCompile(`^([A-Z]\d{2})-(\d{2})-(\d)([A-D])$`)
)

// Parts are the components of a location code.
type Parts struct {
	Aisle    string `json:"aisle"`
	Rack     string `json:"rack"`
	Level    string `json:"level"`
	Quadrant string `json:"quadrant,omitempty"`
}

// Code is a validated, normalized location code.
type Code struct {
	Value string             `json:"code"`
	Type  enums.LocationType `json:"location_type"`
	Parts Parts              `json:"parts"`
}

func (c Code) String() string {
	return c.Value
}

// Parse normalizes raw (trim + upper case) and validates it against the shape
// required by locationType.
func Parse(raw string, locationType enums.LocationType) (Code, error) {
	clean := strings.ToUpper(strings.TrimSpace(raw))
	if clean == "" {
		return Code{}, fmt.Errorf("location code is required")
	}

	switch locationType {
	case enums.LocationTypeWhole:
		match := wholePattern.FindStringSubmatch(clean)
		if match == nil {
			return Code{}, fmt.Errorf("invalid whole location code %q: expected aisle-rack-level such as T01-01-01", clean)
		}
		return Code{
			Value: clean,
			Type:  locationType,
			Parts: Parts{Aisle: match[1], Rack: match[2], Level: match[3]},
		}, nil
	case enums.LocationTypeFraction:
		match := fractionPattern.FindStringSubmatch(clean)
		if match == nil {
			return Code{}, fmt.Errorf("invalid fraction location code %q: expected aisle-rack-level+quadrant such as T01-01-1A", clean)
		}
		return Code{
			Value: clean,
			Type:  locationType,
			Parts: Parts{Aisle: match[1], Rack: match[2], Level: match[3], Quadrant: match[4]},
		}, nil
	default:
		return Code{}, fmt.Errorf("invalid location type %q", locationType)
	}
}

// Detect infers the location type from the code's shape.
func Detect(raw string) (enums.LocationType, bool) {
	clean := strings.ToUpper(strings.TrimSpace(raw))
	switch {
	case wholePattern.MatchString(clean):
		return enums.LocationTypeWhole, true
	case fractionPattern.MatchString(clean):
		return enums.LocationTypeFraction, true
	default:
		return "", false
	}
}

// Format builds a code from its parts; a non-empty quadrant yields a fraction
// code. The result is validated before it is returned.
func Format(parts Parts) (Code, error) {
	aisle := strings.ToUpper(strings.TrimSpace(parts.Aisle))
	rack := strings.TrimSpace(parts.Rack)
	level := strings.TrimSpace(parts.Level)
	quadrant := strings.ToUpper(strings.TrimSpace(parts.Quadrant))

	if quadrant == "" {
		return Parse(fmt.Sprintf("%s-%s-%s", aisle, rack, level), enums.LocationTypeWhole)
	}
	return Parse(fmt.Sprintf("%s-%s-%s%s", aisle, rack, level, quadrant), enums.LocationTypeFraction)
}
