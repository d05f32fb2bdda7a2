package mirror

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAxis is returned by ParseAxis for anything other than x, y or xy.
var ErrUnknownAxis = errors.New("unknown mirror axis")

// Axis selects which horizontal location components are negated.
type Axis uint8

const (
	AxisX Axis = 1 << iota
	AxisY

	AxisXY = AxisX | AxisY
)

// ParseAxis accepts "x", "y", "xy" or "yx", in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "xy", "yx":
		return AxisXY, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownAxis, s)
}

// Has reports whether a includes every component of other.
func (a Axis) Has(other Axis) bool {
	return a&other == other
}

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "x"
	case AxisY:
		return "y"
	case AxisXY:
		return "xy"
	}
	return fmt.Sprintf("Axis(%d)", uint8(a))
}

// Description is the help text shown when choosing an axis.
func (a Axis) Description() string {
	switch a {
	case AxisX:
		return "Mirror across the X axis only, for maps symmetric along X"
	case AxisY:
		return "Mirror across the Y axis only, for maps symmetric along Y"
	case AxisXY:
		return "Mirror across both axes, for point-symmetric maps such as Arx Novena"
	}
	return ""
}

// Axes lists the valid axis choices in display order.
func Axes() []Axis {
	return []Axis{AxisXY, AxisX, AxisY}
}
