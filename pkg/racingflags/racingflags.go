// Package racingflags models the race control flags a simulator may wave.
package racingflags

import "strings"

// RacingFlags is the set of race control flags currently shown to the
// driver. The zero value means no flags are active.
type RacingFlags struct {
	Green               bool `json:"green,omitempty"`
	Yellow              bool `json:"yellow,omitempty"`
	Blue                bool `json:"blue,omitempty"`
	White               bool `json:"white,omitempty"`
	Red                 bool `json:"red,omitempty"`
	Black               bool `json:"black,omitempty"`
	Checkered           bool `json:"checkered,omitempty"`
	MeatballBlackOrange bool `json:"meatballBlackOrange,omitempty"`
	BlackWhite          bool `json:"blackWhite,omitempty"`
}

// Empty reports whether no flag is active.
func (f RacingFlags) Empty() bool {
	return f == RacingFlags{}
}

// Active returns the names of all active flags in display order.
func (f RacingFlags) Active() []string {
	ret := []string{}
	for _, e := range []struct {
		name string
		set  bool
	}{
		{"green", f.Green},
		{"yellow", f.Yellow},
		{"blue", f.Blue},
		{"white", f.White},
		{"red", f.Red},
		{"black", f.Black},
		{"checkered", f.Checkered},
		{"meatballBlackOrange", f.MeatballBlackOrange},
		{"blackWhite", f.BlackWhite},
	} {
		if e.set {
			ret = append(ret, e.name)
		}
	}
	return ret
}

// FromNames builds a flag set from flag names as used by Active.
// Unknown names are ignored.
func FromNames(names []string) RacingFlags {
	var ret RacingFlags
	for _, n := range names {
		switch n {
		case "green":
			ret.Green = true
		case "yellow":
			ret.Yellow = true
		case "blue":
			ret.Blue = true
		case "white":
			ret.White = true
		case "red":
			ret.Red = true
		case "black":
			ret.Black = true
		case "checkered":
			ret.Checkered = true
		case "meatballBlackOrange":
			ret.MeatballBlackOrange = true
		case "blackWhite":
			ret.BlackWhite = true
		}
	}
	return ret
}

func (f RacingFlags) String() string {
	if f.Empty() {
		return "none"
	}
	return strings.Join(f.Active(), ",")
}
