// Package fifocmd parses the per-device command grammars
// into typed command values, and dispatches them to a device's
// command handler. Unknown text always triggers Stop, per the grammar's
// closing rule for the Tel fifo (and is applied uniformly to every
// device fifo for consistency).
package fifocmd

import (
	"fmt"
	"strconv"
	"strings"
)

// TelCmd is a parsed Tel-fifo command.
type TelCmd struct {
	Kind TelCmdKind

	Axes string // for Home/Limits: the requested HDR subset, e.g. "HD"

	RA, Dec   float64
	Epoch     float64 // decimal year, only set for RaDecEpoch
	HasEpoch  bool

	Alt, Az float64
	HA      float64

	DRA, DDec float64 // object offsets (dRA:/dDec: form)
	DBLine    string

	OffsetDHA, OffsetDDec float64 // arcseconds

	JogDir string // one of N,S,E,W,0
	JogVel int    // 0..32768
}

// TelCmdKind enumerates the Tel grammar's command keywords.
type TelCmdKind int

const (
	TelUnknown TelCmdKind = iota
	TelReset
	TelHome
	TelLimits
	TelStow
	TelOpenCover
	TelCloseCover
	TelRaDecEpoch
	TelRaDecEOD
	TelObjOffset
	TelAltAz
	TelHADec
	TelJog
	TelOffset
	TelStop
	TelGetState
	TelGetAltAz
	TelGetRaDec
	TelGetMJD
)

// ParseTel parses one Tel-fifo request line. Unknown text returns
// TelCmd{Kind: TelStop}: anything unrecognized stops the scope.
func ParseTel(line string) TelCmd {
	line = strings.TrimSpace(line)
	lower := strings.ToLower(line)

	switch {
	case lower == "reset":
		return TelCmd{Kind: TelReset}
	case lower == "stow":
		return TelCmd{Kind: TelStow}
	case lower == "stop":
		return TelCmd{Kind: TelStop}
	case lower == "opencover":
		return TelCmd{Kind: TelOpenCover}
	case lower == "closecover":
		return TelCmd{Kind: TelCloseCover}
	case lower == "gettelstate":
		return TelCmd{Kind: TelGetState}
	case lower == "getaltaz":
		return TelCmd{Kind: TelGetAltAz}
	case lower == "getradec":
		return TelCmd{Kind: TelGetRaDec}
	case lower == "getmjd":
		return TelCmd{Kind: TelGetMJD}
	case strings.HasPrefix(lower, "home"):
		return TelCmd{Kind: TelHome, Axes: strings.ToUpper(line[len("home"):])}
	case strings.HasPrefix(lower, "limits"):
		return TelCmd{Kind: TelLimits, Axes: strings.ToUpper(line[len("limits"):])}
	case strings.HasPrefix(lower, "offset "):
		fields := strings.Fields(line)
		if len(fields) == 3 {
			dha, err1 := strconv.ParseFloat(fields[1], 64)
			ddec, err2 := strconv.ParseFloat(fields[2], 64)
			if err1 == nil && err2 == nil {
				return TelCmd{Kind: TelOffset, OffsetDHA: dha, OffsetDDec: ddec}
			}
		}
	case len(lower) > 0 && lower[0] == 'j':
		return parseJog(line)
	case strings.Contains(lower, "ra:") && strings.Contains(lower, "epoch:"):
		return parseRaDecEpoch(line)
	case strings.Contains(lower, "dra:") && strings.Contains(lower, "ddec:"):
		return parseObjOffset(line)
	case strings.Contains(lower, "ra:") && strings.Contains(lower, "dec:"):
		return parseRaDecEOD(line)
	case strings.Contains(lower, "alt:") && strings.Contains(lower, "az:"):
		return parseAltAz(line)
	case strings.Contains(lower, "ha:") && strings.Contains(lower, "dec:"):
		return parseHADec(line)
	}
	return TelCmd{Kind: TelStop}
}

func fieldVal(line, key string) (float64, bool) {
	lower := strings.ToLower(line)
	idx := strings.Index(lower, strings.ToLower(key))
	if idx < 0 {
		return 0, false
	}
	rest := line[idx+len(key):]
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	return v, err == nil
}

func parseRaDecEpoch(line string) TelCmd {
	ra, _ := fieldVal(line, "RA:")
	dec, _ := fieldVal(line, "Dec:")
	ep, ok := fieldVal(line, "Epoch:")
	return TelCmd{Kind: TelRaDecEpoch, RA: ra, Dec: dec, Epoch: ep, HasEpoch: ok}
}

func parseRaDecEOD(line string) TelCmd {
	ra, _ := fieldVal(line, "RA:")
	dec, _ := fieldVal(line, "Dec:")
	return TelCmd{Kind: TelRaDecEOD, RA: ra, Dec: dec}
}

func parseAltAz(line string) TelCmd {
	alt, _ := fieldVal(line, "Alt:")
	az, _ := fieldVal(line, "Az:")
	return TelCmd{Kind: TelAltAz, Alt: alt, Az: az}
}

func parseHADec(line string) TelCmd {
	ha, _ := fieldVal(line, "HA:")
	dec, _ := fieldVal(line, "Dec:")
	return TelCmd{Kind: TelHADec, HA: ha, Dec: dec}
}

func parseObjOffset(line string) TelCmd {
	dra, _ := fieldVal(line, "dRA:")
	ddec, _ := fieldVal(line, "dDec:")
	dbLine := ""
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		dbLine = strings.TrimSpace(line[idx+1:])
	}
	return TelCmd{Kind: TelObjOffset, DRA: dra, DDec: ddec, DBLine: dbLine}
}

// parseJog parses the Tel fifo's "j[NSEW0][nsew] [<velocity>]" jog
// grammar; ParseDome and ParseFocus parse their own j[+-0] forms.
func parseJog(line string) TelCmd {
	fields := strings.Fields(line)
	if len(fields) == 0 || len(fields[0]) < 2 {
		return TelCmd{Kind: TelStop}
	}
	dir := fields[0][1:]
	vel := 0
	if len(fields) > 1 {
		if v, err := strconv.Atoi(fields[1]); err == nil {
			vel = v
		}
	}
	return TelCmd{Kind: TelJog, JogDir: dir, JogVel: vel}
}

func (c TelCmd) String() string {
	return fmt.Sprintf("TelCmd{%d}", c.Kind)
}
