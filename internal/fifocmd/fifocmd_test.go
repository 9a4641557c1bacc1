package fifocmd

import "testing"

func TestParseTelKeywords(t *testing.T) {
	tests := []struct {
		line string
		kind TelCmdKind
	}{
		{"reset", TelReset},
		{"stow", TelStow},
		{"stop", TelStop},
		{"OpenCover", TelOpenCover},
		{"CloseCover", TelCloseCover},
		{"gettelstate", TelGetState},
		{"getaltaz", TelGetAltAz},
		{"getradec", TelGetRaDec},
		{"getmjd", TelGetMJD},
		{"homeHDR", TelHome},
		{"limitsHD", TelLimits},
		{"garbage text", TelStop},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseTel(tt.line)
			if got.Kind != tt.kind {
				t.Errorf("ParseTel(%q).Kind = %v, want %v", tt.line, got.Kind, tt.kind)
			}
		})
	}
}

func TestParseTelRaDecEpoch(t *testing.T) {
	c := ParseTel("RA:3.14159 Dec:0.5236 Epoch:2000")
	if c.Kind != TelRaDecEpoch {
		t.Fatalf("expected TelRaDecEpoch, got %v", c.Kind)
	}
	if c.RA != 3.14159 || c.Dec != 0.5236 || c.Epoch != 2000 {
		t.Fatalf("unexpected fields: %+v", c)
	}
}

func TestParseTelRaDecEOD(t *testing.T) {
	c := ParseTel("RA:3.14159 Dec:0.5236")
	if c.Kind != TelRaDecEOD {
		t.Fatalf("expected TelRaDecEOD, got %v", c.Kind)
	}
}

func TestParseTelOffset(t *testing.T) {
	c := ParseTel("Offset 1.5 -2.5")
	if c.Kind != TelOffset || c.OffsetDHA != 1.5 || c.OffsetDDec != -2.5 {
		t.Fatalf("unexpected result: %+v", c)
	}
}

func TestParseTelJog(t *testing.T) {
	c := ParseTel("jN 16384")
	if c.Kind != TelJog || c.JogDir != "N" || c.JogVel != 16384 {
		t.Fatalf("unexpected result: %+v", c)
	}
}

func TestParseDomeKeywords(t *testing.T) {
	tests := []struct {
		line string
		kind DomeCmdKind
	}{
		{"reset", DomeReset},
		{"stop", DomeStop},
		{"open", DomeOpen},
		{"close", DomeClose},
		{"auto", DomeAuto},
		{"off", DomeAutoOff},
		{"home", DomeHome},
		{"Az:1.5708", DomeSetAz},
		{"j+", DomeJog},
		{"garbage", DomeStop},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseDome(tt.line)
			if got.Kind != tt.kind {
				t.Errorf("ParseDome(%q).Kind = %v, want %v", tt.line, got.Kind, tt.kind)
			}
		})
	}
}

func TestParseFocusKeywords(t *testing.T) {
	tests := []struct {
		line string
		kind FocusCmdKind
	}{
		{"reset", FocusReset},
		{"home", FocusHome},
		{"stop", FocusStop},
		{"limits", FocusLimits},
		{"auto", FocusAuto},
		{"aoreset", FocusAutoOffsetReset},
		{"ao12.5", FocusAutoOffset},
		{"j+", FocusJog},
		{"-45.0", FocusOffset},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got := ParseFocus(tt.line)
			if got.Kind != tt.kind {
				t.Errorf("ParseFocus(%q).Kind = %v, want %v", tt.line, got.Kind, tt.kind)
			}
		})
	}
}
