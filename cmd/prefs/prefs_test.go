package prefs

import "testing"

func TestParseUpdate(t *testing.T) {
	u, err := parseUpdate("port", "31337")
	if err != nil || u.ServerPort == nil || *u.ServerPort != 31337 {
		t.Errorf("port: %+v %v", u, err)
	}
	u, err = parseUpdate("auto_start", "true")
	if err != nil || u.AutoStart == nil || !*u.AutoStart || u.DarkTheme != nil {
		t.Errorf("auto_start: %+v %v", u, err)
	}
	u, err = parseUpdate("dark_theme", "0")
	if err != nil || u.DarkTheme == nil || *u.DarkTheme {
		t.Errorf("dark_theme: %+v %v", u, err)
	}
	for _, bad := range [][2]string{{"port", "abc"}, {"auto_start", "maybe"}, {"theme", "x"}} {
		if _, err := parseUpdate(bad[0], bad[1]); err == nil {
			t.Errorf("expected error for %v", bad)
		}
	}
}
