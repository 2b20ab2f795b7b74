package models

import "testing"

func TestInstallRecordRoundTrip(t *testing.T) {
	cases := []struct {
		line    string
		version string
		arch    string
		manual  bool
		short   string
	}{
		{"16.2.1 (arm64)", "16.2.1", "arm64", false, "16.2.1"},
		{"17.0.0 (x86_64)", "17.0.0", "x86_64", false, "17.0.0"},
		{"Manual Installation (custom-build) (Unknown)", "Manual Installation (custom-build)", "Unknown", true, "Manual"},
	}
	for _, c := range cases {
		rec := ParseInstallRecord(c.line)
		if rec.Version != c.version || rec.Arch != c.arch {
			t.Errorf("ParseInstallRecord(%q) = %+v", c.line, rec)
		}
		if rec.String() != c.line {
			t.Errorf("String() = %q, want %q", rec.String(), c.line)
		}
		if rec.IsManual() != c.manual {
			t.Errorf("IsManual(%q) = %v", c.line, rec.IsManual())
		}
		if rec.ShortVersion() != c.short {
			t.Errorf("ShortVersion(%q) = %q, want %q", c.line, rec.ShortVersion(), c.short)
		}
	}
}

func TestParseInstallRecordWithoutArch(t *testing.T) {
	rec := ParseInstallRecord("something odd\n")
	if rec.Version != "something odd" || rec.Arch != UnknownArch {
		t.Errorf("unexpected record: %+v", rec)
	}
}

func TestManualInstallRecord(t *testing.T) {
	rec := ManualInstallRecord("custom-build")
	if got := rec.String(); got != "Manual Installation (custom-build) (Unknown)" {
		t.Errorf("String() = %q", got)
	}
}

func TestReleaseDisplayName(t *testing.T) {
	if got := (Release{TagName: "16.2.1"}).DisplayName(); got != "16.2.1" {
		t.Errorf("DisplayName() = %q", got)
	}
	if got := (Release{TagName: "17.0.0-rc1", Prerelease: true}).DisplayName(); got != "17.0.0-rc1 (Pre-release)" {
		t.Errorf("DisplayName() = %q", got)
	}
}
