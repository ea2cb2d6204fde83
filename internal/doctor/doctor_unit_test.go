package doctor

import (
	"testing"
)

func TestParseMajorMinor(t *testing.T) {
	tests := []struct {
		name      string
		ver       string
		wantMajor int
		wantMinor int
		wantErr   bool
	}{
		{"simple", "1.23", 1, 23, false},
		{"with patch", "1.23.2", 1, 23, false},
		{"major two", "2.0.0", 2, 0, false},
		{"single number", "1", 0, 0, true},
		{"empty", "", 0, 0, true},
		{"bad major", "abc.11", 0, 0, true},
		{"bad minor", "1.xyz", 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			major, minor, err := parseMajorMinor(tt.ver)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseMajorMinor(%q) = (%d,%d,nil); want error", tt.ver, major, minor)
				}

				return
			}

			if err != nil {
				t.Fatalf("parseMajorMinor(%q) error: %v", tt.ver, err)
			}

			if major != tt.wantMajor || minor != tt.wantMinor {
				t.Fatalf("parseMajorMinor(%q) = (%d,%d); want (%d,%d)",
					tt.ver, major, minor, tt.wantMajor, tt.wantMinor)
			}
		})
	}
}

func TestCheckORTVersion(t *testing.T) {
	tests := []struct {
		name    string
		ver     string
		wantErr bool
	}{
		{"minimum ok", "1.23.0", false},
		{"newer ok", "1.24.1", false},
		{"too old", "1.17.3", true},
		{"major two", "2.0.0", true},
		{"not a version", "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkORTVersion(tt.ver)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkORTVersion(%q) = %v; wantErr=%v", tt.ver, err, tt.wantErr)
			}
		})
	}
}

func TestFormatFeatures(t *testing.T) {
	got := formatFeatures([]Feature{{Name: "avx2", Present: true}, {Name: "fma"}, {Name: "asimd", Present: true}})
	if got != "avx2 asimd" {
		t.Fatalf("formatFeatures = %q", got)
	}

	if got := formatFeatures(nil); got != "none detected" {
		t.Fatalf("formatFeatures(nil) = %q", got)
	}
}

func TestHostFeaturesNamed(t *testing.T) {
	for _, f := range HostFeatures() {
		if f.Name == "" {
			t.Fatal("host feature without a name")
		}
	}
}
