package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"+15551234567", "+15551234567", false},
		{"+1 (555) 123-4567", "+15551234567", false},
		{"+44 20 7946 0958", "+442079460958", false},
		{" +31 6 1234 5678 ", "+31612345678", false},
		{"5551234567", "", true},        // no country code
		{"+0123456789", "", true},       // leading zero after +
		{"+123", "", true},              // too short
		{"+1234567890123456", "", true}, // too long
		{"+1555abc4567", "", true},      // letters
		{"", "", true},
		{"   ", "", true},
	}

	for _, tc := range cases {
		got, err := NormalizeE164(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("NormalizeE164(%q): expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("NormalizeE164(%q): unexpected error %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
