package dialog

import "testing"

func TestValidPhone(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"5551234567", "555-123-4567", true},
		{"555 123 4567", "555-123-4567", true},
		{"1-555-123-4567", "555-123-4567", true},
		{"(555) 123-4567", "555-123-4567", true},
		{"my number is 555 123 4567", "555-123-4567", true},
		{"12345", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ValidPhone(tc.input)
			if ok != tc.ok || got != tc.want {
				t.Errorf("ValidPhone(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestValidEmail(t *testing.T) {
	if got, ok := ValidEmail(" Alice.Smith@Example.COM "); !ok || got != "alice.smith@example.com" {
		t.Errorf("got %q, %v", got, ok)
	}
	if _, ok := ValidEmail("not an email"); ok {
		t.Error("accepted junk")
	}
}

func TestValidZip(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"94102", "94102", true},
		{"94102-1234", "94102-1234", true},
		{"nine four one zero two", "", false},
		{"123", "", false},
	}
	for _, tc := range cases {
		got, ok := ValidZip(tc.input)
		if ok != tc.ok || got != tc.want {
			t.Errorf("ValidZip(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
		}
	}
}

func TestValidMemberID(t *testing.T) {
	cases := []struct {
		input string
		want  string
		ok    bool
	}{
		{"ABC123", "ABC123", true},
		{"member id ABC123", "ABC123", true},
		{"my number is W12345678", "W12345678", true},
		{"abc", "", false},
		{"yes", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := ValidMemberID(tc.input)
			if ok != tc.ok || got != tc.want {
				t.Errorf("ValidMemberID(%q) = %q, %v; want %q, %v", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestExtractMemberID(t *testing.T) {
	if got, ok := ExtractMemberID("uh I think it's like GRP778899 or something"); !ok || got != "GRP778899" {
		t.Errorf("got %q, %v", got, ok)
	}
	if _, ok := ExtractMemberID("no idea"); ok {
		t.Error("extracted an id from nothing")
	}
}

func TestSpokenNumber(t *testing.T) {
	cases := []struct {
		input string
		want  int
		ok    bool
	}{
		{"3", 3, true},
		{" 2 ", 2, true},
		{"number three", 3, true},
		{"the first one", 1, true},
		{"I'll take option 2 please", 2, true},
		{"the second doctor", 2, true},
		{"whichever", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			got, ok := SpokenNumber(tc.input)
			if ok != tc.ok || got != tc.want {
				t.Errorf("SpokenNumber(%q) = %d, %v; want %d, %v", tc.input, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestExtractZip(t *testing.T) {
	zip, rest := ExtractZip("150 Van Ness Ave San Francisco CA 94102")
	if zip != "94102" {
		t.Errorf("zip = %q", zip)
	}
	if rest != "150 Van Ness Ave San Francisco CA" {
		t.Errorf("rest = %q", rest)
	}

	zip, rest = ExtractZip("no zip here")
	if zip != "" || rest != "no zip here" {
		t.Errorf("got %q, %q", zip, rest)
	}
}

func TestParseAddress(t *testing.T) {
	addr := parseAddress("150 Van Ness Ave San Francisco CA 94102")
	if addr.ZipCode != "94102" {
		t.Errorf("zip = %q", addr.ZipCode)
	}
	if addr.State != "CA" {
		t.Errorf("state = %q", addr.State)
	}
	if addr.City != "San Francisco" {
		t.Errorf("city = %q", addr.City)
	}
	if addr.Street != "150 Van Ness Ave" {
		t.Errorf("street = %q", addr.Street)
	}
}
