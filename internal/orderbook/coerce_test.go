package orderbook

import "testing"

func TestNormalizeHeader(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"WO", "wo"},
		{"  Customer   Name ", "customer name"},
		{"PO\tNumber", "po number"},
		{"Scheduled Date", "scheduled date"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := NormalizeHeader(tc.in); got != tc.want {
			t.Errorf("NormalizeHeader(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCoerceText(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"  Acme  ", "Acme"},
		{"nan", ""},
		{"NaN", ""},
		{"None", ""},
		{"<NA>", ""},
		{"nancy", "nancy"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := CoerceText(tc.in); got != tc.want {
			t.Errorf("CoerceText(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestCoerceDateFormats(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"2024-03-15", "2024-03-15"},
		{"3/15/2024", "2024-03-15"},
		{"03/15/2024", "2024-03-15"},
		{"3/15/24", "2024-03-15"},
		{"Mar 15, 2024", "2024-03-15"},
		{"15 March 2024", "2024-03-15"},
		{"2024/03/15", "2024-03-15"},
		{"3/15/2024 1:30 PM", "2024-03-15"},
		{"2024-03-15T13:45:00", "2024-03-15"},
		{"2024-03-15 13:45:00", "2024-03-15"},
		{"2024-03-15T13:45:00Z", "2024-03-15"},
	}
	for _, tc := range cases {
		got, ok := CoerceDate(tc.in)
		if !ok {
			t.Errorf("CoerceDate(%q) reported missing", tc.in)
			continue
		}
		if got.Format("2006-01-02") != tc.want {
			t.Errorf("CoerceDate(%q) = %s, want %s", tc.in, got.Format("2006-01-02"), tc.want)
		}
		if h, m, s := got.Clock(); h != 0 || m != 0 || s != 0 {
			t.Errorf("CoerceDate(%q) kept a clock component: %v", tc.in, got)
		}
	}
}

func TestCoerceDateExcelSerial(t *testing.T) {
	got, ok := CoerceDate("45000")
	if !ok {
		t.Fatalf("expected serial to parse")
	}
	if got.Format("2006-01-02") != "2023-03-15" {
		t.Fatalf("CoerceDate(45000) = %s", got.Format("2006-01-02"))
	}
	// Plain years and short IDs sit outside the serial window.
	if _, ok := CoerceDate("2024"); ok {
		t.Fatalf("bare year should not be a date")
	}
	if _, ok := CoerceDate("123"); ok {
		t.Fatalf("short numeric id should not be a date")
	}
}

func TestCoerceDateMissing(t *testing.T) {
	for _, in := range []string{"", "  ", "None", "none", "NaT", "nat", "TBD", "soon"} {
		if _, ok := CoerceDate(in); ok {
			t.Errorf("CoerceDate(%q) should be missing", in)
		}
	}
}

func TestCoercePrice(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"$1,234.50", 1234.50},
		{"1234.5", 1234.5},
		{"  880 ", 880},
		{"$0.99", 0.99},
		{"-50", -50},
		{"USD 99.95", 99.95},
		{"1,000,000", 1000000},
	}
	for _, tc := range cases {
		got, ok := CoercePrice(tc.in)
		if !ok {
			t.Errorf("CoercePrice(%q) reported missing", tc.in)
			continue
		}
		if got != tc.want {
			t.Errorf("CoercePrice(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestCoercePriceMissing(t *testing.T) {
	for _, in := range []string{"", "  ", "TBD", "call for pricing", "$", "-", "1.2.3"} {
		if _, ok := CoercePrice(in); ok {
			t.Errorf("CoercePrice(%q) should be missing", in)
		}
	}
}
