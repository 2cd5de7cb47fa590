package usbid

import (
	"os"
	"path/filepath"
	"testing"
)

// writeDatabase drops a usb.ids fixture into a temp dir and returns
// its path.
func writeDatabase(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "usb.ids")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func TestDatabase_Lookups(t *testing.T) {
	path := writeDatabase(t, `# usb.ids fixture
1209  Generic
	6502  Retro input bridge
	0001  pid.codes Test PID
abcd  Other Vendor
	def0  Other Product

C 03  Human Interface Device
	01  Boot Interface Subclass
`)
	db := New(path)
	if !db.Load() {
		t.Fatal("Load() = false, want true")
	}

	tests := []struct {
		name        string
		vid, pid    uint16
		wantVendor  string
		wantProduct string
	}{
		{"bridge identity", 0x1209, 0x6502, "Generic", "Retro input bridge"},
		{"sibling product", 0x1209, 0x0001, "Generic", "pid.codes Test PID"},
		{"second vendor", 0xabcd, 0xdef0, "Other Vendor", "Other Product"},
		{"unknown vendor", 0xffff, 0x0000, "", ""},
		{"unknown product", 0x1209, 0xffff, "Generic", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := db.Vendor(tt.vid); got != tt.wantVendor {
				t.Errorf("Vendor(%04x) = %q, want %q", tt.vid, got, tt.wantVendor)
			}
			if got := db.Product(tt.vid, tt.pid); got != tt.wantProduct {
				t.Errorf("Product(%04x, %04x) = %q, want %q", tt.vid, tt.pid, got, tt.wantProduct)
			}
		})
	}

	// The class section at the end must not register as products.
	if got := db.Product(0xabcd, 0x0001); got != "" {
		t.Errorf("class section leaked a product: %q", got)
	}
}

func TestDatabase_Describe(t *testing.T) {
	path := writeDatabase(t, `1209  Generic
	6502  Retro input bridge
00ff  Nameless Products
`)
	db := New(path)
	db.Load()

	tests := []struct {
		name     string
		vid, pid uint16
		want     string
	}{
		{"full", 0x1209, 0x6502, "1209:6502 Generic Retro input bridge"},
		{"vendor only", 0x00ff, 0x0001, "00ff:0001 Nameless Products"},
		{"unknown", 0xdead, 0xbeef, "dead:beef"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := db.Describe(tt.vid, tt.pid); got != tt.want {
				t.Errorf("Describe(%04x, %04x) = %q, want %q", tt.vid, tt.pid, got, tt.want)
			}
		})
	}
}

func TestDatabase_Missing(t *testing.T) {
	db := New(filepath.Join(t.TempDir(), "nope", "usb.ids"))
	if db.Load() {
		t.Error("Load() on missing file = true, want false")
	}
	// Load answers the same the second time instead of re-searching.
	if db.Load() {
		t.Error("second Load() = true, want false")
	}
	if got := db.Vendor(0x1209); got != "" {
		t.Errorf("Vendor() without database = %q, want empty", got)
	}
	if got := db.Describe(0x1209, 0x6502); got != "1209:6502" {
		t.Errorf("Describe() without database = %q, want bare IDs", got)
	}
}

func TestDatabase_LoadIdempotent(t *testing.T) {
	path := writeDatabase(t, "1209  Generic\n\t6502  Bridge\n")
	db := New(path)

	if !db.Load() {
		t.Fatal("first Load() = false, want true")
	}
	if !db.Load() {
		t.Error("second Load() = false, want true")
	}
	if got := db.Product(0x1209, 0x6502); got != "Bridge" {
		t.Errorf("Product() after double load = %q, want %q", got, "Bridge")
	}
}

func TestDatabase_MalformedLines(t *testing.T) {
	path := writeDatabase(t, `ZZZZ  not hex
	YYYY  not hex either
12  too short
1234no separating space
	5678no space here
9abc  Valid Vendor
	def0  Valid Product
	12    short id rejected
`)
	db := New(path)
	if !db.Load() {
		t.Fatal("Load() = false, want true")
	}

	if got := db.Vendor(0x9abc); got != "Valid Vendor" {
		t.Errorf("Vendor(9abc) = %q, want %q", got, "Valid Vendor")
	}
	if got := db.Product(0x9abc, 0xdef0); got != "Valid Product" {
		t.Errorf("Product(9abc, def0) = %q, want %q", got, "Valid Product")
	}
	if got := db.Vendor(0x1234); got != "" {
		t.Errorf("Vendor(1234) from malformed line = %q, want empty", got)
	}
}

func TestDatabase_DefaultPaths(t *testing.T) {
	db := New()
	if len(db.paths) != len(DefaultPaths) {
		t.Errorf("paths = %d entries, want %d", len(db.paths), len(DefaultPaths))
	}
}
