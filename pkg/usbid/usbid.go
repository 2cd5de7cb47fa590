// Package usbid resolves vendor and product IDs against the usb.ids
// database that most systems ship, to label the identity a bridge
// reports in its HID Descriptor.
//
// Lookups are best effort: a missing database file leaves every name
// empty and Describe falls back to bare hex IDs.
package usbid

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/ardnew/softhid/pkg"
)

// DefaultPaths lists the standard locations of the usb.ids database.
var DefaultPaths = []string{
	"/usr/share/hwdata/usb.ids",
	"/var/lib/usbutils/usb.ids",
	"/usr/share/misc/usb.ids",
}

// Database caches vendor and product names parsed from usb.ids. It is
// safe for concurrent use.
type Database struct {
	mu       sync.RWMutex
	vendors  map[uint16]string
	products map[uint32]string
	paths    []string
	loaded   bool
	found    bool
}

// New returns a database searching the given paths, or DefaultPaths
// when none are given.
func New(paths ...string) *Database {
	if len(paths) == 0 {
		paths = DefaultPaths
	}
	return &Database{
		vendors:  make(map[uint16]string),
		products: make(map[uint32]string),
		paths:    paths,
	}
}

// Load parses the first database file found on the search paths and
// reports whether one was found. Calling it again does nothing.
func (db *Database) Load() bool {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.loaded {
		return db.found
	}
	db.loaded = true

	for _, path := range db.paths {
		f, err := os.Open(path)
		if err != nil {
			continue
		}
		db.parse(f)
		f.Close()
		db.found = true
		pkg.LogDebug(pkg.ComponentHost, "usb id database loaded",
			"path", path,
			"vendors", len(db.vendors))
		return true
	}
	return false
}

// Vendor returns the vendor's name, or "" when unknown.
func (db *Database) Vendor(vid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.vendors[vid]
}

// Product returns the product's name, or "" when unknown.
func (db *Database) Product(vid, pid uint16) string {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.products[key(vid, pid)]
}

// Describe formats vid:pid with whatever names the database knows,
// bare hex when it knows none.
func (db *Database) Describe(vid, pid uint16) string {
	s := fmt.Sprintf("%04x:%04x", vid, pid)
	vendor := db.Vendor(vid)
	if vendor == "" {
		return s
	}
	s += " " + vendor
	if product := db.Product(vid, pid); product != "" {
		s += " " + product
	}
	return s
}

// parse reads the usb.ids format: vendor lines are "vvvv  name",
// product lines beneath them are tab-indented "pppp  name". Comment,
// class, and interface lines fall outside both shapes and are
// skipped. Callers hold db.mu.
func (db *Database) parse(r io.Reader) {
	scanner := bufio.NewScanner(r)
	var vendor uint16
	var haveVendor bool

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "" || line[0] == '#':
			continue
		case line[0] == '\t':
			if !haveVendor {
				continue
			}
			if pid, name, ok := parseID(line[1:]); ok {
				db.products[key(vendor, pid)] = name
			}
		default:
			vid, name, ok := parseID(line)
			if !ok {
				// The class and audio sections at the end of the
				// file must not adopt stray product lines.
				haveVendor = false
				continue
			}
			vendor, haveVendor = vid, true
			db.vendors[vid] = name
		}
	}
}

// parseID splits one "xxxx  name" line into its ID and name.
func parseID(line string) (uint16, string, bool) {
	if len(line) < 6 || line[4] != ' ' {
		return 0, "", false
	}
	id, err := strconv.ParseUint(line[:4], 16, 16)
	if err != nil {
		return 0, "", false
	}
	name := strings.TrimSpace(line[4:])
	if name == "" {
		return 0, "", false
	}
	return uint16(id), name, true
}

func key(vid, pid uint16) uint32 {
	return uint32(vid)<<16 | uint32(pid)
}
