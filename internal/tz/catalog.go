// Package tz wraps the system timezone database.
package tz

import (
	"strings"
	"sync"
	"time"
	_ "time/tzdata"
)

// Catalog resolves IANA zone identifiers and memoizes loaded locations.
type Catalog struct {
	mu    sync.RWMutex
	zones map[string]*time.Location
	bad   map[string]struct{}
}

func NewCatalog() *Catalog {
	return &Catalog{
		zones: make(map[string]*time.Location),
		bad:   make(map[string]struct{}),
	}
}

// IsValid reports whether name is a recognized zone identifier. The empty
// string and "Local" are rejected; stored events must name a real zone.
func (c *Catalog) IsValid(name string) bool {
	_, ok := c.Load(name)
	return ok
}

// Load returns the location for name.
func (c *Catalog) Load(name string) (*time.Location, bool) {
	name = strings.TrimSpace(name)
	if name == "" || name == "Local" {
		return nil, false
	}

	c.mu.RLock()
	loc, ok := c.zones[name]
	_, isBad := c.bad[name]
	c.mu.RUnlock()
	if ok {
		return loc, true
	}
	if isBad {
		return nil, false
	}

	loc, err := time.LoadLocation(name)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.bad[name] = struct{}{}
		return nil, false
	}
	c.zones[name] = loc
	return loc, true
}

// Resolve returns the first valid zone among names, or UTC.
func (c *Catalog) Resolve(names ...string) *time.Location {
	for _, n := range names {
		if loc, ok := c.Load(n); ok {
			return loc
		}
	}
	return time.UTC
}

// Abbreviation returns the zone abbreviation in effect at instant, e.g.
// "EDT" for America/New_York in June.
func (c *Catalog) Abbreviation(name string, instant time.Time) string {
	loc, ok := c.Load(name)
	if !ok {
		return ""
	}
	abbr, _ := instant.In(loc).Zone()
	return abbr
}
