// Package cache models the R3000A instruction cache on top of the Akita
// cache directory.
package cache

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"
)

// Config is the geometry of a cache. All sizes are in bytes.
type Config struct {
	Size          int
	Associativity int
	BlockSize     int
}

// DefaultICacheConfig returns the R3000A instruction cache geometry:
// 4KB, direct mapped, 16-byte lines of four instructions.
func DefaultICacheConfig() Config {
	return Config{
		Size:          4 * 1024,
		Associativity: 1,
		BlockSize:     16,
	}
}

func (c Config) sets() int {
	return c.Size / (c.Associativity * c.BlockSize)
}

func (c Config) wordsPerLine() int {
	return c.BlockSize / 4
}

// Statistics counts cache events since the last Reset.
type Statistics struct {
	Reads         uint64
	Hits          uint64
	Misses        uint64
	Evictions     uint64
	Invalidations uint64
}

// BackingStore supplies whole lines on a miss.
type BackingStore interface {
	// FetchLine fills line with the words starting at the physical
	// address base.
	FetchLine(base uint32, line []uint32)
}

// ICache is a read-only cache of instruction words. Tags and replacement
// live in the Akita directory; the words themselves are kept here, one
// slice per directory block.
type ICache struct {
	config  Config
	dir     *akitacache.DirectoryImpl
	lines   [][]uint32
	stats   Statistics
	backing BackingStore
}

// New builds an empty cache. backing may be nil, in which case every
// filled line reads as zero.
func New(config Config, backing BackingStore) *ICache {
	lines := make([][]uint32, config.sets()*config.Associativity)
	for i := range lines {
		lines[i] = make([]uint32, config.wordsPerLine())
	}

	dir := akitacache.NewDirectory(config.sets(), config.Associativity,
		config.BlockSize, akitacache.NewLRUVictimFinder())

	return &ICache{config: config, dir: dir, lines: lines, backing: backing}
}

// Config returns the cache geometry.
func (c *ICache) Config() Config {
	return c.config
}

// Stats returns a copy of the event counters.
func (c *ICache) Stats() Statistics {
	return c.stats
}

func (c *ICache) lineOf(b *akitacache.Block) []uint32 {
	return c.lines[b.SetID*c.config.Associativity+b.WayID]
}

func (c *ICache) tag(addr uint32) uint64 {
	return uint64(addr &^ uint32(c.config.BlockSize-1))
}

// Fetch returns the instruction word at the physical address addr and
// whether its line was already resident.
func (c *ICache) Fetch(addr uint32) (uint32, bool) {
	c.stats.Reads++

	tag := c.tag(addr)
	b := c.dir.Lookup(0, tag)
	hit := b != nil && b.IsValid

	if hit {
		c.stats.Hits++
	} else {
		c.stats.Misses++
		if b = c.refill(tag); b == nil {
			return 0, false
		}
	}
	c.dir.Visit(b)

	word := (addr - uint32(tag)) / 4
	return c.lineOf(b)[word], hit
}

func (c *ICache) refill(tag uint64) *akitacache.Block {
	b := c.dir.FindVictim(tag)
	if b == nil {
		return nil
	}
	if b.IsValid {
		c.stats.Evictions++
	}

	line := c.lineOf(b)
	if c.backing == nil {
		clear(line)
	} else {
		c.backing.FetchLine(uint32(tag), line)
	}

	b.Tag = tag
	b.IsValid = true
	b.IsDirty = false
	return b
}

// Invalidate drops the line holding addr, if resident. Stores issued while
// the data cache is isolated land here.
func (c *ICache) Invalidate(addr uint32) {
	if b := c.dir.Lookup(0, c.tag(addr)); b != nil && b.IsValid {
		b.IsValid = false
		c.stats.Invalidations++
	}
}

// Reset empties the cache and zeroes the counters.
func (c *ICache) Reset() {
	c.dir.Reset()
	c.stats = Statistics{}
}
