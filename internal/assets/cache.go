package assets

// Asset is a decoded image ready to be placed by the drawing backend.
type Asset struct {
	Data   []byte
	Type   string // backend image type: "jpg" or "png"
	Width  int
	Height int
}

// Cache maps an image reference to its resolved asset. A key whose value is
// nil is the absence marker: the reference was requested but could not be
// resolved. The cache is filled by the prefetcher and read-only afterwards.
type Cache struct {
	entries map[string]*Asset
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Asset)}
}

// Put stores a resolved asset, or the absence marker when a is nil.
func (c *Cache) Put(ref string, a *Asset) {
	c.entries[ref] = a
}

// Get returns the asset for ref. Missing keys and absence markers both
// report false: there is nothing to draw.
func (c *Cache) Get(ref string) (*Asset, bool) {
	if c == nil || ref == "" {
		return nil, false
	}
	a := c.entries[ref]
	return a, a != nil
}

// Has reports whether ref has a definitive entry (asset or absence marker).
func (c *Cache) Has(ref string) bool {
	_, ok := c.entries[ref]
	return ok
}

// Len returns the number of entries, absence markers included.
func (c *Cache) Len() int {
	return len(c.entries)
}

// Resolved returns the number of entries holding an asset.
func (c *Cache) Resolved() int {
	n := 0
	for _, a := range c.entries {
		if a != nil {
			n++
		}
	}
	return n
}
