package cache

// Keyer builds cache keys. Implementations must fold every option that
// changes the cached bytes into the key.
type Keyer interface {
	// BackgroundKey names a downloaded background image.
	BackgroundKey(url string) string

	// RenderKey names an encoded output image for the given input hash.
	RenderKey(inputHash string, opts RenderKeyOpts) string
}

// RenderKeyOpts lists the options that shape a rendered image.
type RenderKeyOpts struct {
	Kind            string     `json:"kind"` // "geometry" or "tiles"
	Width           int        `json:"width"`
	Height          int        `json:"height"`
	Envelope        [4]float64 `json:"envelope"`
	FlipVertical    bool       `json:"flip,omitempty"`
	FillPolygons    bool       `json:"fill,omitempty"`
	WorldProjection bool       `json:"world,omitempty"`
	PointSize       int        `json:"point_size,omitempty"`
	Color           string     `json:"color,omitempty"`
	ClipMode        string     `json:"clip,omitempty"`
	Format          string     `json:"format"`
	Background      string     `json:"background,omitempty"`
}

// DefaultKeyer produces unscoped keys.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the default key scheme.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// BackgroundKey returns "background:<sha256(url)>".
func (DefaultKeyer) BackgroundKey(url string) string {
	return hashKey("background", url)
}

// RenderKey returns "render:<sha256(hash, opts)>".
func (DefaultKeyer) RenderKey(inputHash string, opts RenderKeyOpts) string {
	return hashKey("render", inputHash, opts)
}

// ScopedKeyer prefixes every key, e.g. to separate tenants sharing one
// Redis instance.
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner (the default keyer when nil) with prefix.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

// BackgroundKey returns the prefixed background key.
func (k *ScopedKeyer) BackgroundKey(url string) string {
	return k.prefix + k.inner.BackgroundKey(url)
}

// RenderKey returns the prefixed render key.
func (k *ScopedKeyer) RenderKey(inputHash string, opts RenderKeyOpts) string {
	return k.prefix + k.inner.RenderKey(inputHash, opts)
}
