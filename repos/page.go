package repos

const (
	// DefaultPageSize matches the API-wide pagination contract.
	DefaultPageSize = 200
	// MaxPageSize is the hard upper bound on a single page.
	MaxPageSize = 200
)

// Page is a 1-based pagination request.
type Page struct {
	Number int
	Size   int
}

// Normalize clamps the page into the valid range, applying defaults.
func (p Page) Normalize() Page {
	if p.Number < 1 {
		p.Number = 1
	}
	if p.Size <= 0 || p.Size > MaxPageSize {
		p.Size = DefaultPageSize
	}
	return p
}

// Offset returns the row offset for the normalized page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}
