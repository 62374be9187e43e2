package ports

// PathwaySource retrieves the raw pathway document.
// The graph is read once at startup; sources need not support reloads.
type PathwaySource interface {
	// ReadPathway returns the raw document and its format hint ("json" or "yaml").
	ReadPathway() ([]byte, string, error)
}
