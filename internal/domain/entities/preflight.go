package entities

// SpaceReport is the outcome of a free space preflight
type SpaceReport struct {
	Path          string
	FreeBytes     uint64
	RequiredBytes uint64
}

// Sufficient reports whether the volume has at least the required space
func (r SpaceReport) Sufficient() bool {
	return r.FreeBytes >= r.RequiredBytes
}
