package vultr

import "github.com/tinkerbell/vultrds/internal/metadata"

// Instance is the data served for one machine.
type Instance struct {
	// Bundle holds the values of the fixed metadata fields.
	Bundle metadata.Bundle

	// Internal holds dynamic app-* and md-* values served under /v1/internal.
	Internal map[string]string
}
