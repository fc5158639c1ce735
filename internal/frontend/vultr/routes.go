package vultr

import (
	"encoding/json"

	"github.com/tinkerbell/vultrds/internal/metadata"
)

type filterFunc func(i Instance) (string, error)

func value(fn func(b metadata.Bundle) string) filterFunc {
	return func(i Instance) (string, error) {
		return fn(i.Bundle), nil
	}
}

// fieldFilters extracts each fixed field from an Instance. Every key of metadata.Paths must be
// present.
var fieldFilters = map[metadata.Field]filterFunc{
	metadata.FieldStartupScript: value(func(b metadata.Bundle) string { return b.StartupScript }),
	metadata.FieldHostname:      value(func(b metadata.Bundle) string { return b.Hostname }),
	metadata.FieldUserData:      value(func(b metadata.Bundle) string { return b.UserData }),
	metadata.FieldMDiskMode:     value(func(b metadata.Bundle) string { return b.MDiskMode }),
	metadata.FieldRootPassword:  value(func(b metadata.Bundle) string { return b.RootPassword }),
	metadata.FieldSSHKeys:       value(func(b metadata.Bundle) string { return b.SSHKeys }),
	metadata.FieldIPv6DNS1:      value(func(b metadata.Bundle) string { return b.IPv6DNS1 }),
	metadata.FieldIPv6Addr:      value(func(b metadata.Bundle) string { return b.IPv6Addr }),
	metadata.FieldV1: func(i Instance) (string, error) {
		b, err := json.Marshal(i.Bundle.Instance)
		if err != nil {
			return "", err
		}
		return string(b), nil
	},
}
