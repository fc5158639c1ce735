package metadata

import (
	"strings"

	"github.com/tinkerbell/vultrds/internal/dserror"
)

// Field names a metadata value served by the metadata API.
type Field string

// Fields fetched into a Bundle.
const (
	FieldStartupScript Field = "startup-script"
	FieldHostname      Field = "hostname"
	FieldUserData      Field = "user-data"
	FieldMDiskMode     Field = "mdisk-mode"
	FieldRootPassword  Field = "root-password"
	FieldSSHKeys       Field = "ssh-keys"
	FieldIPv6DNS1      Field = "ipv6-dns1"
	FieldIPv6Addr      Field = "ipv6-addr"
	FieldV1            Field = "v1.json"
)

// bundleFields is the order in which a Bundle is assembled.
var bundleFields = []Field{
	FieldStartupScript,
	FieldHostname,
	FieldUserData,
	FieldMDiskMode,
	FieldRootPassword,
	FieldSSHKeys,
	FieldIPv6DNS1,
	FieldIPv6Addr,
	FieldV1,
}

var paths = map[Field]string{
	FieldStartupScript: "/latest/startup-script",
	FieldHostname:      "/latest/meta-data/hostname",
	FieldUserData:      "/latest/user-data",
	FieldMDiskMode:     "/v1/internal/mdisk-mode",
	FieldRootPassword:  "/v1/internal/root-password",
	FieldSSHKeys:       "/current/ssh-keys",
	FieldIPv6DNS1:      "/current/ipv6-dns1",
	FieldIPv6Addr:      "/current/meta-data/ipv6-addr",
	FieldV1:            "/v1.json",
}

// Prefixes of dynamic fields served from the internal path.
const (
	appPrefix = "app-"
	mdPrefix  = "md-"

	internalPath = "/v1/internal/"
)

// Path returns the API path serving field. Fields outside the fixed table are accepted when they
// start with "app-" or "md-"; anything else is a dserror.KindConfiguration error.
func Path(field Field) (string, error) {
	if p, ok := paths[field]; ok {
		return p, nil
	}

	f := string(field)
	if strings.HasPrefix(f, appPrefix) || strings.HasPrefix(f, mdPrefix) {
		return internalPath + f, nil
	}

	return "", dserror.Newf(dserror.KindConfiguration, "translate endpoint", "not a valid endpoint: %q", f)
}

// Endpoint joins baseURL with the path serving field.
func Endpoint(baseURL string, field Field) (string, error) {
	p, err := Path(field)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(baseURL, "/") + p, nil
}

// Paths returns a copy of the fixed field to path table.
func Paths() map[Field]string {
	cp := make(map[Field]string, len(paths))
	for k, v := range paths {
		cp[k] = v
	}
	return cp
}
