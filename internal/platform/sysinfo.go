package platform

import (
	"github.com/pkg/errors"
	"github.com/prometheus/procfs/sysfs"
)

// Signature is the set of firmware identification strings used to fingerprint the host.
type Signature struct {
	Manufacturer string `json:"manufacturer"`
	SubID        string `json:"subid"`
	Product      string `json:"product"`
	Family       string `json:"family"`
}

// SystemInfoReader reads the host's firmware identification strings.
type SystemInfoReader interface {
	ReadSignature() (Signature, error)
}

// SysfsReader reads the DMI class exposed under a sysfs mount point.
type SysfsReader struct {
	fs sysfs.FS
}

// NewSysfsReader returns a SysfsReader rooted at mountPoint, typically /sys.
func NewSysfsReader(mountPoint string) (*SysfsReader, error) {
	fs, err := sysfs.NewFS(mountPoint)
	if err != nil {
		return nil, errors.Wrap(err, "open sysfs")
	}
	return &SysfsReader{fs: fs}, nil
}

// ReadSignature satisfies SystemInfoReader.
func (r *SysfsReader) ReadSignature() (Signature, error) {
	dmi, err := r.fs.DMIClass()
	if err != nil {
		return Signature{}, errors.Wrap(err, "read dmi class")
	}

	return Signature{
		Manufacturer: deref(dmi.SystemVendor),
		SubID:        deref(dmi.ProductSerial),
		Product:      deref(dmi.ProductName),
		Family:       deref(dmi.ProductFamily),
	}, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
