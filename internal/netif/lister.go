package netif

import (
	"github.com/pkg/errors"
	"github.com/prometheus/procfs/sysfs"
)

// Interface is a network interface as seen by the OS.
type Interface struct {
	Name string
	MAC  string
}

// Lister enumerates the host's network interfaces.
type Lister interface {
	Interfaces() ([]Interface, error)
}

// SysfsLister lists interfaces from /sys/class/net.
type SysfsLister struct {
	fs sysfs.FS
}

// NewSysfsLister returns a SysfsLister rooted at mountPoint, typically /sys.
func NewSysfsLister(mountPoint string) (*SysfsLister, error) {
	fs, err := sysfs.NewFS(mountPoint)
	if err != nil {
		return nil, errors.Wrap(err, "open sysfs")
	}
	return &SysfsLister{fs: fs}, nil
}

// Interfaces satisfies Lister.
func (l *SysfsLister) Interfaces() ([]Interface, error) {
	class, err := l.fs.NetClass()
	if err != nil {
		return nil, errors.Wrap(err, "read net class")
	}

	ifaces := make([]Interface, 0, len(class))
	for name, iface := range class {
		ifaces = append(ifaces, Interface{Name: name, MAC: iface.Address})
	}
	return ifaces, nil
}
