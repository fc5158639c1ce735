// Package netif maps hardware addresses to OS interface names.
package netif

import (
	"sort"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/tinkerbell/vultrds/internal/dserror"
)

const zeroMAC = "00:00:00:00:00:00"

// Resolver resolves MAC addresses to interface names. The OS is queried once, on first use, and
// the result is kept for the life of the Resolver. Interfaces that appear later are not seen.
type Resolver struct {
	log    logr.Logger
	lister Lister

	once  sync.Once
	byMAC map[string]string
	err   error
}

// NewResolver creates a Resolver that builds its mapping from lister.
func NewResolver(logger logr.Logger, lister Lister) *Resolver {
	return &Resolver{log: logger, lister: lister}
}

// Resolve returns the interface name for mac. A MAC absent from the mapping is a
// dserror.KindResolution error; callers must not continue without the name.
func (r *Resolver) Resolve(mac string) (string, error) {
	m, err := r.mapping()
	if err != nil {
		return "", err
	}

	name, ok := m[normalize(mac)]
	if !ok {
		return "", dserror.Newf(dserror.KindResolution, "resolve interface", "interface %s not found", mac)
	}
	return name, nil
}

// Mapping returns a copy of the MAC to name mapping.
func (r *Resolver) Mapping() (map[string]string, error) {
	m, err := r.mapping()
	if err != nil {
		return nil, err
	}

	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp, nil
}

func (r *Resolver) mapping() (map[string]string, error) {
	r.once.Do(func() {
		ifaces, err := r.lister.Interfaces()
		if err != nil {
			r.err = dserror.Wrap(dserror.KindResolution, "list interfaces", err)
			return
		}
		r.byMAC = r.build(ifaces)
	})
	return r.byMAC, r.err
}

func (r *Resolver) build(ifaces []Interface) map[string]string {
	// Sort so duplicate MACs always resolve to the same name.
	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Name < ifaces[j].Name })

	m := make(map[string]string, len(ifaces))
	for _, iface := range ifaces {
		mac := normalize(iface.MAC)
		if iface.Name == "lo" || mac == "" || mac == zeroMAC {
			continue
		}

		if existing, ok := m[mac]; ok {
			r.log.Info("Duplicate MAC address; keeping first interface",
				"mac", mac, "kept", existing, "ignored", iface.Name)
			continue
		}
		m[mac] = iface.Name
	}
	return m
}

func normalize(mac string) string {
	return strings.ToLower(strings.TrimSpace(mac))
}
