package cloudconfig

import (
	"github.com/pkg/errors"
	"github.com/tinkerbell/vultrds/internal/metadata"
)

// Nameserver is the Vultr operated DNS resolver placed first in every network configuration.
const Nameserver = "108.61.10.10"

// InterfaceResolver maps a MAC address to an OS interface name.
type InterfaceResolver interface {
	Resolve(mac string) (string, error)
}

// SynthesizeNetwork builds the network configuration for bundle. Only the first two interfaces
// are configured: the primary gets static IPv4 with its gateway plus DHCPv6, the secondary gets
// static IPv4 without a gateway. Any MAC that cannot be resolved fails the whole synthesis.
func SynthesizeNetwork(bundle *metadata.Bundle, resolver InterfaceResolver) (NetworkConfig, error) {
	network := NetworkConfig{
		Version: NetworkVersion,
		Config:  []Block{NewNameserverBlock(Nameserver)},
	}

	ifaces := bundle.Instance.Interfaces

	if len(ifaces) > 0 {
		primary := ifaces[0]
		name, err := resolver.Resolve(primary.MAC)
		if err != nil {
			return NetworkConfig{}, errors.Wrap(err, "primary interface")
		}

		network.Config = append(network.Config, &PhysicalBlock{
			Name:       name,
			Type:       BlockTypePhysical,
			MACAddress: primary.MAC,
			AcceptRA:   1,
			Subnets: []Subnet{
				NewStaticSubnet(primary.IPv4.Address, primary.IPv4.Gateway, primary.IPv4.Netmask),
				NewDHCP6Subnet(),
			},
		})
	}

	if len(ifaces) > 1 {
		secondary := ifaces[1]
		name, err := resolver.Resolve(secondary.MAC)
		if err != nil {
			return NetworkConfig{}, errors.Wrap(err, "secondary interface")
		}

		network.Config = append(network.Config, &PhysicalBlock{
			Name:       name,
			Type:       BlockTypePhysical,
			MACAddress: secondary.MAC,
			AcceptRA:   1,
			Subnets: []Subnet{
				NewPrivateStaticSubnet(secondary.IPv4.Address, secondary.IPv4.Netmask),
			},
		})
	}

	return network, nil
}
