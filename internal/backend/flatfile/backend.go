package flatfile

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/tinkerbell/vultrds/internal/frontend/vultr"
	"github.com/tinkerbell/vultrds/internal/metadata"
)

// AnyIP may be used as an Instance IP to match every lookup that has no exact match.
const AnyIP = "*"

// Backend is a file-based implementation of a backend. It's primary use-case is testing.
type Backend struct {
	// Map of IPv4 addresses to instances.
	instances map[string]vultr.Instance
}

// NewBackend returns a new instance of Backend. Instances missing an instance v2 ID are assigned
// a random one.
func NewBackend(instances []Instance) *Backend {
	m := make(map[string]vultr.Instance, len(instances))
	for _, i := range instances {
		m[i.IP] = toVultrInstance(i)
	}
	return &Backend{instances: m}
}

// GetVultrInstance satisfies vultr.Client.
func (b *Backend) GetVultrInstance(_ context.Context, ip string) (vultr.Instance, error) {
	if i, ok := b.instances[ip]; ok {
		return i, nil
	}

	if i, ok := b.instances[AnyIP]; ok {
		return i, nil
	}

	return vultr.Instance{}, vultr.ErrInstanceNotFound
}

// IsHealthy satisfies healthcheck.Client.
func (b *Backend) IsHealthy(context.Context) bool {
	return true
}

func toVultrInstance(i Instance) vultr.Instance {
	v2ID := i.InstanceV2ID
	if v2ID == "" {
		v2ID = uuid.NewString()
	}

	interfaces := make([]metadata.InterfaceDescriptor, 0, len(i.Interfaces))
	for _, nic := range i.Interfaces {
		d := metadata.InterfaceDescriptor{
			MAC:         nic.MAC,
			NetworkType: nic.NetworkType,
			IPv4: metadata.IPv4Block{
				Address: nic.IPv4.Address,
				Gateway: nic.IPv4.Gateway,
				Netmask: nic.IPv4.Netmask,
			},
			NetworkID:   nic.NetworkID,
			NetworkV2ID: nic.NetworkV2ID,
		}
		if nic.IPv6 != nil {
			d.IPv6 = &metadata.IPv6Block{
				Address: nic.IPv6.Address,
				Network: nic.IPv6.Network,
				Prefix:  metadata.PrefixLength(nic.IPv6.Prefix),
			}
		}
		interfaces = append(interfaces, d)
	}

	var userDefined metadata.UserDefined
	if i.UserDefined != nil {
		userDefined = metadata.UserDefined(i.UserDefined)
	}

	return vultr.Instance{
		Bundle: metadata.Bundle{
			StartupScript: i.StartupScript,
			Hostname:      i.Hostname,
			UserData:      i.UserData,
			MDiskMode:     i.MDiskMode,
			RootPassword:  i.RootPassword,
			SSHKeys:       strings.Join(i.SSHKeys, "\n"),
			IPv6DNS1:      i.IPv6.DNS1,
			IPv6Addr:      i.IPv6.Address,
			Instance: metadata.InstanceDocument{
				Hostname:     i.Hostname,
				InstanceID:   i.InstanceID,
				InstanceV2ID: v2ID,
				Interfaces:   interfaces,
				PublicKeys:   strings.Join(i.SSHKeys, "\n"),
				Region:       metadata.Region{RegionCode: i.Region},
				UserDefined:  userDefined,
			},
		},
		Internal: i.Internal,
	}
}

// Instance is a representation of a Vultr instance.
type Instance struct {
	// IP is the address requests for this instance originate from. Use AnyIP to match everything.
	IP            string   `yaml:"ip"`
	InstanceID    string   `yaml:"instanceID"`
	InstanceV2ID  string   `yaml:"instanceV2ID"`
	Hostname      string   `yaml:"hostname"`
	Region        string   `yaml:"region"`
	StartupScript string   `yaml:"startupScript"`
	UserData      string   `yaml:"userData"`
	MDiskMode     string   `yaml:"mdiskMode"`
	RootPassword  string   `yaml:"rootPassword"`
	SSHKeys       []string `yaml:"sshKeys"`
	IPv6          struct {
		DNS1    string `yaml:"dns1"`
		Address string `yaml:"address"`
	} `yaml:"ipv6"`
	Interfaces []struct {
		MAC         string `yaml:"mac"`
		NetworkType string `yaml:"networkType"`
		NetworkID   string `yaml:"networkID"`
		NetworkV2ID string `yaml:"networkV2ID"`
		IPv4        struct {
			Address string `yaml:"address"`
			Gateway string `yaml:"gateway"`
			Netmask string `yaml:"netmask"`
		} `yaml:"ipv4"`
		IPv6 *struct {
			Address string `yaml:"address"`
			Network string `yaml:"network"`
			Prefix  string `yaml:"prefix"`
		} `yaml:"ipv6"`
	} `yaml:"interfaces"`
	// Internal holds dynamic app- and md- values served under /v1/internal/.
	Internal    map[string]string `yaml:"internal"`
	UserDefined map[string]string `yaml:"userDefined"`
}
