// Package cloudconfig builds the network and vendor configuration documents consumed by the
// provisioning pipeline.
package cloudconfig

// BlockType is the "type" of a network configuration block.
type BlockType string

// Block types.
const (
	BlockTypeNameserver BlockType = "nameserver"
	BlockTypePhysical   BlockType = "physical"
)

// SubnetType is the "type" of a subnet definition.
type SubnetType string

// Subnet types.
const (
	SubnetTypeStatic SubnetType = "static"
	SubnetTypeDHCP6  SubnetType = "dhcp6"
)

// ControlAuto activates a subnet at boot.
const ControlAuto = "auto"

// NetworkVersion is the network configuration format version produced by this package.
const NetworkVersion = 1

// NetworkConfig is a version 1 network configuration. The first block is always a
// NameserverBlock, followed by one PhysicalBlock per configured interface.
type NetworkConfig struct {
	Version int     `json:"version" yaml:"version"`
	Config  []Block `json:"config" yaml:"config"`
}

// Block is one entry of NetworkConfig.Config: a *NameserverBlock or a *PhysicalBlock.
type Block interface {
	BlockType() BlockType
}

// NameserverBlock declares global DNS servers.
type NameserverBlock struct {
	Type    BlockType `json:"type" yaml:"type"`
	Address []string  `json:"address" yaml:"address"`
}

// BlockType satisfies Block.
func (*NameserverBlock) BlockType() BlockType { return BlockTypeNameserver }

// NewNameserverBlock returns a NameserverBlock for addrs.
func NewNameserverBlock(addrs ...string) *NameserverBlock {
	return &NameserverBlock{Type: BlockTypeNameserver, Address: addrs}
}

// PhysicalBlock configures a physical NIC.
type PhysicalBlock struct {
	Name       string    `json:"name" yaml:"name"`
	Type       BlockType `json:"type" yaml:"type"`
	MACAddress string    `json:"mac_address" yaml:"mac_address"`
	AcceptRA   int       `json:"accept-ra" yaml:"accept-ra"`
	Subnets    []Subnet  `json:"subnets" yaml:"subnets"`
}

// BlockType satisfies Block.
func (*PhysicalBlock) BlockType() BlockType { return BlockTypePhysical }

// Subnet is one subnet of a PhysicalBlock: a *StaticSubnet, *PrivateStaticSubnet or
// *DHCP6Subnet.
type Subnet interface {
	SubnetType() SubnetType
}

// StaticSubnet is a routed static IPv4 subnet. Gateway is always emitted, even when empty.
type StaticSubnet struct {
	Type    SubnetType `json:"type" yaml:"type"`
	Control string     `json:"control" yaml:"control"`
	Address string     `json:"address" yaml:"address"`
	Gateway string     `json:"gateway" yaml:"gateway"`
	Netmask string     `json:"netmask" yaml:"netmask"`
}

// SubnetType satisfies Subnet.
func (*StaticSubnet) SubnetType() SubnetType { return SubnetTypeStatic }

// NewStaticSubnet returns an auto-activated StaticSubnet.
func NewStaticSubnet(address, gateway, netmask string) *StaticSubnet {
	return &StaticSubnet{
		Type:    SubnetTypeStatic,
		Control: ControlAuto,
		Address: address,
		Gateway: gateway,
		Netmask: netmask,
	}
}

// PrivateStaticSubnet is a static IPv4 subnet on a non-routed network. It has no gateway.
type PrivateStaticSubnet struct {
	Type    SubnetType `json:"type" yaml:"type"`
	Control string     `json:"control" yaml:"control"`
	Address string     `json:"address" yaml:"address"`
	Netmask string     `json:"netmask" yaml:"netmask"`
}

// SubnetType satisfies Subnet.
func (*PrivateStaticSubnet) SubnetType() SubnetType { return SubnetTypeStatic }

// NewPrivateStaticSubnet returns an auto-activated PrivateStaticSubnet.
func NewPrivateStaticSubnet(address, netmask string) *PrivateStaticSubnet {
	return &PrivateStaticSubnet{
		Type:    SubnetTypeStatic,
		Control: ControlAuto,
		Address: address,
		Netmask: netmask,
	}
}

// DHCP6Subnet obtains IPv6 configuration from DHCPv6 and router advertisements.
type DHCP6Subnet struct {
	Type    SubnetType `json:"type" yaml:"type"`
	Control string     `json:"control" yaml:"control"`
}

// SubnetType satisfies Subnet.
func (*DHCP6Subnet) SubnetType() SubnetType { return SubnetTypeDHCP6 }

// NewDHCP6Subnet returns an auto-activated DHCP6Subnet.
func NewDHCP6Subnet() *DHCP6Subnet {
	return &DHCP6Subnet{Type: SubnetTypeDHCP6, Control: ControlAuto}
}

// VendorConfig is the provisioning configuration applied early in boot.
type VendorConfig struct {
	PackageUpgrade  bool          `json:"package_upgrade" yaml:"package_upgrade"`
	DisableRoot     bool          `json:"disable_root" yaml:"disable_root"`
	SSHPasswordAuth bool          `json:"ssh_pwauth" yaml:"ssh_pwauth"`
	Chpasswd        Chpasswd      `json:"chpasswd" yaml:"chpasswd"`
	SystemInfo      SystemInfo    `json:"system_info" yaml:"system_info"`
	Network         NetworkConfig `json:"network" yaml:"network"`

	// WriteFiles and RunCmd are set together when a startup script is present and are both
	// absent otherwise.
	WriteFiles []WriteFile `json:"write_files,omitempty" yaml:"write_files,omitempty"`
	RunCmd     []string    `json:"runcmd,omitempty" yaml:"runcmd,omitempty"`
}

// Chpasswd is part of VendorConfig.
type Chpasswd struct {
	Expire bool     `json:"expire" yaml:"expire"`
	List   []string `json:"list" yaml:"list"`
}

// SystemInfo is part of VendorConfig.
type SystemInfo struct {
	DefaultUser DefaultUser `json:"default_user" yaml:"default_user"`
}

// DefaultUser is part of SystemInfo.
type DefaultUser struct {
	Name string `json:"name" yaml:"name"`
}

// WriteFile is a file the provisioning pipeline writes to disk.
type WriteFile struct {
	Encoding    string `json:"encoding" yaml:"encoding"`
	Content     string `json:"content" yaml:"content"`
	Owner       string `json:"owner" yaml:"owner"`
	Path        string `json:"path" yaml:"path"`
	Permissions string `json:"permissions" yaml:"permissions"`
}
