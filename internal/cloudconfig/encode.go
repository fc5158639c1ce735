package cloudconfig

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// CloudConfigHeader starts every vendor-data document.
const CloudConfigHeader = "#cloud-config\n"

// JSON encodes n. The output is identical for identical documents.
func (n NetworkConfig) JSON() ([]byte, error) {
	return marshal(n)
}

// Render returns the vendor-data text: the cloud-config header followed by the JSON encoding of
// c. JSON is a subset of YAML so the result is a valid cloud-config document.
func (c VendorConfig) Render() (string, error) {
	b, err := marshal(c)
	if err != nil {
		return "", err
	}
	return CloudConfigHeader + string(b), nil
}

// YAML returns c as a YAML cloud-config document, for humans.
func (c VendorConfig) YAML() (string, error) {
	b, err := yaml.Marshal(c)
	if err != nil {
		return "", errors.Wrap(err, "marshal vendor config")
	}
	return CloudConfigHeader + string(b), nil
}

func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Shell redirections in runcmd must survive unescaped.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, errors.Wrap(err, "marshal json")
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON satisfies json.Unmarshaler, decoding each block into its concrete type.
func (n *NetworkConfig) UnmarshalJSON(b []byte) error {
	var raw struct {
		Version int               `json:"version"`
		Config  []json.RawMessage `json:"config"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	blocks := make([]Block, 0, len(raw.Config))
	for _, rb := range raw.Config {
		var head struct {
			Type BlockType `json:"type"`
		}
		if err := json.Unmarshal(rb, &head); err != nil {
			return err
		}

		var blk Block
		switch head.Type {
		case BlockTypeNameserver:
			blk = &NameserverBlock{}
		case BlockTypePhysical:
			blk = &PhysicalBlock{}
		default:
			return errors.Errorf("unknown network block type %q", head.Type)
		}

		if err := json.Unmarshal(rb, blk); err != nil {
			return err
		}
		blocks = append(blocks, blk)
	}

	n.Version = raw.Version
	n.Config = blocks
	return nil
}

// UnmarshalJSON satisfies json.Unmarshaler. A static subnet without a gateway key decodes to a
// PrivateStaticSubnet.
func (p *PhysicalBlock) UnmarshalJSON(b []byte) error {
	type plain PhysicalBlock
	var raw struct {
		plain
		Subnets []json.RawMessage `json:"subnets"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	subnets := make([]Subnet, 0, len(raw.Subnets))
	for _, rs := range raw.Subnets {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(rs, &fields); err != nil {
			return err
		}

		var typ SubnetType
		if err := json.Unmarshal(fields["type"], &typ); err != nil {
			return errors.Wrap(err, "subnet type")
		}

		var s Subnet
		switch typ {
		case SubnetTypeDHCP6:
			s = &DHCP6Subnet{}
		case SubnetTypeStatic:
			if _, ok := fields["gateway"]; ok {
				s = &StaticSubnet{}
			} else {
				s = &PrivateStaticSubnet{}
			}
		default:
			return errors.Errorf("unknown subnet type %q", typ)
		}

		if err := json.Unmarshal(rs, s); err != nil {
			return err
		}
		subnets = append(subnets, s)
	}

	*p = PhysicalBlock(raw.plain)
	p.Subnets = subnets
	return nil
}
