package metadata

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Bundle is the result of one complete fetch cycle. A Bundle is never partially populated.
type Bundle struct {
	StartupScript string
	Hostname      string
	UserData      string
	MDiskMode     string
	RootPassword  string
	SSHKeys       string
	IPv6DNS1      string
	IPv6Addr      string
	Instance      InstanceDocument
}

// PublicKeys returns the non-empty lines of the ssh-keys field.
func (b *Bundle) PublicKeys() []string {
	var keys []string
	for _, line := range strings.Split(b.SSHKeys, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			keys = append(keys, line)
		}
	}
	return keys
}

// InstanceDocument is the decoded v1.json document.
type InstanceDocument struct {
	Hostname     string `json:"hostname"`
	InstanceID   string `json:"instanceid"`
	InstanceV2ID string `json:"instance-v2-id,omitempty"`

	// Interfaces is ordered. Index 0 is the primary interface, index 1 the secondary.
	Interfaces []InterfaceDescriptor `json:"interfaces"`

	PublicKeys  string      `json:"public-keys"`
	Region      Region      `json:"region"`
	UserDefined UserDefined `json:"user-defined"`
}

// Region is part of InstanceDocument.
type Region struct {
	RegionCode string `json:"regioncode"`
}

// Network types reported in InterfaceDescriptor.NetworkType.
const (
	NetworkTypePublic  = "public"
	NetworkTypePrivate = "private"
)

// InterfaceDescriptor describes one NIC attached to the instance.
type InterfaceDescriptor struct {
	MAC         string     `json:"mac"`
	NetworkType string     `json:"network-type"`
	IPv4        IPv4Block  `json:"ipv4"`
	IPv6        *IPv6Block `json:"ipv6,omitempty"`
	NetworkID   string     `json:"networkid,omitempty"`
	NetworkV2ID string     `json:"network-v2-id,omitempty"`
}

// IPv4Block is part of InterfaceDescriptor. An empty Gateway means the network is not routed.
type IPv4Block struct {
	Address    string            `json:"address"`
	Gateway    string            `json:"gateway"`
	Netmask    string            `json:"netmask"`
	Additional []json.RawMessage `json:"additional"`
}

// IPv6Block is part of InterfaceDescriptor. Private interfaces report empty values.
type IPv6Block struct {
	Address    string            `json:"address,omitempty"`
	Network    string            `json:"network"`
	Prefix     PrefixLength      `json:"prefix"`
	Additional []json.RawMessage `json:"additional"`
}

// PrefixLength is an IPv6 prefix length. The API serves it as a string or as a number.
type PrefixLength string

// UnmarshalJSON satisfies json.Unmarshaler.
func (p *PrefixLength) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*p = ""
		return nil
	}
	*p = PrefixLength(scalarString(b))
	return nil
}

// UserDefined holds user supplied key/value pairs. The API serves either an object or a list of
// single-entry objects; both decode to the same map. Non-string values keep their JSON text and
// any other shape decodes to nil.
type UserDefined map[string]string

// UnmarshalJSON satisfies json.Unmarshaler.
func (u *UserDefined) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*u = nil
	if len(b) == 0 {
		return nil
	}

	switch b[0] {
	case '{':
		var m map[string]json.RawMessage
		if err := json.Unmarshal(b, &m); err != nil {
			return err
		}
		out := make(UserDefined, len(m))
		out.merge(m)
		*u = out
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(b, &items); err != nil {
			return err
		}
		out := UserDefined{}
		for _, item := range items {
			var m map[string]json.RawMessage
			if json.Unmarshal(item, &m) != nil {
				continue
			}
			out.merge(m)
		}
		*u = out
	}
	return nil
}

func (u UserDefined) merge(m map[string]json.RawMessage) {
	for k, v := range m {
		u[k] = scalarString(v)
	}
}

// scalarString returns the value of a JSON string, or the compacted JSON text of anything else.
func scalarString(b []byte) string {
	var s string
	if json.Unmarshal(b, &s) == nil {
		return s
	}
	var buf bytes.Buffer
	if json.Compact(&buf, b) != nil {
		return string(bytes.TrimSpace(b))
	}
	return buf.String()
}

// ParseInstanceDocument decodes a v1.json document.
func ParseInstanceDocument(raw []byte) (InstanceDocument, error) {
	var doc InstanceDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return InstanceDocument{}, err
	}
	return doc, nil
}
