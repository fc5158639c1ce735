package cloudconfig_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	. "github.com/tinkerbell/vultrds/internal/cloudconfig"
	"gopkg.in/yaml.v2"
)

func TestVendorRenderSinglePublicInterface(t *testing.T) {
	bundle := bundleWith(publicInterface())
	network, err := SynthesizeNetwork(bundle, newResolver())
	require.NoError(t, err)

	out, err := SynthesizeVendor(bundle, network).Render()
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(out, "#cloud-config\n"))

	expect := `{
		"package_upgrade": true,
		"disable_root": false,
		"ssh_pwauth": true,
		"chpasswd": {"expire": false, "list": ["root:hunter2"]},
		"system_info": {"default_user": {"name": "root"}},
		"network": {
			"version": 1,
			"config": [
				{"type": "nameserver", "address": ["108.61.10.10"]},
				{
					"name": "eth0",
					"type": "physical",
					"mac_address": "56:00:03:15:c4:65",
					"accept-ra": 1,
					"subnets": [
						{
							"type": "static",
							"control": "auto",
							"address": "108.61.89.242",
							"gateway": "108.61.89.1",
							"netmask": "255.255.255.0"
						},
						{"type": "dhcp6", "control": "auto"}
					]
				}
			]
		}
	}`
	assert.JSONEq(t, expect, strings.TrimPrefix(out, "#cloud-config\n"))
}

func TestNetworkJSONPrivateSecondaryHasNoGateway(t *testing.T) {
	primary := publicInterface()
	primary.MAC = "56:00:03:1b:4e:ca"
	network, err := SynthesizeNetwork(bundleWith(primary, privateInterface()), newResolver())
	require.NoError(t, err)

	b, err := network.JSON()
	require.NoError(t, err)

	var doc struct {
		Config []map[string]json.RawMessage `json:"config"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	require.Len(t, doc.Config, 3)

	var subnets []map[string]any
	require.NoError(t, json.Unmarshal(doc.Config[2]["subnets"], &subnets))
	require.Len(t, subnets, 1)
	assert.NotContains(t, subnets[0], "gateway")
	assert.Equal(t, map[string]any{
		"type":    "static",
		"control": "auto",
		"address": "10.1.112.3",
		"netmask": "255.255.240.0",
	}, subnets[0])
}

func TestVendorRenderOmitsAbsentStartupScript(t *testing.T) {
	out, err := SynthesizeVendor(bundleWith(), NetworkConfig{Version: 1}).Render()
	require.NoError(t, err)

	assert.NotContains(t, out, "runcmd")
	assert.NotContains(t, out, "write_files")
}

func TestVendorRenderDoesNotEscapeShell(t *testing.T) {
	bundle := bundleWith()
	bundle.StartupScript = "#!/bin/sh\n"

	out, err := SynthesizeVendor(bundle, NetworkConfig{Version: 1}).Render()
	require.NoError(t, err)

	assert.Contains(t, out, `"/tmp/startup-vultr.sh &> /var/log/vultr-boot.log"`)
}

func TestNetworkConfigJSONRoundTrip(t *testing.T) {
	primary := publicInterface()
	primary.MAC = "56:00:03:1b:4e:ca"
	network, err := SynthesizeNetwork(bundleWith(primary, privateInterface()), newResolver())
	require.NoError(t, err)

	b, err := network.JSON()
	require.NoError(t, err)

	var decoded NetworkConfig
	require.NoError(t, json.Unmarshal(b, &decoded))

	if diff := cmp.Diff(network, decoded); diff != "" {
		t.Fatal(diff)
	}
}

func TestNetworkConfigUnmarshalUnknownBlock(t *testing.T) {
	var n NetworkConfig
	err := json.Unmarshal([]byte(`{"version": 1, "config": [{"type": "bond"}]}`), &n)
	require.Error(t, err)
}

func TestVendorYAML(t *testing.T) {
	bundle := bundleWith(publicInterface())
	bundle.StartupScript = "echo hi"
	network, err := SynthesizeNetwork(bundle, newResolver())
	require.NoError(t, err)

	out, err := SynthesizeVendor(bundle, network).YAML()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "#cloud-config\n"))

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc))

	assert.Equal(t, true, doc["package_upgrade"])
	assert.Equal(t, []any{
		"/tmp/startup-vultr.sh &> /var/log/vultr-boot.log",
		"rm -f /tmp/startup-vultr.sh",
	}, doc["runcmd"])
}
