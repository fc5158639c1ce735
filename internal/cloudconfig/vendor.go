package cloudconfig

import (
	"encoding/base64"

	"github.com/tinkerbell/vultrds/internal/metadata"
)

const (
	// DefaultUserName is the account configured for login.
	DefaultUserName = "root"

	// StartupScriptPath is where a startup script is written before it runs.
	StartupScriptPath = "/tmp/startup-vultr.sh"

	// StartupScriptLog receives the startup script's output.
	StartupScriptLog = "/var/log/vultr-boot.log"
)

// SynthesizeVendor builds the vendor configuration for bundle, embedding network verbatim.
func SynthesizeVendor(bundle *metadata.Bundle, network NetworkConfig) VendorConfig {
	cfg := VendorConfig{
		PackageUpgrade:  true,
		DisableRoot:     false,
		SSHPasswordAuth: true,
		Chpasswd: Chpasswd{
			Expire: false,
			List:   []string{DefaultUserName + ":" + bundle.RootPassword},
		},
		SystemInfo: SystemInfo{
			DefaultUser: DefaultUser{Name: DefaultUserName},
		},
		Network: network,
	}

	cfg.WriteFiles, cfg.RunCmd = startupScript(bundle.StartupScript)

	return cfg
}

// startupScript returns the directives that write and run script, or nil for both when script
// is empty.
func startupScript(script string) ([]WriteFile, []string) {
	if script == "" {
		return nil, nil
	}

	files := []WriteFile{
		{
			Encoding:    "b64",
			Content:     base64.StdEncoding.EncodeToString([]byte(script)),
			Owner:       "root:root",
			Path:        StartupScriptPath,
			Permissions: "0755",
		},
	}

	cmds := []string{
		StartupScriptPath + " &> " + StartupScriptLog,
		"rm -f " + StartupScriptPath,
	}

	return files, cmds
}
