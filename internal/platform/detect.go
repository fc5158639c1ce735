// Package platform decides whether the current host is a Vultr instance.
package platform

import (
	"context"
	"os"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/afero"
)

const (
	// Vendor is the DMI system manufacturer reported by Vultr virtual machines.
	Vendor = "Vultr"

	// KernelToken is searched for in the root= region of the kernel command line. Bare metal
	// hosts carry it because their DMI data is not reliable.
	KernelToken = "vultr"

	// DefaultCmdlinePath is the kernel command line pseudo-file.
	DefaultCmdlinePath = "/proc/cmdline"

	// DefaultMarkerDir is a directory image builders may create to force detection.
	DefaultMarkerDir = "/etc/vultr"
)

// Detector evaluates the platform signals. The zero value is not usable; use NewDetector.
type Detector struct {
	log     logr.Logger
	sysinfo SystemInfoReader
	fs      afero.Fs

	// CmdlinePath is the kernel command line file. Defaults to DefaultCmdlinePath.
	CmdlinePath string

	// MarkerDir is the manual override directory. Defaults to DefaultMarkerDir.
	MarkerDir string
}

// NewDetector creates a Detector reading firmware strings from sysinfo and files from fs.
func NewDetector(logger logr.Logger, sysinfo SystemInfoReader, fs afero.Fs) *Detector {
	return &Detector{
		log:         logger,
		sysinfo:     sysinfo,
		fs:          fs,
		CmdlinePath: DefaultCmdlinePath,
		MarkerDir:   DefaultMarkerDir,
	}
}

// IsVultr reports whether any platform signal matches. Signals are checked in order and the
// first match wins: DMI manufacturer, kernel command line, marker directory. Read failures count
// as an absent signal; IsVultr never fails.
func (d *Detector) IsVultr(context.Context) bool {
	if d.Signature().Manufacturer == Vendor {
		d.log.V(1).Info("Platform detected", "signal", "dmi")
		return true
	}

	if strings.Contains(d.kernelRootParameter(), KernelToken) {
		d.log.V(1).Info("Platform detected", "signal", "cmdline")
		return true
	}

	if ok, _ := afero.DirExists(d.fs, d.MarkerDir); ok {
		d.log.V(1).Info("Platform detected", "signal", "marker", "path", d.MarkerDir)
		return true
	}

	return false
}

// Signature returns the host's firmware identification strings. A read failure yields an empty
// Signature.
func (d *Detector) Signature() Signature {
	if d.sysinfo == nil {
		return Signature{}
	}

	sig, err := d.sysinfo.ReadSignature()
	if err != nil {
		d.log.V(1).Info("Could not read system information", "err", err)
		return Signature{}
	}
	return sig
}

// kernelRootParameter returns the command line text following the last "root=". The region runs to
// the end of the line, so parameters after root= are part of it: "root=/dev/vda1 ro vultr" matches
// KernelToken. It returns an empty string when the file is missing or has no root= parameter.
func (d *Detector) kernelRootParameter() string {
	content, err := afero.ReadFile(d.fs, d.CmdlinePath)
	if err != nil {
		if !os.IsNotExist(err) {
			d.log.V(1).Info("Could not read kernel command line", "path", d.CmdlinePath, "err", err)
		}
		return ""
	}

	cmdline := string(content)
	i := strings.LastIndex(cmdline, "root=")
	if i < 0 {
		return ""
	}

	return strings.TrimSpace(cmdline[i+len("root="):])
}
