package bus

import (
	"path/filepath"
	"sort"

	"go.bug.st/serial/enumerator"
)

// adapterGlobs matches the device names the USB RS-485/RS-232 adapters the
// counters hang off usually appear under. The gateway is deployed on Linux
// plant-floor boxes; the cu.* pattern covers development on macOS.
var adapterGlobs = []string{
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/ttyRS485*",
	"/dev/cu.usbserial*",
}

// ListPorts returns the serial ports a counter bus could be attached to,
// sorted and de-duplicated. OS enumeration and the adapter device globs are
// merged, so a port missed by one source still shows up. The result backs
// the probe tool's -list flag and the diagnostics printed when the
// configured port cannot be opened; there is no automatic port detection —
// the operator picks one and puts it in serial_settings.
func ListPorts() []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, 8)
	add := func(name string) {
		if name == "" {
			return
		}
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	if ports, err := enumerator.GetDetailedPortsList(); err == nil {
		for _, p := range ports {
			if p != nil {
				add(p.Name)
			}
		}
	}
	for _, pat := range adapterGlobs {
		matches, _ := filepath.Glob(pat)
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(out)
	return out
}
