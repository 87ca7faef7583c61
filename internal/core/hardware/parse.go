package hardware

import "strings"

// =============================================================================
// Architecture
// =============================================================================

// armArches covers the machine names uname -m reports on ARM hosts.
var armArches = map[string]bool{
	"aarch64": true,
	"arm64":   true,
	"armv6l":  true,
	"armv7l":  true,
	"armv8l":  true,
}

// NormalizeArch trims and lowercases a raw uname -m reading.
func NormalizeArch(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// IsARM reports whether the normalized architecture belongs to the ARM
// family.
func IsARM(arch string) bool {
	if armArches[arch] {
		return true
	}
	return strings.HasPrefix(arch, "arm")
}

// =============================================================================
// Docker
// =============================================================================

// ParseDockerVersion extracts the engine version from `docker --version`
// output such as "Docker version 27.1.1, build 6312585".
func ParseDockerVersion(raw string) (string, bool) {
	fields := strings.Fields(raw)
	for i, f := range fields {
		if strings.EqualFold(f, "version") && i+1 < len(fields) {
			v := strings.TrimSuffix(fields[i+1], ",")
			return v, v != ""
		}
	}
	return "", false
}

// =============================================================================
// NVIDIA
// =============================================================================

// ParseNvidiaSMI extracts the device name and driver version from the
// CSV device query ("NVIDIA GeForce RTX 4090, 550.54.14").
func ParseNvidiaSMI(raw string) (name, driver string, ok bool) {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ",", 2)
		name = strings.TrimSpace(parts[0])
		if len(parts) == 2 {
			driver = strings.TrimSpace(parts[1])
		}
		return name, driver, name != ""
	}
	return "", "", false
}

// ParseNvccRelease extracts the toolkit release from `nvcc --version`
// output ("Cuda compilation tools, release 12.4, V12.4.131" -> "12.4").
func ParseNvccRelease(raw string) (string, bool) {
	lower := strings.ToLower(raw)
	idx := strings.Index(lower, "release ")
	if idx < 0 {
		return "", false
	}
	rest := raw[idx+len("release "):]
	if end := strings.IndexAny(rest, ",\n"); end >= 0 {
		rest = rest[:end]
	}
	release := strings.TrimSpace(rest)
	return release, release != ""
}

// =============================================================================
// CPU Model
// =============================================================================

// ParseCPUModel extracts the model string from a /proc/cpuinfo
// "model name" line.
func ParseCPUModel(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		if !strings.Contains(strings.ToLower(line), "model name") {
			continue
		}
		if _, after, found := strings.Cut(line, ":"); found {
			return strings.TrimSpace(after)
		}
	}
	return ""
}

// strixSignatures identify the Ryzen AI APU family (Strix Point and Strix
// Halo) in the CPU model string. These parts pair an XDNA NPU with an
// RDNA iGPU that the dedicated image drives through /dev/kfd.
var strixSignatures = []string{
	"ryzen ai",
	"strix",
}

// IsStrixCPU reports whether the CPU model string names a Ryzen AI APU.
func IsStrixCPU(model string) bool {
	lower := strings.ToLower(model)
	for _, sig := range strixSignatures {
		if strings.Contains(lower, sig) {
			return true
		}
	}
	return false
}

// =============================================================================
// ROCm
// =============================================================================

// ParseRocmProduct extracts the card name from `rocm-smi
// --showproductname` output. The tool prints one "GPU[n] : Card series:
// <name>" line per device; any GPU line at all counts as a detected
// device even when the series field is missing.
func ParseRocmProduct(raw string) (string, bool) {
	var sawDevice bool
	for _, line := range strings.Split(raw, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "gpu[") {
			continue
		}
		sawDevice = true
		if !strings.Contains(lower, "card series") {
			continue
		}
		if idx := strings.LastIndex(line, ":"); idx >= 0 {
			if name := strings.TrimSpace(line[idx+1:]); name != "" {
				return name, true
			}
		}
	}
	return "", sawDevice
}

// =============================================================================
// OS Release
// =============================================================================

// ParseOSID extracts the distribution ID from /etc/os-release contents.
func ParseOSID(raw string) string {
	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "ID=") {
			continue
		}
		return strings.Trim(strings.TrimPrefix(line, "ID="), `"'`)
	}
	return ""
}
