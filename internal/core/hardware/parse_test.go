package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsARM(t *testing.T) {
	tests := []struct {
		arch string
		want bool
	}{
		{"aarch64", true},
		{"arm64", true},
		{"armv7l", true},
		{"armv6l", true},
		{"x86_64", false},
		{"amd64", false},
		{"i686", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.arch, func(t *testing.T) {
			assert.Equal(t, tt.want, IsARM(tt.arch))
		})
	}
}

func TestNormalizeArch(t *testing.T) {
	assert.Equal(t, "x86_64", NormalizeArch("  X86_64\n"))
}

func TestParseDockerVersion(t *testing.T) {
	v, ok := ParseDockerVersion("Docker version 27.1.1, build 6312585")
	assert.True(t, ok)
	assert.Equal(t, "27.1.1", v)

	_, ok = ParseDockerVersion("sh: 1: docker: not found")
	assert.False(t, ok)
}

func TestParseNvidiaSMI(t *testing.T) {
	name, driver, ok := ParseNvidiaSMI("NVIDIA GeForce RTX 4090, 550.54.14\n")
	assert.True(t, ok)
	assert.Equal(t, "NVIDIA GeForce RTX 4090", name)
	assert.Equal(t, "550.54.14", driver)

	// Multi-GPU host: first device decides the profile.
	name, _, ok = ParseNvidiaSMI("Tesla T4, 535.183.01\nTesla T4, 535.183.01")
	assert.True(t, ok)
	assert.Equal(t, "Tesla T4", name)

	_, _, ok = ParseNvidiaSMI("")
	assert.False(t, ok)
}

func TestParseNvccRelease(t *testing.T) {
	out := "nvcc: NVIDIA (R) Cuda compiler driver\nCopyright (c) 2005-2024 NVIDIA Corporation\nCuda compilation tools, release 12.4, V12.4.131"
	release, ok := ParseNvccRelease(out)
	assert.True(t, ok)
	assert.Equal(t, "12.4", release)

	_, ok = ParseNvccRelease("command not found")
	assert.False(t, ok)
}

func TestParseCPUModel(t *testing.T) {
	model := ParseCPUModel("model name\t: AMD Ryzen AI 9 HX 370 w/ Radeon 890M")
	assert.Equal(t, "AMD Ryzen AI 9 HX 370 w/ Radeon 890M", model)

	assert.Empty(t, ParseCPUModel("processor\t: 0"))
}

func TestIsStrixCPU(t *testing.T) {
	tests := []struct {
		model string
		want  bool
	}{
		{"AMD Ryzen AI 9 HX 370 w/ Radeon 890M", true},
		{"AMD Ryzen AI Max+ 395", true},
		{"AMD Ryzen AI 7 350", true},
		{"AMD Ryzen 9 7950X 16-Core Processor", false},
		{"Intel(R) Core(TM) Ultra 7 155H", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStrixCPU(tt.model))
		})
	}
}

func TestParseRocmProduct(t *testing.T) {
	out := "========== Product Info ==========\n" +
		"GPU[0]\t\t: Card series:\t\tAMD Radeon RX 7900 XTX\n" +
		"GPU[0]\t\t: Card model:\t\t0x744c\n"

	name, ok := ParseRocmProduct(out)
	assert.True(t, ok)
	assert.Equal(t, "AMD Radeon RX 7900 XTX", name)

	// Device line without a series field still counts as a device.
	name, ok = ParseRocmProduct("GPU[0]\t\t: Card model:\t\t0x744c")
	assert.True(t, ok)
	assert.Empty(t, name)

	_, ok = ParseRocmProduct("rocm-smi: command not found")
	assert.False(t, ok)
}

func TestParseOSID(t *testing.T) {
	out := "NAME=\"Ubuntu\"\nVERSION_ID=\"24.04\"\nID=ubuntu\nID_LIKE=debian"
	assert.Equal(t, "ubuntu", ParseOSID(out))

	assert.Equal(t, "centos", ParseOSID("ID=\"centos\""))
	assert.Empty(t, ParseOSID(""))
}
