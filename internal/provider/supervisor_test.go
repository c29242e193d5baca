package provider

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFifoPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/node1", "supervisor.fifo"), FifoPath("/tmp/node1"))
}

func TestSupervisorScript_ContainsBinaryAndArgs(t *testing.T) {
	script := SupervisorScript("/tmp/node1/supervisor.fifo", "/usr/bin/polkadot", []string{"--chain", "dev"}, "")
	assert.Contains(t, script, "/usr/bin/polkadot")
	assert.Contains(t, script, "--chain")
	assert.Contains(t, script, "mkfifo")
	assert.Contains(t, script, "pause)")
	assert.Contains(t, script, "resume)")
	assert.Contains(t, script, "restart*)")
	assert.Contains(t, script, "quit)")
}

func TestSupervisorScript_WaitFileGatesStart(t *testing.T) {
	script := SupervisorScript("/tmp/node1/supervisor.fifo", "/usr/bin/polkadot", nil, "/tmp/node1/.files-ready")
	assert.Contains(t, script, "/tmp/node1/.files-ready")
	assert.Contains(t, script, "while [ ! -f")
}

func TestFilesReadyMarker(t *testing.T) {
	assert.Equal(t, filepath.Join("/tmp/node1", ".files-ready"), FilesReadyMarker("/tmp/node1"))
}

func TestShellQuote_EscapesSingleQuotes(t *testing.T) {
	assert.Equal(t, `'it'\''s'`, shellQuote("it's"))
}

func TestNative_CapabilitiesAdvertiseNoImageRequirement(t *testing.T) {
	n := &Native{}
	caps := n.Capabilities()
	assert.False(t, caps.RequiresImage)
	assert.False(t, caps.SupportsResourceLimits)
	assert.False(t, caps.HasStableIntraNetworkDNS)
}

func TestDocker_CapabilitiesAdvertiseImageAndDNS(t *testing.T) {
	d := &Docker{}
	caps := d.Capabilities()
	assert.True(t, caps.RequiresImage)
	assert.True(t, caps.SupportsResourceLimits)
	assert.True(t, caps.HasStableIntraNetworkDNS)
}

func TestKubernetes_CapabilitiesAdvertiseImageAndDNS(t *testing.T) {
	k := &Kubernetes{}
	caps := k.Capabilities()
	assert.True(t, caps.RequiresImage)
	assert.True(t, caps.SupportsResourceLimits)
	assert.True(t, caps.HasStableIntraNetworkDNS)
}
