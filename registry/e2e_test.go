package registry_test

import (
	"testing"

	"github.com/op/go-logging"
	"gotest.tools/v3/assert"

	"nimo.cc/nimo/common/channelname"
	"nimo.cc/nimo/common/config"
	"nimo.cc/nimo/common/logger"
	"nimo.cc/nimo/common/network"
	"nimo.cc/nimo/common/protocol"
	"nimo.cc/nimo/common/value"
	"nimo.cc/nimo/registry"
	"nimo.cc/nimo/registry/registryproxy"
	"nimo.cc/nimo/service"
)

func startTestRegistry(t *testing.T) *registryproxy.Proxy {
	t.Helper()
	service.ResumeRunning()
	log := logger.Setup("registry-test", logging.ERROR, false, network.DefaultLogConnection)
	directory, err := registry.New(log, config.Defaults())
	assert.NilError(t, err)
	directory.StartWithoutAnnouncement()
	t.Cleanup(directory.Close)
	return registryproxy.New(directory.CommandConnection(), log)
}

func mustAddNode(t *testing.T, proxy *registryproxy.Proxy, name string) {
	t.Helper()
	status, err := proxy.AddNode(protocol.NodeInfo{
		Name:    name,
		Machine: "testbox",
		Address: value.NewAddress(127, 0, 0, 1),
		Port:    5000,
	}, "")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
}

func mustAddChannel(t *testing.T, proxy *registryproxy.Proxy, node, path string, isOutput bool) {
	t.Helper()
	status, err := proxy.AddChannel(protocol.ChannelInfo{
		Node:      node,
		Path:      path,
		IsOutput:  isOutput,
		DataType:  "blob",
		Transport: channelname.TransportAny,
	})
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Equal(t, status.Diagnostic, "")
}

func TestRegistryConnectDisconnect(t *testing.T) {
	proxy := startTestRegistry(t)
	mustAddNode(t, proxy, "N1")
	mustAddNode(t, proxy, "N2")
	mustAddChannel(t, proxy, "N1", "/out", true)
	mustAddChannel(t, proxy, "N2", "/in", false)

	status, err := proxy.AddConnection("N1", "/out", "N2", "/in", "blob", channelname.TransportTCP)
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Equal(t, status.Diagnostic, "")

	for _, endpoint := range [][2]string{{"N1", "/out"}, {"N2", "/in"}} {
		_, found, inUse, useErr := proxy.ChannelInUse(endpoint[0], endpoint[1])
		assert.NilError(t, useErr)
		assert.Assert(t, found)
		assert.Assert(t, inUse)
	}

	status, info, err := proxy.ConnectionInformation("N1", "/out", true)
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, info.Found)
	assert.Equal(t, info.ToNode, "N2")
	assert.Equal(t, info.ToPath, "/in")

	status, err = proxy.RemoveConnection("N1", "/out", true)
	assert.NilError(t, err)
	assert.Assert(t, status.OK)

	status, info, err = proxy.ConnectionInformation("N1", "/out", true)
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, !info.Found)
}

func TestRegistrySecondConnectionDiagnostic(t *testing.T) {
	proxy := startTestRegistry(t)
	mustAddNode(t, proxy, "N1")
	mustAddNode(t, proxy, "N2")
	mustAddNode(t, proxy, "N3")
	mustAddChannel(t, proxy, "N1", "/out", true)
	mustAddChannel(t, proxy, "N2", "/in", false)
	mustAddChannel(t, proxy, "N3", "/in", false)

	status, err := proxy.AddConnection("N1", "/out", "N2", "/in", "blob", channelname.TransportTCP)
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Equal(t, status.Diagnostic, "")

	status, err = proxy.AddConnection("N1", "/out", "N3", "/in", "blob", channelname.TransportTCP)
	assert.NilError(t, err)
	assert.Assert(t, status.OK, "a failed precondition still completes normally")
	assert.Assert(t, status.Diagnostic != "", "the failure carries a diagnostic")

	_, info, err := proxy.ConnectionInformation("N1", "/out", true)
	assert.NilError(t, err)
	assert.Assert(t, info.Found)
	assert.Equal(t, info.ToNode, "N2", "the original connection is intact")
}

func TestRegistryQueries(t *testing.T) {
	proxy := startTestRegistry(t)
	mustAddNode(t, proxy, "N1")
	mustAddNode(t, proxy, "N2")
	mustAddChannel(t, proxy, "N1", "/out", true)

	status, present, err := proxy.IsNodePresent("N1")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, present)

	status, present, err = proxy.IsNodePresent("ghost")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, !present)

	status, count, err := proxy.NumberOfNodes("")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Equal(t, count, 2)

	status, names, err := proxy.NamesOfNodes("")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.DeepEqual(t, names, []string{"N1", "N2"})

	status, infos, err := proxy.AllChannels("N1", "")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Equal(t, len(infos), 1)
	assert.Equal(t, infos[0].Path, "/out")
	assert.Assert(t, infos[0].IsOutput)

	status, machines, err := proxy.NamesOfMachines()
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.DeepEqual(t, machines, []string{"testbox"})

	status, nodeInfo, err := proxy.NodeInformation("N1")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, nodeInfo.Found)
	assert.Equal(t, nodeInfo.Machine, "testbox")
	assert.Equal(t, nodeInfo.Port, uint16(5000))
}

func TestRegistryRemoveAbsentNode(t *testing.T) {
	proxy := startTestRegistry(t)
	// removeNode of an absent node completes with ok and a diagnostic
	status, err := proxy.RemoveNode("never-was")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, status.Diagnostic != "")
}

func TestRegistryLaunchDetails(t *testing.T) {
	proxy := startTestRegistry(t)
	status, err := proxy.AddNode(protocol.NodeInfo{
		Name:    "N1",
		Machine: "testbox",
		Address: value.NewAddress(127, 0, 0, 1),
		Port:    5001,
	}, "/usr/bin/worker --in /dev/null")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)

	status, details, found, err := proxy.LaunchDetails("N1")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, found)
	assert.Equal(t, details, "/usr/bin/worker --in /dev/null")
}

func TestRegistryTestAndSet(t *testing.T) {
	proxy := startTestRegistry(t)
	mustAddNode(t, proxy, "N1")
	mustAddChannel(t, proxy, "N1", "/out", true)

	status, found, was, err := proxy.ChannelInUseAndSet("N1", "/out")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, found)
	assert.Assert(t, !was)

	status, found, was, err = proxy.ChannelInUseAndSet("N1", "/out")
	assert.NilError(t, err)
	assert.Assert(t, status.OK)
	assert.Assert(t, found)
	assert.Assert(t, was, "racing takers serialize at the registry")
}
