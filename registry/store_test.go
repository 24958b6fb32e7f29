package registry

import (
	"testing"

	"gotest.tools/v3/assert"

	"nimo.cc/nimo/common/channelname"
	"nimo.cc/nimo/common/protocol"
	"nimo.cc/nimo/common/value"
)

func testStore(t *testing.T) *store {
	t.Helper()
	tables, err := newStore()
	assert.NilError(t, err)
	return tables
}

func addTestNode(t *testing.T, tables *store, name, machine string) {
	t.Helper()
	_, err := tables.addNode(protocol.NodeInfo{
		Name:    name,
		Machine: machine,
		Address: value.NewAddress(10, 0, 0, 1),
		Port:    5000,
	})
	assert.NilError(t, err)
}

func addTestChannel(t *testing.T, tables *store, node, path string, isOutput bool) {
	t.Helper()
	_, err := tables.addChannel(protocol.ChannelInfo{
		Node:      node,
		Path:      path,
		IsOutput:  isOutput,
		DataType:  "blob",
		Transport: channelname.TransportAny,
	})
	assert.NilError(t, err)
}

func countPrefix(reports []statusEvent, prefix string) (count int) {
	for _, report := range reports {
		if report.Prefix == prefix {
			count++
		}
	}
	return
}

func TestMachineLifecycle(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	addTestNode(t, tables, "n2", "m1")

	info, err := tables.machineInformation("m1")
	assert.NilError(t, err)
	assert.Assert(t, info.Found, "the machine appears on first node registration")

	_, found, err := tables.removeNode("n1")
	assert.NilError(t, err)
	assert.Assert(t, found)
	info, err = tables.machineInformation("m1")
	assert.NilError(t, err)
	assert.Assert(t, info.Found, "the machine survives while a node remains")

	_, found, err = tables.removeNode("n2")
	assert.NilError(t, err)
	assert.Assert(t, found)
	info, err = tables.machineInformation("m1")
	assert.NilError(t, err)
	assert.Assert(t, !info.Found, "the machine goes with its last node")
}

func TestDuplicateNodeRejected(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	_, err := tables.addNode(protocol.NodeInfo{Name: "n1", Machine: "m1"})
	assert.Assert(t, err != nil)
}

func TestConnectionMarksEndpointsInUse(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	addTestNode(t, tables, "n2", "m2")
	addTestChannel(t, tables, "n1", "/out", true)
	addTestChannel(t, tables, "n2", "/in", false)

	reports, err := tables.addConnection("n1", "/out", "n2", "/in", "blob", channelname.TransportTCP)
	assert.NilError(t, err)
	assert.Equal(t, countPrefix(reports, protocol.ConnectionAddedStatus), 1)

	for _, endpoint := range [][2]string{{"n1", "/out"}, {"n2", "/in"}} {
		inUse, found, useErr := tables.channelInUse(endpoint[0], endpoint[1])
		assert.NilError(t, useErr)
		assert.Assert(t, found)
		assert.Assert(t, inUse)
	}
}

func TestSecondConnectionRefused(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	addTestNode(t, tables, "n2", "m1")
	addTestNode(t, tables, "n3", "m1")
	addTestChannel(t, tables, "n1", "/out", true)
	addTestChannel(t, tables, "n2", "/in", false)
	addTestChannel(t, tables, "n3", "/in", false)

	_, err := tables.addConnection("n1", "/out", "n2", "/in", "blob", channelname.TransportTCP)
	assert.NilError(t, err)
	_, err = tables.addConnection("n1", "/out", "n3", "/in", "blob", channelname.TransportTCP)
	assert.Assert(t, err != nil, "an endpoint participates in at most one connection")

	// the first connection is intact and the loser's endpoint stays free
	info, err := tables.connectionInformation("n1", "/out", true)
	assert.NilError(t, err)
	assert.Assert(t, info.Found)
	assert.Equal(t, info.ToNode, "n2")
	inUse, _, err := tables.channelInUse("n3", "/in")
	assert.NilError(t, err)
	assert.Assert(t, !inUse)
}

func TestConnectionPreconditions(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	addTestNode(t, tables, "n2", "m1")
	addTestChannel(t, tables, "n1", "/out", true)
	addTestChannel(t, tables, "n2", "/in", false)

	_, err := tables.addConnection("n2", "/in", "n1", "/out", "blob", channelname.TransportTCP)
	assert.Assert(t, err != nil, "the source must be an output")

	_, err = tables.addConnection("n1", "/out", "n1", "/out", "blob", channelname.TransportTCP)
	assert.Assert(t, err != nil, "the sink must be an input")

	_, err = tables.addConnection("n1", "/out", "n2", "/missing", "blob", channelname.TransportTCP)
	assert.Assert(t, err != nil, "both endpoints must exist")
}

func TestTransportMismatchRefused(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	addTestNode(t, tables, "n2", "m1")
	_, err := tables.addChannel(protocol.ChannelInfo{
		Node: "n1", Path: "/out", IsOutput: true, Transport: channelname.TransportTCP,
	})
	assert.NilError(t, err)
	_, err = tables.addChannel(protocol.ChannelInfo{
		Node: "n2", Path: "/in", Transport: channelname.TransportUDP,
	})
	assert.NilError(t, err)

	_, err = tables.addConnection("n1", "/out", "n2", "/in", "blob", channelname.TransportAny)
	assert.Assert(t, err != nil, "tcp and udp preferences do not overlap")
}

func TestChannelInUseTestAndSet(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	addTestChannel(t, tables, "n1", "/out", true)

	was, found, err := tables.setChannelInUse("n1", "/out", true)
	assert.NilError(t, err)
	assert.Assert(t, found)
	assert.Assert(t, !was, "the first taker sees the flag down")

	was, found, err = tables.setChannelInUse("n1", "/out", true)
	assert.NilError(t, err)
	assert.Assert(t, found)
	assert.Assert(t, was, "the second taker sees the flag up")

	_, found, err = tables.setChannelInUse("n1", "/missing", true)
	assert.NilError(t, err)
	assert.Assert(t, !found)
}

func TestRemoveNodeCascade(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "doomed", "m1")
	addTestNode(t, tables, "peerA", "m2")
	addTestNode(t, tables, "peerB", "m2")
	addTestChannel(t, tables, "doomed", "/c1", true)
	addTestChannel(t, tables, "doomed", "/c2", false)
	addTestChannel(t, tables, "peerA", "/e1", false)
	addTestChannel(t, tables, "peerB", "/e2", true)

	_, err := tables.addConnection("doomed", "/c1", "peerA", "/e1", "blob", channelname.TransportTCP)
	assert.NilError(t, err)
	_, err = tables.addConnection("peerB", "/e2", "doomed", "/c2", "blob", channelname.TransportTCP)
	assert.NilError(t, err)

	reports, found, err := tables.removeNode("doomed")
	assert.NilError(t, err)
	assert.Assert(t, found)

	assert.Equal(t, countPrefix(reports, protocol.ChannelRemovedStatus), 2)
	assert.Equal(t, countPrefix(reports, protocol.ConnectionRemovedStatus), 2)
	assert.Equal(t, countPrefix(reports, protocol.NodeRemovedStatus), 1)

	for _, gone := range []string{"/c1", "/c2"} {
		info, infoErr := tables.channelInformation("doomed", gone)
		assert.NilError(t, infoErr)
		assert.Assert(t, !info.Found)
	}
	for _, peer := range [][2]string{{"peerA", "/e1"}, {"peerB", "/e2"}} {
		info, infoErr := tables.channelInformation(peer[0], peer[1])
		assert.NilError(t, infoErr)
		assert.Assert(t, info.Found, "%s%s survives the cascade", peer[0], peer[1])
		assert.Assert(t, !info.InUse, "%s%s is released by the cascade", peer[0], peer[1])
	}
	count, err := tables.countOf(connectionTable)
	assert.NilError(t, err)
	assert.Equal(t, count, 0)
}

func TestDisconnectChannels(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	addTestNode(t, tables, "n2", "m1")
	addTestChannel(t, tables, "n1", "/out", true)
	addTestChannel(t, tables, "n2", "/in", false)
	_, err := tables.addConnection("n1", "/out", "n2", "/in", "blob", channelname.TransportTCP)
	assert.NilError(t, err)

	_, found, err := tables.disconnectChannels("n1", "/out", "n2", "/wrong")
	assert.NilError(t, err)
	assert.Assert(t, !found, "a mismatched sink does not disconnect")

	reports, found, err := tables.disconnectChannels("n1", "/out", "n2", "/in")
	assert.NilError(t, err)
	assert.Assert(t, found)
	assert.Equal(t, countPrefix(reports, protocol.ConnectionRemovedStatus), 1)

	inUse, _, err := tables.channelInUse("n1", "/out")
	assert.NilError(t, err)
	assert.Assert(t, !inUse)
}

func TestLaunchDetails(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "n1", "m1")
	assert.NilError(t, tables.setLaunchDetails("n1", "/usr/bin/worker --flag"))
	details, found, err := tables.launchDetails("n1")
	assert.NilError(t, err)
	assert.Assert(t, found)
	assert.Equal(t, details, "/usr/bin/worker --flag")
}

func TestNamesAndCounts(t *testing.T) {
	tables := testStore(t)
	addTestNode(t, tables, "beta", "m1")
	addTestNode(t, tables, "alpha", "m1")
	addTestNode(t, tables, "gamma", "m2")

	names, err := tables.namesOfNodes("")
	assert.NilError(t, err)
	assert.DeepEqual(t, names, []string{"alpha", "beta", "gamma"})

	names, err = tables.namesOfNodes("m1")
	assert.NilError(t, err)
	assert.DeepEqual(t, names, []string{"alpha", "beta"})

	machines, err := tables.namesOfMachines()
	assert.NilError(t, err)
	assert.DeepEqual(t, machines, []string{"m1", "m2"})

	count, err := tables.numberOfNodesOnMachine("m1")
	assert.NilError(t, err)
	assert.Equal(t, count, 2)
}

func TestStatusReportParsing(t *testing.T) {
	prefix, subject, ok := ParseStatusReport(`c+("n1" "/out")`)
	assert.Assert(t, ok)
	assert.Equal(t, prefix, protocol.ChannelAddedStatus)
	assert.Assert(t, subject.DeepEqual(value.NewArray(value.String("n1"), value.String("/out"))))

	_, _, ok = ParseStatusReport("junk")
	assert.Assert(t, !ok)
	_, _, ok = ParseStatusReport("")
	assert.Assert(t, !ok)
}
