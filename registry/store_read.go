package registry

import (
	"sort"

	mapset "github.com/deckarep/golang-set/v2"

	"nimo.cc/nimo/common/channelname"
	"nimo.cc/nimo/common/protocol"
	"nimo.cc/nimo/common/value"
)

func machineInfoOf(row *machineRow) protocol.MachineInfo {
	return protocol.MachineInfo{
		Found:   true,
		Name:    row.Name,
		Address: value.Address(row.Address),
	}
}

func nodeInfoOf(row *nodeRow) protocol.NodeInfo {
	return protocol.NodeInfo{
		Found:       true,
		Name:        row.Name,
		Machine:     row.Machine,
		ServiceType: protocol.ServiceType(row.ServiceType),
		Address:     value.Address(row.Address),
		Port:        row.Port,
	}
}

func channelInfoOf(row *channelRow) protocol.ChannelInfo {
	return protocol.ChannelInfo{
		Found:     true,
		Node:      row.Node,
		Path:      row.Path,
		IsOutput:  row.IsOutput,
		DataType:  row.DataType,
		Transport: channelname.Transport(row.Transport),
		InUse:     row.InUse,
	}
}

func connectionInfoOf(row *connectionRow) protocol.ConnectionInfo {
	return protocol.ConnectionInfo{
		Found:     true,
		FromNode:  row.FromNode,
		FromPath:  row.FromPath,
		ToNode:    row.ToNode,
		ToPath:    row.ToPath,
		DataType:  row.DataType,
		Transport: channelname.Transport(row.Transport),
	}
}

func (s *store) machineInformation(name string) (info protocol.MachineInfo, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(machineTable, "id", name)
	if err != nil || raw == nil {
		return
	}
	return machineInfoOf(raw.(*machineRow)), nil
}

func (s *store) allMachines() (infos []protocol.MachineInfo, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(machineTable, "id")
	if err != nil {
		return
	}
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, machineInfoOf(raw.(*machineRow)))
	}
	return
}

func (s *store) namesOfMachines() (names []string, err error) {
	infos, err := s.allMachines()
	if err != nil {
		return
	}
	collected := mapset.NewThreadUnsafeSet[string]()
	for _, info := range infos {
		collected.Add(info.Name)
	}
	names = collected.ToSlice()
	sort.Strings(names)
	return
}

func (s *store) nodeInformation(name string) (info protocol.NodeInfo, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(nodeTable, "id", name)
	if err != nil || raw == nil {
		return
	}
	return nodeInfoOf(raw.(*nodeRow)), nil
}

func (s *store) launchDetails(name string) (details string, found bool, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(nodeTable, "id", name)
	if err != nil || raw == nil {
		return
	}
	return raw.(*nodeRow).LaunchDetails, true, nil
}

// allNodes returns every node, or just the nodes of one machine when
// machine is non-empty.
func (s *store) allNodes(machine string) (infos []protocol.NodeInfo, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	index, args := "id", []interface{}{}
	if machine != "" {
		index, args = "machine", []interface{}{machine}
	}
	iter, err := txn.Get(nodeTable, index, args...)
	if err != nil {
		return
	}
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		infos = append(infos, nodeInfoOf(raw.(*nodeRow)))
	}
	return
}

func (s *store) namesOfNodes(machine string) (names []string, err error) {
	infos, err := s.allNodes(machine)
	if err != nil {
		return
	}
	collected := mapset.NewThreadUnsafeSet[string]()
	for _, info := range infos {
		collected.Add(info.Name)
	}
	names = collected.ToSlice()
	sort.Strings(names)
	return
}

func (s *store) channelInformation(node, path string) (info protocol.ChannelInfo, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	raw, err := txn.First(channelTable, "id", node, path)
	if err != nil || raw == nil {
		return
	}
	return channelInfoOf(raw.(*channelRow)), nil
}

// allChannels returns every channel, the channels of one node, or the
// channels of one machine's nodes.
func (s *store) allChannels(node, machine string) (infos []protocol.ChannelInfo, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	wantedNodes := mapset.NewThreadUnsafeSet[string]()
	if machine != "" {
		nodeIter, nodeErr := txn.Get(nodeTable, "machine", machine)
		if nodeErr != nil {
			return nil, nodeErr
		}
		for raw := nodeIter.Next(); raw != nil; raw = nodeIter.Next() {
			wantedNodes.Add(raw.(*nodeRow).Name)
		}
	}
	index, args := "id", []interface{}{}
	if node != "" {
		index, args = "node", []interface{}{node}
	}
	iter, err := txn.Get(channelTable, index, args...)
	if err != nil {
		return
	}
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		row := raw.(*channelRow)
		if machine != "" && !wantedNodes.Contains(row.Node) {
			continue
		}
		infos = append(infos, channelInfoOf(row))
	}
	return
}

func (s *store) channelInUse(node, path string) (inUse bool, found bool, err error) {
	info, err := s.channelInformation(node, path)
	if err != nil || !info.Found {
		return
	}
	return info.InUse, true, nil
}

func (s *store) connectionInformation(node, path string, isOutput bool) (info protocol.ConnectionInfo, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	index := "id"
	if !isOutput {
		index = "to"
	}
	raw, err := txn.First(connectionTable, index, node, path)
	if err != nil || raw == nil {
		return
	}
	return connectionInfoOf(raw.(*connectionRow)), nil
}

// allConnections returns every connection, the connections touching one
// node, or the connections touching one machine's nodes.
func (s *store) allConnections(node, machine string) (infos []protocol.ConnectionInfo, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	wantedNodes := mapset.NewThreadUnsafeSet[string]()
	if machine != "" {
		nodeIter, nodeErr := txn.Get(nodeTable, "machine", machine)
		if nodeErr != nil {
			return nil, nodeErr
		}
		for raw := nodeIter.Next(); raw != nil; raw = nodeIter.Next() {
			wantedNodes.Add(raw.(*nodeRow).Name)
		}
	}
	iter, err := txn.Get(connectionTable, "id")
	if err != nil {
		return
	}
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		row := raw.(*connectionRow)
		if node != "" && row.FromNode != node && row.ToNode != node {
			continue
		}
		if machine != "" && !wantedNodes.Contains(row.FromNode) && !wantedNodes.Contains(row.ToNode) {
			continue
		}
		infos = append(infos, connectionInfoOf(row))
	}
	return
}

func (s *store) countOf(table string) (count int, err error) {
	txn := s.db.Txn(false)
	defer txn.Abort()
	iter, err := txn.Get(table, "id")
	if err != nil {
		return
	}
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		count++
	}
	return
}

func (s *store) numberOfNodesOnMachine(machine string) (count int, err error) {
	infos, err := s.allNodes(machine)
	return len(infos), err
}

func (s *store) numberOfChannelsOnNode(node string) (count int, err error) {
	infos, err := s.allChannels(node, "")
	return len(infos), err
}
