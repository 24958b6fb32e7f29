// Package registry implements the authoritative directory of machines,
// nodes, channels and connections, its strict request/response contract,
// and the status reports that go out when its state changes.
package registry

import (
	"fmt"

	memdb "github.com/hashicorp/go-memdb"
	"github.com/pkg/errors"

	"nimo.cc/nimo/common/channelname"
	"nimo.cc/nimo/common/protocol"
	"nimo.cc/nimo/common/value"
)

// Table names.
const (
	machineTable    = "machine"
	nodeTable       = "node"
	channelTable    = "channel"
	connectionTable = "connection"
)

type machineRow struct {
	Name    string
	Address uint32
}

type nodeRow struct {
	Name          string
	Machine       string
	ServiceType   int
	Address       uint32
	Port          uint16
	LaunchDetails string
}

type channelRow struct {
	Node      string
	Path      string
	IsOutput  bool
	DataType  string
	Transport int
	InUse     bool
}

type connectionRow struct {
	FromNode string
	FromPath string
	ToNode   string
	ToPath   string
	DataType string
	Transport int
}

func storeSchema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			machineTable: {
				Name: machineTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			nodeTable: {
				Name: nodeTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
					"machine": {
						Name:    "machine",
						Indexer: &memdb.StringFieldIndex{Field: "Machine"},
					},
				},
			},
			channelTable: {
				Name: channelTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "Node"},
								&memdb.StringFieldIndex{Field: "Path"},
							},
						},
					},
					"node": {
						Name:    "node",
						Indexer: &memdb.StringFieldIndex{Field: "Node"},
					},
				},
			},
			connectionTable: {
				Name: connectionTable,
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:   "id",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "FromNode"},
								&memdb.StringFieldIndex{Field: "FromPath"},
							},
						},
					},
					"to": {
						Name:   "to",
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.StringFieldIndex{Field: "ToNode"},
								&memdb.StringFieldIndex{Field: "ToPath"},
							},
						},
					},
					"fromnode": {
						Name:    "fromnode",
						Indexer: &memdb.StringFieldIndex{Field: "FromNode"},
					},
					"tonode": {
						Name:    "tonode",
						Indexer: &memdb.StringFieldIndex{Field: "ToNode"},
					},
				},
			},
		},
	}
}

// statusEvent is one state-change report awaiting multicast.
type statusEvent struct {
	Prefix  string
	Subject *value.Array
}

// store wraps the tables. Mutations run to completion inside one
// transaction; the caller serializes writers.
type store struct {
	db *memdb.MemDB
}

func newStore() (*store, error) {
	db, err := memdb.NewMemDB(storeSchema())
	if err != nil {
		return nil, errors.Wrap(err, "building registry tables")
	}
	return &store{db: db}, nil
}

// addNode registers a node, creating its machine row on first sight.
func (s *store) addNode(info protocol.NodeInfo) (events []statusEvent, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	existing, err := txn.First(nodeTable, "id", info.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("node %q already present", info.Name)
	}
	machine, err := txn.First(machineTable, "id", info.Machine)
	if err != nil {
		return nil, err
	}
	if machine == nil {
		if err = txn.Insert(machineTable, &machineRow{Name: info.Machine, Address: uint32(info.Address)}); err != nil {
			return nil, err
		}
	}
	err = txn.Insert(nodeTable, &nodeRow{
		Name:        info.Name,
		Machine:     info.Machine,
		ServiceType: int(info.ServiceType),
		Address:     uint32(info.Address),
		Port:        info.Port,
	})
	if err != nil {
		return nil, err
	}
	txn.Commit()
	return []statusEvent{{Prefix: protocol.NodeAddedStatus, Subject: value.NewArray(value.String(info.Name))}}, nil
}

// setLaunchDetails attaches launch details to a node.
func (s *store) setLaunchDetails(node, details string) error {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(nodeTable, "id", node)
	if err != nil {
		return err
	}
	if raw == nil {
		return fmt.Errorf("node %q not present", node)
	}
	updated := *raw.(*nodeRow)
	updated.LaunchDetails = details
	if err = txn.Insert(nodeTable, &updated); err != nil {
		return err
	}
	txn.Commit()
	return nil
}

// removeNode deletes a node, cascading to its channels and their
// connections, and releasing the machine when its last node goes.
func (s *store) removeNode(name string) (events []statusEvent, found bool, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(nodeTable, "id", name)
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	node := raw.(*nodeRow)
	cascade, err := removeChannelsInTxn(txn, name)
	if err != nil {
		return nil, false, err
	}
	events = append(events, cascade...)
	if err = txn.Delete(nodeTable, node); err != nil {
		return nil, false, err
	}
	remaining, err := txn.First(nodeTable, "machine", node.Machine)
	if err != nil {
		return nil, false, err
	}
	if remaining == nil {
		machine, machineErr := txn.First(machineTable, "id", node.Machine)
		if machineErr != nil {
			return nil, false, machineErr
		}
		if machine != nil {
			if err = txn.Delete(machineTable, machine); err != nil {
				return nil, false, err
			}
		}
	}
	txn.Commit()
	events = append(events, statusEvent{
		Prefix:  protocol.NodeRemovedStatus,
		Subject: value.NewArray(value.String(name)),
	})
	return events, true, nil
}

// addChannel registers a channel on a known node.
func (s *store) addChannel(info protocol.ChannelInfo) (events []statusEvent, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	owner, err := txn.First(nodeTable, "id", info.Node)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("node %q not present", info.Node)
	}
	existing, err := txn.First(channelTable, "id", info.Node, info.Path)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("channel %q already present on node %q", info.Path, info.Node)
	}
	err = txn.Insert(channelTable, &channelRow{
		Node:      info.Node,
		Path:      info.Path,
		IsOutput:  info.IsOutput,
		DataType:  info.DataType,
		Transport: int(info.Transport),
	})
	if err != nil {
		return nil, err
	}
	txn.Commit()
	return []statusEvent{{
		Prefix:  protocol.ChannelAddedStatus,
		Subject: value.NewArray(value.String(info.Node), value.String(info.Path)),
	}}, nil
}

// removeChannel deletes one channel, cascading to any connection touching
// it.
func (s *store) removeChannel(node, path string) (events []statusEvent, found bool, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(channelTable, "id", node, path)
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	events, err = removeOneChannelInTxn(txn, raw.(*channelRow))
	if err != nil {
		return nil, false, err
	}
	txn.Commit()
	return events, true, nil
}

// removeChannelsForNode deletes every channel of a node, cascading to their
// connections, and reports the bulk removal.
func (s *store) removeChannelsForNode(node string) (events []statusEvent, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	events, err = removeChannelsInTxn(txn, node)
	if err != nil {
		return nil, err
	}
	txn.Commit()
	return events, nil
}

// removeChannelsInTxn is the shared cascade body: every channel of the node
// goes, connections first. The bulk form reports one channels-removed event
// after the per-connection reports.
func removeChannelsInTxn(txn *memdb.Txn, node string) (events []statusEvent, err error) {
	iter, err := txn.Get(channelTable, "node", node)
	if err != nil {
		return nil, err
	}
	var doomed []*channelRow
	for raw := iter.Next(); raw != nil; raw = iter.Next() {
		doomed = append(doomed, raw.(*channelRow))
	}
	if len(doomed) == 0 {
		return nil, nil
	}
	for _, channel := range doomed {
		dropped, dropErr := dropConnectionsInTxn(txn, channel)
		if dropErr != nil {
			return nil, dropErr
		}
		events = append(events, dropped...)
		if err = txn.Delete(channelTable, channel); err != nil {
			return nil, err
		}
		events = append(events, statusEvent{
			Prefix:  protocol.ChannelRemovedStatus,
			Subject: value.NewArray(value.String(channel.Node), value.String(channel.Path)),
		})
	}
	events = append(events, statusEvent{
		Prefix:  protocol.ChannelsRemovedStatus,
		Subject: value.NewArray(value.String(node)),
	})
	return events, nil
}

// removeOneChannelInTxn drops a single channel and its connections.
func removeOneChannelInTxn(txn *memdb.Txn, channel *channelRow) (events []statusEvent, err error) {
	events, err = dropConnectionsInTxn(txn, channel)
	if err != nil {
		return nil, err
	}
	if err = txn.Delete(channelTable, channel); err != nil {
		return nil, err
	}
	events = append(events, statusEvent{
		Prefix:  protocol.ChannelRemovedStatus,
		Subject: value.NewArray(value.String(channel.Node), value.String(channel.Path)),
	})
	return events, nil
}

// dropConnectionsInTxn removes every connection touching the channel and
// releases the peer endpoints.
func dropConnectionsInTxn(txn *memdb.Txn, channel *channelRow) (events []statusEvent, err error) {
	index, args := "id", []interface{}{channel.Node, channel.Path}
	if !channel.IsOutput {
		index = "to"
	}
	raw, err := txn.First(connectionTable, index, args...)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	conn := raw.(*connectionRow)
	if err = txn.Delete(connectionTable, conn); err != nil {
		return nil, err
	}
	if err = releaseEndpointInTxn(txn, conn.FromNode, conn.FromPath, channel); err != nil {
		return nil, err
	}
	if err = releaseEndpointInTxn(txn, conn.ToNode, conn.ToPath, channel); err != nil {
		return nil, err
	}
	events = append(events, statusEvent{
		Prefix: protocol.ConnectionRemovedStatus,
		Subject: value.NewArray(
			value.String(conn.FromNode), value.String(conn.FromPath),
			value.String(conn.ToNode), value.String(conn.ToPath),
		),
	})
	return events, nil
}

// releaseEndpointInTxn clears the in-use flag on a connection endpoint,
// skipping the channel that is being removed anyway.
func releaseEndpointInTxn(txn *memdb.Txn, node, path string, removing *channelRow) error {
	if node == removing.Node && path == removing.Path {
		return nil
	}
	raw, err := txn.First(channelTable, "id", node, path)
	if err != nil || raw == nil {
		return err
	}
	updated := *raw.(*channelRow)
	updated.InUse = false
	return txn.Insert(channelTable, &updated)
}

// setChannelInUse adjusts the in-use flag, returning the prior state.
func (s *store) setChannelInUse(node, path string, inUse bool) (was bool, found bool, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(channelTable, "id", node, path)
	if err != nil {
		return false, false, err
	}
	if raw == nil {
		return false, false, nil
	}
	current := raw.(*channelRow)
	was = current.InUse
	if was != inUse {
		updated := *current
		updated.InUse = inUse
		if err = txn.Insert(channelTable, &updated); err != nil {
			return false, false, err
		}
	}
	txn.Commit()
	return was, true, nil
}

// addConnection binds an output channel to an input channel. All
// preconditions hold or nothing changes: both endpoints present, correct
// directions, both unused, transports overlapping.
func (s *store) addConnection(fromNode, fromPath, toNode, toPath, dataType string, transport channelname.Transport) (events []statusEvent, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	rawFrom, err := txn.First(channelTable, "id", fromNode, fromPath)
	if err != nil {
		return nil, err
	}
	rawTo, err := txn.First(channelTable, "id", toNode, toPath)
	if err != nil {
		return nil, err
	}
	if rawFrom == nil || rawTo == nil {
		return nil, fmt.Errorf("both channels must be present")
	}
	from, to := rawFrom.(*channelRow), rawTo.(*channelRow)
	if !from.IsOutput {
		return nil, fmt.Errorf("channel %s%s is not an output", fromNode, fromPath)
	}
	if to.IsOutput {
		return nil, fmt.Errorf("channel %s%s is not an input", toNode, toPath)
	}
	if from.InUse || to.InUse {
		return nil, fmt.Errorf("channel already in use")
	}
	if !channelname.Transport(from.Transport).Overlaps(channelname.Transport(to.Transport)) ||
		!channelname.Transport(from.Transport).Overlaps(transport) ||
		!channelname.Transport(to.Transport).Overlaps(transport) {
		return nil, fmt.Errorf("transports do not overlap")
	}
	err = txn.Insert(connectionTable, &connectionRow{
		FromNode:  fromNode,
		FromPath:  fromPath,
		ToNode:    toNode,
		ToPath:    toPath,
		DataType:  dataType,
		Transport: int(resolveTransport(channelname.Transport(from.Transport), channelname.Transport(to.Transport), transport)),
	})
	if err != nil {
		return nil, err
	}
	for _, endpoint := range []*channelRow{from, to} {
		updated := *endpoint
		updated.InUse = true
		if err = txn.Insert(channelTable, &updated); err != nil {
			return nil, err
		}
	}
	txn.Commit()
	return []statusEvent{{
		Prefix: protocol.ConnectionAddedStatus,
		Subject: value.NewArray(
			value.String(fromNode), value.String(fromPath),
			value.String(toNode), value.String(toPath),
		),
	}}, nil
}

// resolveTransport settles the concrete transport for a connection: the
// first specific preference wins, any means tcp.
func resolveTransport(from, to, requested channelname.Transport) channelname.Transport {
	for _, candidate := range []channelname.Transport{requested, from, to} {
		if candidate == channelname.TransportTCP || candidate == channelname.TransportUDP {
			return candidate
		}
	}
	return channelname.TransportTCP
}

// removeConnection drops the connection at an endpoint, releasing both
// sides.
func (s *store) removeConnection(node, path string, isOutput bool) (events []statusEvent, found bool, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	index := "id"
	if !isOutput {
		index = "to"
	}
	raw, err := txn.First(connectionTable, index, node, path)
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	conn := raw.(*connectionRow)
	if err = txn.Delete(connectionTable, conn); err != nil {
		return nil, false, err
	}
	for _, endpoint := range [][2]string{{conn.FromNode, conn.FromPath}, {conn.ToNode, conn.ToPath}} {
		rawChannel, channelErr := txn.First(channelTable, "id", endpoint[0], endpoint[1])
		if channelErr != nil {
			return nil, false, channelErr
		}
		if rawChannel != nil {
			updated := *rawChannel.(*channelRow)
			updated.InUse = false
			if err = txn.Insert(channelTable, &updated); err != nil {
				return nil, false, err
			}
		}
	}
	txn.Commit()
	events = append(events, statusEvent{
		Prefix: protocol.ConnectionRemovedStatus,
		Subject: value.NewArray(
			value.String(conn.FromNode), value.String(conn.FromPath),
			value.String(conn.ToNode), value.String(conn.ToPath),
		),
	})
	return events, true, nil
}

// disconnectChannels drops the connection between two named endpoints, if
// exactly that connection exists.
func (s *store) disconnectChannels(fromNode, fromPath, toNode, toPath string) (events []statusEvent, found bool, err error) {
	txn := s.db.Txn(true)
	defer txn.Abort()
	raw, err := txn.First(connectionTable, "id", fromNode, fromPath)
	if err != nil {
		return nil, false, err
	}
	if raw == nil {
		return nil, false, nil
	}
	conn := raw.(*connectionRow)
	if conn.ToNode != toNode || conn.ToPath != toPath {
		return nil, false, nil
	}
	txn.Abort()
	return s.removeConnection(fromNode, fromPath, true)
}
