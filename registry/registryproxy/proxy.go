// Package registryproxy is the client-side stub for the Registry: it turns
// a typed call into an envelope exchange over one TCP connection, validates
// the response name, and hands the tail to a response decoder.
//
// Read-only answers are cached in a small LRU. The cache is dropped whenever
// this proxy issues a request that is not a plain read, and, once
// ListenStatus has been called, whenever a status report arrives. Without a
// status listener, changes made by other clients are not seen until one of
// this proxy's own mutations drops the cache.
package registryproxy

import (
	"bufio"
	"net"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/op/go-logging"
	"github.com/pkg/errors"

	"nimo.cc/nimo/common/channelname"
	"nimo.cc/nimo/common/network"
	"nimo.cc/nimo/common/protocol"
	"nimo.cc/nimo/common/util"
	"nimo.cc/nimo/common/value"
	"nimo.cc/nimo/discovery"
	"nimo.cc/nimo/registry"
	"nimo.cc/nimo/service"
)

// CallStatus is the outcome the Registry reported for a call that reached
// it.
type CallStatus struct {
	OK         bool
	Diagnostic string
}

const (
	dialTimeout  = 5 * time.Second
	cacheEntries = 128
)

// Proxy issues requests to one Registry endpoint.
type Proxy struct {
	endpoint network.Connection
	log      *logging.Logger
	cache    *lru.Cache
	statusFn func(prefix string, subject *value.Array)
	statusIn *net.UDPConn
}

// New returns a proxy for the given Registry command endpoint.
func New(endpoint network.Connection, log *logging.Logger) *Proxy {
	cache, _ := lru.New(cacheEntries)
	return &Proxy{
		endpoint: endpoint,
		log:      log,
		cache:    cache,
	}
}

// Discover locates the Registry over mDNS and returns a proxy for it.
func Discover(searchTimeout time.Duration, log *logging.Logger) (*Proxy, error) {
	endpoint, found := discovery.FindRegistry(searchTimeout)
	if !found {
		return nil, util.ErrRegistryNotFound
	}
	return New(endpoint, log), nil
}

// ListenStatus joins the status multicast group. Every report drops the
// read cache; the optional callback sees each report.
func (p *Proxy) ListenStatus(group network.Connection, callback func(prefix string, subject *value.Array)) error {
	groupAddr, err := net.ResolveUDPAddr("udp4", group.String())
	if err != nil {
		return err
	}
	conn, err := net.ListenMulticastUDP("udp4", nil, groupAddr)
	if err != nil {
		return err
	}
	p.statusIn = conn
	p.statusFn = callback
	go p.readStatus()
	return nil
}

// Close stops the status listener, if any.
func (p *Proxy) Close() {
	if p.statusIn != nil {
		_ = p.statusIn.Close()
	}
}

func (p *Proxy) readStatus() {
	buf := make([]byte, 8192)
	for {
		n, _, err := p.statusIn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		prefix, subject, ok := registry.ParseStatusReport(string(buf[:n]))
		if !ok {
			continue
		}
		p.cache.Purge()
		if p.statusFn != nil {
			p.statusFn(prefix, subject)
		}
	}
}

// exchange performs one request/response round trip. Read-only requests are
// answered from the cache when possible.
func (p *Proxy) exchange(requestName string, args ...value.Value) (status CallStatus, payload []value.Value, err error) {
	cacheable := len(requestName) > 0 && requestName[len(requestName)-1] == '?'
	var cacheKey string
	if cacheable {
		cacheKey = value.Text(protocol.MakeRequest(requestName, args...), true)
		if cached, found := p.cache.Get(cacheKey); found {
			hit := cached.(cachedAnswer)
			return hit.status, hit.payload, nil
		}
	}
	conn, err := network.DialCommandPort(p.endpoint, dialTimeout)
	if err != nil {
		return status, nil, errors.Wrap(err, "dialing the Registry")
	}
	defer conn.Close()
	if err = service.WriteEnvelope(conn, protocol.MakeRequest(requestName, args...)); err != nil {
		return status, nil, err
	}
	response, err := service.ReadEnvelope(bufio.NewReader(conn))
	if err != nil {
		return status, nil, util.ErrConnectionDropped
	}
	ok, diagnostic, payload, usable := protocol.SplitResponse(response, service.ResponseNameFor(requestName))
	if !usable {
		return status, nil, util.ErrBadResponse
	}
	status = CallStatus{OK: ok, Diagnostic: diagnostic}
	if cacheable && ok {
		p.cache.Add(cacheKey, cachedAnswer{status: status, payload: payload})
	} else if !cacheable {
		// our own mutation invalidates whatever we cached
		p.cache.Purge()
	}
	return status, payload, nil
}

type cachedAnswer struct {
	status  CallStatus
	payload []value.Value
}

// Decoding helpers for the standard payload shapes.

func foundFlag(payload []value.Value) (found bool, rest []value.Value, ok bool) {
	if len(payload) == 0 {
		return
	}
	flag, isLogical := value.AsLogical(payload[0])
	if !isLogical {
		return
	}
	return bool(flag), payload[1:], true
}

func listedPayload(payload []value.Value) (members []value.Value, ok bool) {
	if len(payload) != 1 {
		return
	}
	listed, isArray := value.AsArray(payload[0])
	if !isArray {
		return
	}
	return listed.Members(), true
}

// Node calls.

// AddNode registers a node with the Registry.
func (p *Proxy) AddNode(info protocol.NodeInfo, launchDetails string) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.AddNodeRequest,
		value.String(info.Name),
		value.String(info.Machine),
		value.Integer(info.ServiceType),
		info.Address,
		value.Integer(info.Port),
		value.String(launchDetails),
	)
	return
}

// RemoveNode removes a node; its channels and their connections cascade.
func (p *Proxy) RemoveNode(name string) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.RemoveNodeRequest, value.String(name))
	return
}

// NodeInformation fetches one node row.
func (p *Proxy) NodeInformation(name string) (status CallStatus, info protocol.NodeInfo, err error) {
	status, payload, err := p.exchange(protocol.GetNodeInformationRequest, value.String(name))
	if err != nil || !status.OK {
		return
	}
	found, rest, ok := foundFlag(payload)
	if !ok {
		return status, info, util.ErrBadResponse
	}
	if !found {
		return
	}
	if len(rest) != 1 {
		return status, info, util.ErrBadResponse
	}
	info, ok = protocol.NodeInfoFromValue(rest[0])
	if !ok {
		return status, info, util.ErrBadResponse
	}
	return
}

// LaunchDetails fetches the launch details stored for a node.
func (p *Proxy) LaunchDetails(name string) (status CallStatus, details string, found bool, err error) {
	status, payload, err := p.exchange(protocol.GetLaunchDetailsRequest, value.String(name))
	if err != nil || !status.OK {
		return
	}
	found, rest, ok := foundFlag(payload)
	if !ok {
		return status, "", false, util.ErrBadResponse
	}
	if !found {
		return
	}
	if len(rest) != 1 {
		return status, "", false, util.ErrBadResponse
	}
	text, isString := value.AsString(rest[0])
	if !isString {
		return status, "", false, util.ErrBadResponse
	}
	return status, string(text), true, nil
}

// IsNodePresent checks for a node by name.
func (p *Proxy) IsNodePresent(name string) (status CallStatus, present bool, err error) {
	return p.presentCall(protocol.IsNodePresentRequest, value.String(name))
}

// Machine calls.

// MachineInformation fetches one machine row.
func (p *Proxy) MachineInformation(name string) (status CallStatus, info protocol.MachineInfo, err error) {
	status, payload, err := p.exchange(protocol.GetMachineInformationRequest, value.String(name))
	if err != nil || !status.OK {
		return
	}
	found, rest, ok := foundFlag(payload)
	if !ok {
		return status, info, util.ErrBadResponse
	}
	if !found {
		return
	}
	if len(rest) != 1 {
		return status, info, util.ErrBadResponse
	}
	info, ok = protocol.MachineInfoFromValue(rest[0])
	if !ok {
		return status, info, util.ErrBadResponse
	}
	return
}

// IsMachinePresent checks for a machine by name.
func (p *Proxy) IsMachinePresent(name string) (status CallStatus, present bool, err error) {
	return p.presentCall(protocol.IsMachinePresentRequest, value.String(name))
}

// Channel calls.

// AddChannel registers a channel on a node.
func (p *Proxy) AddChannel(info protocol.ChannelInfo) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.AddChannelRequest,
		value.String(info.Node),
		value.String(info.Path),
		value.Logical(info.IsOutput),
		value.String(info.DataType),
		value.Integer(info.Transport),
	)
	return
}

// RemoveChannel removes one channel; a connection touching it cascades.
func (p *Proxy) RemoveChannel(node, path string) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.RemoveChannelRequest, value.String(node), value.String(path))
	return
}

// RemoveChannelsForNode removes every channel of a node.
func (p *Proxy) RemoveChannelsForNode(node string) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.RemoveChannelsForNodeRequest, value.String(node))
	return
}

// ChannelInformation fetches one channel row.
func (p *Proxy) ChannelInformation(node, path string) (status CallStatus, info protocol.ChannelInfo, err error) {
	status, payload, err := p.exchange(protocol.GetChannelInformationRequest, value.String(node), value.String(path))
	if err != nil || !status.OK {
		return
	}
	found, rest, ok := foundFlag(payload)
	if !ok {
		return status, info, util.ErrBadResponse
	}
	if !found {
		return
	}
	if len(rest) != 1 {
		return status, info, util.ErrBadResponse
	}
	info, ok = protocol.ChannelInfoFromValue(rest[0])
	if !ok {
		return status, info, util.ErrBadResponse
	}
	return
}

// IsChannelPresent checks for a channel by node and path.
func (p *Proxy) IsChannelPresent(node, path string) (status CallStatus, present bool, err error) {
	return p.presentCall(protocol.IsChannelPresentRequest, value.String(node), value.String(path))
}

// ChannelInUse reads a channel's in-use flag.
func (p *Proxy) ChannelInUse(node, path string) (status CallStatus, found, inUse bool, err error) {
	status, payload, err := p.exchange(protocol.GetChannelInUseRequest, value.String(node), value.String(path))
	if err != nil || !status.OK {
		return
	}
	found, rest, ok := foundFlag(payload)
	if !ok {
		return status, false, false, util.ErrBadResponse
	}
	if !found {
		return
	}
	if len(rest) != 1 {
		return status, found, false, util.ErrBadResponse
	}
	flag, isLogical := value.AsLogical(rest[0])
	if !isLogical {
		return status, found, false, util.ErrBadResponse
	}
	return status, found, bool(flag), nil
}

// SetChannelInUse raises a channel's in-use flag.
func (p *Proxy) SetChannelInUse(node, path string) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.SetChannelInUseRequest, value.String(node), value.String(path))
	return
}

// ClearChannelInUse lowers a channel's in-use flag.
func (p *Proxy) ClearChannelInUse(node, path string) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.ClearChannelInUseRequest, value.String(node), value.String(path))
	return
}

// ChannelInUseAndSet atomically reads the prior in-use flag and raises it.
// Two racing connects cannot both observe false.
func (p *Proxy) ChannelInUseAndSet(node, path string) (status CallStatus, found, was bool, err error) {
	status, payload, err := p.exchange(protocol.GetChannelInUseAndSetRequest, value.String(node), value.String(path))
	if err != nil || !status.OK {
		return
	}
	found, rest, ok := foundFlag(payload)
	if !ok {
		return status, false, false, util.ErrBadResponse
	}
	if !found {
		return
	}
	if len(rest) != 1 {
		return status, found, false, util.ErrBadResponse
	}
	flag, isLogical := value.AsLogical(rest[0])
	if !isLogical {
		return status, found, false, util.ErrBadResponse
	}
	return status, found, bool(flag), nil
}

// Connection calls.

// AddConnection atomically binds an output channel to an input channel.
func (p *Proxy) AddConnection(fromNode, fromPath, toNode, toPath, dataType string, transport channelname.Transport) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.AddConnectionRequest,
		value.String(fromNode), value.String(fromPath),
		value.String(toNode), value.String(toPath),
		value.String(dataType), value.Integer(transport),
	)
	return
}

// RemoveConnection removes the connection at an endpoint.
func (p *Proxy) RemoveConnection(node, path string, isOutput bool) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.RemoveConnectionRequest,
		value.String(node), value.String(path), value.Logical(isOutput))
	return
}

// DisconnectChannels removes the connection between two named endpoints.
func (p *Proxy) DisconnectChannels(fromNode, fromPath, toNode, toPath string) (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.DisconnectChannelsRequest,
		value.String(fromNode), value.String(fromPath),
		value.String(toNode), value.String(toPath))
	return
}

// ConnectionInformation fetches the connection at an endpoint.
func (p *Proxy) ConnectionInformation(node, path string, isOutput bool) (status CallStatus, info protocol.ConnectionInfo, err error) {
	status, payload, err := p.exchange(protocol.GetConnectionInformationRequest,
		value.String(node), value.String(path), value.Logical(isOutput))
	if err != nil || !status.OK {
		return
	}
	found, rest, ok := foundFlag(payload)
	if !ok {
		return status, info, util.ErrBadResponse
	}
	if !found {
		return
	}
	if len(rest) != 1 {
		return status, info, util.ErrBadResponse
	}
	info, ok = protocol.ConnectionInfoFromValue(rest[0])
	if !ok {
		return status, info, util.ErrBadResponse
	}
	return
}

// List and count calls.

// AllMachines lists every machine row.
func (p *Proxy) AllMachines() (status CallStatus, infos []protocol.MachineInfo, err error) {
	status, payload, err := p.exchange(protocol.GetInformationForAllMachinesRequest)
	if err != nil || !status.OK {
		return
	}
	members, ok := listedPayload(payload)
	if !ok {
		return status, nil, util.ErrBadResponse
	}
	for _, member := range members {
		info, memberOK := protocol.MachineInfoFromValue(member)
		if !memberOK {
			return status, nil, util.ErrBadResponse
		}
		infos = append(infos, info)
	}
	return
}

// AllNodes lists every node row, or the nodes of one machine when machine
// is non-empty.
func (p *Proxy) AllNodes(machine string) (status CallStatus, infos []protocol.NodeInfo, err error) {
	var payload []value.Value
	if machine == "" {
		status, payload, err = p.exchange(protocol.GetInformationForAllNodesRequest)
	} else {
		status, payload, err = p.exchange(protocol.GetInformationForAllNodesOnMachineRequest, value.String(machine))
	}
	if err != nil || !status.OK {
		return
	}
	members, ok := listedPayload(payload)
	if !ok {
		return status, nil, util.ErrBadResponse
	}
	for _, member := range members {
		info, memberOK := protocol.NodeInfoFromValue(member)
		if !memberOK {
			return status, nil, util.ErrBadResponse
		}
		infos = append(infos, info)
	}
	return
}

// AllChannels lists channel rows: all of them, one node's, or one
// machine's.
func (p *Proxy) AllChannels(node, machine string) (status CallStatus, infos []protocol.ChannelInfo, err error) {
	var payload []value.Value
	switch {
	case node != "":
		status, payload, err = p.exchange(protocol.GetInformationForAllChannelsOnNodeRequest, value.String(node))
	case machine != "":
		status, payload, err = p.exchange(protocol.GetInformationForAllChannelsOnMachineRequest, value.String(machine))
	default:
		status, payload, err = p.exchange(protocol.GetInformationForAllChannelsRequest)
	}
	if err != nil || !status.OK {
		return
	}
	members, ok := listedPayload(payload)
	if !ok {
		return status, nil, util.ErrBadResponse
	}
	for _, member := range members {
		info, memberOK := protocol.ChannelInfoFromValue(member)
		if !memberOK {
			return status, nil, util.ErrBadResponse
		}
		infos = append(infos, info)
	}
	return
}

// AllConnections lists connection rows: all of them, one node's, or one
// machine's.
func (p *Proxy) AllConnections(node, machine string) (status CallStatus, infos []protocol.ConnectionInfo, err error) {
	var payload []value.Value
	switch {
	case node != "":
		status, payload, err = p.exchange(protocol.GetInformationForAllConnectionsOnNodeRequest, value.String(node))
	case machine != "":
		status, payload, err = p.exchange(protocol.GetInformationForAllConnectionsOnMachineRequest, value.String(machine))
	default:
		status, payload, err = p.exchange(protocol.GetInformationForAllConnectionsRequest)
	}
	if err != nil || !status.OK {
		return
	}
	members, ok := listedPayload(payload)
	if !ok {
		return status, nil, util.ErrBadResponse
	}
	for _, member := range members {
		info, memberOK := protocol.ConnectionInfoFromValue(member)
		if !memberOK {
			return status, nil, util.ErrBadResponse
		}
		infos = append(infos, info)
	}
	return
}

// NamesOfMachines lists machine names.
func (p *Proxy) NamesOfMachines() (status CallStatus, names []string, err error) {
	return p.namesCall(protocol.GetNamesOfMachinesRequest)
}

// NamesOfNodes lists node names, optionally restricted to one machine.
func (p *Proxy) NamesOfNodes(machine string) (status CallStatus, names []string, err error) {
	if machine == "" {
		return p.namesCall(protocol.GetNamesOfNodesRequest)
	}
	return p.namesCall(protocol.GetNamesOfNodesOnMachineRequest, value.String(machine))
}

// NumberOfMachines counts machine rows.
func (p *Proxy) NumberOfMachines() (status CallStatus, count int, err error) {
	return p.countCall(protocol.GetNumberOfMachinesRequest)
}

// NumberOfNodes counts node rows, optionally restricted to one machine.
func (p *Proxy) NumberOfNodes(machine string) (status CallStatus, count int, err error) {
	if machine == "" {
		return p.countCall(protocol.GetNumberOfNodesRequest)
	}
	return p.countCall(protocol.GetNumberOfNodesOnMachineRequest, value.String(machine))
}

// NumberOfChannels counts channel rows, optionally restricted to one node.
func (p *Proxy) NumberOfChannels(node string) (status CallStatus, count int, err error) {
	if node == "" {
		return p.countCall(protocol.GetNumberOfChannelsRequest)
	}
	return p.countCall(protocol.GetNumberOfChannelsOnNodeRequest, value.String(node))
}

// NumberOfConnections counts connection rows.
func (p *Proxy) NumberOfConnections() (status CallStatus, count int, err error) {
	return p.countCall(protocol.GetNumberOfConnectionsRequest)
}

// Stop asks the Registry process to stop.
func (p *Proxy) Stop() (status CallStatus, err error) {
	status, _, err = p.exchange(protocol.StopRequest)
	return
}

func (p *Proxy) presentCall(requestName string, args ...value.Value) (status CallStatus, present bool, err error) {
	status, payload, err := p.exchange(requestName, args...)
	if err != nil || !status.OK {
		return
	}
	if len(payload) != 1 {
		return status, false, util.ErrBadResponse
	}
	flag, isLogical := value.AsLogical(payload[0])
	if !isLogical {
		return status, false, util.ErrBadResponse
	}
	return status, bool(flag), nil
}

func (p *Proxy) namesCall(requestName string, args ...value.Value) (status CallStatus, names []string, err error) {
	status, payload, err := p.exchange(requestName, args...)
	if err != nil || !status.OK {
		return
	}
	members, ok := listedPayload(payload)
	if !ok {
		return status, nil, util.ErrBadResponse
	}
	for _, member := range members {
		name, isString := value.AsString(member)
		if !isString {
			return status, nil, util.ErrBadResponse
		}
		names = append(names, string(name))
	}
	return
}

func (p *Proxy) countCall(requestName string, args ...value.Value) (status CallStatus, count int, err error) {
	status, payload, err := p.exchange(requestName, args...)
	if err != nil || !status.OK {
		return
	}
	if len(payload) != 1 {
		return status, 0, util.ErrBadResponse
	}
	counted, isInteger := value.AsInteger(payload[0])
	if !isInteger {
		return status, 0, util.ErrBadResponse
	}
	return status, int(counted), nil
}
