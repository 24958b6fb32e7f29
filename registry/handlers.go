package registry

import (
	"net"

	"nimo.cc/nimo/common/channelname"
	"nimo.cc/nimo/common/protocol"
	"nimo.cc/nimo/common/value"
	"nimo.cc/nimo/service"
)

// registerHandlers installs the full command vocabulary. The table freezes
// when the context starts accepting.
func (r *Registry) registerHandlers() {
	install := map[string]service.Handler{
		protocol.AddNodeRequest:               r.handleAddNode,
		protocol.RemoveNodeRequest:            r.handleRemoveNode,
		protocol.AddChannelRequest:            r.handleAddChannel,
		protocol.RemoveChannelRequest:         r.handleRemoveChannel,
		protocol.RemoveChannelsForNodeRequest: r.handleRemoveChannelsForNode,
		protocol.AddConnectionRequest:         r.handleAddConnection,
		protocol.RemoveConnectionRequest:      r.handleRemoveConnection,
		protocol.DisconnectChannelsRequest:    r.handleDisconnectChannels,
		protocol.SetChannelInUseRequest:       r.handleSetChannelInUse,
		protocol.ClearChannelInUseRequest:     r.handleClearChannelInUse,
		protocol.GetChannelInUseRequest:       r.handleGetChannelInUse,
		protocol.GetChannelInUseAndSetRequest: r.handleGetChannelInUseAndSet,

		protocol.GetMachineInformationRequest:    r.handleGetMachineInformation,
		protocol.GetNodeInformationRequest:       r.handleGetNodeInformation,
		protocol.GetChannelInformationRequest:    r.handleGetChannelInformation,
		protocol.GetConnectionInformationRequest: r.handleGetConnectionInformation,
		protocol.GetLaunchDetailsRequest:         r.handleGetLaunchDetails,

		protocol.GetInformationForAllMachinesRequest:             r.handleAllMachines,
		protocol.GetInformationForAllNodesRequest:                r.handleAllNodes,
		protocol.GetInformationForAllNodesOnMachineRequest:       r.handleAllNodesOnMachine,
		protocol.GetInformationForAllChannelsRequest:             r.handleAllChannels,
		protocol.GetInformationForAllChannelsOnNodeRequest:       r.handleAllChannelsOnNode,
		protocol.GetInformationForAllChannelsOnMachineRequest:    r.handleAllChannelsOnMachine,
		protocol.GetInformationForAllConnectionsRequest:          r.handleAllConnections,
		protocol.GetInformationForAllConnectionsOnNodeRequest:    r.handleAllConnectionsOnNode,
		protocol.GetInformationForAllConnectionsOnMachineRequest: r.handleAllConnectionsOnMachine,

		protocol.GetNamesOfMachinesRequest:       r.handleNamesOfMachines,
		protocol.GetNamesOfNodesRequest:          r.handleNamesOfNodes,
		protocol.GetNamesOfNodesOnMachineRequest: r.handleNamesOfNodesOnMachine,

		protocol.GetNumberOfMachinesRequest:       r.handleNumberOfMachines,
		protocol.GetNumberOfNodesRequest:          r.handleNumberOfNodes,
		protocol.GetNumberOfNodesOnMachineRequest: r.handleNumberOfNodesOnMachine,
		protocol.GetNumberOfChannelsRequest:       r.handleNumberOfChannels,
		protocol.GetNumberOfChannelsOnNodeRequest: r.handleNumberOfChannelsOnNode,
		protocol.GetNumberOfConnectionsRequest:    r.handleNumberOfConnections,

		protocol.IsMachinePresentRequest: r.handleIsMachinePresent,
		protocol.IsNodePresentRequest:    r.handleIsNodePresent,
		protocol.IsChannelPresentRequest: r.handleIsChannelPresent,
	}
	for name, handler := range install {
		r.ctx.AddHandler(name, handler)
	}
}

// Argument accessors. A missing or mistyped argument fails the request with
// a bad response rather than a dropped session.

func argString(request *value.Array, at int) (string, bool) {
	s, ok := value.AsString(request.At(at))
	return string(s), ok
}

func argInteger(request *value.Array, at int) (int64, bool) {
	n, ok := value.AsInteger(request.At(at))
	return int64(n), ok
}

func argLogical(request *value.Array, at int) (bool, bool) {
	l, ok := value.AsLogical(request.At(at))
	return bool(l), ok
}

func argAddress(request *value.Array, at int) (value.Address, bool) {
	a, ok := request.At(at).(value.Address)
	return a, ok
}

// respond writes the standard response envelope and reports the write
// outcome as the handler result.
func (r *Registry) respond(conn net.Conn, requestName string, ok bool, diagnostic string, payload ...value.Value) bool {
	response := protocol.MakeResponse(service.ResponseNameFor(requestName), ok, diagnostic, payload...)
	if err := service.WriteEnvelope(conn, response); err != nil {
		r.log.Errorf("response write failed: %s", err)
		return false
	}
	return true
}

func (r *Registry) badRequest(conn net.Conn, requestName string) bool {
	return r.respond(conn, requestName, false, "malformed request arguments")
}

func stringList(names []string) *value.Array {
	listed := value.NewArray()
	for _, name := range names {
		listed.Add(value.String(name))
	}
	return listed
}

// Mutating handlers. Each runs under the writer lock.

func (r *Registry) handleAddNode(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	name, okName := argString(request, 1)
	machine, okMachine := argString(request, 2)
	serviceType, okType := argInteger(request, 3)
	address, okAddress := argAddress(request, 4)
	port, okPort := argInteger(request, 5)
	launchDetails, okLaunch := argString(request, 6)
	if !okName || !okMachine || !okType || !okAddress || !okPort || !okLaunch ||
		!channelname.ValidName(name) {
		return r.badRequest(conn, protocol.AddNodeRequest)
	}
	r.mu.Lock()
	reports, err := r.tables.addNode(protocol.NodeInfo{
		Name:        name,
		Machine:     machine,
		ServiceType: protocol.ServiceType(serviceType),
		Address:     address,
		Port:        uint16(port),
	})
	if err == nil && launchDetails != "" {
		err = r.tables.setLaunchDetails(name, launchDetails)
	}
	r.mu.Unlock()
	if err != nil {
		return r.respond(conn, protocol.AddNodeRequest, true, err.Error())
	}
	r.report(reports)
	return r.respond(conn, protocol.AddNodeRequest, true, "")
}

func (r *Registry) handleRemoveNode(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	name, okName := argString(request, 1)
	if !okName {
		return r.badRequest(conn, protocol.RemoveNodeRequest)
	}
	r.mu.Lock()
	reports, found, err := r.tables.removeNode(name)
	r.mu.Unlock()
	if err != nil {
		return r.respond(conn, protocol.RemoveNodeRequest, false, err.Error())
	}
	if !found {
		return r.respond(conn, protocol.RemoveNodeRequest, true, "node not present", value.Logical(false))
	}
	r.report(reports)
	return r.respond(conn, protocol.RemoveNodeRequest, true, "", value.Logical(true))
}

func (r *Registry) handleAddChannel(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	path, okPath := argString(request, 2)
	isOutput, okOutput := argLogical(request, 3)
	dataType, okData := argString(request, 4)
	transport, okTransport := argInteger(request, 5)
	if !okNode || !okPath || !okOutput || !okData || !okTransport ||
		!channelname.ValidPath(path) {
		return r.badRequest(conn, protocol.AddChannelRequest)
	}
	r.mu.Lock()
	reports, err := r.tables.addChannel(protocol.ChannelInfo{
		Node:      node,
		Path:      path,
		IsOutput:  isOutput,
		DataType:  dataType,
		Transport: channelname.Transport(transport),
	})
	r.mu.Unlock()
	if err != nil {
		return r.respond(conn, protocol.AddChannelRequest, true, err.Error())
	}
	r.report(reports)
	return r.respond(conn, protocol.AddChannelRequest, true, "")
}

func (r *Registry) handleRemoveChannel(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	path, okPath := argString(request, 2)
	if !okNode || !okPath {
		return r.badRequest(conn, protocol.RemoveChannelRequest)
	}
	r.mu.Lock()
	reports, found, err := r.tables.removeChannel(node, path)
	r.mu.Unlock()
	if err != nil {
		return r.respond(conn, protocol.RemoveChannelRequest, false, err.Error())
	}
	if !found {
		return r.respond(conn, protocol.RemoveChannelRequest, true, "channel not present", value.Logical(false))
	}
	r.report(reports)
	return r.respond(conn, protocol.RemoveChannelRequest, true, "", value.Logical(true))
}

func (r *Registry) handleRemoveChannelsForNode(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	if !okNode {
		return r.badRequest(conn, protocol.RemoveChannelsForNodeRequest)
	}
	r.mu.Lock()
	reports, err := r.tables.removeChannelsForNode(node)
	r.mu.Unlock()
	if err != nil {
		return r.respond(conn, protocol.RemoveChannelsForNodeRequest, false, err.Error())
	}
	r.report(reports)
	return r.respond(conn, protocol.RemoveChannelsForNodeRequest, true, "")
}

func (r *Registry) handleAddConnection(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	fromNode, okFromNode := argString(request, 1)
	fromPath, okFromPath := argString(request, 2)
	toNode, okToNode := argString(request, 3)
	toPath, okToPath := argString(request, 4)
	dataType, okData := argString(request, 5)
	transport, okTransport := argInteger(request, 6)
	if !okFromNode || !okFromPath || !okToNode || !okToPath || !okData || !okTransport {
		return r.badRequest(conn, protocol.AddConnectionRequest)
	}
	r.mu.Lock()
	reports, err := r.tables.addConnection(fromNode, fromPath, toNode, toPath, dataType,
		channelname.Transport(transport))
	r.mu.Unlock()
	if err != nil {
		// a failed precondition leaves the tables untouched
		return r.respond(conn, protocol.AddConnectionRequest, true, err.Error(), value.Logical(false))
	}
	r.report(reports)
	return r.respond(conn, protocol.AddConnectionRequest, true, "", value.Logical(true))
}

func (r *Registry) handleRemoveConnection(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	path, okPath := argString(request, 2)
	isOutput, okOutput := argLogical(request, 3)
	if !okNode || !okPath || !okOutput {
		return r.badRequest(conn, protocol.RemoveConnectionRequest)
	}
	r.mu.Lock()
	reports, found, err := r.tables.removeConnection(node, path, isOutput)
	r.mu.Unlock()
	if err != nil {
		return r.respond(conn, protocol.RemoveConnectionRequest, false, err.Error())
	}
	if !found {
		return r.respond(conn, protocol.RemoveConnectionRequest, true, "no connection at endpoint", value.Logical(false))
	}
	r.report(reports)
	return r.respond(conn, protocol.RemoveConnectionRequest, true, "", value.Logical(true))
}

func (r *Registry) handleDisconnectChannels(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	fromNode, okFromNode := argString(request, 1)
	fromPath, okFromPath := argString(request, 2)
	toNode, okToNode := argString(request, 3)
	toPath, okToPath := argString(request, 4)
	if !okFromNode || !okFromPath || !okToNode || !okToPath {
		return r.badRequest(conn, protocol.DisconnectChannelsRequest)
	}
	r.mu.Lock()
	reports, found, err := r.tables.disconnectChannels(fromNode, fromPath, toNode, toPath)
	r.mu.Unlock()
	if err != nil {
		return r.respond(conn, protocol.DisconnectChannelsRequest, false, err.Error())
	}
	if !found {
		return r.respond(conn, protocol.DisconnectChannelsRequest, true, "channels are not connected", value.Logical(false))
	}
	r.report(reports)
	return r.respond(conn, protocol.DisconnectChannelsRequest, true, "", value.Logical(true))
}

func (r *Registry) handleSetChannelInUse(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	return r.adjustChannelInUse(conn, request, protocol.SetChannelInUseRequest, true, false)
}

func (r *Registry) handleClearChannelInUse(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	return r.adjustChannelInUse(conn, request, protocol.ClearChannelInUseRequest, false, false)
}

// handleGetChannelInUseAndSet is the test-and-set: the prior flag comes
// back while the flag goes up, all under the writer lock, so two racing
// connects cannot both see "unused".
func (r *Registry) handleGetChannelInUseAndSet(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	return r.adjustChannelInUse(conn, request, protocol.GetChannelInUseAndSetRequest, true, true)
}

func (r *Registry) adjustChannelInUse(conn net.Conn, request *value.Array, requestName string, inUse, wantPrior bool) bool {
	node, okNode := argString(request, 1)
	path, okPath := argString(request, 2)
	if !okNode || !okPath {
		return r.badRequest(conn, requestName)
	}
	r.mu.Lock()
	was, found, err := r.tables.setChannelInUse(node, path, inUse)
	r.mu.Unlock()
	if err != nil {
		return r.respond(conn, requestName, false, err.Error())
	}
	if !found {
		return r.respond(conn, requestName, true, "channel not present", value.Logical(false))
	}
	if wantPrior {
		return r.respond(conn, requestName, true, "", value.Logical(true), value.Logical(was))
	}
	return r.respond(conn, requestName, true, "", value.Logical(true))
}

// Read-only handlers. Each runs under the reader lock and may overlap with
// other reads, never with a writer.

func (r *Registry) handleGetMachineInformation(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	name, okName := argString(request, 1)
	if !okName {
		return r.badRequest(conn, protocol.GetMachineInformationRequest)
	}
	r.mu.RLock()
	info, err := r.tables.machineInformation(name)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetMachineInformationRequest, false, err.Error())
	}
	if !info.Found {
		return r.respond(conn, protocol.GetMachineInformationRequest, true, "", value.Logical(false))
	}
	return r.respond(conn, protocol.GetMachineInformationRequest, true, "", value.Logical(true), info.ToValue())
}

func (r *Registry) handleGetNodeInformation(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	name, okName := argString(request, 1)
	if !okName {
		return r.badRequest(conn, protocol.GetNodeInformationRequest)
	}
	r.mu.RLock()
	info, err := r.tables.nodeInformation(name)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetNodeInformationRequest, false, err.Error())
	}
	if !info.Found {
		return r.respond(conn, protocol.GetNodeInformationRequest, true, "", value.Logical(false))
	}
	return r.respond(conn, protocol.GetNodeInformationRequest, true, "", value.Logical(true), info.ToValue())
}

func (r *Registry) handleGetChannelInformation(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	path, okPath := argString(request, 2)
	if !okNode || !okPath {
		return r.badRequest(conn, protocol.GetChannelInformationRequest)
	}
	r.mu.RLock()
	info, err := r.tables.channelInformation(node, path)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetChannelInformationRequest, false, err.Error())
	}
	if !info.Found {
		return r.respond(conn, protocol.GetChannelInformationRequest, true, "", value.Logical(false))
	}
	return r.respond(conn, protocol.GetChannelInformationRequest, true, "", value.Logical(true), info.ToValue())
}

func (r *Registry) handleGetConnectionInformation(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	path, okPath := argString(request, 2)
	isOutput, okOutput := argLogical(request, 3)
	if !okNode || !okPath || !okOutput {
		return r.badRequest(conn, protocol.GetConnectionInformationRequest)
	}
	r.mu.RLock()
	info, err := r.tables.connectionInformation(node, path, isOutput)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetConnectionInformationRequest, false, err.Error())
	}
	if !info.Found {
		return r.respond(conn, protocol.GetConnectionInformationRequest, true, "", value.Logical(false))
	}
	return r.respond(conn, protocol.GetConnectionInformationRequest, true, "", value.Logical(true), info.ToValue())
}

func (r *Registry) handleGetLaunchDetails(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	if !okNode {
		return r.badRequest(conn, protocol.GetLaunchDetailsRequest)
	}
	r.mu.RLock()
	details, found, err := r.tables.launchDetails(node)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetLaunchDetailsRequest, false, err.Error())
	}
	if !found {
		return r.respond(conn, protocol.GetLaunchDetailsRequest, true, "", value.Logical(false))
	}
	return r.respond(conn, protocol.GetLaunchDetailsRequest, true, "", value.Logical(true), value.String(details))
}

func (r *Registry) handleGetChannelInUse(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	path, okPath := argString(request, 2)
	if !okNode || !okPath {
		return r.badRequest(conn, protocol.GetChannelInUseRequest)
	}
	r.mu.RLock()
	inUse, found, err := r.tables.channelInUse(node, path)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetChannelInUseRequest, false, err.Error())
	}
	if !found {
		return r.respond(conn, protocol.GetChannelInUseRequest, true, "", value.Logical(false))
	}
	return r.respond(conn, protocol.GetChannelInUseRequest, true, "", value.Logical(true), value.Logical(inUse))
}

// List handlers share one shape: the payload is a single array of info
// arrays.

func (r *Registry) respondList(conn net.Conn, requestName string, listed []value.Value, err error) bool {
	if err != nil {
		return r.respond(conn, requestName, false, err.Error())
	}
	return r.respond(conn, requestName, true, "", value.NewArray(listed...))
}

func (r *Registry) handleAllMachines(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	r.mu.RLock()
	infos, err := r.tables.allMachines()
	r.mu.RUnlock()
	listed := make([]value.Value, 0, len(infos))
	for _, info := range infos {
		listed = append(listed, info.ToValue())
	}
	return r.respondList(conn, protocol.GetInformationForAllMachinesRequest, listed, err)
}

func (r *Registry) allNodesReply(conn net.Conn, requestName, machine string) bool {
	r.mu.RLock()
	infos, err := r.tables.allNodes(machine)
	r.mu.RUnlock()
	listed := make([]value.Value, 0, len(infos))
	for _, info := range infos {
		listed = append(listed, info.ToValue())
	}
	return r.respondList(conn, requestName, listed, err)
}

func (r *Registry) handleAllNodes(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	return r.allNodesReply(conn, protocol.GetInformationForAllNodesRequest, "")
}

func (r *Registry) handleAllNodesOnMachine(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	machine, okMachine := argString(request, 1)
	if !okMachine {
		return r.badRequest(conn, protocol.GetInformationForAllNodesOnMachineRequest)
	}
	return r.allNodesReply(conn, protocol.GetInformationForAllNodesOnMachineRequest, machine)
}

func (r *Registry) allChannelsReply(conn net.Conn, requestName, node, machine string) bool {
	r.mu.RLock()
	infos, err := r.tables.allChannels(node, machine)
	r.mu.RUnlock()
	listed := make([]value.Value, 0, len(infos))
	for _, info := range infos {
		listed = append(listed, info.ToValue())
	}
	return r.respondList(conn, requestName, listed, err)
}

func (r *Registry) handleAllChannels(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	return r.allChannelsReply(conn, protocol.GetInformationForAllChannelsRequest, "", "")
}

func (r *Registry) handleAllChannelsOnNode(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	if !okNode {
		return r.badRequest(conn, protocol.GetInformationForAllChannelsOnNodeRequest)
	}
	return r.allChannelsReply(conn, protocol.GetInformationForAllChannelsOnNodeRequest, node, "")
}

func (r *Registry) handleAllChannelsOnMachine(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	machine, okMachine := argString(request, 1)
	if !okMachine {
		return r.badRequest(conn, protocol.GetInformationForAllChannelsOnMachineRequest)
	}
	return r.allChannelsReply(conn, protocol.GetInformationForAllChannelsOnMachineRequest, "", machine)
}

func (r *Registry) allConnectionsReply(conn net.Conn, requestName, node, machine string) bool {
	r.mu.RLock()
	infos, err := r.tables.allConnections(node, machine)
	r.mu.RUnlock()
	listed := make([]value.Value, 0, len(infos))
	for _, info := range infos {
		listed = append(listed, info.ToValue())
	}
	return r.respondList(conn, requestName, listed, err)
}

func (r *Registry) handleAllConnections(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	return r.allConnectionsReply(conn, protocol.GetInformationForAllConnectionsRequest, "", "")
}

func (r *Registry) handleAllConnectionsOnNode(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	if !okNode {
		return r.badRequest(conn, protocol.GetInformationForAllConnectionsOnNodeRequest)
	}
	return r.allConnectionsReply(conn, protocol.GetInformationForAllConnectionsOnNodeRequest, node, "")
}

func (r *Registry) handleAllConnectionsOnMachine(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	machine, okMachine := argString(request, 1)
	if !okMachine {
		return r.badRequest(conn, protocol.GetInformationForAllConnectionsOnMachineRequest)
	}
	return r.allConnectionsReply(conn, protocol.GetInformationForAllConnectionsOnMachineRequest, "", machine)
}

func (r *Registry) handleNamesOfMachines(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	r.mu.RLock()
	names, err := r.tables.namesOfMachines()
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetNamesOfMachinesRequest, false, err.Error())
	}
	return r.respond(conn, protocol.GetNamesOfMachinesRequest, true, "", stringList(names))
}

func (r *Registry) handleNamesOfNodes(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	r.mu.RLock()
	names, err := r.tables.namesOfNodes("")
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetNamesOfNodesRequest, false, err.Error())
	}
	return r.respond(conn, protocol.GetNamesOfNodesRequest, true, "", stringList(names))
}

func (r *Registry) handleNamesOfNodesOnMachine(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	machine, okMachine := argString(request, 1)
	if !okMachine {
		return r.badRequest(conn, protocol.GetNamesOfNodesOnMachineRequest)
	}
	r.mu.RLock()
	names, err := r.tables.namesOfNodes(machine)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.GetNamesOfNodesOnMachineRequest, false, err.Error())
	}
	return r.respond(conn, protocol.GetNamesOfNodesOnMachineRequest, true, "", stringList(names))
}

func (r *Registry) respondCount(conn net.Conn, requestName string, count int, err error) bool {
	if err != nil {
		return r.respond(conn, requestName, false, err.Error())
	}
	return r.respond(conn, requestName, true, "", value.Integer(count))
}

func (r *Registry) handleNumberOfMachines(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	r.mu.RLock()
	count, err := r.tables.countOf(machineTable)
	r.mu.RUnlock()
	return r.respondCount(conn, protocol.GetNumberOfMachinesRequest, count, err)
}

func (r *Registry) handleNumberOfNodes(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	r.mu.RLock()
	count, err := r.tables.countOf(nodeTable)
	r.mu.RUnlock()
	return r.respondCount(conn, protocol.GetNumberOfNodesRequest, count, err)
}

func (r *Registry) handleNumberOfNodesOnMachine(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	machine, okMachine := argString(request, 1)
	if !okMachine {
		return r.badRequest(conn, protocol.GetNumberOfNodesOnMachineRequest)
	}
	r.mu.RLock()
	count, err := r.tables.numberOfNodesOnMachine(machine)
	r.mu.RUnlock()
	return r.respondCount(conn, protocol.GetNumberOfNodesOnMachineRequest, count, err)
}

func (r *Registry) handleNumberOfChannels(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	r.mu.RLock()
	count, err := r.tables.countOf(channelTable)
	r.mu.RUnlock()
	return r.respondCount(conn, protocol.GetNumberOfChannelsRequest, count, err)
}

func (r *Registry) handleNumberOfChannelsOnNode(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	if !okNode {
		return r.badRequest(conn, protocol.GetNumberOfChannelsOnNodeRequest)
	}
	r.mu.RLock()
	count, err := r.tables.numberOfChannelsOnNode(node)
	r.mu.RUnlock()
	return r.respondCount(conn, protocol.GetNumberOfChannelsOnNodeRequest, count, err)
}

func (r *Registry) handleNumberOfConnections(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	r.mu.RLock()
	count, err := r.tables.countOf(connectionTable)
	r.mu.RUnlock()
	return r.respondCount(conn, protocol.GetNumberOfConnectionsRequest, count, err)
}

func (r *Registry) handleIsMachinePresent(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	name, okName := argString(request, 1)
	if !okName {
		return r.badRequest(conn, protocol.IsMachinePresentRequest)
	}
	r.mu.RLock()
	info, err := r.tables.machineInformation(name)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.IsMachinePresentRequest, false, err.Error())
	}
	return r.respond(conn, protocol.IsMachinePresentRequest, true, "", value.Logical(info.Found))
}

func (r *Registry) handleIsNodePresent(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	name, okName := argString(request, 1)
	if !okName {
		return r.badRequest(conn, protocol.IsNodePresentRequest)
	}
	r.mu.RLock()
	info, err := r.tables.nodeInformation(name)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.IsNodePresentRequest, false, err.Error())
	}
	return r.respond(conn, protocol.IsNodePresentRequest, true, "", value.Logical(info.Found))
}

func (r *Registry) handleIsChannelPresent(ctx *service.Context, conn net.Conn, request *value.Array) bool {
	node, okNode := argString(request, 1)
	path, okPath := argString(request, 2)
	if !okNode || !okPath {
		return r.badRequest(conn, protocol.IsChannelPresentRequest)
	}
	r.mu.RLock()
	info, err := r.tables.channelInformation(node, path)
	r.mu.RUnlock()
	if err != nil {
		return r.respond(conn, protocol.IsChannelPresentRequest, false, err.Error())
	}
	return r.respond(conn, protocol.IsChannelPresentRequest, true, "", value.Logical(info.Found))
}
