// Package protocol freezes the control-plane vocabulary: request and
// response names, status-report prefixes, and the typed payload shapes that
// travel inside response arrays.
//
// A request name ends in '!' when it mutates, '?' when it reads, and '#'
// when it reads and mutates atomically. Every response name ends in '='.
package protocol

// Status-report prefixes, multicast by the Registry when its state changes.
const (
	ChannelAddedStatus      = "c+"
	ChannelRemovedStatus    = "c-"
	ChannelsRemovedStatus   = "c^"
	ConnectionAddedStatus   = "c*"
	ConnectionRemovedStatus = "c/"
	NodeAddedStatus         = "n+"
	NodeRemovedStatus       = "n-"
)

// Requests and responses.
const (
	AddChannelRequest     = "addChannel!"
	AddChannelResponse    = "addChannel="
	AddConnectionRequest  = "addConnection!"
	AddConnectionResponse = "addConnection="
	AddNodeRequest        = "addNode!"
	AddNodeResponse       = "addNode="

	ClearChannelInUseRequest  = "clearChannelInUse!"
	ClearChannelInUseResponse = "clearChannelInUse="

	DisconnectChannelsRequest  = "disconnectChannels!"
	DisconnectChannelsResponse = "disconnectChannels="

	GetChannelInformationRequest  = "getChannelInformation?"
	GetChannelInformationResponse = "getChannelInformation="
	GetChannelInUseAndSetRequest  = "getChannelInUseAndSet#"
	GetChannelInUseAndSetResponse = "getChannelInUseAndSet="
	GetChannelInUseRequest        = "getChannelInUse?"
	GetChannelInUseResponse       = "getChannelInUse="

	GetConnectionInformationRequest  = "getConnectionInformation?"
	GetConnectionInformationResponse = "getConnectionInformation="

	GetInformationForAllChannelsRequest           = "getInformationForAllChannels?"
	GetInformationForAllChannelsResponse          = "getInformationForAllChannels="
	GetInformationForAllChannelsOnMachineRequest  = "getInformationForAllChannelsOnMachine?"
	GetInformationForAllChannelsOnMachineResponse = "getInformationForAllChannelsOnMachine="
	GetInformationForAllChannelsOnNodeRequest     = "getInformationForAllChannelsOnNode?"
	GetInformationForAllChannelsOnNodeResponse    = "getInformationForAllChannelsOnNode="

	GetInformationForAllConnectionsRequest           = "getInformationForAllConnections?"
	GetInformationForAllConnectionsResponse          = "getInformationForAllConnections="
	GetInformationForAllConnectionsOnMachineRequest  = "getInformationForAllConnectionsOnMachine?"
	GetInformationForAllConnectionsOnMachineResponse = "getInformationForAllConnectionsOnMachine="
	GetInformationForAllConnectionsOnNodeRequest     = "getInformationForAllConnectionsOnNode?"
	GetInformationForAllConnectionsOnNodeResponse    = "getInformationForAllConnectionsOnNode="

	GetInformationForAllMachinesRequest  = "getInformationForAllMachines?"
	GetInformationForAllMachinesResponse = "getInformationForAllMachines="
	GetInformationForAllNodesRequest     = "getInformationForAllNodes?"
	GetInformationForAllNodesResponse    = "getInformationForAllNodes="

	GetInformationForAllNodesOnMachineRequest  = "getInformationForAllNodesOnMachine?"
	GetInformationForAllNodesOnMachineResponse = "getInformationForAllNodesOnMachine="

	GetLaunchDetailsRequest  = "getLaunchDetails?"
	GetLaunchDetailsResponse = "getLaunchDetails="

	GetMachineInformationRequest  = "getMachineInformation?"
	GetMachineInformationResponse = "getMachineInformation="

	GetNamesOfMachinesRequest  = "getNamesOfMachines?"
	GetNamesOfMachinesResponse = "getNamesOfMachines="
	GetNamesOfNodesRequest     = "getNamesOfNodes?"
	GetNamesOfNodesResponse    = "getNamesOfNodes="

	GetNamesOfNodesOnMachineRequest  = "getNamesOfNodesOnMachine?"
	GetNamesOfNodesOnMachineResponse = "getNamesOfNodesOnMachine="

	GetNodeInformationRequest  = "getNodeInformation?"
	GetNodeInformationResponse = "getNodeInformation="

	GetNumberOfChannelsRequest        = "getNumberOfChannels?"
	GetNumberOfChannelsResponse       = "getNumberOfChannels="
	GetNumberOfChannelsOnNodeRequest  = "getNumberOfChannelsOnNode?"
	GetNumberOfChannelsOnNodeResponse = "getNumberOfChannelsOnNode="
	GetNumberOfConnectionsRequest     = "getNumberOfConnections?"
	GetNumberOfConnectionsResponse    = "getNumberOfConnections="
	GetNumberOfMachinesRequest        = "getNumberOfMachines?"
	GetNumberOfMachinesResponse       = "getNumberOfMachines="
	GetNumberOfNodesRequest           = "getNumberOfNodes?"
	GetNumberOfNodesResponse          = "getNumberOfNodes="
	GetNumberOfNodesOnMachineRequest  = "getNumberOfNodesOnMachine?"
	GetNumberOfNodesOnMachineResponse = "getNumberOfNodesOnMachine="

	IsChannelPresentRequest  = "isChannelPresent?"
	IsChannelPresentResponse = "isChannelPresent="
	IsMachinePresentRequest  = "isMachinePresent?"
	IsMachinePresentResponse = "isMachinePresent="
	IsNodePresentRequest     = "isNodePresent?"
	IsNodePresentResponse    = "isNodePresent="

	RemoveChannelRequest          = "removeChannel!"
	RemoveChannelResponse         = "removeChannel="
	RemoveChannelsForNodeRequest  = "removeChannelsForNode!"
	RemoveChannelsForNodeResponse = "removeChannelsForNode="
	RemoveConnectionRequest       = "removeConnection!"
	RemoveConnectionResponse      = "removeConnection="
	RemoveNodeRequest             = "removeNode!"
	RemoveNodeResponse            = "removeNode="

	SetChannelInUseRequest  = "setChannelInUse!"
	SetChannelInUseResponse = "setChannelInUse="

	StopRequest  = "stop!"
	StopResponse = "stop="
)
