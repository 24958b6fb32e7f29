package protocol

import (
	"nimo.cc/nimo/common/channelname"
	"nimo.cc/nimo/common/value"
)

// ServiceType classifies a node's process.
type ServiceType int

const (
	ServiceGeneric ServiceType = iota
	ServiceInput
	ServiceOutput
	ServiceFilter
	ServiceLauncher
	ServiceRegistry
)

// MachineInfo describes one machine row.
type MachineInfo struct {
	Found   bool
	Name    string
	Address value.Address
}

// NodeInfo describes one node row.
type NodeInfo struct {
	Found       bool
	Name        string
	Machine     string
	ServiceType ServiceType
	Address     value.Address
	Port        uint16
}

// ChannelInfo describes one channel row. Direction is intrinsic: IsOutput
// never changes after creation.
type ChannelInfo struct {
	Found     bool
	Node      string
	Path      string
	IsOutput  bool
	DataType  string
	Transport channelname.Transport
	InUse     bool
}

// ConnectionInfo describes one connection row. Both endpoints participate in
// at most one connection at a time.
type ConnectionInfo struct {
	Found     bool
	FromNode  string
	FromPath  string
	ToNode    string
	ToPath    string
	DataType  string
	Transport channelname.Transport
}

// MakeRequest assembles the request array: the command name followed by its
// arguments.
func MakeRequest(name string, args ...value.Value) *value.Array {
	request := value.NewArray(value.String(name))
	request.Add(args...)
	return request
}

// MakeResponse assembles the response array: the response name, the success
// flag, the diagnostic, then any payload.
func MakeResponse(name string, ok bool, diagnostic string, payload ...value.Value) *value.Array {
	response := value.NewArray(value.String(name), value.Logical(ok), value.String(diagnostic))
	response.Add(payload...)
	return response
}

// SplitResponse validates the response array shape and peels the standard
// head off. The payload keeps only the elements past the diagnostic.
func SplitResponse(response *value.Array, expectedName string) (ok bool, diagnostic string, payload []value.Value, usable bool) {
	if response.Size() < 3 {
		return
	}
	name, isString := value.AsString(response.At(0))
	flag, isLogical := value.AsLogical(response.At(1))
	detail, detailIsString := value.AsString(response.At(2))
	if !isString || !isLogical || !detailIsString || string(name) != expectedName {
		return
	}
	return bool(flag), string(detail), response.Members()[3:], true
}

// Machine payload form: ( name address ).
func (info MachineInfo) ToValue() value.Value {
	return value.NewArray(value.String(info.Name), info.Address)
}

// MachineInfoFromValue decodes the machine payload form.
func MachineInfoFromValue(v value.Value) (info MachineInfo, ok bool) {
	fields, isArray := value.AsArray(v)
	if !isArray || fields.Size() != 2 {
		return
	}
	name, nameOK := value.AsString(fields.At(0))
	address, addressOK := fields.At(1).(value.Address)
	if !nameOK || !addressOK {
		return
	}
	return MachineInfo{Found: true, Name: string(name), Address: address}, true
}

// Node payload form: ( name machine serviceType address port ).
func (info NodeInfo) ToValue() value.Value {
	return value.NewArray(
		value.String(info.Name),
		value.String(info.Machine),
		value.Integer(info.ServiceType),
		info.Address,
		value.Integer(info.Port),
	)
}

// NodeInfoFromValue decodes the node payload form.
func NodeInfoFromValue(v value.Value) (info NodeInfo, ok bool) {
	fields, isArray := value.AsArray(v)
	if !isArray || fields.Size() != 5 {
		return
	}
	name, nameOK := value.AsString(fields.At(0))
	machine, machineOK := value.AsString(fields.At(1))
	serviceType, typeOK := value.AsInteger(fields.At(2))
	address, addressOK := fields.At(3).(value.Address)
	port, portOK := value.AsInteger(fields.At(4))
	if !nameOK || !machineOK || !typeOK || !addressOK || !portOK {
		return
	}
	return NodeInfo{
		Found:       true,
		Name:        string(name),
		Machine:     string(machine),
		ServiceType: ServiceType(serviceType),
		Address:     address,
		Port:        uint16(port),
	}, true
}

// Channel payload form: ( node path isOutput dataType transport inUse ).
func (info ChannelInfo) ToValue() value.Value {
	return value.NewArray(
		value.String(info.Node),
		value.String(info.Path),
		value.Logical(info.IsOutput),
		value.String(info.DataType),
		value.Integer(info.Transport),
		value.Logical(info.InUse),
	)
}

// ChannelInfoFromValue decodes the channel payload form.
func ChannelInfoFromValue(v value.Value) (info ChannelInfo, ok bool) {
	fields, isArray := value.AsArray(v)
	if !isArray || fields.Size() != 6 {
		return
	}
	node, nodeOK := value.AsString(fields.At(0))
	path, pathOK := value.AsString(fields.At(1))
	isOutput, outputOK := value.AsLogical(fields.At(2))
	dataType, dataTypeOK := value.AsString(fields.At(3))
	transport, transportOK := value.AsInteger(fields.At(4))
	inUse, inUseOK := value.AsLogical(fields.At(5))
	if !nodeOK || !pathOK || !outputOK || !dataTypeOK || !transportOK || !inUseOK {
		return
	}
	return ChannelInfo{
		Found:     true,
		Node:      string(node),
		Path:      string(path),
		IsOutput:  bool(isOutput),
		DataType:  string(dataType),
		Transport: channelname.Transport(transport),
		InUse:     bool(inUse),
	}, true
}

// Connection payload form: ( fromNode fromPath toNode toPath dataType transport ).
func (info ConnectionInfo) ToValue() value.Value {
	return value.NewArray(
		value.String(info.FromNode),
		value.String(info.FromPath),
		value.String(info.ToNode),
		value.String(info.ToPath),
		value.String(info.DataType),
		value.Integer(info.Transport),
	)
}

// ConnectionInfoFromValue decodes the connection payload form.
func ConnectionInfoFromValue(v value.Value) (info ConnectionInfo, ok bool) {
	fields, isArray := value.AsArray(v)
	if !isArray || fields.Size() != 6 {
		return
	}
	fromNode, fromNodeOK := value.AsString(fields.At(0))
	fromPath, fromPathOK := value.AsString(fields.At(1))
	toNode, toNodeOK := value.AsString(fields.At(2))
	toPath, toPathOK := value.AsString(fields.At(3))
	dataType, dataTypeOK := value.AsString(fields.At(4))
	transport, transportOK := value.AsInteger(fields.At(5))
	if !fromNodeOK || !fromPathOK || !toNodeOK || !toPathOK || !dataTypeOK || !transportOK {
		return
	}
	return ConnectionInfo{
		Found:     true,
		FromNode:  string(fromNode),
		FromPath:  string(fromPath),
		ToNode:    string(toNode),
		ToPath:    string(toPath),
		DataType:  string(dataType),
		Transport: channelname.Transport(transport),
	}, true
}
