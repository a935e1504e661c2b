package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
)

// NodeType is the role a node plays in a workflow.
type NodeType string

const (
	NodeTypeTrigger   NodeType = "trigger"
	NodeTypeAction    NodeType = "action"
	NodeTypeCondition NodeType = "condition"
)

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeTrigger, NodeTypeAction, NodeTypeCondition:
		return true
	default:
		return false
	}
}

// NodeID identifies a node within its workflow. Stored data uses both
// strings and integers, so both decode into the string form.
type NodeID string

func (id *NodeID) UnmarshalJSON(data []byte) error {
	value, err := decodeFlexibleID(data)
	if err != nil {
		return fmt.Errorf("node id: %w", err)
	}

	*id = NodeID(value)

	return nil
}

// ConnectionID identifies a connection within its workflow.
type ConnectionID string

func (id *ConnectionID) UnmarshalJSON(data []byte) error {
	value, err := decodeFlexibleID(data)
	if err != nil {
		return fmt.Errorf("connection id: %w", err)
	}

	*id = ConnectionID(value)

	return nil
}

func decodeFlexibleID(data []byte) (string, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return "", nil
	}

	if len(data) > 0 && data[0] == '"' {
		var value string

		err := json.Unmarshal(data, &value)

		return value, err
	}

	var number json.Number

	err := json.Unmarshal(data, &number)
	if err != nil {
		return "", err
	}

	if n, err := number.Int64(); err == nil {
		return strconv.FormatInt(n, 10), nil
	}

	return number.String(), nil
}

// Position is a canvas coordinate.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one step of a workflow bound to an app event. Keys outside the
// known fields are kept in Extra and written back unchanged.
type Node struct {
	ID        NodeID                     `json:"id"`
	Type      NodeType                   `json:"type"               validate:"omitempty,oneof=trigger action condition"`
	AppName   string                     `json:"appName"`
	EventType string                     `json:"eventType"`
	Position  *Position                  `json:"position,omitempty"`
	Config    map[string]any             `json:"config,omitempty"`
	Extra     map[string]json.RawMessage `json:"-"`
}

var nodeKeys = []string{"id", "type", "appName", "eventType", "position", "config"}

type nodeFields struct {
	ID        NodeID         `json:"id"`
	Type      NodeType       `json:"type"`
	AppName   string         `json:"appName"`
	EventType string         `json:"eventType"`
	Position  *Position      `json:"position"`
	Config    map[string]any `json:"config"`
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var fields nodeFields

	extra, err := decodeWithExtra(data, &fields, nodeKeys)
	if err != nil {
		return fmt.Errorf("node: %w", err)
	}

	*n = Node{
		ID:        fields.ID,
		Type:      fields.Type,
		AppName:   fields.AppName,
		EventType: fields.EventType,
		Position:  fields.Position,
		Config:    fields.Config,
		Extra:     extra,
	}

	return nil
}

// MarshalJSON writes config whenever it is non-nil, so an empty config survives.
func (n Node) MarshalJSON() ([]byte, error) {
	out := withExtra(n.Extra)
	out["id"] = n.ID
	out["type"] = n.Type
	out["appName"] = n.AppName
	out["eventType"] = n.EventType

	if n.Position != nil {
		out["position"] = n.Position
	}

	if n.Config != nil {
		out["config"] = n.Config
	}

	return json.Marshal(out)
}

// Clone returns a copy of the node that shares no mutable state with n.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}

	clone := *n

	if n.Position != nil {
		position := *n.Position
		clone.Position = &position
	}

	if n.Config != nil {
		clone.Config = deepCopyMap(n.Config)
	}

	clone.Extra = cloneExtra(n.Extra)

	return &clone
}

// Connection is a directed edge from one node to another.
type Connection struct {
	ID           ConnectionID               `json:"id"`
	SourceNodeID NodeID                     `json:"sourceNodeId"`
	TargetNodeID NodeID                     `json:"targetNodeId"`
	Extra        map[string]json.RawMessage `json:"-"`
}

var connectionKeys = []string{"id", "sourceNodeId", "targetNodeId"}

type connectionFields struct {
	ID           ConnectionID `json:"id"`
	SourceNodeID NodeID       `json:"sourceNodeId"`
	TargetNodeID NodeID       `json:"targetNodeId"`
}

func (c *Connection) UnmarshalJSON(data []byte) error {
	var fields connectionFields

	extra, err := decodeWithExtra(data, &fields, connectionKeys)
	if err != nil {
		return fmt.Errorf("connection: %w", err)
	}

	*c = Connection{
		ID:           fields.ID,
		SourceNodeID: fields.SourceNodeID,
		TargetNodeID: fields.TargetNodeID,
		Extra:        extra,
	}

	return nil
}

func (c Connection) MarshalJSON() ([]byte, error) {
	out := withExtra(c.Extra)
	out["id"] = c.ID
	out["sourceNodeId"] = c.SourceNodeID
	out["targetNodeId"] = c.TargetNodeID

	return json.Marshal(out)
}

// Clone returns a copy of the connection that shares no mutable state with c.
func (c *Connection) Clone() *Connection {
	if c == nil {
		return nil
	}

	clone := *c
	clone.Extra = cloneExtra(c.Extra)

	return &clone
}

// decodeWithExtra decodes the known fields into out and returns every other key.
func decodeWithExtra(data []byte, out any, known []string) (map[string]json.RawMessage, error) {
	var raw map[string]json.RawMessage

	err := json.Unmarshal(data, &raw)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return nil, err
	}

	for _, key := range known {
		delete(raw, key)
	}

	if len(raw) == 0 {
		return nil, nil
	}

	return raw, nil
}

func withExtra(extra map[string]json.RawMessage) map[string]any {
	out := make(map[string]any, len(extra)+6)
	for key, value := range extra {
		out[key] = value
	}

	return out
}

func cloneExtra(extra map[string]json.RawMessage) map[string]json.RawMessage {
	if extra == nil {
		return nil
	}

	clone := make(map[string]json.RawMessage, len(extra))
	for key, value := range extra {
		clone[key] = bytes.Clone(value)
	}

	return clone
}

func deepCopyMap(src map[string]any) map[string]any {
	dst := maps.Clone(src)

	for key, value := range dst {
		dst[key] = deepCopyValue(value)
	}

	return dst
}

func deepCopyValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return deepCopyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = deepCopyValue(item)
		}

		return out
	default:
		return v
	}
}
