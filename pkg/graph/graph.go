// Package graph provides validation and traversal of the node/connection graph of a workflow.
package graph

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/dukex/flowdeck/pkg/models"
)

// ErrCycle is matched by every CycleError.
var ErrCycle = errors.New("workflow graph contains a cycle")

// Direction selects which edges Neighbors follows.
type Direction string

const (
	Outgoing Direction = "outgoing"
	Incoming Direction = "incoming"
)

// ParseDirection converts a query value into a Direction. Empty means Outgoing.
func ParseDirection(value string) (Direction, error) {
	switch Direction(strings.ToLower(value)) {
	case "", Outgoing:
		return Outgoing, nil
	case Incoming:
		return Incoming, nil
	default:
		return "", fmt.Errorf("invalid direction %q", value)
	}
}

// Violation describes a connection that references a node missing from the workflow.
type Violation struct {
	ConnectionID  models.ConnectionID `json:"connectionId"`
	SourceNodeID  models.NodeID       `json:"sourceNodeId"`
	TargetNodeID  models.NodeID       `json:"targetNodeId"`
	MissingSource bool                `json:"missingSource"`
	MissingTarget bool                `json:"missingTarget"`
}

func (v Violation) String() string {
	var missing []string

	if v.MissingSource {
		missing = append(missing, fmt.Sprintf("source node %q", v.SourceNodeID))
	}

	if v.MissingTarget {
		missing = append(missing, fmt.Sprintf("target node %q", v.TargetNodeID))
	}

	return fmt.Sprintf("connection %q references unknown %s", v.ConnectionID, strings.Join(missing, " and "))
}

// CycleError is returned by TopologicalOrder when some nodes can never reach in-degree zero.
type CycleError struct {
	NodeIDs []models.NodeID
}

func (e *CycleError) Error() string {
	ids := make([]string, len(e.NodeIDs))
	for i, id := range e.NodeIDs {
		ids[i] = string(id)
	}

	return fmt.Sprintf("%v: unresolved nodes [%s]", ErrCycle, strings.Join(ids, ", "))
}

func (e *CycleError) Is(target error) bool {
	return target == ErrCycle
}

// Validate returns one violation per connection with a dangling endpoint.
func Validate(workflow *models.Workflow) []Violation {
	if workflow == nil {
		return nil
	}

	index := nodeIndex(workflow)

	var violations []Violation

	for _, conn := range workflow.Connections {
		if conn == nil {
			continue
		}

		_, hasSource := index[conn.SourceNodeID]
		_, hasTarget := index[conn.TargetNodeID]

		if hasSource && hasTarget {
			continue
		}

		violations = append(violations, Violation{
			ConnectionID:  conn.ID,
			SourceNodeID:  conn.SourceNodeID,
			TargetNodeID:  conn.TargetNodeID,
			MissingSource: !hasSource,
			MissingTarget: !hasTarget,
		})
	}

	return violations
}

// Neighbors returns the nodes one hop away from nodeID, in connection order without duplicates.
func Neighbors(workflow *models.Workflow, nodeID models.NodeID, direction Direction) []*models.Node {
	neighbors := make([]*models.Node, 0)

	if workflow == nil {
		return neighbors
	}

	index := nodeIndex(workflow)
	if _, ok := index[nodeID]; !ok {
		return neighbors
	}

	seen := make(map[models.NodeID]bool)

	for _, conn := range workflow.Connections {
		if conn == nil {
			continue
		}

		var other models.NodeID

		switch {
		case direction == Incoming && conn.TargetNodeID == nodeID:
			other = conn.SourceNodeID
		case direction != Incoming && conn.SourceNodeID == nodeID:
			other = conn.TargetNodeID
		default:
			continue
		}

		node, ok := index[other]
		if !ok || seen[other] {
			continue
		}

		seen[other] = true
		neighbors = append(neighbors, node)
	}

	return neighbors
}

// TopologicalOrder orders nodes so that every node follows all nodes with an
// edge into it. Among nodes that become ready together the lowest id goes first.
// Connections with a dangling endpoint are ignored.
func TopologicalOrder(workflow *models.Workflow) ([]*models.Node, error) {
	if workflow == nil {
		return []*models.Node{}, nil
	}

	index := nodeIndex(workflow)
	inDegree := make(map[models.NodeID]int, len(index))
	edges := make(map[models.NodeID][]models.NodeID, len(index))

	for id := range index {
		inDegree[id] = 0
	}

	for _, conn := range workflow.Connections {
		if conn == nil {
			continue
		}

		_, hasSource := index[conn.SourceNodeID]
		_, hasTarget := index[conn.TargetNodeID]

		if !hasSource || !hasTarget {
			continue
		}

		edges[conn.SourceNodeID] = append(edges[conn.SourceNodeID], conn.TargetNodeID)
		inDegree[conn.TargetNodeID]++
	}

	ready := make([]models.NodeID, 0, len(index))

	for id, degree := range inDegree {
		if degree == 0 {
			ready = append(ready, id)
		}
	}

	ordered := make([]*models.Node, 0, len(index))

	for len(ready) > 0 {
		slices.SortFunc(ready, CompareNodeIDs)

		current := ready[0]
		ready = ready[1:]

		ordered = append(ordered, index[current])

		for _, target := range edges[current] {
			inDegree[target]--
			if inDegree[target] == 0 {
				ready = append(ready, target)
			}
		}
	}

	if len(ordered) < len(index) {
		remaining := make([]models.NodeID, 0, len(index)-len(ordered))

		for id, degree := range inDegree {
			if degree > 0 {
				remaining = append(remaining, id)
			}
		}

		slices.SortFunc(remaining, CompareNodeIDs)

		return nil, &CycleError{NodeIDs: remaining}
	}

	return ordered, nil
}

// CompareNodeIDs orders ids numerically when both are integers and lexically otherwise.
// Integer ids sort before non-integer ids.
func CompareNodeIDs(a, b models.NodeID) int {
	an, aErr := strconv.ParseInt(string(a), 10, 64)
	bn, bErr := strconv.ParseInt(string(b), 10, 64)

	switch {
	case aErr == nil && bErr == nil:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		default:
			return 0
		}
	case aErr == nil:
		return -1
	case bErr == nil:
		return 1
	default:
		return strings.Compare(string(a), string(b))
	}
}

// nodeIndex maps ids to nodes. The first node with a given id wins.
func nodeIndex(workflow *models.Workflow) map[models.NodeID]*models.Node {
	index := make(map[models.NodeID]*models.Node, len(workflow.Nodes))

	for _, node := range workflow.Nodes {
		if node == nil {
			continue
		}

		if _, exists := index[node.ID]; !exists {
			index[node.ID] = node
		}
	}

	return index
}
