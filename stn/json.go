package stn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/google/uuid"
)

// The wire format is the node-link JSON form:
//
//	{"nodes": [{"id": 0, "data": {"task_id": ..., "node_type": ...,
//	            "is_executed": false}}, ...],
//	 "links": [{"source": i, "target": j, "weight": w,
//	            "is_contingent": bool, "distribution": "N_6_1"}, ...],
//	 "risk_metric": 0.0}
//
// Every directed edge is one link. Infinite weights are encoded as the
// string "inf" and restored to +Inf on load.

// jsonWeight encodes an edge weight, representing +Inf as the string "inf".
type jsonWeight float64

func (w jsonWeight) MarshalJSON() ([]byte, error) {
	if math.IsInf(float64(w), 1) {
		return []byte(`"inf"`), nil
	}
	if math.IsInf(float64(w), -1) {
		return []byte(`"-inf"`), nil
	}
	return json.Marshal(float64(w))
}

func (w *jsonWeight) UnmarshalJSON(b []byte) error {
	if bytes.HasPrefix(b, []byte(`"`)) {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch s {
		case "inf":
			*w = jsonWeight(math.Inf(1))
			return nil
		case "-inf":
			*w = jsonWeight(math.Inf(-1))
			return nil
		}
		return fmt.Errorf("weight %q is not a number or \"inf\"", s)
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*w = jsonWeight(v)
	return nil
}

type jsonNodeData struct {
	TaskID     string `json:"task_id"`
	NodeType   string `json:"node_type"`
	IsExecuted bool   `json:"is_executed"`
}

type jsonNode struct {
	ID   int          `json:"id"`
	Data jsonNodeData `json:"data"`
}

type jsonLink struct {
	Source       int        `json:"source"`
	Target       int        `json:"target"`
	Weight       jsonWeight `json:"weight"`
	IsContingent bool       `json:"is_contingent,omitempty"`
	Distribution string     `json:"distribution,omitempty"`
}

type jsonGraph struct {
	Nodes      []jsonNode `json:"nodes"`
	Links      []jsonLink `json:"links"`
	RiskMetric *float64   `json:"risk_metric,omitempty"`
}

// ToJSON serializes the network in node-link form with deterministic node
// and link ordering.
func (s *STN) ToJSON() ([]byte, error) {
	g := jsonGraph{}
	for _, id := range s.Nodes() {
		tp := s.nodes[id]
		g.Nodes = append(g.Nodes, jsonNode{
			ID: id,
			Data: jsonNodeData{
				TaskID:     tp.TaskID.String(),
				NodeType:   string(tp.Kind),
				IsExecuted: tp.IsExecuted,
			},
		})
	}
	for _, id := range s.Nodes() {
		for _, other := range s.Nodes() {
			e, ok := s.edges[edgeKey{id, other}]
			if !ok {
				continue
			}
			g.Links = append(g.Links, jsonLink{
				Source:       id,
				Target:       other,
				Weight:       jsonWeight(e.weight),
				IsContingent: e.isContingent,
				Distribution: e.distribution,
			})
		}
	}
	if s.riskMetricSet {
		risk := s.riskMetric
		g.RiskMetric = &risk
	}
	return json.Marshal(g)
}

// loadJSON replaces the state of dst with the decoded node-link payload.
func loadJSON(dst *STN, payload []byte) error {
	var g jsonGraph
	if err := json.Unmarshal(payload, &g); err != nil {
		return fmt.Errorf("decoding temporal network: %w", err)
	}
	dst.nodes = make(map[int]*Timepoint, len(g.Nodes))
	dst.edges = make(map[edgeKey]*edge, len(g.Links))
	for _, n := range g.Nodes {
		taskID := uuid.Nil
		if n.Data.TaskID != "" {
			parsed, err := uuid.Parse(n.Data.TaskID)
			if err != nil && n.ID != 0 {
				return fmt.Errorf("node %d: task id %q: %w", n.ID, n.Data.TaskID, err)
			}
			taskID = parsed
		}
		dst.nodes[n.ID] = &Timepoint{
			TaskID:     taskID,
			Kind:       NodeKind(n.Data.NodeType),
			IsExecuted: n.Data.IsExecuted,
		}
	}
	if _, ok := dst.nodes[0]; !ok {
		dst.addZeroTimepoint()
	}
	for _, l := range g.Links {
		dst.edges[edgeKey{l.Source, l.Target}] = &edge{
			weight:       float64(l.Weight),
			isContingent: l.IsContingent,
			distribution: l.Distribution,
		}
	}
	if g.RiskMetric != nil {
		dst.SetRiskMetric(*g.RiskMetric)
	}
	return nil
}

// STNFromJSON decodes a node-link payload into an STN.
func STNFromJSON(payload []byte) (*STN, error) {
	s := NewSTN()
	if err := loadJSON(s, payload); err != nil {
		return nil, err
	}
	return s, nil
}

// STNUFromJSON decodes a node-link payload into an STNU.
func STNUFromJSON(payload []byte) (*STNU, error) {
	u := NewSTNU()
	if err := loadJSON(&u.STN, payload); err != nil {
		return nil, err
	}
	return u, nil
}

// PSTNFromJSON decodes a node-link payload into a PSTN.
func PSTNFromJSON(payload []byte) (*PSTN, error) {
	p := NewPSTN()
	if err := loadJSON(&p.STN, payload); err != nil {
		return nil, err
	}
	return p, nil
}
