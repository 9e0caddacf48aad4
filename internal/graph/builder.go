// Package graph builds the link-analysis node/edge view of a case and
// serializes it for export.
package graph

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/internal/party"
	"github.com/casetrace/casetrace/pkg/models"
)

// IntraParty aggregates transactions where owner and counterparty resolve
// to the same party. Self-loops carry no link-analysis value and are kept
// out of the edge set, but their volume is still reported.
type IntraParty struct {
	Value decimal.Decimal `json:"value"`
	Count int             `json:"count"`
}

// Graph is the built node/edge set of one analysis run
type Graph struct {
	Nodes      []models.GraphNode `json:"nodes"`
	Edges      []models.GraphEdge `json:"edges"`
	IntraParty IntraParty         `json:"intra_party"`
}

// Builder assembles graphs from resolved parties and transactions
type Builder struct{}

// NewBuilder creates a builder
func NewBuilder() *Builder {
	return &Builder{}
}

// Build produces one node per resolved party and one flow edge per
// distinct (source, target, direction) triple with summed value and
// count. Credits orient counterparty -> owner, debits owner ->
// counterparty. A party sighted in more than one batch additionally gets
// a same-identity edge, distinguishable from flow edges by kind.
func (b *Builder) Build(parties map[string]*models.Party, txns []models.Transaction) *Graph {
	g := &Graph{IntraParty: IntraParty{Value: decimal.Zero}}

	for _, p := range parties {
		g.Nodes = append(g.Nodes, models.GraphNode{
			ID:    p.CanonicalID,
			Label: p.DisplayName,
			Role:  p.Role,
		})
	}
	sort.Slice(g.Nodes, func(i, j int) bool { return g.Nodes[i].ID < g.Nodes[j].ID })

	type edgeKey struct {
		source, target string
		direction      models.Direction
	}
	flows := make(map[edgeKey]*models.GraphEdge)

	for _, t := range txns {
		owner := party.Key(t.OwnerID, t.OwnerName)
		if t.CounterpartyID == "" && strings.TrimSpace(t.CounterpartyName) == "" {
			continue
		}
		cp := party.Key(t.CounterpartyID, t.CounterpartyName)

		if owner == cp {
			g.IntraParty.Value = g.IntraParty.Value.Add(t.Amount)
			g.IntraParty.Count++
			continue
		}

		source, target := owner, cp
		if t.Direction == models.DirectionCredit {
			source, target = cp, owner
		}

		key := edgeKey{source: source, target: target, direction: t.Direction}
		e, ok := flows[key]
		if !ok {
			e = &models.GraphEdge{
				Source:    source,
				Target:    target,
				Kind:      models.EdgeKindFlow,
				Direction: t.Direction,
				Value:     decimal.Zero,
			}
			flows[key] = e
		}
		e.Value = e.Value.Add(t.Amount)
		e.Count++
	}

	for _, e := range flows {
		g.Edges = append(g.Edges, *e)
	}

	for _, p := range parties {
		if len(p.Batches) > 1 {
			g.Edges = append(g.Edges, models.GraphEdge{
				Source: p.CanonicalID,
				Target: p.CanonicalID,
				Kind:   models.EdgeKindSameIdentity,
				Value:  decimal.Zero,
				Count:  len(p.Batches),
			})
		}
	}

	sort.Slice(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.Source != b.Source {
			return a.Source < b.Source
		}
		if a.Target != b.Target {
			return a.Target < b.Target
		}
		if a.Kind != b.Kind {
			return a.Kind < b.Kind
		}
		return a.Direction < b.Direction
	})

	return g
}
