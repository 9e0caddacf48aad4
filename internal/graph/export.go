package graph

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/casetrace/casetrace/pkg/models"
)

var csvHeader = []string{"record_type", "id", "label", "role", "source", "target", "kind", "direction", "value", "count"}

// WriteCSV renders the node/edge set as flattened semicolon-delimited
// rows. Values are written in plain decimal form so the export parses
// back losslessly; presentation formatting is the report layer's job.
func (g *Graph) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(csvHeader); err != nil {
		return err
	}

	for _, n := range g.Nodes {
		row := []string{"node", n.ID, n.Label, string(n.Role), "", "", "", "", "", ""}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	for _, e := range g.Edges {
		row := []string{"edge", "", "", "", e.Source, e.Target, string(e.Kind), string(e.Direction), e.Value.String(), strconv.Itoa(e.Count)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// ParseCSV reconstructs a node/edge set from a CSV export. The intra-party
// aggregate is not part of the serialized set and comes back zeroed.
func ParseCSV(r io.Reader) (*Graph, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = len(csvHeader)

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read graph csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("read graph csv: empty input")
	}

	g := &Graph{IntraParty: IntraParty{Value: decimal.Zero}}
	for i, row := range rows[1:] {
		switch row[0] {
		case "node":
			g.Nodes = append(g.Nodes, models.GraphNode{
				ID:    row[1],
				Label: row[2],
				Role:  models.PartyRole(row[3]),
			})
		case "edge":
			value, err := decimal.NewFromString(row[8])
			if err != nil {
				return nil, fmt.Errorf("row %d: bad edge value %q: %w", i+2, row[8], err)
			}
			count, err := strconv.Atoi(row[9])
			if err != nil {
				return nil, fmt.Errorf("row %d: bad edge count %q: %w", i+2, row[9], err)
			}
			g.Edges = append(g.Edges, models.GraphEdge{
				Source:    row[4],
				Target:    row[5],
				Kind:      models.EdgeKind(row[6]),
				Direction: models.Direction(row[7]),
				Value:     value,
				Count:     count,
			})
		default:
			return nil, fmt.Errorf("row %d: unknown record type %q", i+2, row[0])
		}
	}

	return g, nil
}

// JSON renders the graph as attributed-graph JSON
func (g *Graph) JSON() ([]byte, error) {
	return json.Marshal(g)
}
