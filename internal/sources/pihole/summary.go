package pihole

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/dashd/internal/domain"
)

const (
	ShapeQueries = "queries"
	ShapeV6      = "v6"
)

var errUnknownShape = errors.New("unrecognised summary structure")

// Summary is the subset of /stats/summary the dashboard shows. Shape records
// which of the accepted layouts the reply used; empty means none matched.
type Summary struct {
	Total   float64
	Blocked float64
	Status  string
	Shape   string
}

type counters struct {
	Total   *float64 `json:"total"`
	Blocked *float64 `json:"blocked"`
	Queries *float64 `json:"queries"`
}

type summaryWire struct {
	Queries json.RawMessage `json:"queries"`
	DNS     *counters       `json:"dns"`
	Gravity json.RawMessage `json:"gravity"`
	Status  json.RawMessage `json:"status"`
}

// DecodeSummary accepts the flat {queries:{total,blocked}} layout (Pi-hole v5
// and v6 FTL) and the {dns:{queries,blocked},gravity,status} layout.
func DecodeSummary(body []byte) (Summary, error) {
	var wire summaryWire
	if err := json.Unmarshal(body, &wire); err != nil {
		return Summary{}, fmt.Errorf("decode summary: %w: %v", domain.ErrInvalidPayload, err)
	}

	summary := Summary{Status: decodeStatus(wire.Status)}

	var queries counters
	if len(wire.Queries) > 0 && json.Unmarshal(wire.Queries, &queries) == nil &&
		queries.Total != nil && queries.Blocked != nil {
		summary.Total = *queries.Total
		summary.Blocked = *queries.Blocked
		summary.Shape = ShapeQueries
		return summary, nil
	}

	if len(wire.Gravity) > 0 && wire.DNS != nil && wire.DNS.Queries != nil && wire.DNS.Blocked != nil && len(wire.Status) > 0 {
		summary.Total = *wire.DNS.Queries
		summary.Blocked = *wire.DNS.Blocked
		summary.Shape = ShapeV6
	}
	return summary, nil
}

func ValidateSummary(s Summary) error {
	if s.Shape == "" {
		return errUnknownShape
	}
	if s.Total < 0 || s.Blocked < 0 {
		return fmt.Errorf("negative counters: total=%v blocked=%v", s.Total, s.Blocked)
	}
	return nil
}

func decodeStatus(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown"
	}

	var status string
	if err := json.Unmarshal(raw, &status); err == nil && status != "" {
		return strings.ToLower(status)
	}

	var nested struct {
		State string `json:"state"`
	}
	if err := json.Unmarshal(raw, &nested); err == nil && nested.State != "" {
		return strings.ToLower(nested.State)
	}
	return "unknown"
}
