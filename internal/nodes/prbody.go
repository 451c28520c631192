package nodes

import (
	"fmt"
	"strings"
)

func dashboardMarkers(markerID string) (begin, end string) {
	return fmt.Sprintf("<!-- foundry-workflow-dashboard:%s -->", markerID),
		fmt.Sprintf("<!-- /foundry-workflow-dashboard:%s -->", markerID)
}

// upsertDashboard replaces the marker-delimited dashboard block in body
// with rendered, or appends a fresh block if no markers for markerID are
// present — making repeated PR-visualizer runs against the same run id
// idempotent instead of accumulating duplicate dashboards. Prose outside
// the markers is preserved byte-exact.
func upsertDashboard(body, markerID, rendered string) string {
	begin, end := dashboardMarkers(markerID)
	block := begin + "\n" + rendered + "\n" + end

	start := strings.Index(body, begin)
	stop := strings.Index(body, end)
	if start == -1 || stop == -1 || stop < start {
		if body == "" {
			return block
		}
		return body + "\n\n" + block
	}

	return body[:start] + block + body[stop+len(end):]
}
