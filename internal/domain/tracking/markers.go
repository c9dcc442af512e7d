package tracking

import "strings"

// StatusMarkers holds the locale-specific marker strings the relay scans
// for when interpreting platform status tags and carrier tracking pages.
// The values are configuration: the carrier exposes no structured API, so
// page content is matched on substrings only.
type StatusMarkers struct {
	// Courier is the shipping-line title substring marking home delivery.
	Courier string

	// Tag markers for the branch-pickup operational status field.
	TagArrivedAtBranch   string
	TagArrivedAtCustomer string
	TagCollected         string

	// Page markers scanned inside carrier tracking-page text.
	PageIntermediate []string
	PageTerminal     []string
}

// DefaultStatusMarkers returns the marker set used by the production
// storefront (Hebrew carrier and platform statuses).
func DefaultStatusMarkers() StatusMarkers {
	return StatusMarkers{
		Courier:              "שליח עד הבית",
		TagArrivedAtBranch:   "הגיע לסניף",
		TagArrivedAtCustomer: "הגיע ללקוח",
		TagCollected:         "נאסף",
		PageIntermediate:     []string{"נכנס למרכז מיון"},
		PageTerminal:         []string{"נסגרה", "אישור השארת משלוח"},
	}
}

// TagIsArrival reports whether the operational status tag means the order
// arrived at its pickup branch.
func (m StatusMarkers) TagIsArrival(tag string) bool {
	return m.TagArrivedAtBranch != "" && strings.Contains(tag, m.TagArrivedAtBranch)
}

// TagIsTerminal reports whether the operational status tag means the order
// reached the customer or was collected.
func (m StatusMarkers) TagIsTerminal(tag string) bool {
	if m.TagArrivedAtCustomer != "" && strings.Contains(tag, m.TagArrivedAtCustomer) {
		return true
	}
	return m.TagCollected != "" && strings.Contains(tag, m.TagCollected)
}

// PageIsIntermediate reports whether the tracking page text contains an
// in-transit marker.
func (m StatusMarkers) PageIsIntermediate(page string) bool {
	return containsAny(page, m.PageIntermediate)
}

// PageIsTerminal reports whether the tracking page text contains a
// delivered/closed marker.
func (m StatusMarkers) PageIsTerminal(page string) bool {
	return containsAny(page, m.PageTerminal)
}

func containsAny(s string, markers []string) bool {
	for _, marker := range markers {
		if marker != "" && strings.Contains(s, marker) {
			return true
		}
	}
	return false
}
