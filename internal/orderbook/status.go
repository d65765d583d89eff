package orderbook

import (
	"regexp"
	"sort"
	"strings"
)

// StatusColors is the event color triple used by the calendar frontends.
type StatusColors struct {
	Background string `json:"backgroundColor"`
	Border     string `json:"borderColor"`
	Text       string `json:"textColor"`
}

// SoldColors is the muted palette for masked events shown to customers who do
// not own the underlying order.
var SoldColors = StatusColors{Background: "#cbd5e1", Border: "#94a3b8", Text: "#475569"}

var statusColors = map[string]StatusColors{
	"open":        {Background: "#2563eb", Border: "#1d4ed8", Text: "#ffffff"},
	"in progress": {Background: "#d97706", Border: "#b45309", Text: "#ffffff"},
	"completed":   {Background: "#16a34a", Border: "#15803d", Text: "#ffffff"},
	"on hold":     {Background: "#6b7280", Border: "#4b5563", Text: "#ffffff"},
	"cancelled":   {Background: "#dc2626", Border: "#b91c1c", Text: "#ffffff"},
	"default":     {Background: "#0f766e", Border: "#115e59", Text: "#ffffff"},
}

// statusKeywordSets is scanned in order; the first set with a matching keyword
// wins, so broader keywords must come after narrower ones.
var statusKeywordSets = []struct {
	key      string
	label    string
	keywords []string
}{
	{"open", "Open", []string{"open", "new", "pending"}},
	{"in progress", "In Progress", []string{"in progress", "inprogress", "wip", "started", "working"}},
	{"completed", "Completed", []string{"completed", "complete", "done", "closed", "shipped", "delivered"}},
	{"on hold", "On Hold", []string{"on hold", "hold", "paused", "waiting"}},
	{"cancelled", "Cancelled", []string{"cancelled", "canceled", "void"}},
}

var statusCompactPattern = regexp.MustCompile(`[^a-z0-9]+`)

// StatusKey folds a free-form status cell onto one of the canonical keys
// (open, in progress, completed, on hold, cancelled) or "default" when
// nothing matches. Matching is case-insensitive and ignores punctuation.
func StatusKey(status string) string {
	raw := strings.ToLower(strings.TrimSpace(status))
	if raw == "" {
		return "default"
	}
	compact := strings.TrimSpace(statusCompactPattern.ReplaceAllString(raw, " "))
	if _, ok := statusColors[compact]; ok {
		return compact
	}
	for _, set := range statusKeywordSets {
		for _, keyword := range set.keywords {
			if strings.Contains(compact, keyword) {
				return set.key
			}
		}
	}
	return "default"
}

// ColorsForStatus returns the calendar palette for a raw status value.
func ColorsForStatus(status string) StatusColors {
	return statusColors[StatusKey(status)]
}

// StatusClass returns the CSS class fragment for a raw status value, the
// canonical key with spaces removed ("in progress" becomes "inprogress").
func StatusClass(status string) string {
	return strings.ReplaceAll(StatusKey(status), " ", "")
}

// LegendEntry describes one swatch in the calendar legend.
type LegendEntry struct {
	Key   string `json:"key"`
	Label string `json:"label"`
	Class string `json:"class"`
	Color string `json:"color"`
}

// StatusLegend lists the canonical statuses in declared order for rendering a
// legend. The "default" bucket is omitted; frontends append the SOLD swatch
// themselves where masking applies.
func StatusLegend() []LegendEntry {
	entries := make([]LegendEntry, 0, len(statusKeywordSets))
	for _, set := range statusKeywordSets {
		entries = append(entries, LegendEntry{
			Key:   set.key,
			Label: set.label,
			Class: strings.ReplaceAll(set.key, " ", ""),
			Color: statusColors[set.key].Background,
		})
	}
	return entries
}

// Summary aggregates a slice of orders for dashboard display.
type Summary struct {
	Orders       int            `json:"orders"`
	Scheduled    int            `json:"scheduled"`
	TotalValue   float64        `json:"total_value"`
	TopStatus    string         `json:"top_status,omitempty"`
	StatusCounts map[string]int `json:"status_counts,omitempty"`
}

// Summarize computes order count, scheduled count, total value of priced
// orders, and the most common raw status. Status ties break lexicographically
// so the result is stable.
func Summarize(orders []Order) Summary {
	summary := Summary{Orders: len(orders)}
	counts := map[string]int{}
	for _, order := range orders {
		if order.ScheduledDate != nil {
			summary.Scheduled++
		}
		if order.Price != nil {
			summary.TotalValue += *order.Price
		}
		if order.Status != "" {
			counts[order.Status]++
		}
	}
	if len(counts) > 0 {
		summary.StatusCounts = counts
		statuses := make([]string, 0, len(counts))
		for status := range counts {
			statuses = append(statuses, status)
		}
		sort.Strings(statuses)
		for _, status := range statuses {
			if summary.TopStatus == "" || counts[status] > counts[summary.TopStatus] {
				summary.TopStatus = status
			}
		}
	}
	return summary
}
