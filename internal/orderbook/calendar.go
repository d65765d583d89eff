package orderbook

import "strings"

// CalendarEvent is the FullCalendar-compatible event shape. The color triple
// is flattened into the top-level object.
type CalendarEvent struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Start  string `json:"start"`
	AllDay bool   `json:"allDay"`
	StatusColors
	Extended *EventDetails `json:"extendedProps,omitempty"`
}

// EventDetails carries the popover fields for an event. Masked events expose
// only the Sold flag.
type EventDetails struct {
	WO               string `json:"wo,omitempty"`
	CustomerName     string `json:"customer_name,omitempty"`
	ModelDescription string `json:"model_description,omitempty"`
	Status           string `json:"status,omitempty"`
	Sold             bool   `json:"sold,omitempty"`
}

// CalendarEvents projects orders onto calendar events with full detail. Rows
// without a WO or a scheduled date have no calendar identity and are skipped.
func CalendarEvents(orders []Order) []CalendarEvent {
	events := make([]CalendarEvent, 0, len(orders))
	for _, order := range orders {
		if order.WO == "" || order.ScheduledDate == nil {
			continue
		}
		events = append(events, fullEvent(order))
	}
	return events
}

// MaskedCalendarEvents projects orders for a customer login: orders belonging
// to one of ownedNames keep full detail, every other booked date collapses to
// a gray SOLD block so nothing about other customers leaks.
func MaskedCalendarEvents(orders []Order, ownedNames []string) []CalendarEvent {
	owned := ownedNameSet(ownedNames)
	events := make([]CalendarEvent, 0, len(orders))
	for _, order := range orders {
		if order.WO == "" || order.ScheduledDate == nil {
			continue
		}
		if ownsCustomer(owned, order.CustomerName) {
			events = append(events, fullEvent(order))
			continue
		}
		events = append(events, CalendarEvent{
			ID:           "sold_" + order.WO,
			Title:        "● SOLD",
			Start:        order.ScheduledDate.Format("2006-01-02"),
			AllDay:       true,
			StatusColors: SoldColors,
			Extended:     &EventDetails{Sold: true},
		})
	}
	return events
}

// OwnedOrders returns the subset of orders whose customer name matches one of
// ownedNames, compared trimmed and case-insensitively. Order is preserved.
func OwnedOrders(orders []Order, ownedNames []string) []Order {
	owned := ownedNameSet(ownedNames)
	kept := make([]Order, 0, len(orders))
	for _, order := range orders {
		if ownsCustomer(owned, order.CustomerName) {
			kept = append(kept, order)
		}
	}
	return kept
}

func fullEvent(order Order) CalendarEvent {
	return CalendarEvent{
		ID:           order.WO,
		Title:        eventTitle(order),
		Start:        order.ScheduledDate.Format("2006-01-02"),
		AllDay:       true,
		StatusColors: ColorsForStatus(order.Status),
		Extended: &EventDetails{
			WO:               order.WO,
			CustomerName:     order.CustomerName,
			ModelDescription: order.ModelDescription,
			Status:           order.Status,
		},
	}
}

func eventTitle(order Order) string {
	parts := make([]string, 0, 2)
	if order.WO != "" {
		parts = append(parts, order.WO)
	}
	if order.CustomerName != "" {
		parts = append(parts, order.CustomerName)
	}
	title := strings.Join(parts, " | ")
	if order.ModelDescription != "" {
		title += " — " + order.ModelDescription
	}
	return title
}

func ownedNameSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "" {
			set[name] = struct{}{}
		}
	}
	return set
}

func ownsCustomer(owned map[string]struct{}, customer string) bool {
	_, ok := owned[strings.ToLower(strings.TrimSpace(customer))]
	return ok
}
