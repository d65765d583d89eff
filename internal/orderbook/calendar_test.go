package orderbook

import (
	"testing"
	"time"
)

func dateOf(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, ok := CoerceDate(value)
	if !ok {
		t.Fatalf("bad test date %q", value)
	}
	return &parsed
}

func TestCalendarEvents(t *testing.T) {
	orders := []Order{
		{WO: "1001", CustomerName: "Acme", ModelDescription: "Widget A", Status: "Open", ScheduledDate: dateOf(t, "2024-03-15")},
		{WO: "1002", CustomerName: "Globex"},
		{CustomerName: "NoWO", ScheduledDate: dateOf(t, "2024-03-16")},
	}
	events := CalendarEvents(orders)
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	event := events[0]
	if event.ID != "1001" || event.Start != "2024-03-15" || !event.AllDay {
		t.Fatalf("unexpected event: %+v", event)
	}
	if event.Title != "1001 | Acme — Widget A" {
		t.Fatalf("unexpected title: %q", event.Title)
	}
	if event.Background != "#2563eb" {
		t.Fatalf("unexpected color: %+v", event.StatusColors)
	}
	if event.Extended == nil || event.Extended.CustomerName != "Acme" || event.Extended.Sold {
		t.Fatalf("unexpected details: %+v", event.Extended)
	}
}

func TestCalendarEventTitleWithoutModel(t *testing.T) {
	orders := []Order{{WO: "1001", CustomerName: "Acme", ScheduledDate: dateOf(t, "2024-03-15")}}
	if got := CalendarEvents(orders)[0].Title; got != "1001 | Acme" {
		t.Fatalf("unexpected title: %q", got)
	}
}

func TestMaskedCalendarEvents(t *testing.T) {
	orders := []Order{
		{WO: "1001", CustomerName: "Acme", Status: "Open", ScheduledDate: dateOf(t, "2024-03-15")},
		{WO: "1002", CustomerName: "Globex", Status: "Open", ScheduledDate: dateOf(t, "2024-03-16")},
	}
	events := MaskedCalendarEvents(orders, []string{" ACME "})
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "1001" || events[0].Extended.CustomerName != "Acme" {
		t.Fatalf("owned event should keep detail: %+v", events[0])
	}
	masked := events[1]
	if masked.ID != "sold_1002" || masked.Title != "● SOLD" {
		t.Fatalf("unexpected masked event: %+v", masked)
	}
	if masked.StatusColors != SoldColors {
		t.Fatalf("masked event should use sold colors: %+v", masked.StatusColors)
	}
	if masked.Extended == nil || !masked.Extended.Sold || masked.Extended.CustomerName != "" {
		t.Fatalf("masked event leaked detail: %+v", masked.Extended)
	}
}

func TestBuildMonthGrid(t *testing.T) {
	orders := []Order{
		{WO: "1001", CustomerName: "Acme", Status: "Open", ScheduledDate: dateOf(t, "2024-03-15")},
		{WO: "1002", CustomerName: "Globex", Status: "Done", ScheduledDate: dateOf(t, "2024-03-15")},
		{WO: "1003", CustomerName: "Initech", ScheduledDate: dateOf(t, "2024-04-01")},
	}
	grid := BuildMonthGrid(orders, 2024, time.March)
	if grid.Label != "March 2024" {
		t.Fatalf("unexpected label: %q", grid.Label)
	}
	// March 2024 starts on a Friday and spans six Sunday-first weeks.
	if len(grid.Weeks) != 6 {
		t.Fatalf("expected 6 weeks, got %d", len(grid.Weeks))
	}
	firstWeek := grid.Weeks[0]
	for dow := 0; dow < 5; dow++ {
		if firstWeek[dow].Day != 0 {
			t.Fatalf("expected leading blank at %d: %+v", dow, firstWeek[dow])
		}
	}
	if firstWeek[5].Day != 1 {
		t.Fatalf("expected day 1 on friday, got %d", firstWeek[5].Day)
	}

	var cell *MonthCell
	for w := range grid.Weeks {
		for d := range grid.Weeks[w] {
			if grid.Weeks[w][d].Day == 15 {
				cell = &grid.Weeks[w][d]
			}
		}
	}
	if cell == nil || len(cell.Entries) != 2 {
		t.Fatalf("expected 2 entries on the 15th: %+v", cell)
	}
	if cell.Entries[0].WO != "1001" || cell.Entries[0].StatusClass != "open" {
		t.Fatalf("unexpected entry: %+v", cell.Entries[0])
	}
	if cell.Entries[1].StatusClass != "completed" {
		t.Fatalf("expected done to classify as completed: %+v", cell.Entries[1])
	}
}

func TestMaskedMonthGrid(t *testing.T) {
	orders := []Order{
		{WO: "1001", CustomerName: "Acme", ScheduledDate: dateOf(t, "2024-03-15")},
		{WO: "1002", CustomerName: "Globex", ScheduledDate: dateOf(t, "2024-03-15")},
		{WO: "1003", CustomerName: "Globex", ScheduledDate: dateOf(t, "2024-03-20")},
	}
	grid := MaskedMonthGrid(orders, []string{"acme"}, 2024, time.March)

	var fifteenth, twentieth MonthCell
	for _, week := range grid.Weeks {
		for _, cell := range week {
			switch cell.Day {
			case 15:
				fifteenth = cell
			case 20:
				twentieth = cell
			}
		}
	}
	// Mixed day: own entry shown, no sold flag.
	if len(fifteenth.Entries) != 1 || fifteenth.Entries[0].WO != "1001" || fifteenth.Sold {
		t.Fatalf("unexpected mixed day: %+v", fifteenth)
	}
	// Foreign-only day: sold flag, no detail.
	if !twentieth.Sold || len(twentieth.Entries) != 0 {
		t.Fatalf("unexpected foreign day: %+v", twentieth)
	}
}
