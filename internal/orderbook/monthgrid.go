package orderbook

import "time"

// MonthGrid is a Sunday-first calendar month laid out for print rendering.
type MonthGrid struct {
	Year   int            `json:"year"`
	Month  int            `json:"month"`
	Label  string         `json:"label"`
	Weeks  [][7]MonthCell `json:"weeks"`
	Legend []LegendEntry  `json:"legend"`
}

// MonthCell is one day slot. Day zero marks the leading and trailing blanks
// that pad the first and last week. Sold is set on customer grids for days
// booked entirely by other customers.
type MonthCell struct {
	Day     int          `json:"day"`
	Sold    bool         `json:"sold,omitempty"`
	Entries []MonthEntry `json:"entries,omitempty"`
}

// MonthEntry is one order rendered inside a day cell.
type MonthEntry struct {
	WO               string `json:"wo"`
	CustomerName     string `json:"customer_name,omitempty"`
	ModelDescription string `json:"model_description,omitempty"`
	Status           string `json:"status,omitempty"`
	StatusClass      string `json:"status_class"`
}

// BuildMonthGrid lays out every scheduled order in the given month with full
// detail.
func BuildMonthGrid(orders []Order, year int, month time.Month) MonthGrid {
	return buildGrid(orders, nil, year, month)
}

// MaskedMonthGrid lays out a customer's month: owned orders keep detail, and
// days booked only by other customers are flagged Sold with no entries.
func MaskedMonthGrid(orders []Order, ownedNames []string, year int, month time.Month) MonthGrid {
	return buildGrid(orders, ownedNameSet(ownedNames), year, month)
}

func buildGrid(orders []Order, owned map[string]struct{}, year int, month time.Month) MonthGrid {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// time.Weekday counts Sunday as zero, which is exactly the grid offset.
	offset := int(first.Weekday())
	numDays := first.AddDate(0, 1, -1).Day()

	entriesByDay := make(map[int][]MonthEntry)
	soldDays := make(map[int]bool)
	for _, order := range orders {
		if order.ScheduledDate == nil {
			continue
		}
		scheduled := *order.ScheduledDate
		if scheduled.Year() != year || scheduled.Month() != month {
			continue
		}
		day := scheduled.Day()
		if owned != nil && !ownsCustomer(owned, order.CustomerName) {
			soldDays[day] = true
			continue
		}
		entriesByDay[day] = append(entriesByDay[day], MonthEntry{
			WO:               order.WO,
			CustomerName:     order.CustomerName,
			ModelDescription: order.ModelDescription,
			Status:           order.Status,
			StatusClass:      StatusClass(order.Status),
		})
	}

	grid := MonthGrid{
		Year:   year,
		Month:  int(month),
		Label:  first.Format("January 2006"),
		Legend: StatusLegend(),
	}
	weeks := (offset + numDays + 6) / 7
	day := 1
	for w := 0; w < weeks; w++ {
		var week [7]MonthCell
		for dow := 0; dow < 7; dow++ {
			if (w == 0 && dow < offset) || day > numDays {
				continue
			}
			cell := MonthCell{Day: day, Entries: entriesByDay[day]}
			if soldDays[day] && len(cell.Entries) == 0 {
				cell.Sold = true
			}
			week[dow] = cell
			day++
		}
		grid.Weeks = append(grid.Weeks, week)
	}
	return grid
}
