// Package orderbook turns raw spreadsheet tables of production orders into a
// canonical, filtered row set and provides the calendar/grid projections built
// on top of it.
package orderbook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	ColWO               = "WO"
	ColQuote            = "Quote"
	ColPONumber         = "PO Number"
	ColStatus           = "Status"
	ColCustomerName     = "Customer Name"
	ColModelDescription = "Model Description"
	ColScheduledDate    = "Scheduled Date"
	ColPrice            = "Price"
)

// RequiredColumns is the canonical schema in declared order. Callers that pass
// their own required set to Normalize must keep this order for these names.
var RequiredColumns = []string{
	ColWO,
	ColQuote,
	ColPONumber,
	ColStatus,
	ColCustomerName,
	ColModelDescription,
	ColScheduledDate,
	ColPrice,
}

// DefaultAliases maps normalized header spellings to canonical column names.
// Keys must already be in NormalizeHeader form.
var DefaultAliases = map[string]string{
	"wo":                ColWO,
	"work order":        ColWO,
	"workorder":         ColWO,
	"quote":             ColQuote,
	"quotation":         ColQuote,
	"po number":         ColPONumber,
	"po #":              ColPONumber,
	"po#":               ColPONumber,
	"ponumber":          ColPONumber,
	"purchase order":    ColPONumber,
	"status":            ColStatus,
	"customer":          ColCustomerName,
	"customer name":     ColCustomerName,
	"client":            ColCustomerName,
	"client name":       ColCustomerName,
	"model description": ColModelDescription,
	"description":       ColModelDescription,
	"model":             ColModelDescription,
	"scheduled date":    ColScheduledDate,
	"schedule date":     ColScheduledDate,
	"scheduled":         ColScheduledDate,
	"ship date":         ColScheduledDate,
	"delivery date":     ColScheduledDate,
	"date":              ColScheduledDate,
	"price":             ColPrice,
	"amount":            ColPrice,
	"value":             ColPrice,
}

// Order is one normalized production order. The six text fields are never
// "null"; absence is the empty string. ScheduledDate and Price use nil as
// their missing marker since they are typed, not textual.
type Order struct {
	WO               string            `json:"wo"`
	Quote            string            `json:"quote"`
	PONumber         string            `json:"po_number"`
	Status           string            `json:"status"`
	CustomerName     string            `json:"customer_name"`
	ModelDescription string            `json:"model_description"`
	ScheduledDate    *time.Time        `json:"scheduled_date,omitempty"`
	Price            *float64          `json:"price,omitempty"`
	Extra            map[string]string `json:"extra,omitempty"`
}

// Table is the output of Normalize: columns in canonical-first order and the
// surviving rows in their original relative order.
type Table struct {
	Columns []string `json:"columns"`
	Orders  []Order  `json:"orders"`
}

// SchemaError reports required canonical columns that could not be resolved
// after alias lookup. It is returned before any row is processed.
type SchemaError struct {
	Missing []string
	Found   []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required columns: %s (found: %s)",
		strings.Join(e.Missing, ", "), strings.Join(e.Found, ", "))
}

var woDigitsPattern = regexp.MustCompile(`^\d+$`)

// Normalize runs the full pipeline over a raw table whose first row is the
// header row: resolve columns through the alias table, coerce every required
// column to its canonical type, then drop summary and blank artifact rows.
// Row order is preserved. The error, when non-nil, is always a *SchemaError.
func Normalize(rows [][]string, aliases map[string]string, required []string) (*Table, error) {
	if len(aliases) == 0 {
		aliases = DefaultAliases
	}
	if len(required) == 0 {
		required = RequiredColumns
	}

	var headers []string
	if len(rows) > 0 {
		headers = rows[0]
	}

	canonicalIdx, extras, found := resolveColumns(headers, aliases, required)

	var missing []string
	for _, name := range required {
		if _, ok := canonicalIdx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{Missing: missing, Found: found}
	}

	columns := make([]string, 0, len(required)+len(extras))
	columns = append(columns, required...)
	for _, ex := range extras {
		columns = append(columns, ex.name)
	}

	orders := make([]Order, 0, max(0, len(rows)-1))
	for _, row := range rows[1:] {
		order := coerceRow(row, canonicalIdx, extras)
		if isSummaryRow(order) || isBlankRow(order) {
			continue
		}
		orders = append(orders, order)
	}

	return &Table{Columns: columns, Orders: orders}, nil
}

type extraColumn struct {
	name  string
	index int
}

// resolveColumns maps each raw header to a canonical name via the alias table
// or keeps it (trimmed) as an extra. The first header resolving to a canonical
// name binds it; later duplicates are ignored. Headers that trim to the empty
// string carry no addressable data and are skipped.
func resolveColumns(headers []string, aliases map[string]string, required []string) (map[string]int, []extraColumn, []string) {
	requiredSet := make(map[string]struct{}, len(required))
	for _, name := range required {
		requiredSet[name] = struct{}{}
	}

	canonicalIdx := make(map[string]int, len(required))
	var extras []extraColumn
	extraSeen := map[string]struct{}{}
	var found []string

	for i, header := range headers {
		name := strings.TrimSpace(header)
		if canonical, ok := aliases[NormalizeHeader(header)]; ok {
			name = canonical
		}
		if name == "" {
			continue
		}
		found = append(found, name)

		if _, isRequired := requiredSet[name]; isRequired {
			if _, bound := canonicalIdx[name]; !bound {
				canonicalIdx[name] = i
			}
			continue
		}
		if _, seen := extraSeen[name]; seen {
			continue
		}
		extraSeen[name] = struct{}{}
		extras = append(extras, extraColumn{name: name, index: i})
	}

	return canonicalIdx, extras, found
}

func coerceRow(row []string, canonicalIdx map[string]int, extras []extraColumn) Order {
	// A canonical column outside the required set has no binding; its cells
	// read as absent rather than falling back to index zero.
	cell := func(name string) string {
		idx, ok := canonicalIdx[name]
		if !ok {
			return ""
		}
		return cellValue(row, idx)
	}
	order := Order{
		WO:               CoerceText(cell(ColWO)),
		Quote:            CoerceText(cell(ColQuote)),
		PONumber:         CoerceText(cell(ColPONumber)),
		Status:           CoerceText(cell(ColStatus)),
		CustomerName:     CoerceText(cell(ColCustomerName)),
		ModelDescription: CoerceText(cell(ColModelDescription)),
	}
	if date, ok := CoerceDate(cell(ColScheduledDate)); ok {
		order.ScheduledDate = &date
	}
	if price, ok := CoercePrice(cell(ColPrice)); ok {
		order.Price = &price
	}
	for _, ex := range extras {
		value := cellValue(row, ex.index)
		if value == "" {
			continue
		}
		if order.Extra == nil {
			order.Extra = make(map[string]string)
		}
		order.Extra[ex.name] = value
	}
	return order
}

func cellValue(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// isSummaryRow matches the trailing count/total footer shape spreadsheet
// exports leave behind: a bare digit run in WO, every other text field empty,
// no date, and a price. A numeric WO with any other field set never matches.
func isSummaryRow(o Order) bool {
	if !woDigitsPattern.MatchString(o.WO) {
		return false
	}
	if o.Quote != "" || o.PONumber != "" || o.Status != "" || o.CustomerName != "" || o.ModelDescription != "" {
		return false
	}
	return o.ScheduledDate == nil && o.Price != nil
}

func isBlankRow(o Order) bool {
	if o.WO != "" || o.Quote != "" || o.PONumber != "" || o.Status != "" || o.CustomerName != "" || o.ModelDescription != "" {
		return false
	}
	return o.ScheduledDate == nil && o.Price == nil
}

// Identified reports whether an edited row still denotes an order. Rows posted
// back from interactive table edits are kept only when at least one of the WO,
// customer, or model fields survives coercion.
func (o Order) Identified() bool {
	return o.WO != "" || o.CustomerName != "" || o.ModelDescription != ""
}

// Clean re-applies field coercion to an order that arrived already typed, such
// as a row posted back from a table edit: text fields are scrubbed and the
// scheduled date is truncated to a calendar date.
func (o Order) Clean() Order {
	out := o
	out.WO = CoerceText(o.WO)
	out.Quote = CoerceText(o.Quote)
	out.PONumber = CoerceText(o.PONumber)
	out.Status = CoerceText(o.Status)
	out.CustomerName = CoerceText(o.CustomerName)
	out.ModelDescription = CoerceText(o.ModelDescription)
	if o.ScheduledDate != nil {
		truncated := TruncateToDate(*o.ScheduledDate)
		out.ScheduledDate = &truncated
	}
	return out
}

// RawRows renders the table back to header-plus-cells form: dates as
// 2006-01-02, prices in shortest decimal form, missing values as empty cells.
// Feeding the result back through Normalize reproduces the same table.
func (t *Table) RawRows() [][]string {
	rows := make([][]string, 0, len(t.Orders)+1)
	header := make([]string, len(t.Columns))
	copy(header, t.Columns)
	rows = append(rows, header)

	for _, order := range t.Orders {
		row := make([]string, len(t.Columns))
		for i, column := range t.Columns {
			row[i] = order.cellText(column)
		}
		rows = append(rows, row)
	}
	return rows
}

func (o Order) cellText(column string) string {
	switch column {
	case ColWO:
		return o.WO
	case ColQuote:
		return o.Quote
	case ColPONumber:
		return o.PONumber
	case ColStatus:
		return o.Status
	case ColCustomerName:
		return o.CustomerName
	case ColModelDescription:
		return o.ModelDescription
	case ColScheduledDate:
		if o.ScheduledDate == nil {
			return ""
		}
		return o.ScheduledDate.Format("2006-01-02")
	case ColPrice:
		if o.Price == nil {
			return ""
		}
		return strconv.FormatFloat(*o.Price, 'f', -1, 64)
	default:
		return o.Extra[column]
	}
}
