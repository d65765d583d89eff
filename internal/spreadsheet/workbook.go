package spreadsheet

import (
	"github.com/xuri/excelize/v2"

	"github.com/mrkishore97/production-scheduler-v3/internal/orderbook"
)

// DefaultSheetName is the sheet used for full exports; customer-scoped
// exports pass their own name.
const DefaultSheetName = "Order Book"

var (
	dateNumFmt  = "yyyy-mm-dd"
	priceNumFmt = `"$"#,##0.00`
)

// BuildWorkbook renders a normalized table to xlsx bytes: dates and prices as
// typed cells with display formats, column widths fitted to content.
func BuildWorkbook(table *orderbook.Table, sheetName string) ([]byte, error) {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()
	if err := file.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, err
	}

	dateCol, priceCol := -1, -1
	for i, column := range table.Columns {
		switch column {
		case orderbook.ColScheduledDate:
			dateCol = i
		case orderbook.ColPrice:
			priceCol = i
		}
	}

	rows := table.RawRows()
	for r, row := range rows {
		for c, value := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, err
			}
			if r == 0 {
				if err := file.SetCellValue(sheetName, cell, value); err != nil {
					return nil, err
				}
				continue
			}
			order := table.Orders[r-1]
			switch {
			case c == dateCol && order.ScheduledDate != nil:
				err = file.SetCellValue(sheetName, cell, *order.ScheduledDate)
			case c == priceCol && order.Price != nil:
				err = file.SetCellValue(sheetName, cell, *order.Price)
			case value != "":
				err = file.SetCellValue(sheetName, cell, value)
			}
			if err != nil {
				return nil, err
			}
		}
	}

	if len(table.Orders) > 0 {
		lastRow := len(table.Orders) + 1
		if dateCol >= 0 {
			styleID, err := file.NewStyle(&excelize.Style{CustomNumFmt: &dateNumFmt})
			if err != nil {
				return nil, err
			}
			if err := styleColumn(file, sheetName, dateCol, lastRow, styleID); err != nil {
				return nil, err
			}
		}
		if priceCol >= 0 {
			styleID, err := file.NewStyle(&excelize.Style{CustomNumFmt: &priceNumFmt})
			if err != nil {
				return nil, err
			}
			if err := styleColumn(file, sheetName, priceCol, lastRow, styleID); err != nil {
				return nil, err
			}
		}
	}

	for i, column := range table.Columns {
		maxLen := len(column)
		for _, row := range rows[1:] {
			if i < len(row) && len(row[i]) > maxLen {
				maxLen = len(row[i])
			}
		}
		width := maxLen + 2
		if width < 10 {
			width = 10
		}
		if width > 60 {
			width = 60
		}
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := file.SetColWidth(sheetName, name, name, float64(width)); err != nil {
			return nil, err
		}
	}

	buffer, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buffer.Bytes(), nil
}

func styleColumn(file *excelize.File, sheet string, col, lastRow, styleID int) error {
	top, err := excelize.CoordinatesToCellName(col+1, 2)
	if err != nil {
		return err
	}
	bottom, err := excelize.CoordinatesToCellName(col+1, lastRow)
	if err != nil {
		return err
	}
	return file.SetCellStyle(sheet, top, bottom, styleID)
}
