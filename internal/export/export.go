// Package export writes parsed transactions in the column layout expected by
// the QuickBooks deposit import.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/Iamcalix/quickbooksupload/internal/parser"
	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// SheetName is the worksheet written by WriteXLSX
const SheetName = "Transactions"

// Columns is the fixed export header
var Columns = []string{
	"Transaction Date",
	"Customer",
	"Payment Method",
	"Deposit To",
	"Reference No",
	"Journal No",
	"Amount",
	"Memo",
	"Country Code",
	"Exchange Rate",
}

type Options struct {
	CountryCode  string
	ExchangeRate string
}

// DefaultOptions are used for empty Options fields
var DefaultOptions = Options{CountryCode: "TZ", ExchangeRate: "1"}

// Row maps one transaction onto the export columns. Journal numbers count
// rows from 1.
func Row(i int, tx statement.Transaction, opts Options) []string {
	opts = withDefaults(opts)

	customer := tx.CustomerName
	if customer == "" {
		customer = tx.CounterpartyName
	}
	memo := tx.MemberID
	if memo == "" {
		memo = tx.AccountOrUserID
	}

	return []string{
		tx.TransactionDate,
		customer,
		tx.PaymentMethod,
		tx.ProductLabel,
		tx.ReferenceID,
		strconv.Itoa(i + 1),
		parser.ParseAmount(tx.Amount).StringFixed(2),
		memo,
		opts.CountryCode,
		opts.ExchangeRate,
	}
}

// WriteCSV writes txns with a header row
func WriteCSV(w io.Writer, txns []statement.Transaction, opts Options) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for i, tx := range txns {
		if err := cw.Write(Row(i, tx, opts)); err != nil {
			return fmt.Errorf("failed to write CSV row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes txns to a workbook with a bold header row
func WriteXLSX(w io.Writer, txns []statement.Transaction, opts Options) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	for i, name := range Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(SheetName, cell, name)
	}

	style, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	first, _ := excelize.CoordinatesToCellName(1, 1)
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	f.SetCellStyle(SheetName, first, last, style)

	for rowIdx, tx := range txns {
		cell, _ := excelize.CoordinatesToCellName(1, rowIdx+2)
		row := Row(rowIdx, tx, opts)
		values := make([]any, len(row))
		for i, v := range row {
			values[i] = v
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", rowIdx+1, err)
		}
	}

	for i, name := range Columns {
		colName, _ := excelize.ColumnNumberToName(i + 1)
		width := float64(len(name) + 4)
		if width < 14 {
			width = 14
		}
		f.SetColWidth(SheetName, colName, colName, width)
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write Excel file: %w", err)
	}
	return nil
}

func withDefaults(opts Options) Options {
	if opts.CountryCode == "" {
		opts.CountryCode = DefaultOptions.CountryCode
	}
	if opts.ExchangeRate == "" {
		opts.ExchangeRate = DefaultOptions.ExchangeRate
	}
	return opts
}
