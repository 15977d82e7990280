package directory

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Iamcalix/quickbooksupload/internal/statement"
)

// Source supplies customer mappings
type Source interface {
	FetchMappings(ctx context.Context) ([]statement.CustomerMapping, error)
}

// column is one field of statement.CustomerMapping with the headers accepted for it
type column struct {
	field   string
	aliases []string
}

const (
	colMemberID      = "member_id"
	colReferenceID   = "reference_id"
	colCustomerName  = "customer_name"
	colAccountNumber = "account_number"
	colProductLabel  = "product_label"
	colNationalID    = "national_id"
)

var columns = []column{
	{colMemberID, []string{"member id", "memberid", "member code", "member no"}},
	{colReferenceID, []string{"reference id", "reference", "ref", "reference no"}},
	{colCustomerName, []string{"customer name", "name", "customer", "full name"}},
	{colAccountNumber, []string{"account number", "account no", "account", "acc no"}},
	{colProductLabel, []string{"product", "product label", "product name"}},
	{colNationalID, []string{"national id", "nida", "nin"}},
}

var (
	headerSeparators = strings.NewReplacer("_", " ", "-", " ", ".", " ")
	wholeFloat       = regexp.MustCompile(`^(\d+)\.0+$`)
)

// FileSource reads mappings from an XLSX or CSV file
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// FetchMappings reads and decodes the file
func (s *FileSource) FetchMappings(ctx context.Context) ([]statement.CustomerMapping, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("reading customer directory %s: %w", s.Path, err)
	}
	return Decode(data)
}

// Decode parses spreadsheet or CSV bytes into customer mappings
func Decode(data []byte) ([]statement.CustomerMapping, error) {
	var (
		rows [][]string
		err  error
	)
	if isExcelFile(data) {
		rows, err = readExcelRows(data)
	} else {
		rows, err = readCSVRows(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	return decodeRows(rows)
}

func readExcelRows(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in Excel file")
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read Excel rows: %w", err)
	}
	return rows, nil
}

func readCSVRows(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV rows: %w", err)
	}
	return rows, nil
}

// decodeRows maps the header row onto known columns and coerces every data row
func decodeRows(rows [][]string) ([]statement.CustomerMapping, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("customer directory is empty")
	}

	columnMap := createHeaderMap(rows[0])
	if _, ok := columnMap[colCustomerName]; !ok {
		return nil, fmt.Errorf("required column 'customer name' not found in header")
	}

	var mappings []statement.CustomerMapping
	for _, row := range rows[1:] {
		get := func(field string) string {
			idx, ok := columnMap[field]
			if !ok || idx >= len(row) {
				return ""
			}
			return coerce(row[idx])
		}

		m := statement.CustomerMapping{
			MemberID:      get(colMemberID),
			ReferenceID:   get(colReferenceID),
			CustomerName:  get(colCustomerName),
			AccountNumber: get(colAccountNumber),
			ProductLabel:  get(colProductLabel),
			NationalID:    get(colNationalID),
		}

		// A row without any key can never be matched
		if m.MemberID == "" && m.ReferenceID == "" && m.AccountNumber == "" {
			continue
		}
		mappings = append(mappings, m)
	}

	return mappings, nil
}

// createHeaderMap returns the index of every recognized column. Unknown
// headers are ignored; the first header matching a column wins.
func createHeaderMap(header []string) map[string]int {
	columnMap := make(map[string]int)

	for i, raw := range header {
		name := normalizeHeader(raw)
		for _, col := range columns {
			if _, taken := columnMap[col.field]; taken {
				continue
			}
			for _, alias := range col.aliases {
				if name == alias {
					columnMap[col.field] = i
					break
				}
			}
		}
	}

	return columnMap
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
	h = headerSeparators.Replace(h)
	return strings.Join(strings.Fields(h), " ")
}

// coerce trims a cell and undoes spreadsheet number formatting of ids (12345.0 -> 12345)
func coerce(v string) string {
	v = strings.TrimSpace(v)
	if m := wholeFloat.FindStringSubmatch(v); m != nil {
		return m[1]
	}
	return v
}

// isExcelFile checks magic bytes for xlsx (ZIP/PK header)
func isExcelFile(data []byte) bool {
	return len(data) >= 4 && data[0] == 0x50 && data[1] == 0x4B && data[2] == 0x03 && data[3] == 0x04
}
