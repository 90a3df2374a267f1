package normalizer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"
)

// oleSignature opens every OLE2 compound file, which is the container of
// legacy BIFF (.xls) workbooks.
var oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}

// legacyMaxColumns bounds the column scan of .xls rows that carry no
// column extent.
const legacyMaxColumns = 256

const (
	oleHeaderSize = 512
	oleEndOfChain = 0xFFFFFFFE
)

type sheetRows struct {
	name string
	rows [][]string
}

// decodeSpreadsheet renders every sheet in workbook order as a
// "--- Sheet: <name> ---" header, one tab-joined line per row and a blank
// separator line. Rows are padded with empty cells to the sheet's widest row.
// OOXML workbooks are read with excelize, legacy BIFF workbooks with xls.
func decodeSpreadsheet(data []byte) (string, error) {
	var (
		sheets []sheetRows
		err    error
	)
	if bytes.HasPrefix(data, oleSignature) {
		sheets, err = readLegacyWorkbook(data)
	} else {
		sheets, err = readWorkbook(data)
	}
	if err != nil {
		return "", err
	}
	return renderSheets(sheets), nil
}

func readWorkbook(data []byte) ([]sheetRows, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var sheets []sheetRows
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, err
		}
		sheets = append(sheets, sheetRows{name: name, rows: rows})
	}
	return sheets, nil
}

// readLegacyWorkbook reads a BIFF workbook. The reader panics on some
// malformed records; those panics are returned as errors.
func readLegacyWorkbook(data []byte) (sheets []sheetRows, err error) {
	defer func() {
		if r := recover(); r != nil {
			sheets, err = nil, fmt.Errorf("malformed xls workbook: %v", r)
		}
	}()

	if err := checkOLEHeader(data); err != nil {
		return nil, err
	}
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, err
	}
	if wb == nil {
		return nil, errors.New("no workbook stream in xls file")
	}

	for i := 0; i < wb.NumSheets(); i++ {
		sheet := wb.GetSheet(i)
		if sheet == nil {
			continue
		}

		var rows [][]string
		last := -1
		for r := 0; r <= int(sheet.MaxRow); r++ {
			cells, ok := legacyRow(sheet, r)
			if ok {
				last = r
			}
			rows = append(rows, cells)
		}
		sheets = append(sheets, sheetRows{name: sheet.Name, rows: rows[:last+1]})
	}
	return sheets, nil
}

// checkOLEHeader rejects compound files whose DIFAT chain cannot reach an
// end, which the xls reader would otherwise follow forever.
func checkOLEHeader(data []byte) error {
	if len(data) < oleHeaderSize {
		return errors.New("truncated xls header")
	}
	difStart := binary.LittleEndian.Uint32(data[0x44:0x48])
	difCount := binary.LittleEndian.Uint32(data[0x48:0x4C])
	sectors := uint32((len(data) - oleHeaderSize) / oleHeaderSize)
	if difCount == 0 && difStart != oleEndOfChain || difCount > 0 && difStart >= sectors {
		return errors.New("invalid xls sector allocation chain")
	}
	return nil
}

// legacyRow returns the cells of row index, or false when the sheet has no
// such row.
func legacyRow(sheet *xls.WorkSheet, index int) (cells []string, ok bool) {
	defer func() {
		if recover() != nil {
			cells, ok = nil, false
		}
	}()

	row := sheet.Row(index)
	limit := row.LastCol()
	if limit <= 0 {
		limit = legacyMaxColumns
	}
	cells = make([]string, limit)
	for c := range cells {
		cells[c] = row.Col(c)
	}
	for len(cells) > 0 && cells[len(cells)-1] == "" {
		cells = cells[:len(cells)-1]
	}
	return cells, true
}

func renderSheets(sheets []sheetRows) string {
	var parts []string
	for _, sheet := range sheets {
		width := 0
		for _, row := range sheet.rows {
			width = max(width, len(row))
		}

		parts = append(parts, "--- Sheet: "+sheet.name+" ---")
		for _, row := range sheet.rows {
			cells := make([]string, width)
			copy(cells, row)
			parts = append(parts, strings.Join(cells, "\t"))
		}
		parts = append(parts, "")
	}
	return strings.Join(parts, "\n")
}
