package export

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"

	"github.com/databot/databot-backend/internal/models"
)

// ErrNoData is returned when there is nothing to export.
var ErrNoData = errors.New("no data to export")

const sheetName = "Results"

// ExcelExporter renders a result set as an in-memory .xlsx artifact.
type ExcelExporter struct {
	logger *logrus.Logger
}

// NewExcelExporter creates an Excel export handler.
func NewExcelExporter(logger *logrus.Logger) *ExcelExporter {
	return &ExcelExporter{logger: logger}
}

// Export writes the result set to a spreadsheet: one header row with
// the column names, then the data rows.
func (e *ExcelExporter) Export(rs *models.ResultSet, queryText string) (*models.Artifact, error) {
	if rs == nil || len(rs.Columns) == 0 || rs.IsEmpty() {
		return nil, ErrNoData
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	header := make([]any, len(rs.Columns))
	for i, col := range rs.Columns {
		header[i] = col
	}
	if err := writeRow(f, 1, header); err != nil {
		return nil, err
	}
	for i, row := range rs.Rows {
		if err := writeRow(f, i+2, row); err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render spreadsheet: %w", err)
	}

	artifact := &models.Artifact{
		Filename: fmt.Sprintf("query_result_%s.xlsx", uuid.New().String()[:8]),
		Content:  buf.Bytes(),
	}
	e.logger.WithFields(logrus.Fields{
		"rows":     rs.RowCount(),
		"columns":  len(rs.Columns),
		"filename": artifact.Filename,
	}).Info("Spreadsheet generated")
	return artifact, nil
}

func writeRow(f *excelize.File, rowNum int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return fmt.Errorf("failed to address row %d: %w", rowNum, err)
	}
	if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", rowNum, err)
	}
	return nil
}
