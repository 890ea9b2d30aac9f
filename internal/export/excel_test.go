package export

import (
	"bytes"
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/databot/databot-backend/internal/models"
)

func newExporter() *ExcelExporter {
	logg := logrus.New()
	logg.SetOutput(io.Discard)
	return NewExcelExporter(logg)
}

func TestExport(t *testing.T) {
	rs := &models.ResultSet{
		Columns: []string{"city", "players"},
		Rows: [][]any{
			{"Riga", 120},
			{"Tallinn", 85},
		},
	}

	artifact, err := newExporter().Export(rs, "SELECT city, count(*) FROM users GROUP BY city")
	require.NoError(t, err)
	assert.Regexp(t, `^query_result_[0-9a-f-]{8}\.xlsx$`, artifact.Filename)
	require.NotEmpty(t, artifact.Content)

	// Read the workbook back and check the cells
	f, err := excelize.OpenReader(bytes.NewReader(artifact.Content))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Results")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"city", "players"}, rows[0])
	assert.Equal(t, []string{"Riga", "120"}, rows[1])
	assert.Equal(t, []string{"Tallinn", "85"}, rows[2])
}

func TestExport_NoData(t *testing.T) {
	exporter := newExporter()

	_, err := exporter.Export(nil, "")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = exporter.Export(&models.ResultSet{}, "")
	assert.ErrorIs(t, err, ErrNoData)

	_, err = exporter.Export(&models.ResultSet{Columns: []string{"city"}}, "SELECT city FROM users")
	assert.ErrorIs(t, err, ErrNoData)
}
