package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSVExporterRendersInHeaderOrder(t *testing.T) {
	data := Dataset{
		Headers: []string{"Booking ID", "Family", "Room"},
		Rows: []map[string]string{
			{"Booking ID": "bk-1", "Family": "לוי", "Room": "9"},
			{"Booking ID": "bk-2", "Room": "10"},
		},
	}

	payload, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	assert.True(t, bytes.HasPrefix(payload, utf8BOM))
	body := string(bytes.TrimPrefix(payload, utf8BOM))
	assert.Equal(t, "Booking ID,Family,Room\nbk-1,לוי,9\nbk-2,,10\n", body)
}

func TestCSVExporterRequiresHeaders(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}
