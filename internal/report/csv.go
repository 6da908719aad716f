package report

import (
	"bytes"
	"encoding/csv"
	"strconv"

	"bptracker/internal/models"
)

// CSV writes one row per reading under a header row.
func CSV(rows []models.ReadingView) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"timestamp", "systolic", "diastolic", "pulse"}); err != nil {
		return nil, err
	}
	for _, r := range rows {
		record := []string{
			r.Timestamp,
			strconv.Itoa(r.Systolic),
			strconv.Itoa(r.Diastolic),
			strconv.Itoa(r.Pulse),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
