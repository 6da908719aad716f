package report

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const (
	readingsSheet = "Readings"
	dailySheet    = "Daily"
	infoSheet     = "Info"
)

// Excel builds a workbook with the readings, the daily means with a
// clustered column chart, and a summary sheet.
func Excel(doc *Document) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(readingsSheet)
	if err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	if err := writeReadings(f, doc); err != nil {
		return nil, fmt.Errorf("failed to write readings sheet: %w", err)
	}
	if err := writeDaily(f, doc); err != nil {
		return nil, fmt.Errorf("failed to write daily sheet: %w", err)
	}
	if err := writeInfo(f, doc); err != nil {
		return nil, fmt.Errorf("failed to write info sheet: %w", err)
	}

	f.SetActiveSheet(index)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeReadings(f *excelize.File, doc *Document) error {
	headers := []interface{}{"Timestamp", "Systolic (mmHg)", "Diastolic (mmHg)", "Pulse (bpm)"}
	if err := f.SetSheetRow(readingsSheet, "A1", &headers); err != nil {
		return err
	}

	for i, r := range doc.Rows {
		row := []interface{}{r.Timestamp, r.Systolic, r.Diastolic, r.Pulse}
		if err := f.SetSheetRow(readingsSheet, "A"+strconv.Itoa(i+2), &row); err != nil {
			return err
		}
	}

	if err := f.SetColWidth(readingsSheet, "A", "A", 22); err != nil {
		return err
	}
	if err := f.SetColWidth(readingsSheet, "B", "D", 18); err != nil {
		return err
	}

	// Stage 2 hypertension thresholds.
	last := len(doc.Rows) + 1
	rules := []struct {
		col, value string
	}{
		{"B", "140"},
		{"C", "90"},
	}
	for _, rule := range rules {
		ref := fmt.Sprintf("%s2:%s%d", rule.col, rule.col, last)
		err := f.SetConditionalFormat(readingsSheet, ref, []excelize.ConditionalFormatOptions{
			{
				Type:     "cell",
				Criteria: ">=",
				Value:    rule.value,
				Format:   getConditionalFormatStyle(f, "#FFCCCC"),
			},
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func writeDaily(f *excelize.File, doc *Document) error {
	if _, err := f.NewSheet(dailySheet); err != nil {
		return err
	}

	headers := []interface{}{"Date", "Readings", "Systolic", "Diastolic", "Pulse"}
	if err := f.SetSheetRow(dailySheet, "A1", &headers); err != nil {
		return err
	}

	for i, b := range doc.Daily {
		row := []interface{}{b.Label, b.Count, b.Systolic, b.Diastolic, b.Pulse}
		if err := f.SetSheetRow(dailySheet, "A"+strconv.Itoa(i+2), &row); err != nil {
			return err
		}
	}

	last := len(doc.Daily) + 1
	if style := getNumberStyle(f, "0.0"); style != 0 {
		if err := f.SetCellStyle(dailySheet, "C2", fmt.Sprintf("E%d", last), style); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(dailySheet, "A", "E", 14); err != nil {
		return err
	}

	return createChart(f, last)
}

func createChart(f *excelize.File, last int) error {
	categories := fmt.Sprintf("%s!$A$2:$A$%d", dailySheet, last)
	series := make([]excelize.ChartSeries, 0, 3)
	for _, col := range []struct{ name, letter string }{
		{"Systolic", "C"},
		{"Diastolic", "D"},
		{"Pulse", "E"},
	} {
		series = append(series, excelize.ChartSeries{
			Name:       fmt.Sprintf("%s!$%s$1", dailySheet, col.letter),
			Categories: categories,
			Values:     fmt.Sprintf("%s!$%s$2:$%s$%d", dailySheet, col.letter, col.letter, last),
		})
	}

	chart := &excelize.Chart{
		Type:   excelize.Col,
		Series: series,
		Title: []excelize.RichTextRun{
			{
				Text: "Daily Averages",
			},
		},
		XAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		YAxis: excelize.ChartAxis{
			MajorGridLines: true,
		},
		Dimension: excelize.ChartDimension{
			Width:  600,
			Height: 320,
		},
	}

	return f.AddChart(dailySheet, "G2", chart)
}

func writeInfo(f *excelize.File, doc *Document) error {
	if _, err := f.NewSheet(infoSheet); err != nil {
		return err
	}

	s := doc.Stats
	metadata := [][2]interface{}{
		{"Report", doc.Title},
		{"Generated", doc.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Total Readings", s.Count},
		{"Period", fmt.Sprintf("%s to %s", doc.From, doc.To)},
		{"Systolic Range", fmt.Sprintf("%d - %d mmHg", s.MinSystolic, s.MaxSystolic)},
		{"Diastolic Range", fmt.Sprintf("%d - %d mmHg", s.MinDiastolic, s.MaxDiastolic)},
		{"Pulse Range", fmt.Sprintf("%d - %d bpm", s.MinPulse, s.MaxPulse)},
	}

	for i, kv := range metadata {
		row := []interface{}{kv[0], kv[1]}
		if err := f.SetSheetRow(infoSheet, "A"+strconv.Itoa(i+1), &row); err != nil {
			return err
		}
	}
	return f.SetColWidth(infoSheet, "A", "B", 24)
}

func getNumberStyle(f *excelize.File, format string) int {
	style, err := f.NewStyle(&excelize.Style{
		CustomNumFmt: &format,
	})
	if err != nil {
		return 0
	}
	return style
}

func getConditionalFormatStyle(f *excelize.File, color string) *int {
	style, err := f.NewConditionalStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{color},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil
	}
	return &style
}
