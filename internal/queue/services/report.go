package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/bematende/bematende-backend/internal/queue/models"
)

var reportHeaders = []string{"ID", "Name", "Classification", "Status", "Arrived At", "Facility"}

var reportSheets = []struct {
	name  string
	stage models.Stage
}{
	{"Pre-Consultation", models.StagePreConsultation},
	{"Medical Care", models.StageInCare},
	{"Finished", models.StageFinished},
}

// Report membuat file xlsx berisi pasien hari ini, satu sheet per tahap.
func (v *QueueView) Report(ctx context.Context, facilityID string) ([]byte, error) {
	now := v.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()).UnixMilli()

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	for i, sheet := range reportSheets {
		patients, err := v.store.ListByStage(ctx, sheet.stage, facilityID)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sheet.name); err != nil {
				return nil, fmt.Errorf("rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(sheet.name); err != nil {
			return nil, fmt.Errorf("create sheet: %w", err)
		}

		for col, header := range reportHeaders {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := f.SetCellValue(sheet.name, cell, header); err != nil {
				return nil, fmt.Errorf("set header %s: %w", cell, err)
			}
		}
		if err := f.SetCellStyle(sheet.name, "A1", "F1", headerStyle); err != nil {
			return nil, fmt.Errorf("set header style: %w", err)
		}
		if err := f.SetColWidth(sheet.name, "A", "A", 38); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}
		if err := f.SetColWidth(sheet.name, "B", "B", 30); err != nil {
			return nil, fmt.Errorf("set column width: %w", err)
		}

		row := 2
		for _, p := range Order(patients, models.OrderUrgentFirst) {
			if p.CreatedAt < dayStart {
				continue
			}
			values := []interface{}{
				p.ID,
				p.Name,
				string(p.Classification),
				string(p.Status),
				time.UnixMilli(p.CreatedAt).In(now.Location()).Format("15:04:05"),
				p.FacilityID,
			}
			for col, value := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, row)
				if err := f.SetCellValue(sheet.name, cell, value); err != nil {
					return nil, fmt.Errorf("set cell %s: %w", cell, err)
				}
			}
			row++
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}
	return buf.Bytes(), nil
}
