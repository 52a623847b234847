package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"geauxclean/internal/domain"
	"geauxclean/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Reporter writes operational reports for the admin side.
type Reporter struct {
	store  domain.Store
	path   string
	logger *zerolog.Logger
}

func NewReporter(store domain.Store, path string, logger *zerolog.Logger) *Reporter {
	return &Reporter{store: store, path: path, logger: logger}
}

// BookingsReport exports all bookings scheduled within [startDate, endDate]
// to an Excel file and returns its path. The file carries one row per
// booking plus a revenue summary block at the bottom.
func (r *Reporter) BookingsReport(ctx context.Context, startDate, endDate time.Time) (string, error) {
	if err := os.MkdirAll(r.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	var services []models.Service
	if err := r.store.Select(ctx, models.TableServices, nil, nil, &services); err != nil {
		return "", fmt.Errorf("error getting services: %v", err)
	}
	serviceNames := make(map[string]string, len(services))
	for _, service := range services {
		serviceNames[service.ID] = service.Name
	}

	var bookings []models.Booking
	err := r.store.Select(ctx, models.TableBookings,
		[]domain.Filter{
			{Column: "scheduled_at", Op: "gte", Value: startDate.Format(time.RFC3339)},
			{Column: "scheduled_at", Op: "lte", Value: endDate.Format(time.RFC3339)},
		},
		&domain.Order{Column: "scheduled_at"},
		&bookings)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Bookings"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Period: %s - %s",
		startDate.Format("01/02/2006"), endDate.Format("01/02/2006")))
	_ = f.MergeCell(sheetName, "A1", "H1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headers := []string{
		"ID", "Service", "Customer", "Email", "Address", "Scheduled", "Status", "Total",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	var total float64
	var completed int
	for i, booking := range bookings {
		row := i + 3
		_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), booking.ID)
		serviceName := serviceNames[booking.ServiceID]
		if serviceName == "" {
			serviceName = booking.ServiceID
		}
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), serviceName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), booking.CustomerName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), booking.CustomerEmail)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), booking.Address)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), booking.ScheduledAt.Format("01/02/2006 15:04"))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), booking.Status)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), booking.TotalPrice)

		if booking.Status == models.StatusCompleted {
			total += booking.TotalPrice
			completed++
		}
	}

	summaryRow := len(bookings) + 4
	summaryStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow), "Completed jobs")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow), completed)
	_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", summaryRow+1), "Revenue (completed)")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", summaryRow+1), total)
	_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("B%d", summaryRow+1), summaryStyle)

	_ = f.SetColWidth(sheetName, "A", "A", 36)
	_ = f.SetColWidth(sheetName, "B", "E", 25)
	_ = f.SetColWidth(sheetName, "F", "F", 18)
	_ = f.SetColWidth(sheetName, "G", "H", 12)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx",
		startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	filePath := filepath.Join(r.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	r.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("Excel report created")
	return filePath, nil
}
