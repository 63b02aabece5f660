// Package export produces XLSX workbooks for committed schemes so the
// sales-ops team can review payouts outside the service.
package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/anubhav-nekko/cw-dns/internal/commit"
)

// Service is a tiny façade over the commit gateway that renders one
// committed scheme as an XLSX workbook.
type Service struct {
	gateway *commit.Gateway
	logger  *slog.Logger
}

func NewService(gateway *commit.Gateway, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{gateway: gateway, logger: logger}
}

// ExportSchemeXLSX returns an XLSX workbook (as bytes) for one committed
// scheme: a summary sheet, a tier sheet, and a free-items sheet.
func (s *Service) ExportSchemeXLSX(ctx context.Context, schemeID uuid.UUID) ([]byte, error) {
	start := time.Now()

	sch, err := s.gateway.Scheme(ctx, schemeID)
	if err != nil {
		return nil, fmt.Errorf("load scheme: %w", err)
	}

	f := excelize.NewFile()

	if err := s.writeSummary(f, sch); err != nil {
		return nil, err
	}
	if err := s.writeTiers(f, sch); err != nil {
		return nil, err
	}
	if err := s.writeFreeItems(f, sch); err != nil {
		return nil, err
	}

	// excelize seeds a default "Sheet1"; drop it once our sheets exist.
	if idx, _ := f.GetSheetIndex("Sheet1"); idx != -1 {
		_ = f.DeleteSheet("Sheet1")
	}
	if idx, _ := f.GetSheetIndex("Summary"); idx != -1 {
		f.SetActiveSheet(idx)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"scheme_id", schemeID.String(),
		"tiers", len(sch.Tiers),
		"free_items", len(sch.FreeItems),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeSummary(f *excelize.File, sch *commit.Scheme) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	write := func(row int, label string, v any) {
		cellA, _ := excelize.CoordinatesToCellName(1, row)
		cellB, _ := excelize.CoordinatesToCellName(2, row)
		_ = f.SetCellValue(sheet, cellA, label)
		_ = f.SetCellValue(sheet, cellB, v)
	}

	write(1, "Scheme Name", sch.Name)
	write(2, "Valid From", formatDate(sch.ValidFrom))
	write(3, "Valid To", formatDate(sch.ValidTo))
	write(4, "Region", sch.Region)
	write(5, "Dealer Eligibility", sch.DealerEligibility)
	write(6, "Source Document", sch.SourceID)

	skus := make([]string, 0, len(sch.Products))
	for _, p := range sch.Products {
		label := p.SKU
		if p.Name != "" {
			label = fmt.Sprintf("%s (%s)", p.SKU, p.Name)
		}
		skus = append(skus, label)
	}
	write(7, "Products", strings.Join(skus, ", "))

	_ = f.SetColWidth(sheet, "A", "A", 20)
	_ = f.SetColWidth(sheet, "B", "B", 60)
	return nil
}

func (s *Service) writeTiers(f *excelize.File, sch *commit.Scheme) error {
	const sheet = "Tiers"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Tier", "Lower", "Upper", "Unit", "Payout"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for i, t := range sch.Tiers {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, i+1)
		write(2, t.Lower.String())
		if t.Upper != nil {
			write(3, t.Upper.String())
		} else {
			write(3, "open")
		}
		write(4, t.Unit)
		if t.PayoutText != "" {
			write(5, t.PayoutText)
		} else {
			write(5, t.Payout.String())
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 8)
	_ = f.SetColWidth(sheet, "B", "C", 14)
	_ = f.SetColWidth(sheet, "D", "D", 12)
	_ = f.SetColWidth(sheet, "E", "E", 18)
	return nil
}

func (s *Service) writeFreeItems(f *excelize.File, sch *commit.Scheme) error {
	const sheet = "Free Items"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	headers := []string{"Item", "Trigger", "Value"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	row := 2
	for _, fi := range sch.FreeItems {
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, v)
		}
		write(1, fi.Item)
		write(2, fi.Trigger)
		if fi.Value != nil {
			write(3, fi.Value.String())
		}
		row++
	}

	_ = f.SetColWidth(sheet, "A", "A", 36)
	_ = f.SetColWidth(sheet, "B", "B", 24)
	_ = f.SetColWidth(sheet, "C", "C", 12)
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
