package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/prodimagery/product-imagery-service/internal/domain/entity"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Products"

var headers = []string{
	"Name", "Confidence", "Timestamp (s)", "Description",
	"Frame Image", "Isolated Image", "Enhanced Images",
}

// ExcelWriter renders the detected product catalog as an xlsx workbook, one
// row per product record in detection order.
type ExcelWriter struct{}

func NewExcelWriter() *ExcelWriter {
	return &ExcelWriter{}
}

func (w *ExcelWriter) WriteReport(ctx context.Context, products []*entity.ProductRecord, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}

	for i, product := range products {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		row := []interface{}{
			product.Name,
			product.Confidence,
			product.Timestamp,
			product.Description,
			product.FrameImagePath,
			product.IsolatedImagePath,
			strings.Join(product.EnhancedImagePaths, "\n"),
		}
		startCell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("row cell: %w", err)
		}
		if err := f.SetSheetRow(sheetName, startCell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save report: %w", err)
	}
	return nil
}
