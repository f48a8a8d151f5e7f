// Package export выгружает сохранённые тарифы в Excel.
package export

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/wb-tariffs/internal/domain/tariffs"
)

const sheetName = "tariffs"

var header = []interface{}{
	"spreadsheet_id",
	"warehouse_name",
	"geo_name",
	"box_delivery_base",
	"box_delivery_coef_expr",
	"box_delivery_liter",
	"box_delivery_marketplace_base",
	"box_delivery_marketplace_coef_expr",
	"box_delivery_marketplace_liter",
	"box_storage_base",
	"box_storage_coef_expr",
	"box_storage_liter",
	"created_at",
	"updated_at",
}

// WriteXLSX пишет книгу с одним листом: заголовок и строка на запись.
func WriteXLSX(w io.Writer, records []tariffs.Record) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	def := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetName(def, sheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return fmt.Errorf("header: %w", err)
	}

	row := 2
	for _, r := range records {
		excelRow := []interface{}{
			r.ID,
			r.WarehouseName,
			r.GeoName,
			r.BoxDeliveryBase,
			r.BoxDeliveryCoefExpr,
			r.BoxDeliveryLiter,
			r.BoxDeliveryMarketplaceBase,
			r.BoxDeliveryMarketplaceCoefExpr,
			r.BoxDeliveryMarketplaceLiter,
			r.BoxStorageBase,
			r.BoxStorageCoefExpr,
			r.BoxStorageLiter,
			r.CreatedAt.Format(time.RFC3339),
			r.UpdatedAt.Format(time.RFC3339),
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheetName, cell, &excelRow); err != nil {
			return fmt.Errorf("row %d: %w", row, err)
		}
		row++
	}

	return f.Write(w)
}

// Bytes пишет книгу в память, для вложений в Telegram.
func Bytes(records []tariffs.Record) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := WriteXLSX(buf, records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName даёт имя файла выгрузки с отметкой времени.
func FileName(now time.Time) string {
	return fmt.Sprintf("tariffs_%s.xlsx", now.Format("20060102_150405"))
}
