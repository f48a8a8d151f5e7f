// Package sheets дописывает тарифы строками в Google-таблицу.
package sheets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/Spok95/wb-tariffs/internal/domain/tariffs"
)

var ErrNoSheet = errors.New("spreadsheet has no sheets")

const (
	// 11 колонок: склад, регион и девять тарифов
	columnsRange     = "A:K"
	valueInputOption = "USER_ENTERED"
	insertDataOption = "INSERT_ROWS"
)

// Header: подписи колонок A:K в том же порядке, что и Row.
var Header = []string{
	"warehouse_name", "geo_name",
	"box_delivery_base", "box_delivery_coef_expr", "box_delivery_liter",
	"box_delivery_marketplace_base", "box_delivery_marketplace_coef_expr", "box_delivery_marketplace_liter",
	"box_storage_base", "box_storage_coef_expr", "box_storage_liter",
}

// AppendSummary: итог одного append.
type AppendSummary struct {
	SpreadsheetID string
	Range         string // фактически записанный диапазон
	Rows          int64
	Cells         int64
}

type Sink struct {
	srv *gsheets.Service
}

// New авторизуется сервисным аккаунтом из файла. Ошибка здесь фатальна для процесса.
func New(ctx context.Context, credentialsFile string, opts ...option.ClientOption) (*Sink, error) {
	opts = append([]option.ClientOption{
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gsheets.SpreadsheetsScope),
	}, opts...)
	srv, err := gsheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google sheets client: %w", err)
	}
	return &Sink{srv: srv}, nil
}

// NewWithService оборачивает уже собранный клиент.
func NewWithService(srv *gsheets.Service) *Sink { return &Sink{srv: srv} }

// FirstSheetTitle возвращает название первого листа документа.
func (s *Sink) FirstSheetTitle(ctx context.Context, spreadsheetID string) (string, error) {
	doc, err := s.srv.Spreadsheets.Get(spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("get spreadsheet %s: %w", spreadsheetID, err)
	}
	if len(doc.Sheets) == 0 || doc.Sheets[0].Properties == nil {
		return "", fmt.Errorf("%w: %s", ErrNoSheet, spreadsheetID)
	}
	return doc.Sheets[0].Properties.Title, nil
}

// SaveToGoogleSheet дописывает по строке на тариф в конец первого листа.
func (s *Sink) SaveToGoogleSheet(ctx context.Context, items []tariffs.Tariff, spreadsheetID string) (*AppendSummary, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is empty")
	}
	if len(items) == 0 {
		return &AppendSummary{SpreadsheetID: spreadsheetID}, nil
	}

	title, err := s.FirstSheetTitle(ctx, spreadsheetID)
	if err != nil {
		return nil, err
	}
	rng := A1Range(title)

	values := make([][]any, 0, len(items))
	for _, t := range items {
		values = append(values, Row(t))
	}

	resp, err := s.srv.Spreadsheets.Values.Append(spreadsheetID, rng, &gsheets.ValueRange{Values: values}).
		ValueInputOption(valueInputOption).
		InsertDataOption(insertDataOption).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("append %s: %w", rng, err)
	}

	sum := &AppendSummary{SpreadsheetID: spreadsheetID, Range: rng}
	if resp.Updates != nil {
		sum.Range = resp.Updates.UpdatedRange
		sum.Rows = resp.Updates.UpdatedRows
		sum.Cells = resp.Updates.UpdatedCells
	}
	return sum, nil
}

// A1Range возвращает диапазон A:K на листе. Название берётся в кавычки, кавычки внутри удваиваются.
func A1Range(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + columnsRange
}

// Row собирает строку листа. Числа пишутся числами, включая 0, как и в БД.
func Row(t tariffs.Tariff) []any {
	return []any{
		t.WarehouseName, t.GeoName,
		t.BoxDeliveryBase, t.BoxDeliveryCoefExpr, t.BoxDeliveryLiter,
		t.BoxDeliveryMarketplaceBase, t.BoxDeliveryMarketplaceCoefExpr, t.BoxDeliveryMarketplaceLiter,
		t.BoxStorageBase, t.BoxStorageCoefExpr, t.BoxStorageLiter,
	}
}
