package tariffs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tariff: тариф короба по складу WB в каноническом виде.
type Tariff struct {
	WarehouseName                  string  `json:"warehouse_name"`
	GeoName                        string  `json:"geo_name"`
	BoxDeliveryBase                float64 `json:"box_delivery_base"`
	BoxDeliveryCoefExpr            float64 `json:"box_delivery_coef_expr"`
	BoxDeliveryLiter               float64 `json:"box_delivery_liter"`
	BoxDeliveryMarketplaceBase     float64 `json:"box_delivery_marketplace_base"`
	BoxDeliveryMarketplaceCoefExpr float64 `json:"box_delivery_marketplace_coef_expr"`
	BoxDeliveryMarketplaceLiter    float64 `json:"box_delivery_marketplace_liter"`
	BoxStorageBase                 float64 `json:"box_storage_base"`
	BoxStorageCoefExpr             float64 `json:"box_storage_coef_expr"`
	BoxStorageLiter                float64 `json:"box_storage_liter"`
}

// Record: сохранённая строка таблицы spreadsheets.
type Record struct {
	ID int64 `json:"spreadsheet_id"`
	Tariff
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Patch: частичное обновление записи, nil-поля не трогаем.
type Patch struct {
	WarehouseName                  *string  `json:"warehouse_name"`
	GeoName                        *string  `json:"geo_name"`
	BoxDeliveryBase                *float64 `json:"box_delivery_base"`
	BoxDeliveryCoefExpr            *float64 `json:"box_delivery_coef_expr"`
	BoxDeliveryLiter               *float64 `json:"box_delivery_liter"`
	BoxDeliveryMarketplaceBase     *float64 `json:"box_delivery_marketplace_base"`
	BoxDeliveryMarketplaceCoefExpr *float64 `json:"box_delivery_marketplace_coef_expr"`
	BoxDeliveryMarketplaceLiter    *float64 `json:"box_delivery_marketplace_liter"`
	BoxStorageBase                 *float64 `json:"box_storage_base"`
	BoxStorageCoefExpr             *float64 `json:"box_storage_coef_expr"`
	BoxStorageLiter                *float64 `json:"box_storage_liter"`
}

// Empty сообщает, что в патче нет ни одного поля.
func (p Patch) Empty() bool {
	return len(p.assignments()) == 0
}

// Validate: имена не пустые, числа не отрицательные.
func (p Patch) Validate() error {
	if p.WarehouseName != nil && strings.TrimSpace(*p.WarehouseName) == "" {
		return errors.New("warehouse_name must not be empty")
	}
	if p.GeoName != nil && strings.TrimSpace(*p.GeoName) == "" {
		return errors.New("geo_name must not be empty")
	}
	for _, a := range p.assignments() {
		if v, ok := a.value.(float64); ok && v < 0 {
			return fmt.Errorf("%s: %w", a.column, ErrNegative)
		}
	}
	return nil
}

type assignment struct {
	column string
	value  any
}

// assignments раскладывает патч по колонкам в фиксированном порядке.
func (p Patch) assignments() []assignment {
	var out []assignment
	if p.WarehouseName != nil {
		out = append(out, assignment{"warehouse_name", *p.WarehouseName})
	}
	if p.GeoName != nil {
		out = append(out, assignment{"geo_name", *p.GeoName})
	}
	nums := []struct {
		column string
		v      *float64
	}{
		{"box_delivery_base", p.BoxDeliveryBase},
		{"box_delivery_coef_expr", p.BoxDeliveryCoefExpr},
		{"box_delivery_liter", p.BoxDeliveryLiter},
		{"box_delivery_marketplace_base", p.BoxDeliveryMarketplaceBase},
		{"box_delivery_marketplace_coef_expr", p.BoxDeliveryMarketplaceCoefExpr},
		{"box_delivery_marketplace_liter", p.BoxDeliveryMarketplaceLiter},
		{"box_storage_base", p.BoxStorageBase},
		{"box_storage_coef_expr", p.BoxStorageCoefExpr},
		{"box_storage_liter", p.BoxStorageLiter},
	}
	for _, n := range nums {
		if n.v != nil {
			out = append(out, assignment{n.column, *n.v})
		}
	}
	return out
}

// RawTariff: запись warehouseList в том виде, в каком её отдаёт WB (или мок).
// Текстовые поля nil, если ключа в ответе не было.
type RawTariff struct {
	WarehouseName                  *string   `json:"warehouseName"`
	GeoName                        *string   `json:"geoName"`
	BoxDeliveryBase                RawNumber `json:"boxDeliveryBase"`
	BoxDeliveryCoefExpr            RawNumber `json:"boxDeliveryCoefExpr"`
	BoxDeliveryLiter               RawNumber `json:"boxDeliveryLiter"`
	BoxDeliveryMarketplaceBase     RawNumber `json:"boxDeliveryMarketplaceBase"`
	BoxDeliveryMarketplaceCoefExpr RawNumber `json:"boxDeliveryMarketplaceCoefExpr"`
	BoxDeliveryMarketplaceLiter    RawNumber `json:"boxDeliveryMarketplaceLiter"`
	BoxStorageBase                 RawNumber `json:"boxStorageBase"`
	BoxStorageCoefExpr             RawNumber `json:"boxStorageCoefExpr"`
	BoxStorageLiter                RawNumber `json:"boxStorageLiter"`
}

// RawNumber хранит числовое поле как пришло: строка, json.Number или nil.
type RawNumber struct {
	Value any
}

// конструкторы для тестов и мока
func Num(v float64) RawNumber { return RawNumber{Value: v} }
func Str(s string) RawNumber  { return RawNumber{Value: s} }

func (n *RawNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		n.Value = nil
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n.Value = s
		return nil
	default:
		var num json.Number
		if err := json.Unmarshal(data, &num); err == nil {
			n.Value = num
			return nil
		}
		// bool, объект и т.п. — оставляем как есть, ParseNumber вернёт ошибку по полю
		var v any
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		n.Value = v
		return nil
	}
}

func (n RawNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.Value)
}
