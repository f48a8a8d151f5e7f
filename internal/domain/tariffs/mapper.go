package tariffs

import (
	"errors"
	"fmt"
	"strings"
)

// NumberPolicy решает, что делать с записью, у которой не разобралось числовое поле.
type NumberPolicy string

const (
	// PolicyLenient: поле = 0, запись сохраняем (так было исторически).
	PolicyLenient NumberPolicy = "lenient"
	// PolicyStrict: запись целиком отбрасываем.
	PolicyStrict NumberPolicy = "strict"
)

var ErrNegative = errors.New("negative value")

// FieldError: ошибка разбора одного поля сырой записи.
type FieldError struct {
	Field string
	Err   error
}

func (e FieldError) Error() string { return e.Field + ": " + e.Err.Error() }

func (e FieldError) Unwrap() error { return e.Err }

// FieldErrors собирает все проблемные поля одной записи.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Error())
	}
	return "tariff fields: " + strings.Join(parts, "; ")
}

func (fe FieldErrors) Unwrap() []error {
	out := make([]error, 0, len(fe))
	for _, e := range fe {
		out = append(out, e)
	}
	return out
}

// FromRaw собирает Tariff из сырой записи WB.
// Битые и отрицательные числа становятся 0 и попадают в ошибку FieldErrors;
// сам Tariff возвращается всегда, решение принимает вызывающий (см. NumberPolicy).
func FromRaw(raw RawTariff) (Tariff, error) {
	var errs FieldErrors
	num := func(field string, v RawNumber) float64 {
		f, err := ParseNumber(v.Value)
		if err == nil && f < 0 {
			err = fmt.Errorf("%w: %v", ErrNegative, f)
		}
		if err != nil {
			errs = append(errs, FieldError{Field: field, Err: err})
			return 0
		}
		return f
	}

	t := Tariff{
		WarehouseName:                  deref(raw.WarehouseName),
		GeoName:                        deref(raw.GeoName),
		BoxDeliveryBase:                num("boxDeliveryBase", raw.BoxDeliveryBase),
		BoxDeliveryCoefExpr:            num("boxDeliveryCoefExpr", raw.BoxDeliveryCoefExpr),
		BoxDeliveryLiter:               num("boxDeliveryLiter", raw.BoxDeliveryLiter),
		BoxDeliveryMarketplaceBase:     num("boxDeliveryMarketplaceBase", raw.BoxDeliveryMarketplaceBase),
		BoxDeliveryMarketplaceCoefExpr: num("boxDeliveryMarketplaceCoefExpr", raw.BoxDeliveryMarketplaceCoefExpr),
		BoxDeliveryMarketplaceLiter:    num("boxDeliveryMarketplaceLiter", raw.BoxDeliveryMarketplaceLiter),
		BoxStorageBase:                 num("boxStorageBase", raw.BoxStorageBase),
		BoxStorageCoefExpr:             num("boxStorageCoefExpr", raw.BoxStorageCoefExpr),
		BoxStorageLiter:                num("boxStorageLiter", raw.BoxStorageLiter),
	}
	if len(errs) > 0 {
		return t, errs
	}
	return t, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
