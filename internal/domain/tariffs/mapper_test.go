package tariffs

import (
	"encoding/json"
	"errors"
	"testing"
)

func strp(s string) *string { return &s }

func TestFromRaw_AllFields(t *testing.T) {
	raw := RawTariff{
		WarehouseName:                  strp("Коледино"),
		GeoName:                        strp("ЦФО"),
		BoxDeliveryBase:                Str("48"),
		BoxDeliveryCoefExpr:            Str("160"),
		BoxDeliveryLiter:               Str("11,2"),
		BoxDeliveryMarketplaceBase:     Str("40"),
		BoxDeliveryMarketplaceCoefExpr: Str("125"),
		BoxDeliveryMarketplaceLiter:    Str("11"),
		BoxStorageBase:                 Str("0,14"),
		BoxStorageCoefExpr:             Str("115"),
		BoxStorageLiter:                Str("0,07"),
	}

	got, err := FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw() error = %v", err)
	}

	want := Tariff{
		WarehouseName:                  "Коледино",
		GeoName:                        "ЦФО",
		BoxDeliveryBase:                48,
		BoxDeliveryCoefExpr:            160,
		BoxDeliveryLiter:               11.2,
		BoxDeliveryMarketplaceBase:     40,
		BoxDeliveryMarketplaceCoefExpr: 125,
		BoxDeliveryMarketplaceLiter:    11,
		BoxStorageBase:                 0.14,
		BoxStorageCoefExpr:             115,
		BoxStorageLiter:                0.07,
	}
	if got != want {
		t.Errorf("FromRaw() = %+v, want %+v", got, want)
	}
}

// Каждое числовое поле проходит через ParseNumber.
func TestFromRaw_FieldsMatchParseNumber(t *testing.T) {
	raw := RawTariff{
		BoxDeliveryBase:                Num(1),
		BoxDeliveryCoefExpr:            Str("2,5"),
		BoxDeliveryLiter:               Str("3"),
		BoxDeliveryMarketplaceBase:     Str("4,25"),
		BoxDeliveryMarketplaceCoefExpr: Str("-"),
		BoxDeliveryMarketplaceLiter:    RawNumber{Value: json.Number("6")},
		BoxStorageBase:                 Str("7,75"),
		BoxStorageCoefExpr:             Str(""),
		BoxStorageLiter:                RawNumber{},
	}
	got, err := FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw() error = %v", err)
	}

	pairs := []struct {
		name string
		raw  RawNumber
		got  float64
	}{
		{"BoxDeliveryBase", raw.BoxDeliveryBase, got.BoxDeliveryBase},
		{"BoxDeliveryCoefExpr", raw.BoxDeliveryCoefExpr, got.BoxDeliveryCoefExpr},
		{"BoxDeliveryLiter", raw.BoxDeliveryLiter, got.BoxDeliveryLiter},
		{"BoxDeliveryMarketplaceBase", raw.BoxDeliveryMarketplaceBase, got.BoxDeliveryMarketplaceBase},
		{"BoxDeliveryMarketplaceCoefExpr", raw.BoxDeliveryMarketplaceCoefExpr, got.BoxDeliveryMarketplaceCoefExpr},
		{"BoxDeliveryMarketplaceLiter", raw.BoxDeliveryMarketplaceLiter, got.BoxDeliveryMarketplaceLiter},
		{"BoxStorageBase", raw.BoxStorageBase, got.BoxStorageBase},
		{"BoxStorageCoefExpr", raw.BoxStorageCoefExpr, got.BoxStorageCoefExpr},
		{"BoxStorageLiter", raw.BoxStorageLiter, got.BoxStorageLiter},
	}
	for _, p := range pairs {
		want, _ := ParseNumber(p.raw)
		if p.got != want {
			t.Errorf("%s = %v, want %v", p.name, p.got, want)
		}
	}
	if got.WarehouseName != "" || got.GeoName != "" {
		t.Errorf("absent text fields = %q/%q, want empty", got.WarehouseName, got.GeoName)
	}
}

func TestFromRaw_BadFieldsDefaultToZero(t *testing.T) {
	raw := RawTariff{
		WarehouseName:    strp("Тула"),
		BoxDeliveryBase:  Str("abc"),
		BoxDeliveryLiter: Str("-5"),
		BoxStorageBase:   Str("0,5"),
	}

	got, err := FromRaw(raw)
	if err == nil {
		t.Fatal("FromRaw() expected error for bad fields")
	}

	var fe FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want FieldErrors", err)
	}
	if len(fe) != 2 {
		t.Fatalf("len(FieldErrors) = %d, want 2: %v", len(fe), fe)
	}
	if fe[0].Field != "boxDeliveryBase" || !errors.Is(fe[0].Err, ErrBadNumber) {
		t.Errorf("fe[0] = %v, want boxDeliveryBase bad number", fe[0])
	}
	if fe[1].Field != "boxDeliveryLiter" || !errors.Is(fe[1].Err, ErrNegative) {
		t.Errorf("fe[1] = %v, want boxDeliveryLiter negative", fe[1])
	}
	if !errors.Is(err, ErrBadNumber) {
		t.Error("errors.Is(err, ErrBadNumber) = false, want true")
	}

	if got.BoxDeliveryBase != 0 || got.BoxDeliveryLiter != 0 {
		t.Errorf("bad fields = %v/%v, want 0/0", got.BoxDeliveryBase, got.BoxDeliveryLiter)
	}
	if got.BoxStorageBase != 0.5 || got.WarehouseName != "Тула" {
		t.Errorf("good fields lost: %+v", got)
	}
}

func TestRawTariff_DecodeFromWB(t *testing.T) {
	payload := `{"warehouseName":"Коледино","geoName":"ЦФО","boxDeliveryBase":"48",
		"boxDeliveryLiter":"11,2","boxStorageBase":0.14}`

	var raw RawTariff
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		t.Fatalf("Unmarshal error = %v", err)
	}
	got, err := FromRaw(raw)
	if err != nil {
		t.Fatalf("FromRaw() error = %v", err)
	}
	if got.BoxDeliveryBase != 48 || got.BoxDeliveryLiter != 11.2 || got.BoxStorageBase != 0.14 {
		t.Errorf("FromRaw() = %+v", got)
	}
	if got.BoxStorageLiter != 0 {
		t.Errorf("absent BoxStorageLiter = %v, want 0", got.BoxStorageLiter)
	}
}
