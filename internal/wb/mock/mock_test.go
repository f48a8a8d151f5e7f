package mock

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouter_ServesFixture(t *testing.T) {
	srv := httptest.NewServer(Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/tariffs/box")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Response struct {
			Data struct {
				WarehouseList []map[string]any `json:"warehouseList"`
			} `json:"data"`
		} `json:"response"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	list := body.Response.Data.WarehouseList
	if len(list) != 2 {
		t.Fatalf("warehouseList = %d, want 2", len(list))
	}
	if list[0]["warehouseName"] != "Коледино" || list[0]["boxDeliveryLiter"] != "11,2" {
		t.Errorf("first row = %v", list[0])
	}
}

func TestRouter_Health(t *testing.T) {
	rec := httptest.NewRecorder()
	Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("/health = %d %q", rec.Code, rec.Body.String())
	}
}
