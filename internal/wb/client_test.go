package wb

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Spok95/wb-tariffs/internal/domain/tariffs"
	"github.com/Spok95/wb-tariffs/internal/wb/mock"
)

// source отвечает заданной функцией и считает запросы.
type source struct {
	srv   *httptest.Server
	hits  atomic.Int32
	auth  atomic.Value
	reply func(w http.ResponseWriter, hit int32)
}

func newSource(t *testing.T, reply func(w http.ResponseWriter, hit int32)) *source {
	t.Helper()
	s := &source{reply: reply}
	s.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != tariffsPath {
			http.NotFound(w, r)
			return
		}
		s.auth.Store(r.Header.Get("Authorization"))
		s.reply(w, s.hits.Add(1))
	}))
	t.Cleanup(s.srv.Close)
	return s
}

func jsonReply(body []byte) func(http.ResponseWriter, int32) {
	return func(w http.ResponseWriter, _ int32) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}
}

func statusReply(code int) func(http.ResponseWriter, int32) {
	return func(w http.ResponseWriter, _ int32) {
		http.Error(w, "unavailable", code)
	}
}

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func testPolicy(timeout time.Duration) Policy {
	return Policy{
		Retries: 2,
		Delay:   time.Second,
		Timeout: timeout,
		Sleep:   func(context.Context, time.Duration) error { return nil },
	}
}

func newTestClient(primary, fallback *source, opts ...func(*Options)) *Client {
	o := Options{
		Primary:  Endpoint{BaseURL: primary.srv.URL, APIKey: "secret-key", Policy: testPolicy(10 * time.Second)},
		Fallback: Endpoint{BaseURL: fallback.srv.URL, Policy: testPolicy(5 * time.Second)},
		Log:      quietLog(),
	}
	for _, fn := range opts {
		fn(&o)
	}
	return NewClient(o)
}

func readFixture(t *testing.T) []byte {
	t.Helper()
	b, err := os.ReadFile("testdata/koledino.json")
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestFetch_PrimarySuccess(t *testing.T) {
	primary := newSource(t, jsonReply(readFixture(t)))
	fallback := newSource(t, jsonReply(mock.Payload))

	res, err := newTestClient(primary, fallback).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Source != SourcePrimary {
		t.Errorf("Source = %s, want primary", res.Source)
	}
	want := tariffs.Tariff{
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
	if len(res.Tariffs) != 1 || res.Tariffs[0] != want {
		t.Errorf("Tariffs = %+v, want [%+v]", res.Tariffs, want)
	}
	if primary.hits.Load() != 1 {
		t.Errorf("primary hits = %d, want 1", primary.hits.Load())
	}
	if fallback.hits.Load() != 0 {
		t.Errorf("fallback hits = %d, want 0", fallback.hits.Load())
	}
	if got := primary.auth.Load(); got != "secret-key" {
		t.Errorf("Authorization = %v, want secret-key", got)
	}
}

func TestFetch_PrimaryDownFallsBack(t *testing.T) {
	primary := newSource(t, statusReply(http.StatusServiceUnavailable))
	fallback := newSource(t, jsonReply(mock.Payload))

	var observed []Source
	c := newTestClient(primary, fallback, func(o *Options) {
		o.Observe = func(src Source, attempts int, err error) {
			observed = append(observed, src)
			if src == SourcePrimary && attempts != 3 {
				t.Errorf("primary attempts = %d, want 3", attempts)
			}
		}
	})

	res, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if primary.hits.Load() != 3 {
		t.Errorf("primary hits = %d, want 3", primary.hits.Load())
	}
	if fallback.hits.Load() != 1 {
		t.Errorf("fallback hits = %d, want 1", fallback.hits.Load())
	}
	if res.Source != SourceFallback || len(res.Tariffs) != 2 {
		t.Fatalf("result = %s/%d tariffs, want fallback/2", res.Source, len(res.Tariffs))
	}
	if res.Tariffs[0].BoxDeliveryBase != 1248 || res.Tariffs[1].BoxDeliveryBase != 48 {
		t.Errorf("fallback tariffs = %+v", res.Tariffs)
	}
	if got := fallback.auth.Load(); got != "" {
		t.Errorf("fallback Authorization = %v, want none", got)
	}
	if len(observed) != 2 || observed[0] != SourcePrimary || observed[1] != SourceFallback {
		t.Errorf("observed = %v", observed)
	}
}

func TestFetch_PrimaryRecoversWithinRetries(t *testing.T) {
	fixture := readFixture(t)
	primary := newSource(t, func(w http.ResponseWriter, hit int32) {
		if hit < 3 {
			http.Error(w, "busy", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write(fixture)
	})
	fallback := newSource(t, jsonReply(mock.Payload))

	res, err := newTestClient(primary, fallback).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Source != SourcePrimary || primary.hits.Load() != 3 || fallback.hits.Load() != 0 {
		t.Errorf("source = %s, primary hits = %d, fallback hits = %d", res.Source, primary.hits.Load(), fallback.hits.Load())
	}
}

// Пустой список от WB ведёт себя как ошибка транспорта: идём в запасной источник.
func TestFetch_EmptyPrimaryFallsBack(t *testing.T) {
	payloads := map[string][]byte{
		"empty list":   []byte(`{"response":{"data":{"warehouseList":[]}}}`),
		"missing list": []byte(`{"response":{"data":{}}}`),
		"not a list":   []byte(`{"response":{"data":{"warehouseList":{"a":1}}}}`),
		"null list":    []byte(`{"response":{"data":{"warehouseList":null}}}`),
		"no response":  []byte(`{}`),
		"not json":     []byte(`<html>maintenance</html>`),
	}
	for name, body := range payloads {
		t.Run(name, func(t *testing.T) {
			primary := newSource(t, jsonReply(body))
			fallback := newSource(t, jsonReply(mock.Payload))

			res, err := newTestClient(primary, fallback).Fetch(context.Background())
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if res.Source != SourceFallback || len(res.Tariffs) != 2 {
				t.Errorf("result = %s/%d, want fallback/2", res.Source, len(res.Tariffs))
			}
			// структурная ошибка не повторяется
			if primary.hits.Load() != 1 {
				t.Errorf("primary hits = %d, want 1", primary.hits.Load())
			}
			if fallback.hits.Load() != 1 {
				t.Errorf("fallback hits = %d, want 1", fallback.hits.Load())
			}
		})
	}
}

func TestFetch_FallbackEmptyIsValid(t *testing.T) {
	payloads := map[string][]byte{
		"empty list":   []byte(`{"response":{"data":{"warehouseList":[]}}}`),
		"missing list": []byte(`{"response":{"data":{}}}`),
		"null list":    []byte(`{"response":{"data":{"warehouseList":null}}}`),
		"null data":    []byte(`{"response":{"data":null}}`),
		"no response":  []byte(`{}`),
	}
	for name, body := range payloads {
		t.Run(name, func(t *testing.T) {
			primary := newSource(t, statusReply(http.StatusBadGateway))
			fallback := newSource(t, jsonReply(body))

			res, err := newTestClient(primary, fallback).Fetch(context.Background())
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if res.Source != SourceFallback || len(res.Tariffs) != 0 {
				t.Errorf("result = %s/%d, want fallback/0", res.Source, len(res.Tariffs))
			}
		})
	}
}

func TestFetch_FallbackBrokenPayloadFails(t *testing.T) {
	payloads := map[string][]byte{
		"not a list": []byte(`{"response":{"data":{"warehouseList":{"a":1}}}}`),
		"not json":   []byte(`<html>maintenance</html>`),
	}
	for name, body := range payloads {
		t.Run(name, func(t *testing.T) {
			primary := newSource(t, statusReply(http.StatusBadGateway))
			fallback := newSource(t, jsonReply(body))

			_, err := newTestClient(primary, fallback).Fetch(context.Background())
			if !errors.Is(err, ErrFallbackExhausted) {
				t.Fatalf("error = %v, want ErrFallbackExhausted", err)
			}
		})
	}
}

func TestFetch_FallbackFailurePropagates(t *testing.T) {
	primary := newSource(t, statusReply(http.StatusUnauthorized))
	fallback := newSource(t, statusReply(http.StatusInternalServerError))

	_, err := newTestClient(primary, fallback).FetchTariffs(context.Background())
	if !errors.Is(err, ErrFallbackExhausted) {
		t.Fatalf("error = %v, want ErrFallbackExhausted", err)
	}
	var fe *FallbackError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want *FallbackError", err)
	}
	var te *TransportError
	if !errors.As(fe.Primary, &te) || te.Source != SourcePrimary || te.Attempts != 3 {
		t.Errorf("primary cause = %v", fe.Primary)
	}
	var se *StatusError
	if !errors.As(fe.Fallback, &se) || se.Code != http.StatusInternalServerError {
		t.Errorf("fallback cause = %v", fe.Fallback)
	}
	if fallback.hits.Load() != 3 {
		t.Errorf("fallback hits = %d, want 3 (own retries)", fallback.hits.Load())
	}
}

func TestFetch_FallbackMalformedPropagates(t *testing.T) {
	primary := newSource(t, statusReply(http.StatusBadGateway))
	fallback := newSource(t, jsonReply([]byte(`{"response":{}}`)))

	_, err := newTestClient(primary, fallback).FetchTariffs(context.Background())
	if !errors.Is(err, ErrFallbackExhausted) || !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("error = %v, want fallback exhausted with empty result cause", err)
	}
}

func TestFetch_StrictPolicyDropsBadRecords(t *testing.T) {
	body := []byte(`{"response":{"data":{"warehouseList":[
		{"warehouseName":"Коледино","geoName":"ЦФО","boxDeliveryBase":"48"},
		{"warehouseName":"Тула","geoName":"ЦФО","boxDeliveryBase":"n/a"}
	]}}}`)
	primary := newSource(t, jsonReply(body))
	fallback := newSource(t, jsonReply(mock.Payload))

	strict, err := newTestClient(primary, fallback, func(o *Options) { o.Policy = tariffs.PolicyStrict }).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(strict.Tariffs) != 1 || strict.Rejected != 1 || strict.Tariffs[0].WarehouseName != "Коледино" {
		t.Errorf("strict = %+v", strict)
	}

	lenient, err := newTestClient(primary, fallback).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(lenient.Tariffs) != 2 || lenient.Tariffs[1].BoxDeliveryBase != 0 {
		t.Errorf("lenient = %+v", lenient)
	}
}

func TestFetch_AttemptTimeout(t *testing.T) {
	primary := newSource(t, func(w http.ResponseWriter, _ int32) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{}`))
	})
	fallback := newSource(t, jsonReply(mock.Payload))

	c := newTestClient(primary, fallback, func(o *Options) {
		o.Primary.Policy = testPolicy(20 * time.Millisecond)
	})
	res, err := c.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if res.Source != SourceFallback {
		t.Errorf("Source = %s, want fallback after timeouts", res.Source)
	}
}
