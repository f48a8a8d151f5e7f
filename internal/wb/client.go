package wb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Spok95/wb-tariffs/internal/domain/tariffs"
)

const tariffsPath = "/tariffs/box"

// ограничение на кусок тела в тексте ошибки
const maxErrBody = 256

type Source string

const (
	SourcePrimary  Source = "primary"
	SourceFallback Source = "fallback"
)

// HTTPDoer: подмножество *http.Client.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Endpoint: один источник тарифов.
type Endpoint struct {
	BaseURL string
	APIKey  string // пустой — без заголовка Authorization
	Policy  Policy
}

type Options struct {
	Primary  Endpoint
	Fallback Endpoint
	Policy   tariffs.NumberPolicy
	HTTP     HTTPDoer
	Log      *slog.Logger
	// Observe получает число попыток по каждому источнику, может быть nil.
	Observe func(src Source, attempts int, err error)
}

// Result: тарифы и источник, который их отдал.
type Result struct {
	Source   Source
	Tariffs  []tariffs.Tariff
	Rejected int // записи, отброшенные строгой политикой
}

type Client struct {
	primary  Endpoint
	fallback Endpoint
	policy   tariffs.NumberPolicy
	http     HTTPDoer
	log      *slog.Logger
	observe  func(Source, int, error)
}

func NewClient(opts Options) *Client {
	c := &Client{
		primary:  opts.Primary,
		fallback: opts.Fallback,
		policy:   opts.Policy,
		http:     opts.HTTP,
		log:      opts.Log,
		observe:  opts.Observe,
	}
	c.primary.BaseURL = strings.TrimRight(c.primary.BaseURL, "/")
	c.fallback.BaseURL = strings.TrimRight(c.fallback.BaseURL, "/")
	if c.http == nil {
		// таймауты задаются на попытку через контекст
		c.http = &http.Client{}
	}
	if c.log == nil {
		c.log = slog.Default()
	}
	if c.policy == "" {
		c.policy = tariffs.PolicyLenient
	}
	return c
}

// FetchTariffs берёт тарифы из WB, при любой неудаче из запасного источника.
func (c *Client) FetchTariffs(ctx context.Context) ([]tariffs.Tariff, error) {
	res, err := c.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	return res.Tariffs, nil
}

func (c *Client) Fetch(ctx context.Context) (*Result, error) {
	list, err := c.fetchList(ctx, SourcePrimary, c.primary)
	if err == nil && len(list) == 0 {
		err = ErrEmptyResult
	}
	if err == nil {
		c.log.Info("fetched tariffs from WB API", "count", len(list))
		return c.mapAll(SourcePrimary, list), nil
	}
	if ctx.Err() != nil {
		return nil, err
	}

	c.log.Warn("WB API failed, using fallback source", "err", err)

	fbList, fbErr := c.fetchList(ctx, SourceFallback, c.fallback)
	if fbErr != nil {
		return nil, &FallbackError{Primary: err, Fallback: fbErr}
	}
	// пустой список от запасного источника — валидный результат
	c.log.Info("fetched tariffs from fallback source", "count", len(fbList))
	return c.mapAll(SourceFallback, fbList), nil
}

func (c *Client) mapAll(src Source, list []tariffs.RawTariff) *Result {
	res := &Result{Source: src, Tariffs: make([]tariffs.Tariff, 0, len(list))}
	for i, raw := range list {
		t, err := tariffs.FromRaw(raw)
		if err != nil {
			if c.policy == tariffs.PolicyStrict {
				c.log.Warn("tariff rejected", "source", src, "index", i, "warehouse", t.WarehouseName, "err", err)
				res.Rejected++
				continue
			}
			c.log.Warn("tariff fields defaulted to zero", "source", src, "index", i, "warehouse", t.WarehouseName, "err", err)
		}
		res.Tariffs = append(res.Tariffs, t)
	}
	return res
}

// fetchList качает тело с повторами и достаёт response.data.warehouseList.
func (c *Client) fetchList(ctx context.Context, src Source, ep Endpoint) ([]tariffs.RawTariff, error) {
	if ep.BaseURL == "" {
		return nil, &TransportError{Source: src, Err: errors.New("base url not configured")}
	}

	p := ep.Policy
	p.OnRetry = func(attempt int, err error) {
		c.log.Warn("retrying WB request", "source", src, "attempt", attempt, "err", err)
	}

	var body []byte
	attempts, err := Do(ctx, p, func(actx context.Context) error {
		b, err := c.get(actx, ep)
		if err != nil {
			return err
		}
		body = b
		return nil
	})
	if c.observe != nil {
		c.observe(src, attempts, err)
	}
	if err != nil {
		return nil, &TransportError{Source: src, Attempts: attempts, Err: err}
	}
	return decodeWarehouseList(body, src == SourceFallback)
}

func (c *Client) get(ctx context.Context, ep Endpoint) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ep.BaseURL+tariffsPath, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if ep.APIKey != "" {
		req.Header.Set("Authorization", ep.APIKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body := strings.TrimSpace(string(data))
		if len(body) > maxErrBody {
			body = body[:maxErrBody]
		}
		return nil, &StatusError{Code: resp.StatusCode, Body: body}
	}
	return data, nil
}

type envelope struct {
	Response *struct {
		Data *struct {
			WarehouseList json.RawMessage `json:"warehouseList"`
		} `json:"data"`
	} `json:"response"`
}

// decodeWarehouseList: отсутствие пути или не-массив — ErrEmptyResult,
// битый JSON — ErrMalformedPayload. Пустой массив возвращается как есть.
// С missingAsEmpty отсутствующий путь или null дают пустой список.
func decodeWarehouseList(body []byte, missingAsEmpty bool) ([]tariffs.RawTariff, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	var raw json.RawMessage
	if env.Response != nil && env.Response.Data != nil {
		raw = env.Response.Data.WarehouseList
	}
	if missingAsEmpty && (len(raw) == 0 || string(raw) == "null") {
		return []tariffs.RawTariff{}, nil
	}
	if env.Response == nil || env.Response.Data == nil {
		return nil, fmt.Errorf("%w: response.data missing", ErrEmptyResult)
	}
	if len(raw) == 0 || raw[0] != '[' {
		return nil, fmt.Errorf("%w: warehouseList is not a list", ErrEmptyResult)
	}
	var list []tariffs.RawTariff
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return list, nil
}
