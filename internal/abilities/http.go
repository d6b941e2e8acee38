package abilities

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shaiso/Foreman/internal/telemetry"
	"github.com/shaiso/Foreman/internal/worker"
)

const defaultHTTPTimeout = 30 * time.Second

// httpConfig — вход ability http.
type httpConfig struct {
	Method     string            `json:"method"`
	URL        string            `json:"url"`
	Headers    map[string]string `json:"headers"`
	Body       json.RawMessage   `json:"body"`
	TimeoutSec float64           `json:"timeout_sec"`
}

// httpResult — выход ability http.
type httpResult struct {
	StatusCode int               `json:"status_code"`
	Headers    map[string]string `json:"headers"`
	Body       any               `json:"body"`
}

// HTTP возвращает ability, выполняющую HTTP-запрос.
//
// Config (JSON в данных задания):
//   - method (string): HTTP-метод. Default: GET
//   - url (string): URL для запроса (обязательно)
//   - headers (map[string]string): HTTP-заголовки
//   - body (any): тело запроса (передаётся как JSON)
//   - timeout_sec (number): таймаут запроса в секундах. Default: 30
//
// client может быть nil — тогда используется http.DefaultClient.
func HTTP(client *http.Client) worker.JobFunc {
	if client == nil {
		client = http.DefaultClient
	}

	return func(ctx context.Context, job *worker.Job) ([]byte, error) {
		var cfg httpConfig
		if err := json.Unmarshal(job.Data, &cfg); err != nil {
			return nil, fmt.Errorf("%w: http: %v", ErrInvalidInput, err)
		}
		if cfg.URL == "" {
			return nil, fmt.Errorf("%w: url is required", ErrHTTPRequest)
		}

		method := cfg.Method
		if method == "" {
			method = http.MethodGet
		}

		timeout := defaultHTTPTimeout
		if cfg.TimeoutSec > 0 {
			timeout = time.Duration(cfg.TimeoutSec * float64(time.Second))
		}

		// Таймаут
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		// Подготавливаем body
		var bodyReader io.Reader
		if len(cfg.Body) > 0 && string(cfg.Body) != "null" {
			bodyReader = bytes.NewReader(cfg.Body)
		}

		req, err := http.NewRequestWithContext(ctx, method, cfg.URL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("%w: create request: %v", ErrHTTPRequest, err)
		}

		for key, val := range cfg.Headers {
			req.Header.Set(key, val)
		}

		// Content-Type по умолчанию для запросов с body
		if bodyReader != nil && req.Header.Get("Content-Type") == "" {
			req.Header.Set("Content-Type", "application/json")
		}

		logger := telemetry.FromContext(ctx)
		logger.Debug("http request", "method", method, "url", cfg.URL)

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrHTTPRequest, err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read response: %v", ErrHTTPRequest, err)
		}

		logger.Debug("http response", "status", resp.StatusCode, "bytes", len(respBody))

		// HTTP >= 400 — задание завершается ошибкой
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("%w: HTTP %d: %s", ErrHTTPStatus, resp.StatusCode, truncate(string(respBody), 200))
		}

		return json.Marshal(buildResult(resp, respBody))
	}
}

// buildResult формирует результат из HTTP-ответа.
func buildResult(resp *http.Response, body []byte) httpResult {
	headers := make(map[string]string, len(resp.Header))
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	// Пробуем JSON, иначе строка
	var parsedBody any
	if err := json.Unmarshal(body, &parsedBody); err != nil {
		parsedBody = string(body)
	}

	return httpResult{
		StatusCode: resp.StatusCode,
		Headers:    headers,
		Body:       parsedBody,
	}
}

// truncate обрезает строку до указанной длины.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
