package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// httpAnalyzer calls an external document-analysis service: POST the raw
// document, get structured fields/tables/text back as JSON.
type httpAnalyzer struct {
	baseURL   string
	apiKey    string
	apiKeyHdr string
	http      *http.Client
}

// NewHTTPAnalyzer builds the analyzer client from env:
// - DOCUMENT_ANALYZER_URL (required)
// - DOCUMENT_ANALYZER_API_KEY
// - DOCUMENT_ANALYZER_API_KEY_HEADER (default X-API-Key)
// - DOCUMENT_ANALYZER_TIMEOUT_SECONDS (default 60)
func NewHTTPAnalyzer() (DocumentAnalyzer, error) {
	baseURL := strings.TrimSpace(os.Getenv("DOCUMENT_ANALYZER_URL"))
	if baseURL == "" {
		return nil, errors.New("DOCUMENT_ANALYZER_URL is empty")
	}
	apiKeyHeader := strings.TrimSpace(os.Getenv("DOCUMENT_ANALYZER_API_KEY_HEADER"))
	if apiKeyHeader == "" {
		apiKeyHeader = "X-API-Key"
	}
	timeout := 60 * time.Second
	if v := strings.TrimSpace(os.Getenv("DOCUMENT_ANALYZER_TIMEOUT_SECONDS")); v != "" {
		if d, err := time.ParseDuration(v + "s"); err == nil && d > 0 {
			timeout = d
		}
	}

	return &httpAnalyzer{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    strings.TrimSpace(os.Getenv("DOCUMENT_ANALYZER_API_KEY")),
		apiKeyHdr: apiKeyHeader,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

func (a *httpAnalyzer) CanHandle(contentType string) bool {
	switch strings.ToLower(contentType) {
	case "application/pdf", "image/jpeg", "image/png", "image/webp", "image/tiff":
		return true
	}
	return false
}

// Wire shape of the analyzer's response.
type analyzerResponse struct {
	Fields []struct {
		Key        string  `json:"key"`
		Value      string  `json:"value"`
		TypeHint   string  `json:"type_hint"`
		Confidence float64 `json:"confidence"`
	} `json:"fields"`
	Tables []struct {
		Header []string   `json:"header"`
		Rows   [][]string `json:"rows"`
	} `json:"tables"`
	RawText string `json:"raw_text"`
}

func (a *httpAnalyzer) Analyze(ctx context.Context, r io.Reader) (*AnalysisResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/v1/analyze", r)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("Accept", "application/json")
	if a.apiKey != "" {
		req.Header.Set(a.apiKeyHdr, a.apiKey)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("analyzer error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed analyzerResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, err
	}

	result := &AnalysisResult{RawText: parsed.RawText}
	for _, f := range parsed.Fields {
		result.Fields = append(result.Fields, AnalyzedField{
			Key:        f.Key,
			Value:      f.Value,
			TypeHint:   f.TypeHint,
			Confidence: f.Confidence,
		})
	}
	for _, t := range parsed.Tables {
		result.Tables = append(result.Tables, AnalyzedTable{Header: t.Header, Rows: t.Rows})
	}
	return result, nil
}
