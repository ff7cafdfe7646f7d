package alphavantage_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	alphavantage "thetaflow/internal/provider/alphavantage"
	"thetaflow/internal/quote"
)

var mockQuoteResponse = map[string]any{
	"Global Quote": map[string]string{
		"01. symbol":         "AAPL",
		"02. open":           "203.45",
		"03. high":           "204.10",
		"04. low":            "198.22",
		"05. price":          "199.30",
		"06. volume":         "54321000",
		"08. previous close": "203.56",
		"09. change":         "-4.26",
		"10. change percent": "-2.09%",
	},
}

func stubDo(t *testing.T, httpClient *MockHTTPClient, payload any) {
	t.Helper()
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(payload))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)
}

func newAdapter(t *testing.T, httpClient *MockHTTPClient) *alphavantage.Adapter {
	t.Helper()
	client, err := alphavantage.NewClient("test-key", alphavantage.WithHTTPClient(httpClient))
	require.NoError(t, err)
	require.NotNil(t, client)
	return alphavantage.New(client)
}

func TestQuote(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock controller
	ctrl := gomock.NewController(t)

	// Arrange: create a mock HTTP client
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: stub the Do method and check the request shape
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, "/query", req.URL.Path)
			require.Equal(t, "GLOBAL_QUOTE", req.URL.Query().Get("function"))
			require.Equal(t, "AAPL", req.URL.Query().Get("symbol"))
			require.Equal(t, "test-key", req.URL.Query().Get("apikey"))

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(mockQuoteResponse))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	// Act: fetch the quote
	q, err := newAdapter(t, httpClient).Quote(context.Background(), "AAPL")
	require.NoError(t, err)

	// Assert: string fields are parsed, including the trailing-% percent
	require.Equal(t, "AAPL", q.Symbol)
	require.InEpsilon(t, 199.30, q.Price, 0.0001)
	require.InEpsilon(t, -4.26, q.Change, 0.0001)
	require.InEpsilon(t, -2.09, q.ChangePercent, 0.0001)
	require.Equal(t, int64(54321000), q.Volume)
	require.InEpsilon(t, 203.56, q.PreviousClose, 0.0001)
	require.Equal(t, "AlphaVantage", q.Source)
	require.False(t, q.Synthetic)
}

func TestQuote_RateLimitNote(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Arrange: the vendor signals its rate limit with a 200 and a Note.
	stubDo(t, httpClient, map[string]any{
		"Note": "Thank you for using Alpha Vantage! Our standard API rate limit is 25 requests per day.",
	})

	// Act: fetch the quote
	_, err := newAdapter(t, httpClient).Quote(context.Background(), "AAPL")

	// Assert: the note surfaces as an error so the aggregator falls through
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate limited")
}

func TestQuote_ErrorMessage(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	stubDo(t, httpClient, map[string]any{
		"Error Message": "Invalid API call.",
	})

	_, err := newAdapter(t, httpClient).Quote(context.Background(), "NOPE")
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid API call")
}

func TestQuote_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("error")
		}).
		Times(1)

	_, err := newAdapter(t, httpClient).Quote(context.Background(), "AAPL")
	require.Error(t, err)
}

func TestQuote_ErrUnexpectedStatusCode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			return &http.Response{
				StatusCode: http.StatusForbidden,
				Body:       io.NopCloser(bytes.NewBufferString("denied")),
			}, nil
		}).
		Times(1)

	_, err := newAdapter(t, httpClient).Quote(context.Background(), "AAPL")
	require.Error(t, err)
	require.Contains(t, err.Error(), "unexpected status code")
}

func TestSearch(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "SYMBOL_SEARCH", req.URL.Query().Get("function"))
			require.Equal(t, "apple", req.URL.Query().Get("keywords"))

			buffer := &bytes.Buffer{}
			require.NoError(t, json.NewEncoder(buffer).Encode(map[string]any{
				"bestMatches": []map[string]string{
					{"1. symbol": "AAPL", "2. name": "Apple Inc.", "3. type": "Equity", "4. region": "United States"},
					{"1. symbol": "APLE", "2. name": "Apple Hospitality REIT", "3. type": "Equity", "4. region": "United States"},
				},
			}))
			return &http.Response{
				StatusCode: http.StatusOK,
				Body:       io.NopCloser(buffer),
			}, nil
		}).
		Times(1)

	results, err := newAdapter(t, httpClient).Search(context.Background(), "apple")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "AAPL", results[0].Symbol)
	require.Equal(t, "Apple Inc.", results[0].Name)
	require.Equal(t, "United States", results[0].Exchange)
}

func TestHistory(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	stubDo(t, httpClient, map[string]any{
		"Time Series (Daily)": map[string]map[string]string{
			"2025-05-30": {"1. open": "200.1", "2. high": "201.0", "3. low": "199.0", "4. close": "200.5", "5. volume": "1000"},
			"2025-05-28": {"1. open": "198.0", "2. high": "199.5", "3. low": "197.5", "4. close": "199.0", "5. volume": "3000"},
			"2025-05-29": {"1. open": "199.2", "2. high": "200.0", "3. low": "198.1", "4. close": "199.8", "5. volume": "2000"},
		},
	})

	bars, err := newAdapter(t, httpClient).History(context.Background(), "AAPL", 2)
	require.NoError(t, err)

	// Assert: capped to the requested count and ordered oldest first
	require.Len(t, bars, 2)
	require.Equal(t, "2025-05-29", bars[0].Date.Format("2006-01-02"))
	require.Equal(t, "2025-05-30", bars[1].Date.Format("2006-01-02"))
	require.InEpsilon(t, 199.8, bars[0].Close, 0.0001)
}

func TestOptionsUnavailable(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	// Assert: no request is ever made for options
	httpClient.EXPECT().
		Do(gomock.Any()).
		Times(0)

	_, err := newAdapter(t, httpClient).Options(context.Background(), "AAPL")
	require.ErrorIs(t, err, quote.ErrCapabilityUnavailable)
}
