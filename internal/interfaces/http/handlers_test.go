package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/spendlens/internal/application/port"
	"github.com/garyjia/spendlens/internal/application/service"
	"github.com/garyjia/spendlens/internal/domain/entity"
	"github.com/garyjia/spendlens/internal/statement"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type mockCategorization struct{ mock.Mock }

func (m *mockCategorization) Categorize(ctx context.Context, raw string) (*entity.Categorization, error) {
	args := m.Called(ctx, raw)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Categorization), args.Error(1)
}

func (m *mockCategorization) SetPreference(ctx context.Context, desc, label, category string) (*entity.Preference, error) {
	args := m.Called(ctx, desc, label, category)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Preference), args.Error(1)
}

type mockImport struct{ mock.Mock }

func (m *mockImport) Import(ctx context.Context, rows []statement.Row) (*service.ImportSummary, error) {
	args := m.Called(ctx, rows)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ImportSummary), args.Error(1)
}

func (m *mockImport) ListBatch(ctx context.Context, batchID string) ([]*entity.Transaction, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.Transaction), args.Error(1)
}

type mockReceipts struct{ mock.Mock }

func (m *mockReceipts) ProcessText(ctx context.Context, text string) (*entity.StoredReceipt, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StoredReceipt), args.Error(1)
}

func (m *mockReceipts) ProcessFile(ctx context.Context, filename string, data []byte) (*entity.StoredReceipt, error) {
	args := m.Called(ctx, filename, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StoredReceipt), args.Error(1)
}

func (m *mockReceipts) Get(ctx context.Context, id int64) (*entity.StoredReceipt, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.StoredReceipt), args.Error(1)
}

func (m *mockReceipts) List(ctx context.Context, limit, offset int) ([]*entity.StoredReceipt, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entity.StoredReceipt), args.Error(1)
}

type testServer struct {
	server   *Server
	cat      *mockCategorization
	importer *mockImport
	receipts *mockReceipts
}

func newTestServer(t *testing.T, cfg ServerConfig) *testServer {
	t.Helper()
	ts := &testServer{
		cat:      new(mockCategorization),
		importer: new(mockImport),
		receipts: new(mockReceipts),
	}
	ts.server = NewServer(cfg, Services{
		Categorization: ts.cat,
		Import:         ts.importer,
		Receipt:        ts.receipts,
	}, nopLogger{})
	return ts
}

func (ts *testServer) do(req *http.Request) (*httptest.ResponseRecorder, Response) {
	w := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(w, req)
	var resp Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func jsonRequest(method, path, body string) *http.Request {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func multipartRequest(t *testing.T, path, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())
	w, resp := ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	ts.server = NewServer(DefaultServerConfig(), Services{
		Health: func(context.Context) (bool, interface{}) { return false, map[string]string{"database": "down"} },
	}, nopLogger{})
	w, resp = ts.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
}

func TestSanitizeDescription(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())

	w, resp := ts.do(jsonRequest(http.MethodPost, "/api/descriptions/sanitize",
		`{"text":"COMPRA TARJ. 4111111111111111 MERCADONA VALENCIA"}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, resp.Success)

	data := resp.Data.(map[string]interface{})
	sanitized := data["sanitized"].(string)
	assert.NotContains(t, sanitized, "4111111111111111")
	assert.Contains(t, sanitized, "MERCADONA")
	assert.Contains(t, data["tokens"], "MERCADONA")

	w, resp = ts.do(jsonRequest(http.MethodPost, "/api/descriptions/sanitize", `{}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, resp.Success)
}

func TestClassifyDescription(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())
	ts.cat.On("Categorize", mock.Anything, "NETFLIX.COM").Return(&entity.Categorization{
		Raw:    "NETFLIX.COM",
		Result: entity.ClassificationResult{Simplified: "Netflix", Confidence: 0.95, TypeHint: entity.TypeHintMerchant},
		Source: entity.SourceRule,
	}, nil)
	ts.cat.On("Categorize", mock.Anything, "XYZZY").Return(&entity.Categorization{
		Raw:    "XYZZY",
		Result: entity.NoMatch(),
		Source: entity.SourceNone,
	}, nil)
	ts.cat.On("Categorize", mock.Anything, "   ").Return(nil, service.ErrEmptyInput)

	w, resp := ts.do(jsonRequest(http.MethodPost, "/api/descriptions/classify", `{"text":"NETFLIX.COM"}`))
	require.Equal(t, http.StatusOK, w.Code)
	result := resp.Data.(map[string]interface{})["result"].(map[string]interface{})
	assert.Equal(t, "Netflix", result["simplified"])

	w, resp = ts.do(jsonRequest(http.MethodPost, "/api/descriptions/classify", `{"text":"XYZZY"}`))
	require.Equal(t, http.StatusOK, w.Code)
	result = resp.Data.(map[string]interface{})["result"].(map[string]interface{})
	assert.Contains(t, result, "simplified")
	assert.Nil(t, result["simplified"])
	assert.Nil(t, result["type_hint"])
	assert.Nil(t, result["matched_rule"])
	assert.Equal(t, float64(0), result["confidence"])

	w, _ = ts.do(jsonRequest(http.MethodPost, "/api/descriptions/classify", `{"text":"   "}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetPreference(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())
	ts.cat.On("SetPreference", mock.Anything, "PANADERIA PEPE 123", "Bakery", "groceries").
		Return(&entity.Preference{DescriptionKey: "PANADERIA PEPE", Label: "Bakery", Category: "groceries"}, nil)

	w, resp := ts.do(jsonRequest(http.MethodPut, "/api/preferences",
		`{"description":"PANADERIA PEPE 123","label":"Bakery","category":"groceries"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "PANADERIA PEPE", resp.Data.(map[string]interface{})["description_key"])

	w, _ = ts.do(jsonRequest(http.MethodPut, "/api/preferences", `{"description":"X"}`))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportStatement(t *testing.T) {
	csv := "Fecha;Concepto;Importe\n01/03/2025;MERCADONA;-12,50\n02/03/2025;NOMINA;1500,00\n"

	t.Run("imports rows", func(t *testing.T) {
		ts := newTestServer(t, DefaultServerConfig())
		ts.importer.On("Import", mock.Anything, mock.MatchedBy(func(rows []statement.Row) bool {
			return len(rows) == 2 && rows[0].Description == "MERCADONA"
		})).Return(&service.ImportSummary{BatchID: "b1", Total: 2, Classified: 2, Errors: []service.RowError{}}, nil)

		w, resp := ts.do(multipartRequest(t, "/api/statements/import", "march.csv", []byte(csv)))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "b1", resp.Data.(map[string]interface{})["batch_id"])
		ts.importer.AssertExpectations(t)
	})

	t.Run("unsupported format", func(t *testing.T) {
		ts := newTestServer(t, DefaultServerConfig())
		w, _ := ts.do(multipartRequest(t, "/api/statements/import", "march.pdf", []byte("%PDF")))
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
	})

	t.Run("no header", func(t *testing.T) {
		ts := newTestServer(t, DefaultServerConfig())
		w, _ := ts.do(multipartRequest(t, "/api/statements/import", "x.csv", []byte("a;b\n1;2\n")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("too many rows", func(t *testing.T) {
		cfg := DefaultServerConfig()
		cfg.MaxImportRows = 1
		ts := newTestServer(t, cfg)
		w, _ := ts.do(multipartRequest(t, "/api/statements/import", "march.csv", []byte(csv)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("file too large", func(t *testing.T) {
		cfg := DefaultServerConfig()
		cfg.MaxUploadBytes = 16
		ts := newTestServer(t, cfg)
		w, _ := ts.do(multipartRequest(t, "/api/statements/import", "march.csv", []byte(csv)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		ts := newTestServer(t, DefaultServerConfig())
		w, _ := ts.do(jsonRequest(http.MethodPost, "/api/statements/import", `{}`))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestListBatch(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())
	ts.importer.On("ListBatch", mock.Anything, "b1").Return([]*entity.Transaction{{ID: 1, BatchID: "b1"}}, nil)
	ts.importer.On("ListBatch", mock.Anything, "nope").Return([]*entity.Transaction{}, nil)

	w, resp := ts.do(httptest.NewRequest(http.MethodGet, "/api/statements/b1/transactions", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)

	w, _ = ts.do(httptest.NewRequest(http.MethodGet, "/api/statements/nope/transactions", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReceiptEndpoints(t *testing.T) {
	ts := newTestServer(t, DefaultServerConfig())
	stored := &entity.StoredReceipt{ID: 3, Parser: "mercadona", Warnings: []string{}}

	ts.receipts.On("ProcessText", mock.Anything, "MERCADONA ...").Return(stored, nil)
	ts.receipts.On("ProcessText", mock.Anything, "???").Return(nil, service.ErrNoParser)
	ts.receipts.On("ProcessFile", mock.Anything, "t.png", []byte{1, 2, 3}).Return(stored, nil)
	ts.receipts.On("ProcessFile", mock.Anything, "t.zip", []byte("PK")).
		Return(nil, fmt.Errorf("%w: .zip", service.ErrUnsupportedFile))
	ts.receipts.On("List", mock.Anything, 10, 5).Return([]*entity.StoredReceipt{stored}, nil)
	ts.receipts.On("Get", mock.Anything, int64(3)).Return(stored, nil)
	ts.receipts.On("Get", mock.Anything, int64(4)).Return(nil, fmt.Errorf("get receipt 4: %w", port.ErrNotFound))
	ts.receipts.On("Get", mock.Anything, int64(5)).Return(nil, assert.AnError)

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"parse", jsonRequest(http.MethodPost, "/api/receipts/parse", `{"text":"MERCADONA ..."}`), http.StatusCreated},
		{"parse unknown", jsonRequest(http.MethodPost, "/api/receipts/parse", `{"text":"???"}`), http.StatusUnprocessableEntity},
		{"parse missing text", jsonRequest(http.MethodPost, "/api/receipts/parse", `{}`), http.StatusBadRequest},
		{"upload", multipartRequest(t, "/api/receipts/upload", "t.png", []byte{1, 2, 3}), http.StatusCreated},
		{"upload unsupported", multipartRequest(t, "/api/receipts/upload", "t.zip", []byte("PK")), http.StatusUnsupportedMediaType},
		{"list", httptest.NewRequest(http.MethodGet, "/api/receipts?limit=10&offset=5", nil), http.StatusOK},
		{"list bad query", httptest.NewRequest(http.MethodGet, "/api/receipts?limit=abc", nil), http.StatusBadRequest},
		{"get", httptest.NewRequest(http.MethodGet, "/api/receipts/3", nil), http.StatusOK},
		{"get missing", httptest.NewRequest(http.MethodGet, "/api/receipts/4", nil), http.StatusNotFound},
		{"get bad id", httptest.NewRequest(http.MethodGet, "/api/receipts/abc", nil), http.StatusBadRequest},
		{"get internal error", httptest.NewRequest(http.MethodGet, "/api/receipts/5", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := ts.do(tt.req)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.status < 300, resp.Success)
		})
	}

	w, resp := ts.do(httptest.NewRequest(http.MethodGet, "/api/receipts/5", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", resp.Error)
}
