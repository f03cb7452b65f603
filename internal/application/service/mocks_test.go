package service

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/garyjia/spendlens/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

type MockPreferenceRepo struct {
	mock.Mock
}

func (m *MockPreferenceRepo) Upsert(ctx context.Context, pref *entity.Preference) error {
	return m.Called(ctx, pref).Error(0)
}

func (m *MockPreferenceRepo) GetByKey(ctx context.Context, key string) (*entity.Preference, error) {
	args := m.Called(ctx, key)
	pref, _ := args.Get(0).(*entity.Preference)
	return pref, args.Error(1)
}

type MockAICategorizer struct {
	mock.Mock
}

func (m *MockAICategorizer) Categorize(ctx context.Context, sanitized string, tokens []string) (*entity.AICategorization, error) {
	args := m.Called(ctx, sanitized, tokens)
	res, _ := args.Get(0).(*entity.AICategorization)
	return res, args.Error(1)
}

type MockTransactionRepo struct {
	mock.Mock
}

func (m *MockTransactionRepo) Create(ctx context.Context, tx *entity.Transaction) error {
	return m.Called(ctx, tx).Error(0)
}

func (m *MockTransactionRepo) ListByBatch(ctx context.Context, batchID string) ([]*entity.Transaction, error) {
	args := m.Called(ctx, batchID)
	txs, _ := args.Get(0).([]*entity.Transaction)
	return txs, args.Error(1)
}

// inlineTxManager runs fn without a real transaction.
type inlineTxManager struct {
	calls int
}

func (m *inlineTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.calls++
	return fn(ctx)
}

type MockReceiptRepo struct {
	mock.Mock
}

func (m *MockReceiptRepo) Create(ctx context.Context, r *entity.StoredReceipt) error {
	args := m.Called(ctx, r)
	if args.Error(0) == nil {
		r.ID = 1
	}
	return args.Error(0)
}

func (m *MockReceiptRepo) GetByID(ctx context.Context, id int64) (*entity.StoredReceipt, error) {
	args := m.Called(ctx, id)
	r, _ := args.Get(0).(*entity.StoredReceipt)
	return r, args.Error(1)
}

func (m *MockReceiptRepo) List(ctx context.Context, limit, offset int) ([]*entity.StoredReceipt, error) {
	args := m.Called(ctx, limit, offset)
	rs, _ := args.Get(0).([]*entity.StoredReceipt)
	return rs, args.Error(1)
}

type MockReceiptExtractor struct {
	mock.Mock
}

func (m *MockReceiptExtractor) ExtractFromText(ctx context.Context, text string) (*entity.ReceiptDocument, error) {
	args := m.Called(ctx, text)
	doc, _ := args.Get(0).(*entity.ReceiptDocument)
	return doc, args.Error(1)
}

func (m *MockReceiptExtractor) ExtractFromImage(ctx context.Context, data []byte, mimeType string) (*entity.ReceiptDocument, error) {
	args := m.Called(ctx, data, mimeType)
	doc, _ := args.Get(0).(*entity.ReceiptDocument)
	return doc, args.Error(1)
}

type MockPDFExtractor struct {
	mock.Mock
}

func (m *MockPDFExtractor) ExtractText(data []byte) (string, error) {
	args := m.Called(data)
	return args.String(0), args.Error(1)
}

func (m *MockPDFExtractor) RenderPage(data []byte, page int) ([]byte, error) {
	args := m.Called(data, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

type MockFileStorage struct {
	mock.Mock
}

func (m *MockFileStorage) Save(ctx context.Context, path string, content []byte) error {
	return m.Called(ctx, path, content).Error(0)
}

func (m *MockFileStorage) Read(ctx context.Context, path string) ([]byte, error) {
	args := m.Called(ctx, path)
	b, _ := args.Get(0).([]byte)
	return b, args.Error(1)
}

func (m *MockFileStorage) Exists(ctx context.Context, path string) bool {
	return m.Called(ctx, path).Bool(0)
}

func (m *MockFileStorage) Delete(ctx context.Context, path string) error {
	return m.Called(ctx, path).Error(0)
}

func (m *MockFileStorage) GetFullPath(relativePath string) string {
	return m.Called(relativePath).String(0)
}
