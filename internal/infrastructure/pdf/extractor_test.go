package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestExtractor_RejectsInvalidDocuments(t *testing.T) {
	e := NewExtractor(zap.NewNop())

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"not a pdf", []byte("hello, world")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.ExtractText(tt.data)
			assert.Error(t, err)

			_, err = e.RenderPage(tt.data, 0)
			assert.Error(t, err)
		})
	}
}
