package domain_test

import (
	"errors"
	"testing"

	"construction-rag/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStoredEmbedding(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []float32
		wantErr bool
	}{
		{
			name:  "plain literal",
			input: "[0.1,0.2,0.3]",
			want:  []float32{0.1, 0.2, 0.3},
		},
		{
			name:  "with spaces and scientific notation",
			input: " [ 1.5e-2, -0.25 , 3 ] ",
			want:  []float32{0.015, -0.25, 3},
		},
		{
			name:    "missing brackets",
			input:   "0.1,0.2",
			wantErr: true,
		},
		{
			name:    "empty literal",
			input:   "[]",
			wantErr: true,
		},
		{
			name:    "non-numeric element",
			input:   "[0.1,abc,0.3]",
			wantErr: true,
		},
		{
			name:    "empty string",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := domain.ParseStoredEmbedding(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, domain.ErrParse))
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.InDelta(t, tt.want[i], got[i], 1e-6)
			}
		})
	}
}
