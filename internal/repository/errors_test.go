package repository_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alexanderramin/awp4d/internal/repository"
	"github.com/stretchr/testify/assert"
)

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transient call", repository.ErrTransientCall, true},
		{"wrapped transient", fmt.Errorf("writing node 3: %w", repository.ErrTransientCall), true},
		{"corrupted state", repository.ErrCorruptedState, true},
		{"not found", repository.ErrNotFound, false},
		{"cancelled", context.Canceled, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repository.IsTransient(tt.err))
		})
	}
}
