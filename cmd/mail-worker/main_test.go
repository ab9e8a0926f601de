package main

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"expensetracker/internal/amqp"
	"expensetracker/internal/mail"
	"expensetracker/internal/notify"

	"github.com/stretchr/testify/assert"
)

func TestDeliver(t *testing.T) {
	tests := []struct {
		name        string
		sendErr     error
		wantErr     bool
		wantDiscard bool
	}{
		{"sent", nil, false, false},
		{"transient failure requeues", errors.New("gmail send: 503"), true, false},
		{"revoked token is dropped", fmt.Errorf("token: %w", mail.ErrCredentials), true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := notify.DispatcherFunc(func(ctx context.Context, n notify.Notification) error { return tt.sendErr })
			err := deliver(d)(context.Background(), notify.Notification{ID: "n1", To: "ann@example.com"})

			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Error(t, err)
			assert.Equal(t, tt.wantDiscard, errors.Is(err, amqp.ErrDiscard))
		})
	}
}
