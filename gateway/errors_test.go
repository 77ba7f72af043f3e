package gateway

import (
	"errors"
	"fmt"
	"testing"

	"github.com/cyp0633/calgate/store"
	"github.com/stretchr/testify/assert"
)

func TestError(t *testing.T) {
	cause := errors.New("database locked")

	tests := []struct {
		name    string
		err     *Error
		wantMsg string
		is      error
		isNot   []error
	}{
		{
			name:    "authorization pending",
			err:     AuthorizationPending(store.KindEvent),
			wantMsg: "event access: authorization pending",
			is:      ErrAuthorizationPending,
			isNot:   []error{ErrNotAuthorized, ErrUnhandled},
		},
		{
			name:    "not authorized",
			err:     NotAuthorized(store.KindReminder),
			wantMsg: "reminder access: not authorized",
			is:      ErrNotAuthorized,
			isNot:   []error{ErrAuthorizationPending, ErrUnhandled},
		},
		{
			name:    "unhandled",
			err:     Unhandled(cause),
			wantMsg: "unhandled store error: database locked",
			is:      ErrUnhandled,
			isNot:   []error{ErrAuthorizationPending, ErrNotAuthorized},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, tt.err, tt.wantMsg)
			assert.ErrorIs(t, tt.err, tt.is)
			for _, other := range tt.isNot {
				assert.NotErrorIs(t, tt.err, other)
			}

			wrapped := fmt.Errorf("sync failed: %w", tt.err)
			var gwErr *Error
			assert.ErrorAs(t, wrapped, &gwErr)
			assert.Equal(t, tt.err.Reason, gwErr.Reason)
		})
	}

	assert.ErrorIs(t, Unhandled(cause), cause)
	assert.Equal(t, "unhandled", ReasonUnhandled.String())
}
