package conversation

import (
	"errors"
	"strings"
	"testing"

	"github.com/taskpilot/taskpilot/internal/domain"
)

func TestChatRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		message string
		wantErr bool
	}{
		{name: "valid", message: "hello"},
		{name: "empty", message: "", wantErr: true},
		{name: "at limit", message: strings.Repeat("a", MaxMessageLen)},
		{name: "over limit", message: strings.Repeat("a", MaxMessageLen+1), wantErr: true},
		// 5000 characters of multi-byte text is within the bound even
		// though it is three times as many bytes.
		{name: "multibyte at limit", message: strings.Repeat("你", MaxMessageLen)},
		{name: "multibyte over limit", message: strings.Repeat("你", MaxMessageLen+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := ChatRequest{Message: tt.message}
			err := req.Validate()
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
