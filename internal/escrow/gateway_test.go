package escrow

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/mock/gomock"

	"github.com/fixlinkhq/fixlink/internal/escrow/mocks"
)

func TestRequestIntentValidation(t *testing.T) {
	t.Run("non-positive amount", func(t *testing.T) {
		_, err := requestIntent(context.Background(), nil, 0, "FXL-1")
		if !errors.Is(err, ErrAmountInvalid) {
			t.Fatalf("expected ErrAmountInvalid, got %v", err)
		}
		_, err = requestIntent(context.Background(), nil, -500, "FXL-1")
		if !errors.Is(err, ErrAmountInvalid) {
			t.Fatalf("expected ErrAmountInvalid, got %v", err)
		}
	})

	t.Run("no processor wired", func(t *testing.T) {
		_, err := requestIntent(context.Background(), nil, 10000, "FXL-1")
		if !errors.Is(err, ErrGatewayNotConfigured) {
			t.Fatalf("expected ErrGatewayNotConfigured, got %v", err)
		}
	})
}

func TestRequestIntentForwardsToProcessor(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	proc := mocks.NewMockProcessor(ctrl)
	proc.EXPECT().
		CreateIntent(gomock.Any(), int64(10000), "FXL-20260830-0001").
		Return("intent-42", nil)

	id, err := requestIntent(context.Background(), proc, 10000, "FXL-20260830-0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "intent-42" {
		t.Fatalf("intent id = %q, want intent-42", id)
	}
}

// A provider failure surfaces as-is; money-moving calls are never retried.
func TestRequestIntentDoesNotRetry(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	boom := errors.New("provider unreachable")
	proc := mocks.NewMockProcessor(ctrl)
	proc.EXPECT().
		CreateIntent(gomock.Any(), int64(2500), "FXL-2").
		Return("", boom).
		Times(1)

	_, err := requestIntent(context.Background(), proc, 2500, "FXL-2")
	if !errors.Is(err, boom) {
		t.Fatalf("expected provider error to surface, got %v", err)
	}
}

func TestMercadoPagoGatewayMockMode(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY_MOCK", "true")

	gw, err := NewMercadoPagoGateway("")
	if err != nil {
		t.Fatalf("mock mode must not require a token: %v", err)
	}

	first, err := gw.CreateIntent(context.Background(), 10000, "FXL-3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first == "" {
		t.Fatal("mock intent id must be non-empty")
	}
}

func TestMercadoPagoGatewayRequiresToken(t *testing.T) {
	t.Setenv("PAYMENT_GATEWAY_MOCK", "")
	t.Setenv("MERCADOPAGO_MOCK", "")

	_, err := NewMercadoPagoGateway("")
	if !errors.Is(err, ErrMissingAccessToken) {
		t.Fatalf("expected ErrMissingAccessToken, got %v", err)
	}
}
