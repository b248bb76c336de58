package escrow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
)

var (
	ErrMissingAccessToken   = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
	ErrGatewayNotConfigured = errors.New("payment gateway not configured")
)

// MercadoPagoGateway adapts the Mercado Pago SDK to the Processor boundary.
// In mock mode (PAYMENT_GATEWAY_MOCK / MERCADOPAGO_MOCK env) it fabricates
// intent ids locally so the whole flow runs without credentials.
type MercadoPagoGateway struct {
	client   payment.Client
	mockMode bool
}

func NewMercadoPagoGateway(accessToken string) (*MercadoPagoGateway, error) {
	if isGatewayMockEnabled() {
		log.Printf("[escrow][gateway] mock mode enabled")
		return &MercadoPagoGateway{mockMode: true}, nil
	}

	if accessToken == "" {
		return nil, ErrMissingAccessToken
	}

	cfg, err := config.New(accessToken)
	if err != nil {
		log.Printf("[escrow][gateway] failed creating sdk config err=%v", err)
		return nil, err
	}
	log.Printf("[escrow][gateway] Mercado Pago client initialized")

	return &MercadoPagoGateway{client: payment.NewClient(cfg)}, nil
}

// CreateIntent opens a pending payment with the provider for the given
// amount in minor units. The reference travels as the external reference so
// capture callbacks can be tied back to the job.
func (g *MercadoPagoGateway) CreateIntent(ctx context.Context, amount int64, reference string) (string, error) {
	if g != nil && g.mockMode {
		id := strconv.FormatInt(time.Now().UTC().UnixNano(), 10)
		log.Printf("[escrow][gateway] mock intent created id=%s ref=%s amount=%d", id, reference, amount)
		return id, nil
	}

	if g == nil || g.client == nil {
		return "", ErrGatewayNotConfigured
	}

	req := payment.Request{
		TransactionAmount: float64(amount) / 100,
		ExternalReference: reference,
		Description:       "FixLink job payment " + reference,
	}
	resp, err := g.client.Create(ctx, req)
	if err != nil {
		log.Printf("[escrow][gateway] sdk create failed ref=%s err=%v", reference, err)
		return "", err
	}
	log.Printf("[escrow][gateway] intent created id=%d status=%s ref=%s", resp.ID, resp.Status, reference)

	return fmt.Sprintf("%d", resp.ID), nil
}

func isGatewayMockEnabled() bool {
	for _, key := range []string{"PAYMENT_GATEWAY_MOCK", "MERCADOPAGO_MOCK"} {
		v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
		switch v {
		case "1", "true", "yes", "on", "mock":
			return true
		}
	}
	return false
}
