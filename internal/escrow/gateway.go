package escrow

import (
	"context"
	"log"
	"os"
)

//go:generate mockgen -source=gateway.go -destination=mocks/processor_mock.go -package=mocks

// Processor is the boundary to the external payment provider. The engine
// only ever asks it to open an intent; settlement comes back asynchronously
// through the capture webhooks.
type Processor interface {
	CreateIntent(ctx context.Context, amount int64, reference string) (intentID string, err error)
}

var processor Processor

// Init wires the configured payment processor. Call once at startup; the
// Mercado Pago adapter falls back to mock mode when PAYMENT_GATEWAY_MOCK is
// set, which is how local and CI environments run.
func Init() {
	gw, err := NewMercadoPagoGateway(os.Getenv("MERCADOPAGO_ACCESS_TOKEN"))
	if err != nil {
		log.Printf("[escrow] payment gateway unavailable: %v", err)
		return
	}
	processor = gw
}

// SetProcessor swaps the gateway; used by tests.
func SetProcessor(p Processor) {
	processor = p
}

// requestIntent validates and forwards an intent request to the processor.
// Money-moving calls are never retried here: a transport error surfaces to
// the caller so a duplicate capture can't be provoked by blind retry.
func requestIntent(ctx context.Context, p Processor, amount int64, reference string) (string, error) {
	if amount <= 0 {
		return "", ErrAmountInvalid
	}
	if p == nil {
		return "", ErrGatewayNotConfigured
	}
	intentID, err := p.CreateIntent(ctx, amount, reference)
	if err != nil {
		log.Printf("[escrow] intent creation failed ref=%s err=%v", reference, err)
		return "", err
	}
	return intentID, nil
}
