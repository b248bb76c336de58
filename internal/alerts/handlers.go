package alerts

import (
	"context"
	"encoding/json"
	"log"

	"github.com/hibiken/asynq"
)

// Handlers below parse payloads and deliver via the configured mailer.

func handleBidAccepted(_ context.Context, t *asynq.Task) error {
	var p BidAcceptedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] BidAccepted send failed: %v", err)
		return err
	}
	log.Printf("[notify] BidAccepted sent -> job=%s to=%s", p.JobID, p.Email)
	return nil
}

func handlePaymentDue(_ context.Context, t *asynq.Task) error {
	var p PaymentDuePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] PaymentDue send failed: %v", err)
		return err
	}
	log.Printf("[notify] PaymentDue sent -> job=%s to=%s", p.JobID, p.Email)
	return nil
}

func handlePaymentCaptured(_ context.Context, t *asynq.Task) error {
	var p PaymentCapturedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] PaymentCaptured send failed: %v", err)
		return err
	}
	log.Printf("[notify] PaymentCaptured sent -> job=%s to=%s", p.JobID, p.Email)
	return nil
}

func handleJobCompleted(_ context.Context, t *asynq.Task) error {
	var p JobCompletedPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] JobCompleted send failed: %v", err)
		return err
	}
	log.Printf("[notify] JobCompleted sent -> job=%s to=%s", p.JobID, p.Email)
	return nil
}

func handleJobCancelled(_ context.Context, t *asynq.Task) error {
	var p JobCancelledPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] JobCancelled send failed: %v", err)
		return err
	}
	log.Printf("[notify] JobCancelled sent -> job=%s to=%s", p.JobID, p.Email)
	return nil
}

func handleWarrantyIssue(_ context.Context, t *asynq.Task) error {
	var p WarrantyIssuePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Email, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] WarrantyIssue send failed: %v", err)
		return err
	}
	log.Printf("[notify] WarrantyIssue sent -> hold=%s to=%s", p.HoldID, p.Email)
	return nil
}

func handleAdminAlert(_ context.Context, t *asynq.Task) error {
	var p AdminAlertPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}
	if err := SendEmail(p.Envelope.To, p.Envelope.Subject, p.Envelope.Body); err != nil {
		log.Printf("[notify][ERROR] AdminAlert send failed: %v", err)
		return err
	}
	log.Printf("[notify] AdminAlert sent -> severity=%s by=%s", p.Severity, p.AdminID)
	return nil
}
