package alerts

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// ensureClient returns a usable client instance
func ensureClient() *asynq.Client {
	if client == nil {
		Init()
	}
	return client
}

// money renders a minor-unit amount for email bodies.
func money(amount int64) string {
	return fmt.Sprintf("%d.%02d", amount/100, amount%100)
}

// EnqueueBidAccepted notifies the technician their bid was accepted and the
// exclusivity window is ticking.
func EnqueueBidAccepted(jobID, dealerID, technicianID, techEmail string, amount int64, expiresAt time.Time) error {
	env := EmailEnvelope{
		To:      techEmail,
		Subject: "Your bid was accepted",
		Body:    fmt.Sprintf("Your bid of %s on job %s was accepted. The job is reserved for you until %s.", money(amount), jobID, expiresAt.Format(time.RFC1123)),
	}
	payload := BidAcceptedPayload{JobID: jobID, DealerID: dealerID, TechnicianID: technicianID, Email: techEmail, Amount: amount, LockExpires: expiresAt, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskBidAccepted, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueuePaymentDue reminds the dealer to fund the escrow before the window closes.
func EnqueuePaymentDue(jobID, dealerID, dealerEmail string, price int64, deadline time.Time) error {
	env := EmailEnvelope{
		To:      dealerEmail,
		Subject: "Payment due for your job",
		Body:    fmt.Sprintf("Job %s is confirmed at %s. Complete payment before %s or the job reopens for bidding.", jobID, money(price), deadline.Format(time.RFC1123)),
	}
	payload := PaymentDuePayload{JobID: jobID, DealerID: dealerID, Email: dealerEmail, Amount: price, Deadline: deadline, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskPaymentDue, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueuePaymentCaptured notifies the technician that funds are escrowed and
// work may begin.
func EnqueuePaymentCaptured(jobID, dealerID, technicianID, techEmail string, gross int64) error {
	env := EmailEnvelope{
		To:      techEmail,
		Subject: "Payment secured in escrow",
		Body:    fmt.Sprintf("The dealer paid %s for job %s. Funds are held in escrow; you can start work.", money(gross), jobID),
	}
	payload := PaymentCapturedPayload{JobID: jobID, DealerID: dealerID, TechnicianID: technicianID, Email: techEmail, Amount: gross, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskPaymentCaptured, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueJobCompleted notifies the technician of the payout split.
func EnqueueJobCompleted(jobID, dealerID, technicianID, techEmail string, immediate, hold int64) error {
	env := EmailEnvelope{
		To:      techEmail,
		Subject: "Job completed and paid",
		Body:    fmt.Sprintf("Job %s is complete. %s has been released to your wallet; %s stays on warranty hold.", jobID, money(immediate), money(hold)),
	}
	payload := JobCompletedPayload{JobID: jobID, DealerID: dealerID, TechnicianID: technicianID, Email: techEmail, Immediate: immediate, HoldAmount: hold, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskJobCompleted, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueJobCancelled notifies the assigned technician that the dealer cancelled.
func EnqueueJobCancelled(jobID, dealerID, technicianID, techEmail string, refund int64) error {
	env := EmailEnvelope{
		To:      techEmail,
		Subject: "Job cancelled by dealer",
		Body:    fmt.Sprintf("Job %s was cancelled. The escrowed %s is being returned to the dealer.", jobID, money(refund)),
	}
	payload := JobCancelledPayload{JobID: jobID, DealerID: dealerID, TechnicianID: technicianID, Email: techEmail, Refund: refund, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskJobCancelled, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueWarrantyIssue notifies the technician that their hold is frozen
// pending review.
func EnqueueWarrantyIssue(holdID, jobID, technicianID, techEmail, description string) error {
	env := EmailEnvelope{
		To:      techEmail,
		Subject: "Warranty issue reported",
		Body:    fmt.Sprintf("The dealer reported an issue on job %s. Your warranty hold is frozen until an admin resolves it.\n\nReported issue: %s", jobID, description),
	}
	payload := WarrantyIssuePayload{HoldID: holdID, JobID: jobID, TechnicianID: technicianID, Email: techEmail, Description: description, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskWarrantyIssue, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("emails"))
	return err
}

// EnqueueAdminAlert sends an alert to admins
func EnqueueAdminAlert(adminID, severity, message string) error {
	env := EmailEnvelope{To: "admin@fixlink.local", Subject: "Admin Alert", Body: message}
	payload := AdminAlertPayload{AdminID: adminID, Severity: severity, Message: message, Envelope: env, SentAt: time.Now()}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskAdminAlert, b)
	_, err := ensureClient().Enqueue(task, asynq.Queue("alerts"))
	return err
}
