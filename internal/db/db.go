package db

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
)

var Conn *pgxpool.Pool

// Init connects to Postgres and makes sure the schema the handlers expect
// is in place.
func Init() {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			os.Getenv("DB_HOST"),
			os.Getenv("DB_PORT"),
			os.Getenv("DB_NAME"),
		)
	}

	var err error
	Conn, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}

	if err = Conn.Ping(context.Background()); err != nil {
		log.Fatalf("Unable to ping database: %v\n", err)
	}

	log.Println("Connected to Postgres successfully")

	ensureUsersTable()
	ensureWalletTables()
	ensureJobsTable()
	ensureJobBidsTable()
	ensureJobPaymentsTable()
	ensureWarrantyHoldsTable()
	ensureTrustScoreHistoryTable()
	ensureJobReviewsTable()
	ensureCommissionRulesTable()
	ensureNotificationsTable()
}

func ensureUsersTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS users (
            id UUID PRIMARY KEY,
            name TEXT NOT NULL,
            email TEXT NOT NULL UNIQUE,
            password TEXT NOT NULL,
            role TEXT NOT NULL CHECK (role IN ('dealer','technician','admin','superadmin')),
            region TEXT NOT NULL DEFAULT '',
            trust_score INTEGER NOT NULL DEFAULT 50 CHECK (trust_score BETWEEN 0 AND 100),
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to create users table: %v", err)
	}
}

func ensureWalletTables() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS wallets (
            user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
            balance BIGINT NOT NULL DEFAULT 0,
            escrow BIGINT NOT NULL DEFAULT 0,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`)
	if err != nil {
		log.Printf("failed to create wallets table: %v", err)
	}
	_, err = Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS transactions (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL,
            type TEXT NOT NULL CHECK (type IN ('credit','debit')),
            status TEXT NOT NULL,
            reference UUID NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_transactions_user_created ON transactions(user_id, created_at);
    `)
	if err != nil {
		log.Printf("failed to create transactions table: %v", err)
	}
	_, err = Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS withdrawals (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            amount BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN ('pending','paid','rejected')),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            confirmed_at TIMESTAMP WITH TIME ZONE NULL
        )`)
	if err != nil {
		log.Printf("failed to create withdrawals table: %v", err)
	}
}

func ensureJobsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS jobs (
            id UUID PRIMARY KEY,
            job_number TEXT NOT NULL UNIQUE,
            dealer_id UUID NOT NULL REFERENCES users(id),
            technician_id UUID NULL REFERENCES users(id),
            category TEXT NOT NULL,
            subcategory TEXT NOT NULL DEFAULT '',
            region TEXT NOT NULL DEFAULT '',
            description TEXT NOT NULL DEFAULT '',
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
                'pending', 'soft_locked', 'waiting_for_payment', 'assigned',
                'in_progress', 'completion_pending_approval', 'completed', 'cancelled'
            )),
            estimated_cost BIGINT NOT NULL DEFAULT 0,
            final_price BIGINT NULL,
            price_locked BOOLEAN NOT NULL DEFAULT FALSE,
            soft_locked_by UUID NULL REFERENCES users(id),
            soft_locked_at TIMESTAMP WITH TIME ZONE NULL,
            soft_lock_expires_at TIMESTAMP WITH TIME ZONE NULL,
            payment_deadline_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            assigned_at TIMESTAMP WITH TIME ZONE NULL,
            completed_at TIMESTAMP WITH TIME ZONE NULL,
            cancelled_at TIMESTAMP WITH TIME ZONE NULL,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_jobs_dealer ON jobs(dealer_id);
        CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);
        CREATE INDEX IF NOT EXISTS idx_jobs_softlock_expiry ON jobs(soft_lock_expires_at) WHERE status = 'soft_locked';
        CREATE INDEX IF NOT EXISTS idx_jobs_payment_deadline ON jobs(payment_deadline_at) WHERE status = 'waiting_for_payment';
    `)
	if err != nil {
		log.Printf("failed to create jobs table: %v", err)
	}
}

func ensureJobBidsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS job_bids (
            id UUID PRIMARY KEY,
            job_id UUID NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
            technician_id UUID NOT NULL REFERENCES users(id),
            amount BIGINT NOT NULL CHECK (amount > 0),
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
                'pending', 'countered', 'accepted', 'rejected', 'withdrawn'
            )),
            is_counter_offer BOOLEAN NOT NULL DEFAULT FALSE,
            offered_by TEXT NOT NULL CHECK (offered_by IN ('dealer','technician')),
            previous_bid_id UUID NULL REFERENCES job_bids(id),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_job_bids_job ON job_bids(job_id);
        CREATE INDEX IF NOT EXISTS idx_job_bids_technician ON job_bids(technician_id);
    `)
	if err != nil {
		log.Printf("failed to create job_bids table: %v", err)
	}
}

func ensureJobPaymentsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS job_payments (
            id UUID PRIMARY KEY,
            job_id UUID NOT NULL REFERENCES jobs(id),
            dealer_id UUID NOT NULL REFERENCES users(id),
            technician_id UUID NOT NULL REFERENCES users(id),
            intent_id TEXT NULL UNIQUE,
            gross_amount BIGINT NOT NULL,
            commission_type TEXT NOT NULL,
            commission_value BIGINT NOT NULL,
            commission_amount BIGINT NOT NULL,
            net_amount BIGINT NOT NULL,
            payment_type TEXT NOT NULL DEFAULT 'service' CHECK (payment_type IN ('service','warranty_hold')),
            is_warranty_hold BOOLEAN NOT NULL DEFAULT FALSE,
            status TEXT NOT NULL DEFAULT 'pending' CHECK (status IN (
                'pending', 'escrow_hold', 'released', 'failed', 'refunded'
            )),
            released_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_job_payments_job ON job_payments(job_id);
    `)
	if err != nil {
		log.Printf("failed to create job_payments table: %v", err)
	}
}

func ensureWarrantyHoldsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS warranty_holds (
            id UUID PRIMARY KEY,
            job_id UUID NOT NULL REFERENCES jobs(id),
            payment_id UUID NOT NULL REFERENCES job_payments(id),
            technician_id UUID NOT NULL REFERENCES users(id),
            dealer_id UUID NOT NULL REFERENCES users(id),
            hold_amount BIGINT NOT NULL,
            status TEXT NOT NULL DEFAULT 'locked' CHECK (status IN (
                'locked', 'frozen', 'released', 'forfeited'
            )),
            issue_description TEXT NULL,
            issue_reported_by UUID NULL REFERENCES users(id),
            issue_reported_at TIMESTAMP WITH TIME ZONE NULL,
            resolution TEXT NULL CHECK (resolution IN ('unfounded','released','forfeited')),
            resolved_by UUID NULL REFERENCES users(id),
            resolved_at TIMESTAMP WITH TIME ZONE NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            expires_at TIMESTAMP WITH TIME ZONE NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_warranty_holds_expiry ON warranty_holds(expires_at) WHERE status = 'locked';
        CREATE INDEX IF NOT EXISTS idx_warranty_holds_technician ON warranty_holds(technician_id);
    `)
	if err != nil {
		log.Printf("failed to create warranty_holds table: %v", err)
	}
}

func ensureTrustScoreHistoryTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS trust_score_history (
            id UUID PRIMARY KEY,
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user_type TEXT NOT NULL CHECK (user_type IN ('dealer','technician')),
            previous_score INTEGER NOT NULL,
            new_score INTEGER NOT NULL CHECK (new_score BETWEEN 0 AND 100),
            reason_code TEXT NOT NULL,
            reason TEXT NOT NULL DEFAULT '',
            actor_id UUID NULL REFERENCES users(id),
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_trust_history_user ON trust_score_history(user_id, created_at);
    `)
	if err != nil {
		log.Printf("failed to create trust_score_history table: %v", err)
	}
}

func ensureJobReviewsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS job_reviews (
            id UUID PRIMARY KEY,
            job_id UUID NOT NULL UNIQUE REFERENCES jobs(id),
            dealer_id UUID NOT NULL REFERENCES users(id),
            technician_id UUID NOT NULL REFERENCES users(id),
            rating INTEGER NOT NULL CHECK (rating BETWEEN 1 AND 5),
            comment TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        );
        CREATE INDEX IF NOT EXISTS idx_job_reviews_technician ON job_reviews(technician_id);
    `)
	if err != nil {
		log.Printf("failed to create job_reviews table: %v", err)
	}
}

func ensureCommissionRulesTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS commission_rules (
            id UUID PRIMARY KEY,
            scope TEXT NOT NULL CHECK (scope IN ('global','category','region','dealer')),
            key TEXT NOT NULL DEFAULT '',
            type TEXT NOT NULL CHECK (type IN ('percentage','flat')),
            value BIGINT NOT NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (scope, key)
        )`)
	if err != nil {
		log.Printf("failed to create commission_rules table: %v", err)
		return
	}
	// Seed the global default so the resolver always has a floor.
	_, err = Conn.Exec(ctx, `
        INSERT INTO commission_rules (id, scope, key, type, value)
        VALUES (gen_random_uuid(), 'global', '', 'percentage', 1500)
        ON CONFLICT (scope, key) DO NOTHING`)
	if err != nil {
		log.Printf("failed to seed global commission rule: %v", err)
	}
}

// ensureNotificationsTable creates notifications table if it doesn't exist
func ensureNotificationsTable() {
	ctx := context.Background()
	_, err := Conn.Exec(ctx, `
        CREATE TABLE IF NOT EXISTS notifications (
            id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
            user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            type TEXT NOT NULL,
            title TEXT NOT NULL,
            body TEXT,
            reference UUID NULL,
            metadata JSONB NULL,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            read_at TIMESTAMP WITH TIME ZONE NULL
        );
        CREATE INDEX IF NOT EXISTS idx_notifications_user_created ON notifications(user_id, created_at);
        CREATE INDEX IF NOT EXISTS idx_notifications_user_unread ON notifications(user_id) WHERE read_at IS NULL;
    `)
	if err != nil {
		log.Printf("failed to create notifications table: %v", err)
	}
}
