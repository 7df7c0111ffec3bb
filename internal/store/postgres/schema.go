package postgres

// Schema is the DDL for the four tables spec ss3/ss6 describe. Schema
// migration itself is out of scope for this engine (spec ss1); this constant
// exists so integration tests (and a first-run operator) have one
// authoritative definition to apply.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	balance     NUMERIC(20,4) NOT NULL CHECK (balance >= 0),
	currency    CHAR(3) NOT NULL,
	status      TEXT NOT NULL CHECK (status IN ('ACTIVE','SUSPENDED','CLOSED')),
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	version     BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS transactions (
	id               TEXT PRIMARY KEY,
	idempotency_key  TEXT NOT NULL,
	from_account_id  TEXT NOT NULL REFERENCES accounts(id),
	to_account_id    TEXT NOT NULL REFERENCES accounts(id),
	amount           NUMERIC(20,4) NOT NULL,
	currency         CHAR(3) NOT NULL,
	type             TEXT NOT NULL,
	status           TEXT NOT NULL CHECK (status IN ('COMPLETED','FAILED')),
	failure_reason   TEXT,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at     TIMESTAMPTZ,
	version          BIGINT NOT NULL DEFAULT 0
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_idempotency_key ON transactions (idempotency_key);
CREATE INDEX IF NOT EXISTS idx_transactions_from_account_id ON transactions (from_account_id);
CREATE INDEX IF NOT EXISTS idx_transactions_to_account_id ON transactions (to_account_id);

CREATE TABLE IF NOT EXISTS idempotency_records (
	id               TEXT PRIMARY KEY,
	idempotency_key  TEXT NOT NULL,
	transaction_id   TEXT NOT NULL REFERENCES transactions(id),
	response         BYTEA NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at       TIMESTAMPTZ NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_idempotency_records_key ON idempotency_records (idempotency_key);

CREATE TABLE IF NOT EXISTS outbox_events (
	id             TEXT PRIMARY KEY,
	event_type     TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	payload        BYTEA NOT NULL,
	status         TEXT NOT NULL CHECK (status IN ('PENDING','PUBLISHED','FAILED')),
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	published_at   TIMESTAMPTZ,
	retry_count    INT NOT NULL DEFAULT 0,
	error_message  TEXT
);

CREATE INDEX IF NOT EXISTS idx_outbox_status_created_at ON outbox_events (status, created_at);
`
