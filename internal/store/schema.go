package store

// Bootstrap DDL per service. Migration tooling is deliberately out of scope;
// each service ensures its own tables at startup.

const OrdersSchema = `
CREATE TABLE IF NOT EXISTS orders (
    id          UUID PRIMARY KEY,
    user_id     UUID NOT NULL,
    amount      NUMERIC(18,2) NOT NULL,
    description TEXT NOT NULL,
    status      TEXT NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL,
    updated_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_orders_user_id ON orders (user_id);

CREATE TABLE IF NOT EXISTS outbox_messages (
    id           UUID PRIMARY KEY,
    message_type TEXT NOT NULL,
    payload      TEXT NOT NULL,
    status       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    published_at TIMESTAMPTZ,
    retry_count  INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_messages (created_at) WHERE status = 'PENDING';
`

const PaymentsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
    id         UUID PRIMARY KEY,
    user_id    UUID NOT NULL UNIQUE,
    balance    NUMERIC(18,2) NOT NULL CHECK (balance >= 0),
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS transactions (
    id         UUID PRIMARY KEY,
    account_id UUID NOT NULL REFERENCES accounts (id),
    order_id   UUID NOT NULL,
    message_id TEXT NOT NULL,
    amount     NUMERIC(18,2) NOT NULL,
    type       TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL,
    UNIQUE (order_id, message_id)
);

CREATE TABLE IF NOT EXISTS inbox_messages (
    id           UUID PRIMARY KEY,
    message_id   TEXT NOT NULL UNIQUE,
    message_type TEXT NOT NULL,
    payload      TEXT NOT NULL,
    status       TEXT NOT NULL,
    received_at  TIMESTAMPTZ NOT NULL,
    processed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS outbox_messages (
    id           UUID PRIMARY KEY,
    message_type TEXT NOT NULL,
    payload      TEXT NOT NULL,
    status       TEXT NOT NULL,
    created_at   TIMESTAMPTZ NOT NULL,
    published_at TIMESTAMPTZ,
    retry_count  INT NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_outbox_pending ON outbox_messages (created_at) WHERE status = 'PENDING';
`
