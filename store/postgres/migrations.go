package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the yieldledger store.
var Migrations = migrate.NewGroup("yieldledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_yieldledger_balances",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS yieldledger_balances (
    balance_key       TEXT PRIMARY KEY,
    tenant_id         TEXT NOT NULL,
    token             TEXT NOT NULL,
    account           TEXT NOT NULL DEFAULT '',
    collateral_shares TEXT NOT NULL DEFAULT '0',
    collateral        TEXT NOT NULL DEFAULT '0',
    debt              TEXT NOT NULL DEFAULT '0',
    yield             TEXT NOT NULL DEFAULT '0',
    yield_observed    TEXT NOT NULL DEFAULT '0',
    revenue_shares    TEXT NOT NULL DEFAULT '0',
    created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_yieldledger_balances_triple ON yieldledger_balances (tenant_id, token, account);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS yieldledger_balances`)
				return err
			},
		},
	)
}
