// Package models holds the GORM row types for the ledger tables. Domain entities in
// internal/domain/ledger carry no ORM tags; each model converts with ToDomain and
// FromDomain, and repositories only ever read and write models.
//
//   - base.go: shared columns (id, timestamps, version, tenant_id)
//   - ledger.go: gl_accounts, tax_rates, ledger_transactions and ledger_transaction_lines
package models
