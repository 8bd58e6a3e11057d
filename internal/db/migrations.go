package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Reference tables (countries, currencies, frequencies, isps, ltas, schools,
// metrics, measures, attachments, payments) are owned by other services; they
// are created here only if missing so the contract tables can reference them.
var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`CREATE TABLE IF NOT EXISTS countries (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(128) NOT NULL,
		code VARCHAR(8) NOT NULL,
		flag_url TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS currencies (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(64) NOT NULL,
		code VARCHAR(8) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS frequencies (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(64) NOT NULL
	);`,
	`CREATE TABLE IF NOT EXISTS isps (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(128) NOT NULL,
		country_id UUID REFERENCES countries(id)
	);`,
	`CREATE TABLE IF NOT EXISTS ltas (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(128) NOT NULL,
		country_id UUID NOT NULL REFERENCES countries(id),
		government_behalf BOOLEAN NOT NULL DEFAULT FALSE,
		created_by UUID,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS lta_isps (
		lta_id UUID NOT NULL REFERENCES ltas(id) ON DELETE CASCADE,
		isp_id UUID NOT NULL REFERENCES isps(id),
		PRIMARY KEY (lta_id, isp_id)
	);`,
	`CREATE TABLE IF NOT EXISTS schools (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		external_id VARCHAR(64) NOT NULL DEFAULT '',
		country_id UUID REFERENCES countries(id)
	);`,
	`CREATE TABLE IF NOT EXISTS metrics (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(64) NOT NULL,
		unit VARCHAR(16) NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS measures (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		school_id UUID NOT NULL REFERENCES schools(id),
		metric_id UUID NOT NULL REFERENCES metrics(id),
		value DOUBLE PRECISION NOT NULL,
		measured_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_measures_school_metric ON measures (school_id, metric_id);`,
	`CREATE TABLE IF NOT EXISTS attachments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		url TEXT NOT NULL DEFAULT ''
	);`,
	`CREATE TABLE IF NOT EXISTS drafts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		country_id UUID REFERENCES countries(id),
		isp_id UUID REFERENCES isps(id),
		lta_id UUID REFERENCES ltas(id),
		government_behalf BOOLEAN NOT NULL DEFAULT FALSE,
		budget NUMERIC(18,2),
		school_ids JSONB NOT NULL DEFAULT '[]',
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE TABLE IF NOT EXISTS contracts (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		name VARCHAR(255) NOT NULL,
		country_id UUID NOT NULL REFERENCES countries(id),
		currency_id UUID NOT NULL REFERENCES currencies(id),
		frequency_id UUID NOT NULL REFERENCES frequencies(id),
		isp_id UUID NOT NULL REFERENCES isps(id),
		lta_id UUID REFERENCES ltas(id),
		budget NUMERIC(18,2) NOT NULL,
		government_behalf BOOLEAN NOT NULL DEFAULT FALSE,
		start_date DATE NOT NULL,
		end_date DATE NOT NULL,
		status SMALLINT NOT NULL DEFAULT 1,
		created_by UUID NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_country_id ON contracts (country_id);`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_lta_id ON contracts (lta_id) WHERE lta_id IS NOT NULL;`,
	`CREATE INDEX IF NOT EXISTS idx_contracts_status ON contracts (status);`,
	`CREATE TABLE IF NOT EXISTS contract_schools (
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		school_id UUID NOT NULL REFERENCES schools(id),
		PRIMARY KEY (contract_id, school_id)
	);`,
	`CREATE TABLE IF NOT EXISTS contract_attachments (
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		attachment_id UUID NOT NULL REFERENCES attachments(id),
		PRIMARY KEY (contract_id, attachment_id)
	);`,
	`CREATE TABLE IF NOT EXISTS expected_metrics (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		metric_id UUID NOT NULL REFERENCES metrics(id),
		value DOUBLE PRECISION NOT NULL
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_expected_metrics_contract_metric ON expected_metrics (contract_id, metric_id);`,
	`CREATE TABLE IF NOT EXISTS payments (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		amount NUMERIC(18,2) NOT NULL,
		paid_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_payments_contract_id ON payments (contract_id);`,
	`CREATE TABLE IF NOT EXISTS status_transitions (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		contract_id UUID NOT NULL REFERENCES contracts(id) ON DELETE CASCADE,
		who UUID NOT NULL,
		initial_status SMALLINT NOT NULL,
		final_status SMALLINT NOT NULL,
		data JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE INDEX IF NOT EXISTS idx_status_transitions_contract_id ON status_transitions (contract_id);`,
}

// Migrate applies the schema statements in order. Every statement is idempotent.
func Migrate(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
