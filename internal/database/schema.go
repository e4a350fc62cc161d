package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// table describes one table in dialect-neutral terms.  Column definitions
// use types both MySQL and SQLite accept; only the primary key and index
// syntax differ.
type table struct {
	name    string
	columns []string
	indexes [][]string // each entry: index columns
}

// Timestamps are BIGINT epoch milliseconds, calendar dates VARCHAR(10)
// (YYYY-MM-DD), membership arrays and line items JSON text.
var tables = []table{
	{
		name: "users",
		columns: []string{
			"email VARCHAR(255) NOT NULL UNIQUE",
			"full_name VARCHAR(255) NOT NULL",
			"role VARCHAR(32) NOT NULL",
			"department VARCHAR(255) NOT NULL DEFAULT ''",
			"is_active BOOLEAN NOT NULL DEFAULT 1",
			"password_hash VARCHAR(255) NOT NULL DEFAULT ''",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"role"}, {"is_active"}},
	},
	{
		name: "refresh_tokens",
		columns: []string{
			"user_id BIGINT NOT NULL",
			"token_hash VARCHAR(64) NOT NULL UNIQUE",
			"expires_at BIGINT NOT NULL",
			"revoked_at BIGINT NULL",
		},
		indexes: [][]string{{"user_id"}},
	},
	{
		name: "projects",
		columns: []string{
			"name VARCHAR(255) NOT NULL",
			"project_code VARCHAR(64) NOT NULL DEFAULT ''",
			"client_name VARCHAR(255) NOT NULL DEFAULT ''",
			"client_contact VARCHAR(255) NOT NULL DEFAULT ''",
			"client_email VARCHAR(255) NOT NULL DEFAULT ''",
			"client_phone VARCHAR(64) NOT NULL DEFAULT ''",
			"location VARCHAR(255) NOT NULL DEFAULT ''",
			"start_date VARCHAR(10) NOT NULL",
			"end_date VARCHAR(10) NOT NULL",
			"budget DECIMAL(18,2) NOT NULL",
			"currency VARCHAR(8) NOT NULL",
			"status VARCHAR(32) NOT NULL",
			"description TEXT NOT NULL",
			"drawings TEXT NOT NULL",
			"boq TEXT NOT NULL",
			"legal_docs TEXT NOT NULL",
			"safety_certs TEXT NOT NULL",
			"created_by BIGINT NOT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"status"}, {"project_code"}},
	},
	{
		name: "project_assignments",
		columns: []string{
			"project_id BIGINT NOT NULL",
			"role VARCHAR(128) NOT NULL",
			"user_id BIGINT NULL",
			"name VARCHAR(255) NOT NULL DEFAULT ''",
			"contact VARCHAR(255) NOT NULL DEFAULT ''",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"project_id"}, {"user_id"}},
	},
	{
		name: "project_milestones",
		columns: []string{
			"project_id BIGINT NOT NULL",
			"title VARCHAR(255) NOT NULL",
			"description TEXT NOT NULL",
			"due_date VARCHAR(10) NOT NULL",
			"status VARCHAR(32) NOT NULL",
			"completed_date VARCHAR(10) NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"project_id"}},
	},
	{
		name: "contractors",
		columns: []string{
			"name VARCHAR(255) NOT NULL",
			"company VARCHAR(255) NOT NULL DEFAULT ''",
			"specialty VARCHAR(255) NOT NULL DEFAULT ''",
			"contact_person VARCHAR(255) NOT NULL DEFAULT ''",
			"email VARCHAR(255) NOT NULL DEFAULT ''",
			"phone VARCHAR(64) NOT NULL DEFAULT ''",
			"status VARCHAR(32) NOT NULL",
			"project_id BIGINT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"status"}, {"project_id"}},
	},
	{
		name: "communications",
		columns: []string{
			"type VARCHAR(32) NOT NULL",
			"title VARCHAR(255) NOT NULL DEFAULT ''",
			"content TEXT NOT NULL",
			"priority VARCHAR(16) NOT NULL",
			"from_user_id BIGINT NOT NULL",
			"to_user_ids TEXT NOT NULL",
			"read_by TEXT NOT NULL",
			"project_id BIGINT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"type", "creation_time"}, {"from_user_id"}, {"project_id"}},
	},
	{
		name: "equipment",
		columns: []string{
			"name VARCHAR(255) NOT NULL",
			"type VARCHAR(128) NOT NULL DEFAULT ''",
			"serial_number VARCHAR(128) NOT NULL DEFAULT ''",
			"status VARCHAR(32) NOT NULL",
			"location VARCHAR(255) NOT NULL DEFAULT ''",
			"last_maintenance VARCHAR(10) NULL",
			"notes TEXT NOT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"status"}, {"type"}},
	},
	{
		name: "equipment_dispatches",
		columns: []string{
			"equipment_id BIGINT NOT NULL",
			"project_id BIGINT NOT NULL",
			"requested_by BIGINT NOT NULL",
			"approved_by BIGINT NULL",
			"status VARCHAR(32) NOT NULL",
			"dispatch_date VARCHAR(10) NOT NULL",
			"return_date VARCHAR(10) NULL",
			"returned_at BIGINT NULL",
			"notes TEXT NOT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"equipment_id"}, {"project_id"}, {"status"}},
	},
	{
		name: "inventory_items",
		columns: []string{
			"name VARCHAR(255) NOT NULL",
			"sku VARCHAR(128) NOT NULL DEFAULT ''",
			"category VARCHAR(128) NOT NULL DEFAULT ''",
			"unit VARCHAR(32) NOT NULL DEFAULT ''",
			"quantity BIGINT NOT NULL",
			"min_quantity BIGINT NOT NULL DEFAULT 0",
			"location VARCHAR(255) NOT NULL DEFAULT ''",
			"unit_cost DECIMAL(18,2) NOT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"category"}, {"name", "location"}},
	},
	{
		name: "inventory_logs",
		columns: []string{
			"item_id BIGINT NOT NULL",
			"type VARCHAR(32) NOT NULL",
			"quantity_changed BIGINT NOT NULL",
			"quantity_after BIGINT NOT NULL",
			"reason VARCHAR(512) NOT NULL DEFAULT ''",
			"user_id BIGINT NOT NULL",
			"from_location VARCHAR(255) NOT NULL DEFAULT ''",
			"to_location VARCHAR(255) NOT NULL DEFAULT ''",
			"project_id BIGINT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"item_id", "creation_time"}, {"type"}},
	},
	{
		name: "inventory_requests",
		columns: []string{
			"items TEXT NOT NULL",
			"requested_by BIGINT NOT NULL",
			"approved_by BIGINT NULL",
			"project_id BIGINT NULL",
			"status VARCHAR(32) NOT NULL",
			"notes TEXT NOT NULL",
			"fulfilled_at BIGINT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"status"}, {"requested_by"}, {"project_id"}},
	},
	{
		name: "purchase_requests",
		columns: []string{
			"title VARCHAR(255) NOT NULL",
			"items TEXT NOT NULL",
			"total_estimated_cost DECIMAL(18,2) NOT NULL",
			"status VARCHAR(32) NOT NULL",
			"justification TEXT NOT NULL",
			"requested_by BIGINT NOT NULL",
			"approved_by BIGINT NULL",
			"approved_at BIGINT NULL",
			"project_id BIGINT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"status"}, {"requested_by"}},
	},
	{
		name: "attendance",
		columns: []string{
			"user_id BIGINT NOT NULL",
			"date VARCHAR(10) NOT NULL",
			"check_in BIGINT NULL",
			"check_out BIGINT NULL",
			"status VARCHAR(32) NOT NULL",
			"location VARCHAR(255) NOT NULL DEFAULT ''",
			"notes TEXT NOT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"user_id", "date"}, {"date"}},
	},
	{
		name: "ncrs",
		columns: []string{
			"project_id BIGINT NOT NULL",
			"title VARCHAR(255) NOT NULL",
			"description TEXT NOT NULL",
			"category VARCHAR(128) NOT NULL DEFAULT ''",
			"severity VARCHAR(64) NOT NULL DEFAULT ''",
			"status VARCHAR(32) NOT NULL",
			"detected_by BIGINT NOT NULL",
			"assigned_to BIGINT NULL",
			"corrective_action TEXT NOT NULL",
			"detected_date VARCHAR(10) NOT NULL",
			"closed_date VARCHAR(10) NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"project_id"}, {"status"}},
	},
	{
		name: "material_inspections",
		columns: []string{
			"project_id BIGINT NOT NULL",
			"material VARCHAR(255) NOT NULL",
			"supplier VARCHAR(255) NOT NULL DEFAULT ''",
			"batch_number VARCHAR(128) NOT NULL DEFAULT ''",
			"quantity VARCHAR(64) NOT NULL DEFAULT ''",
			"result VARCHAR(32) NOT NULL",
			"inspected_by BIGINT NOT NULL",
			"inspection_date VARCHAR(10) NOT NULL",
			"notes TEXT NOT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"project_id"}, {"result"}},
	},
	{
		name: "test_results",
		columns: []string{
			"project_id BIGINT NOT NULL",
			"test_type VARCHAR(128) NOT NULL",
			"sample_location VARCHAR(255) NOT NULL DEFAULT ''",
			"value VARCHAR(64) NOT NULL DEFAULT ''",
			"unit VARCHAR(32) NOT NULL DEFAULT ''",
			"specification VARCHAR(255) NOT NULL DEFAULT ''",
			"result VARCHAR(32) NOT NULL",
			"tested_by BIGINT NOT NULL",
			"test_date VARCHAR(10) NOT NULL",
			"notes TEXT NOT NULL",
			"creation_time BIGINT NOT NULL",
		},
		indexes: [][]string{{"project_id"}, {"result"}},
	},
}

// Migrate creates every table and index that does not exist yet.
func Migrate(ctx context.Context, db *sql.DB, d Dialect) error {
	for _, t := range tables {
		for _, stmt := range t.ddl(d) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate %s: %w", t.name, err)
			}
		}
	}
	return nil
}

// ddl renders the CREATE statements for t.  MySQL has no CREATE INDEX IF
// NOT EXISTS, so its indexes go inline; SQLite has no inline INDEX clause.
func (t table) ddl(d Dialect) []string {
	cols := make([]string, 0, len(t.columns)+len(t.indexes)+1)
	if d == MySQL {
		cols = append(cols, "id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY")
	} else {
		cols = append(cols, "id INTEGER PRIMARY KEY AUTOINCREMENT")
	}
	cols = append(cols, t.columns...)
	if d == MySQL {
		for _, idx := range t.indexes {
			cols = append(cols, fmt.Sprintf("INDEX %s (%s)", t.indexName(idx), strings.Join(idx, ", ")))
		}
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", t.name, strings.Join(cols, ",\n\t"))}
	if d == SQLite {
		for _, idx := range t.indexes {
			stmts = append(stmts, fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)",
				t.indexName(idx), t.name, strings.Join(idx, ", ")))
		}
	}
	return stmts
}

func (t table) indexName(cols []string) string {
	return "idx_" + t.name + "_" + strings.Join(cols, "_")
}
