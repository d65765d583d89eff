package orderstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/mrkishore97/production-scheduler-v3/internal/orderbook"
)

// SnapshotInfo describes the currently stored order book upload. ImportedAt
// is zero when nothing has been imported yet.
type SnapshotInfo struct {
	UploadedName string    `json:"uploaded_name,omitempty"`
	Signature    string    `json:"-"`
	ImportedAt   time.Time `json:"imported_at,omitempty"`
}

// ReplaceSnapshot atomically swaps the stored order book for the given table,
// recording the upload name and content signature.
func (s *Store) ReplaceSnapshot(ctx context.Context, table *orderbook.Table, uploadedName, signature string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceOrdersTx(ctx, tx, table.Orders); err != nil {
		return err
	}

	columnsJSON, err := json.Marshal(table.Columns)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO order_book_meta (id, columns, uploaded_name, signature, imported_at)
		VALUES (1, ?, ?, ?, ?)
		ON CONFLICT(id)
		DO UPDATE SET columns = excluded.columns,
			uploaded_name = excluded.uploaded_name,
			signature = excluded.signature,
			imported_at = excluded.imported_at;
	`, string(columnsJSON), uploadedName, signature, time.Now().UTC().Unix()); err != nil {
		return err
	}

	return tx.Commit()
}

// ReplaceOrders swaps the stored rows while keeping the upload metadata and
// column layout, for saves of an edited table.
func (s *Store) ReplaceOrders(ctx context.Context, orders []orderbook.Order) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := replaceOrdersTx(ctx, tx, orders); err != nil {
		return err
	}
	return tx.Commit()
}

func replaceOrdersTx(ctx context.Context, tx *sql.Tx, orders []orderbook.Order) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders;`); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO orders (position, wo, quote, po_number, status, customer_name,
			model_description, scheduled_date, price, extra, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Unix()
	for i, order := range orders {
		var scheduled any
		if order.ScheduledDate != nil {
			scheduled = order.ScheduledDate.Format("2006-01-02")
		}
		var price any
		if order.Price != nil {
			price = *order.Price
		}
		extra := ""
		if len(order.Extra) > 0 {
			raw, err := json.Marshal(order.Extra)
			if err != nil {
				return err
			}
			extra = string(raw)
		}
		if _, err := stmt.ExecContext(ctx, i+1, order.WO, order.Quote, order.PONumber, order.Status,
			order.CustomerName, order.ModelDescription, scheduled, price, extra, now); err != nil {
			return err
		}
	}
	return nil
}

// LoadSnapshot returns the stored order book. A database that has never seen
// an import yields an empty table with the canonical columns.
func (s *Store) LoadSnapshot(ctx context.Context) (*orderbook.Table, *SnapshotInfo, error) {
	info := &SnapshotInfo{}
	columns := append([]string{}, orderbook.RequiredColumns...)

	row := s.db.QueryRowContext(ctx, `
		SELECT columns, uploaded_name, signature, imported_at FROM order_book_meta WHERE id = 1;
	`)
	var columnsJSON string
	var importedUnix int64
	err := row.Scan(&columnsJSON, &info.UploadedName, &info.Signature, &importedUnix)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// No import yet; keep defaults.
	case err != nil:
		return nil, nil, err
	default:
		if importedUnix > 0 {
			info.ImportedAt = time.Unix(importedUnix, 0).UTC()
		}
		if columnsJSON != "" {
			var stored []string
			if err := json.Unmarshal([]byte(columnsJSON), &stored); err != nil {
				return nil, nil, err
			}
			if len(stored) > 0 {
				columns = stored
			}
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT wo, quote, po_number, status, customer_name, model_description,
			scheduled_date, price, extra
		FROM orders
		ORDER BY position;
	`)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	table := &orderbook.Table{Columns: columns}
	for rows.Next() {
		var order orderbook.Order
		var scheduled sql.NullString
		var price sql.NullFloat64
		var extra string
		if err := rows.Scan(&order.WO, &order.Quote, &order.PONumber, &order.Status,
			&order.CustomerName, &order.ModelDescription, &scheduled, &price, &extra); err != nil {
			return nil, nil, err
		}
		if scheduled.Valid && scheduled.String != "" {
			if parsed, ok := orderbook.CoerceDate(scheduled.String); ok {
				order.ScheduledDate = &parsed
			}
		}
		if price.Valid {
			value := price.Float64
			order.Price = &value
		}
		if extra != "" {
			if err := json.Unmarshal([]byte(extra), &order.Extra); err != nil {
				return nil, nil, err
			}
		}
		table.Orders = append(table.Orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return table, info, nil
}

// MergeEdited applies edited rows onto the stored book keyed by WO: rows
// matching an existing WO replace it in place, new rows append. Rows that no
// longer identify an order are dropped. Returns how many rows were applied.
func (s *Store) MergeEdited(ctx context.Context, edited []orderbook.Order) (int, error) {
	table, _, err := s.LoadSnapshot(ctx)
	if err != nil {
		return 0, err
	}

	byWO := make(map[string]int, len(table.Orders))
	for i, order := range table.Orders {
		if order.WO == "" {
			continue
		}
		if _, seen := byWO[order.WO]; !seen {
			byWO[order.WO] = i
		}
	}

	applied := 0
	for _, order := range edited {
		cleaned := order.Clean()
		if !cleaned.Identified() {
			continue
		}
		if idx, ok := byWO[cleaned.WO]; ok && cleaned.WO != "" {
			table.Orders[idx] = cleaned
		} else {
			table.Orders = append(table.Orders, cleaned)
			if cleaned.WO != "" {
				byWO[cleaned.WO] = len(table.Orders) - 1
			}
		}
		applied++
	}

	if applied == 0 {
		return 0, nil
	}
	if err := s.ReplaceOrders(ctx, table.Orders); err != nil {
		return 0, err
	}
	return applied, nil
}

// RescheduleOrder moves every row with the given WO to a new date, or clears
// the date when date is nil.
func (s *Store) RescheduleOrder(ctx context.Context, wo string, date *time.Time) error {
	var scheduled any
	if date != nil {
		truncated := orderbook.TruncateToDate(*date)
		scheduled = truncated.Format("2006-01-02")
	}
	result, err := s.db.ExecContext(ctx, `
		UPDATE orders SET scheduled_date = ?, updated_at = ? WHERE wo = ?;
	`, scheduled, time.Now().UTC().Unix(), wo)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearAll removes every order and the upload metadata.
func (s *Store) ClearAll(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders;`); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM order_book_meta;`); err != nil {
		return err
	}
	return tx.Commit()
}

// CountOrders returns how many rows the snapshot holds.
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders;`)
	var count int
	if err := row.Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
