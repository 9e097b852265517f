// Package reporting serves the read side: searches and totals over
// reservations, movements and transfers. It runs on its own sqlx handle so it
// can target a read replica.
package reporting

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"procurement-engine/internal/core"

	"github.com/jmoiron/sqlx"
)

type Service struct {
	db *sqlx.DB
}

func NewService(db *sqlx.DB) *Service {
	return &Service{db: db}
}

// Ping checks the read-side connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ── Reservations ─────────────────────────────────────────────────────────────

const reservationSelect = `
	SELECT r.id, r.order_id, r.order_item_id, r.product_id, p.name AS product_name,
	       r.stock_id, st.name AS stock_name, r.quantity, r.reserved_at, r.status,
	       r.release_type, r.released_at
	FROM reservations r
	JOIN products p ON p.id = r.product_id
	JOIN stocks st  ON st.id = r.stock_id`

func (s *Service) SearchReservations(ctx context.Context, f ReservationFilter) ([]ReservationView, error) {
	var conditions []string
	args := map[string]any{}
	if f.Status != "" {
		if f.Status != core.ReservationActive && f.Status != core.ReservationReleased {
			return nil, &core.ValidationError{Field: "status", Message: "must be active or released"}
		}
		conditions = append(conditions, "r.status = :status")
		args["status"] = f.Status
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		conditions = append(conditions, "(p.name ILIKE :q OR st.name ILIKE :q OR CAST(r.order_id AS TEXT) = :raw)")
		args["q"] = "%" + q + "%"
		args["raw"] = q
	}

	query := reservationSelect + where(conditions) + " ORDER BY r.reserved_at DESC, r.id DESC"
	var rows []reservationRow
	if err := s.namedSelect(ctx, &rows, query, args); err != nil {
		return nil, fmt.Errorf("failed to search reservations: %w", err)
	}

	out := make([]ReservationView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.view())
	}
	return out, nil
}

func (s *Service) ReservationTotals(ctx context.Context) (*ReservationTotals, error) {
	var t ReservationTotals
	err := s.db.GetContext(ctx, &t, `
		SELECT COUNT(*)                                               AS total,
		       COUNT(*) FILTER (WHERE status = 'active')              AS active,
		       COUNT(*) FILTER (WHERE status = 'released')            AS released,
		       COALESCE(SUM(quantity) FILTER (WHERE status = 'active'), 0) AS active_quantity
		FROM reservations
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute reservation totals: %w", err)
	}
	return &t, nil
}

// ── Movements ────────────────────────────────────────────────────────────────

const movementSelect = `
	SELECT m.id, m.occurred_at, m.product_id, p.name AS product_name, m.stock_id, st.name AS stock_name,
	       m.quantity, m.type, m.reason, m.responsible, m.transfer_id, m.order_id
	FROM movements m
	JOIN products p ON p.id = m.product_id
	JOIN stocks st  ON st.id = m.stock_id`

func (s *Service) SearchMovements(ctx context.Context, f MovementFilter) ([]MovementView, error) {
	conditions, args, err := movementConditions(f)
	if err != nil {
		return nil, err
	}

	query := movementSelect + where(conditions) + " ORDER BY m.occurred_at DESC, m.id DESC"
	var rows []movementRow
	if err := s.namedSelect(ctx, &rows, query, args); err != nil {
		return nil, fmt.Errorf("failed to search movements: %w", err)
	}

	out := make([]MovementView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.view())
	}
	return out, nil
}

func (s *Service) GetMovement(ctx context.Context, id int) (*MovementView, error) {
	var row movementRow
	err := s.db.GetContext(ctx, &row, movementSelect+" WHERE m.id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &core.NotFoundError{Entity: "movement", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch movement %d: %w", id, err)
	}
	v := row.view()
	return &v, nil
}

// MovementTotals counts movements in the period. The type filter is ignored.
func (s *Service) MovementTotals(ctx context.Context, f MovementFilter) (*MovementTotals, error) {
	f.Type = ""
	conditions, args, err := movementConditions(f)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT COUNT(*)                                                  AS total,
		       COUNT(*) FILTER (WHERE m.type = 'entry')                  AS entries,
		       COUNT(*) FILTER (WHERE m.type = 'exit')                   AS exits,
		       COALESCE(SUM(m.quantity) FILTER (WHERE m.type = 'entry'), 0) AS entry_units,
		       COALESCE(SUM(m.quantity) FILTER (WHERE m.type = 'exit'), 0)  AS exit_units
		FROM movements m` + where(conditions)

	var totals []MovementTotals
	if err := s.namedSelect(ctx, &totals, query, args); err != nil {
		return nil, fmt.Errorf("failed to compute movement totals: %w", err)
	}
	if len(totals) == 0 {
		return &MovementTotals{}, nil
	}
	return &totals[0], nil
}

func movementConditions(f MovementFilter) ([]string, map[string]any, error) {
	var conditions []string
	args := map[string]any{}
	if f.Type != "" {
		if f.Type != core.MovementEntry && f.Type != core.MovementExit {
			return nil, nil, &core.ValidationError{Field: "type", Message: "must be entry or exit"}
		}
		conditions = append(conditions, "m.type = :type")
		args["type"] = f.Type
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, nil, &core.ValidationError{Field: "to", Message: "must not be before from"}
	}
	if f.From != nil {
		conditions = append(conditions, "m.occurred_at >= :from")
		args["from"] = *f.From
	}
	if f.To != nil {
		conditions = append(conditions, "m.occurred_at <= :to")
		args["to"] = *f.To
	}
	return conditions, args, nil
}

// ── Transfers ────────────────────────────────────────────────────────────────

func (s *Service) SearchTransfers(ctx context.Context, query string) ([]TransferView, error) {
	var conditions []string
	args := map[string]any{}
	if q := strings.TrimSpace(query); q != "" {
		conditions = append(conditions,
			"(p.name ILIKE :q OR o.name ILIKE :q OR d.name ILIKE :q OR t.responsible ILIKE :q)")
		args["q"] = "%" + q + "%"
	}

	sqlText := `
		SELECT t.id, t.occurred_at, t.product_id, p.name AS product_name, t.quantity,
		       t.origin_stock_id, o.name AS origin_stock_name,
		       t.destination_stock_id, d.name AS destination_stock_name,
		       t.responsible, t.reason
		FROM transfers t
		JOIN products p ON p.id = t.product_id
		JOIN stocks o   ON o.id = t.origin_stock_id
		JOIN stocks d   ON d.id = t.destination_stock_id` + where(conditions) + `
		ORDER BY t.occurred_at DESC, t.id DESC`

	var rows []transferRow
	if err := s.namedSelect(ctx, &rows, sqlText, args); err != nil {
		return nil, fmt.Errorf("failed to search transfers: %w", err)
	}

	out := make([]TransferView, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.view())
	}
	return out, nil
}

func (s *Service) TransferTotals(ctx context.Context) (*TransferTotals, error) {
	var t TransferTotals
	err := s.db.GetContext(ctx, &t, `
		SELECT COUNT(*)                    AS count,
		       COALESCE(SUM(quantity), 0)  AS units_moved,
		       COUNT(DISTINCT product_id)  AS distinct_products
		FROM transfers
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to compute transfer totals: %w", err)
	}
	return &t, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func where(conditions []string) string {
	if len(conditions) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conditions, " AND ")
}

// namedSelect binds :name parameters and rebinds them to $n for Postgres.
func (s *Service) namedSelect(ctx context.Context, dest any, query string, args map[string]any) error {
	q, params, err := sqlx.Named(query, args)
	if err != nil {
		return err
	}
	return s.db.SelectContext(ctx, dest, s.db.Rebind(q), params...)
}
