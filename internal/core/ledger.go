package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ledgerService struct {
	pool *pgxpool.Pool
}

func NewLedgerService(pool *pgxpool.Pool) LedgerService {
	return &ledgerService{pool: pool}
}

func (s *ledgerService) RegisterMovement(ctx context.Context, req MovementRequest) (*Movement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureExists(ctx, tx, "product", "products", req.ProductID); err != nil {
		return nil, err
	}
	st, err := lockStockTx(ctx, tx, req.StockID)
	if err != nil {
		return nil, err
	}
	if req.Type == MovementEntry && st.Status != StatusActive {
		return nil, &ValidationError{Field: "stock_id", Message: fmt.Sprintf("stock %d is inactive", st.ID)}
	}

	m, err := applyMovementTx(ctx, tx, st, Movement{
		ProductID:   req.ProductID,
		Quantity:    req.Quantity,
		Type:        req.Type,
		Reason:      req.Reason,
		Responsible: req.Responsible,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit movement: %w", mapPgError(err, "stock", req.StockID))
	}
	return &m, nil
}

func (s *ledgerService) RegisterTransfer(ctx context.Context, req TransferRequest) (*Transfer, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := ensureExists(ctx, tx, "product", "products", req.ProductID); err != nil {
		return nil, err
	}
	stocks, err := lockStocksTx(ctx, tx, req.OriginStockID, req.DestinationStockID)
	if err != nil {
		return nil, err
	}
	origin, dest := stocks[req.OriginStockID], stocks[req.DestinationStockID]
	if origin.Status != StatusActive {
		return nil, &ValidationError{Field: "origin_stock_id", Message: fmt.Sprintf("stock %d is inactive", origin.ID)}
	}
	if dest.Status != StatusActive {
		return nil, &ValidationError{Field: "destination_stock_id", Message: fmt.Sprintf("stock %d is inactive", dest.ID)}
	}

	// Both checks run before any write so the error reflects the request, not a half-applied state.
	balance, err := lockBalanceTx(ctx, tx, origin.ID, req.ProductID)
	if err != nil {
		return nil, err
	}
	if req.Quantity > balance {
		return nil, &InsufficientStockError{
			StockID: origin.ID, ProductID: req.ProductID, Requested: req.Quantity, Available: balance,
		}
	}
	if req.Quantity > dest.AvailableCapacity() {
		return nil, capacityErrorTx(ctx, tx, dest.ID, req.Quantity, dest.AvailableCapacity())
	}

	t := Transfer{
		ProductID:          req.ProductID,
		Quantity:           req.Quantity,
		OriginStockID:      origin.ID,
		DestinationStockID: dest.ID,
		Responsible:        req.Responsible,
		Reason:             req.Reason,
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO transfers (product_id, quantity, origin_stock_id, destination_stock_id, responsible, reason)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, occurred_at
	`, t.ProductID, t.Quantity, t.OriginStockID, t.DestinationStockID, t.Responsible, t.Reason).
		Scan(&t.ID, &t.OccurredAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transfer: %w", err)
	}

	if err := s.applyTransferLegsTx(ctx, tx, origin, dest, t); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transfer: %w", mapPgError(err, "stock", origin.ID))
	}
	return &t, nil
}

func (s *ledgerService) applyTransferLegsTx(ctx context.Context, tx pgx.Tx, origin, dest *Stock, t Transfer) error {
	reason := t.Reason
	if reason == "" {
		reason = fmt.Sprintf("Transfer #%d", t.ID)
	}
	transferID := t.ID

	if _, err := applyMovementTx(ctx, tx, origin, Movement{
		ProductID: t.ProductID, Quantity: t.Quantity, Type: MovementExit,
		Reason: reason, Responsible: t.Responsible, TransferID: &transferID,
	}); err != nil {
		return err
	}
	if _, err := applyMovementTx(ctx, tx, dest, Movement{
		ProductID: t.ProductID, Quantity: t.Quantity, Type: MovementEntry,
		Reason: reason, Responsible: t.Responsible, TransferID: &transferID,
	}); err != nil {
		return err
	}
	return nil
}
