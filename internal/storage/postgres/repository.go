package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/clearway-labs/psp-console/internal/domain"
	"github.com/clearway-labs/psp-console/internal/storage"
	"github.com/jackc/pgx/v5"
)

// TransactionRepository implements storage.Repository on the transactions
// table. Timeline, error and refund payloads are stored as jsonb.
type TransactionRepository struct {
	db *DB
}

var _ storage.Repository = (*TransactionRepository)(nil)

func NewTransactionRepository(db *DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

const transactionColumns = `
	id, reference, created_at, merchant_id, merchant_name,
	amount_cents, currency, fee_cents, net_cents,
	method, network, status, timeline, result_error, refund
`

func (r *TransactionRepository) GetByID(ctx context.Context, id string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1`
	return scanTransaction(r.db.Pool.QueryRow(ctx, query, id), id)
}

func (r *TransactionRepository) Query(ctx context.Context, q storage.TransactionQuery) (domain.PagedResult, error) {
	where, args := buildWhere(q.Filters)

	var total int
	countQuery := `SELECT COUNT(*) FROM transactions` + where
	if err := r.db.Pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return domain.PagedResult{}, fmt.Errorf("count transactions: %w", err)
	}

	offset := (q.Page - 1) * q.PageSize
	if offset < 0 {
		offset = 0
	}

	listQuery := fmt.Sprintf(
		`SELECT %s FROM transactions%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		transactionColumns, where, len(args)+1, len(args)+2,
	)
	args = append(args, q.PageSize, offset)

	rows, err := r.db.Pool.Query(ctx, listQuery, args...)
	if err != nil {
		return domain.PagedResult{}, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Transaction, 0, q.PageSize)
	for rows.Next() {
		tx, err := scanTransactionRow(rows)
		if err != nil {
			return domain.PagedResult{}, err
		}
		items = append(items, *tx)
	}
	if err := rows.Err(); err != nil {
		return domain.PagedResult{}, fmt.Errorf("iterate transactions: %w", err)
	}

	return domain.PagedResult{Items: items, Total: total}, nil
}

func (r *TransactionRepository) Insert(ctx context.Context, tx *domain.Transaction) error {
	timeline, resultErr, refund, err := marshalPayloads(tx)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO transactions (
			id, reference, created_at, merchant_id, merchant_name,
			amount_cents, currency, fee_cents, net_cents,
			method, network, status, timeline, result_error, refund
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err = r.db.Pool.Exec(ctx, query,
		tx.ID, tx.Reference, tx.CreatedAt, tx.MerchantID, tx.MerchantName,
		tx.AmountCents, tx.Currency, tx.FeeCents, tx.NetCents,
		tx.Method, tx.Network, tx.Status, timeline, resultErr, refund,
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *TransactionRepository) Update(ctx context.Context, tx *domain.Transaction) error {
	timeline, resultErr, refund, err := marshalPayloads(tx)
	if err != nil {
		return err
	}

	query := `
		UPDATE transactions SET
			status = $1, fee_cents = $2, net_cents = $3,
			timeline = $4, result_error = $5, refund = $6
		WHERE id = $7
	`
	tag, err := r.db.Pool.Exec(ctx, query,
		tx.Status, tx.FeeCents, tx.NetCents, timeline, resultErr, refund, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("transaction", tx.ID)
	}
	return nil
}

// buildWhere translates a filter snapshot into a WHERE clause. Facets mirror
// domain.TransactionFilters.Matches.
func buildWhere(f domain.TransactionFilters) (string, []any) {
	var conds []string
	var args []any

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.Status != domain.TabAll && f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		n := len(args)
		conds = append(conds, fmt.Sprintf("(id ILIKE $%d OR reference ILIKE $%d)", n, n))
	}
	if f.MerchantID != domain.MerchantAny && f.MerchantID != "" {
		add("merchant_id = $%d", f.MerchantID)
	}
	switch f.DateRange {
	case domain.DateLast7:
		conds = append(conds, "created_at >= NOW() - INTERVAL '7 days'")
	case domain.DateLast30:
		conds = append(conds, "created_at >= NOW() - INTERVAL '30 days'")
	}
	switch f.AmountRange {
	case domain.AmountLt100:
		conds = append(conds, "amount_cents < 10000")
	case domain.Amount100To1K:
		conds = append(conds, "amount_cents BETWEEN 10000 AND 100000")
	case domain.Amount1KTo10K:
		conds = append(conds, "amount_cents BETWEEN 100000 AND 1000000")
	case domain.AmountGt10K:
		conds = append(conds, "amount_cents > 1000000")
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func marshalPayloads(tx *domain.Transaction) (timeline, resultErr, refund []byte, err error) {
	timeline, err = json.Marshal(tx.Timeline)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("marshal timeline: %w", err)
	}
	if tx.Error != nil {
		resultErr, err = json.Marshal(tx.Error)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal error payload: %w", err)
		}
	}
	if tx.Refund != nil {
		refund, err = json.Marshal(tx.Refund)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("marshal refund payload: %w", err)
		}
	}
	return timeline, resultErr, refund, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row pgx.Row, id string) (*domain.Transaction, error) {
	tx, err := scanTransactionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("transaction", id)
		}
		return nil, err
	}
	return tx, nil
}

func scanTransactionRow(row rowScanner) (*domain.Transaction, error) {
	var (
		tx          domain.Transaction
		timelineRaw []byte
		errorRaw    []byte
		refundRaw   []byte
	)

	err := row.Scan(
		&tx.ID, &tx.Reference, &tx.CreatedAt, &tx.MerchantID, &tx.MerchantName,
		&tx.AmountCents, &tx.Currency, &tx.FeeCents, &tx.NetCents,
		&tx.Method, &tx.Network, &tx.Status, &timelineRaw, &errorRaw, &refundRaw,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	if len(timelineRaw) > 0 {
		if err := json.Unmarshal(timelineRaw, &tx.Timeline); err != nil {
			return nil, fmt.Errorf("unmarshal timeline: %w", err)
		}
	}
	if len(errorRaw) > 0 {
		tx.Error = &domain.ResultError{}
		if err := json.Unmarshal(errorRaw, tx.Error); err != nil {
			return nil, fmt.Errorf("unmarshal error payload: %w", err)
		}
	}
	if len(refundRaw) > 0 {
		tx.Refund = &domain.RefundRecord{}
		if err := json.Unmarshal(refundRaw, tx.Refund); err != nil {
			return nil, fmt.Errorf("unmarshal refund payload: %w", err)
		}
	}

	return &tx, nil
}
