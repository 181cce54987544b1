package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nadhifra/storefront-checkout/internal/domain"
)

type Store interface {
	ExecTx(ctx context.Context, fn func(Querier) error) error
	CreateCoupon(ctx context.Context, coupon domain.Coupon) error
	GetCouponByCode(ctx context.Context, code string) (domain.Coupon, error)
	ListCoupons(ctx context.Context) ([]domain.Coupon, error)
	CreateProduct(ctx context.Context, product domain.Product) error
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	Querier
}

// Querier is the subset of operations order placement runs inside one
// transaction.
type Querier interface {
	InsertOrder(ctx context.Context, order domain.Order) error
	IncrementUsedCount(ctx context.Context, code string) error
}

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type store struct {
	pool *pgxpool.Pool
	queries
}

type queries struct {
	db dbtx
}

func New(pool *pgxpool.Pool) Store {
	return &store{
		pool:    pool,
		queries: queries{db: pool},
	}
}

func (s *store) ExecTx(ctx context.Context, fn func(Querier) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	q := queries{db: tx}
	if err := fn(q); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("tx err: %v, rollback err: %v", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const couponColumns = `code, discount_type, discount_value, min_order_amount,
	max_discount_amount, usage_limit, used_count, starts_at, ends_at,
	is_active, applicable_to`

func (q queries) CreateCoupon(ctx context.Context, coupon domain.Coupon) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO coupons (`+couponColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		coupon.Code, coupon.DiscountType, coupon.DiscountValue,
		coupon.MinOrderAmount, coupon.MaxDiscountAmount, coupon.UsageLimit,
		coupon.UsedCount, coupon.StartDate, coupon.EndDate,
		coupon.IsActive, coupon.ApplicableTo,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateCoupon
		}
		return err
	}
	return nil
}

func (q queries) GetCouponByCode(ctx context.Context, code string) (domain.Coupon, error) {
	row := q.db.QueryRow(ctx, `
		SELECT `+couponColumns+`
		FROM coupons WHERE code = $1`, code)

	coupon, err := scanCoupon(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Coupon{}, domain.ErrCouponNotFound
		}
		return domain.Coupon{}, err
	}
	return coupon, nil
}

func (q queries) ListCoupons(ctx context.Context) ([]domain.Coupon, error) {
	rows, err := q.db.Query(ctx, `
		SELECT `+couponColumns+`
		FROM coupons ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var coupons []domain.Coupon
	for rows.Next() {
		coupon, err := scanCoupon(rows)
		if err != nil {
			return nil, err
		}
		coupons = append(coupons, coupon)
	}
	return coupons, rows.Err()
}

// IncrementUsedCount advances redemption bookkeeping with a conditional
// update so a near-exhausted coupon cannot be pushed past its limit by
// concurrent orders.
func (q queries) IncrementUsedCount(ctx context.Context, code string) error {
	tag, err := q.db.Exec(ctx, `
		UPDATE coupons
		SET used_count = used_count + 1
		WHERE code = $1
		  AND is_active
		  AND (usage_limit IS NULL OR used_count < usage_limit)`, code)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUsageLimitReached
	}
	return nil
}

func (q queries) CreateProduct(ctx context.Context, product domain.Product) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO products (id, name, price, sizes, colors)
		VALUES ($1, $2, $3, $4, $5)`,
		product.ID, product.Name, product.Price, product.Sizes, product.Colors,
	)
	if err != nil {
		if isDuplicateKey(err) {
			return domain.ErrDuplicateProduct
		}
		return err
	}
	return nil
}

func (q queries) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	var p domain.Product
	err := q.db.QueryRow(ctx, `
		SELECT id, name, price, sizes, colors, created_at
		FROM products WHERE id = $1`, id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.Sizes, &p.Colors, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrProductNotFound
		}
		return domain.Product{}, err
	}
	return p, nil
}

func (q queries) ListProducts(ctx context.Context) ([]domain.Product, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, name, price, sizes, colors, created_at
		FROM products ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var p domain.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Sizes, &p.Colors, &p.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (q queries) InsertOrder(ctx context.Context, order domain.Order) error {
	items, err := json.Marshal(order.Items)
	if err != nil {
		return fmt.Errorf("marshal order items: %w", err)
	}

	_, err = q.db.Exec(ctx, `
		INSERT INTO orders (id, items, subtotal, shipping, discount_amount,
			total, coupon_code, buyer_id, buyer_email, created_at)
		VALUES ($1, $2::jsonb, $3, $4, $5, $6, $7, $8, $9, $10)`,
		order.ID, string(items), order.Subtotal, order.Shipping,
		order.DiscountAmount, order.Total, nullable(order.CouponCode),
		nullable(order.BuyerID), nullable(order.BuyerEmail), order.CreatedAt,
	)
	return err
}

func scanCoupon(row pgx.Row) (domain.Coupon, error) {
	var c domain.Coupon
	err := row.Scan(
		&c.Code, &c.DiscountType, &c.DiscountValue, &c.MinOrderAmount,
		&c.MaxDiscountAmount, &c.UsageLimit, &c.UsedCount, &c.StartDate,
		&c.EndDate, &c.IsActive, &c.ApplicableTo,
	)
	return c, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func isDuplicateKey(err error) bool {
	return strings.Contains(err.Error(), "duplicate key") ||
		strings.Contains(err.Error(), "unique constraint")
}
