package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/offer-redemption/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const offerColumns = `id, title, description, offer_type, discount_value, restaurant_ids,
	valid_from, valid_to, requires_approval, min_order_value, max_redemptions,
	payment_required, image_url, status, created_at`

const redeemOfferColumns = `id, user_id, offer_id, restaurant_id, owner_id, status,
	payment_status, requested_at, redeemed_at, updated_at`

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error
	delays := []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(delays) {
			break
		}

		timer := time.NewTimer(delays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func scanOffer(row pgx.Row) (*model.Offer, error) {
	var (
		o      model.Offer
		status string
	)
	err := row.Scan(
		&o.ID, &o.Title, &o.Description, &o.OfferType, &o.DiscountValue, &o.RestaurantIDs,
		&o.ValidFrom, &o.ValidTo, &o.RequiresApproval, &o.MinOrderValue, &o.MaxRedemptions,
		&o.PaymentRequired, &o.ImageURL, &status, &o.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = model.OfferStatus(status)
	return &o, nil
}

func collectOffers(rows pgx.Rows) ([]model.Offer, error) {
	defer rows.Close()

	var offers []model.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan offer: %w", err)
		}
		offers = append(offers, *o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return offers, nil
}

// CreateOffer сохраняет новое предложение.
func (r *PostgresRepository) CreateOffer(ctx context.Context, o *model.Offer) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO offers (id, title, description, offer_type, discount_value, restaurant_ids,
			valid_from, valid_to, requires_approval, min_order_value, max_redemptions,
			payment_required, image_url, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING created_at`,
		o.ID, o.Title, o.Description, o.OfferType, o.DiscountValue, o.RestaurantIDs,
		o.ValidFrom, o.ValidTo, o.RequiresApproval, o.MinOrderValue, o.MaxRedemptions,
		o.PaymentRequired, o.ImageURL, string(o.Status),
	).Scan(&o.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert offer: %w", err)
	}
	return nil
}

// GetOffer возвращает предложение по идентификатору.
func (r *PostgresRepository) GetOffer(ctx context.Context, id string) (*model.Offer, error) {
	o, err := scanOffer(r.pool.QueryRow(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE id = $1`, id,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOfferNotFound
		}
		return nil, fmt.Errorf("get offer: %w", err)
	}
	return o, nil
}

// ListOffers возвращает все предложения.
func (r *PostgresRepository) ListOffers(ctx context.Context) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM offers ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("select offers: %w", err)
	}
	return collectOffers(rows)
}

// ListOffersByRestaurant возвращает предложения, привязанные к ресторану.
func (r *PostgresRepository) ListOffersByRestaurant(ctx context.Context, restaurantID string) ([]model.Offer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+offerColumns+` FROM offers WHERE $1 = ANY(restaurant_ids) ORDER BY created_at, id`,
		restaurantID,
	)
	if err != nil {
		return nil, fmt.Errorf("select offers by restaurant: %w", err)
	}
	return collectOffers(rows)
}

// UpdateOffer изменяет предложение под блокировкой строки.
func (r *PostgresRepository) UpdateOffer(ctx context.Context, id string, fn func(*model.Offer) error) (*model.Offer, error) {
	var updated *model.Offer

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		o, err := scanOffer(tx.QueryRow(ctx,
			`SELECT `+offerColumns+` FROM offers WHERE id = $1 FOR UPDATE`, id,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrOfferNotFound
			}
			return fmt.Errorf("lock offer: %w", err)
		}

		if err := fn(o); err != nil {
			return err
		}

		_, err = tx.Exec(ctx,
			`UPDATE offers SET title = $2, description = $3, offer_type = $4, discount_value = $5,
				restaurant_ids = $6, valid_from = $7, valid_to = $8, requires_approval = $9,
				min_order_value = $10, max_redemptions = $11, payment_required = $12,
				image_url = $13, status = $14
			 WHERE id = $1`,
			o.ID, o.Title, o.Description, o.OfferType, o.DiscountValue,
			o.RestaurantIDs, o.ValidFrom, o.ValidTo, o.RequiresApproval,
			o.MinOrderValue, o.MaxRedemptions, o.PaymentRequired,
			o.ImageURL, string(o.Status),
		)
		if err != nil {
			return fmt.Errorf("update offer: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// DeleteOffer удаляет предложение. Запросы на погашение сохраняются.
func (r *PostgresRepository) DeleteOffer(ctx context.Context, id string) error {
	cmdTag, err := r.pool.Exec(ctx, `DELETE FROM offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete offer: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrOfferNotFound
	}
	return nil
}

// ExpireOffers переводит в Inactive активные предложения с истёкшим сроком действия.
func (r *PostgresRepository) ExpireOffers(ctx context.Context, now time.Time) (int64, error) {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE offers SET status = $1 WHERE status = $2 AND valid_to < $3`,
		string(model.OfferStatusInactive), string(model.OfferStatusActive), now,
	)
	if err != nil {
		return 0, fmt.Errorf("expire offers: %w", err)
	}
	return cmdTag.RowsAffected(), nil
}

// GetRestaurant возвращает ресторан из локального справочника.
func (r *PostgresRepository) GetRestaurant(ctx context.Context, id string) (*model.Restaurant, error) {
	var (
		rs      model.Restaurant
		ownerID *string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, owner_id FROM restaurants WHERE id = $1`, id,
	).Scan(&rs.ID, &rs.Title, &ownerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRestaurantNotFound
		}
		return nil, fmt.Errorf("get restaurant: %w", err)
	}
	if ownerID != nil {
		rs.OwnerID = *ownerID
	}
	return &rs, nil
}

// CreateRedeemOffer сохраняет новый запрос на погашение.
// Частичный уникальный индекс по открытым статусам гарантирует единственность открытого запроса.
func (r *PostgresRepository) CreateRedeemOffer(ctx context.Context, ro *model.RedeemOffer) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO redeem_offers (id, user_id, offer_id, restaurant_id, owner_id, status, payment_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING requested_at, updated_at`,
		ro.ID, ro.UserID, ro.OfferID, ro.RestaurantID, ro.OwnerID,
		string(ro.Status), string(ro.PaymentStatus),
	).Scan(&ro.RequestedAt, &ro.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: user %s, offer %s", ErrDuplicateRequest, ro.UserID, ro.OfferID)
		}
		return fmt.Errorf("insert redeem offer: %w", err)
	}
	return nil
}

// RedeemOfferExists сообщает, есть ли у пользователя запрос на предложение в одном из статусов.
func (r *PostgresRepository) RedeemOfferExists(ctx context.Context, userID, offerID string, statuses ...model.RedeemStatus) (bool, error) {
	st := make([]string, 0, len(statuses))
	for _, s := range statuses {
		st = append(st, string(s))
	}

	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM redeem_offers
			WHERE user_id = $1 AND offer_id = $2 AND status = ANY($3)
		)`,
		userID, offerID, st,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check redeem offer: %w", err)
	}
	return exists, nil
}

func scanRedeemOffer(row pgx.Row) (*model.RedeemOffer, error) {
	var (
		ro            model.RedeemOffer
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&ro.ID, &ro.UserID, &ro.OfferID, &ro.RestaurantID, &ro.OwnerID, &status,
		&paymentStatus, &ro.RequestedAt, &ro.RedeemedAt, &ro.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ro.Status = model.RedeemStatus(status)
	ro.PaymentStatus = model.PaymentStatus(paymentStatus)
	return &ro, nil
}

// UpdateRedeemOffer выполняет чтение-изменение-запись запроса под блокировкой строки.
// Поля restaurant_id и owner_id не изменяются.
func (r *PostgresRepository) UpdateRedeemOffer(ctx context.Context, id string, fn func(*model.RedeemOffer) error) (*model.RedeemOffer, error) {
	var updated *model.RedeemOffer

	err := r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		ro, err := scanRedeemOffer(tx.QueryRow(ctx,
			`SELECT `+redeemOfferColumns+` FROM redeem_offers WHERE id = $1 FOR UPDATE`, id,
		))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrRedeemOfferNotFound
			}
			return fmt.Errorf("lock redeem offer: %w", err)
		}

		orig := *ro
		if err := fn(ro); err != nil {
			return err
		}
		ro.ID, ro.UserID, ro.OfferID = orig.ID, orig.UserID, orig.OfferID
		ro.RestaurantID, ro.OwnerID, ro.RequestedAt = orig.RestaurantID, orig.OwnerID, orig.RequestedAt

		err = tx.QueryRow(ctx,
			`UPDATE redeem_offers
			 SET status = $2, payment_status = $3, redeemed_at = $4, updated_at = NOW()
			 WHERE id = $1
			 RETURNING updated_at`,
			ro.ID, string(ro.Status), string(ro.PaymentStatus), ro.RedeemedAt,
		).Scan(&ro.UpdatedAt)
		if err != nil {
			return fmt.Errorf("update redeem offer: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		updated = ro
		return nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

const redeemDetailsQuery = `SELECT r.id, r.user_id, r.offer_id, r.restaurant_id, r.owner_id, r.status,
		r.payment_status, r.requested_at, r.redeemed_at, r.updated_at,
		o.id, o.title, o.description, o.discount_value, o.status,
		u.id, u.name, u.email,
		rs.id, rs.title, rs.owner_id,
		w.id, w.name, w.email
	FROM redeem_offers r
	LEFT JOIN offers o ON o.id = r.offer_id
	LEFT JOIN users u ON u.id = r.user_id
	LEFT JOIN restaurants rs ON rs.id = r.restaurant_id
	LEFT JOIN users w ON w.id = r.owner_id`

func scanRedeemOfferDetails(row pgx.Row) (*model.RedeemOfferDetails, error) {
	var (
		d                                      model.RedeemOfferDetails
		status, paymentStatus                  string
		offerID, offerTitle, offerDesc         *string
		offerStatus                            *string
		offerDiscount                          decimal.NullDecimal
		userID, userName, userEmail            *string
		restaurantID, restaurantTitle, rsOwner *string
		ownerID, ownerName, ownerEmail         *string
	)
	err := row.Scan(
		&d.ID, &d.UserID, &d.OfferID, &d.RestaurantID, &d.OwnerID, &status,
		&paymentStatus, &d.RequestedAt, &d.RedeemedAt, &d.UpdatedAt,
		&offerID, &offerTitle, &offerDesc, &offerDiscount, &offerStatus,
		&userID, &userName, &userEmail,
		&restaurantID, &restaurantTitle, &rsOwner,
		&ownerID, &ownerName, &ownerEmail,
	)
	if err != nil {
		return nil, err
	}

	d.Status = model.RedeemStatus(status)
	d.PaymentStatus = model.PaymentStatus(paymentStatus)

	if offerID != nil {
		d.Offer = &model.OfferSummary{
			ID:            *offerID,
			Title:         deref(offerTitle),
			Description:   deref(offerDesc),
			DiscountValue: offerDiscount.Decimal,
			Status:        model.OfferStatus(deref(offerStatus)),
		}
	}
	if userID != nil {
		d.User = &model.User{ID: *userID, Name: deref(userName), Email: deref(userEmail)}
	}
	if restaurantID != nil {
		d.Restaurant = &model.Restaurant{ID: *restaurantID, Title: deref(restaurantTitle), OwnerID: deref(rsOwner)}
	}
	if ownerID != nil {
		d.Owner = &model.User{ID: *ownerID, Name: deref(ownerName), Email: deref(ownerEmail)}
	}

	return &d, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// GetRedeemOfferDetails возвращает запрос на погашение вместе со связанными данными.
func (r *PostgresRepository) GetRedeemOfferDetails(ctx context.Context, id string) (*model.RedeemOfferDetails, error) {
	d, err := scanRedeemOfferDetails(r.pool.QueryRow(ctx, redeemDetailsQuery+` WHERE r.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRedeemOfferNotFound
		}
		return nil, fmt.Errorf("get redeem offer: %w", err)
	}
	return d, nil
}

// ListRedeemOffers возвращает запросы на погашение по фильтру, новые первыми.
func (r *PostgresRepository) ListRedeemOffers(ctx context.Context, filter model.RedeemOfferFilter) ([]model.RedeemOfferDetails, error) {
	var (
		conds []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args)))
	}
	add("r.user_id", filter.UserID)
	add("r.owner_id", filter.OwnerID)
	add("r.restaurant_id", filter.RestaurantID)

	query := redeemDetailsQuery
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY r.requested_at DESC, r.id"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select redeem offers: %w", err)
	}
	defer rows.Close()

	var res []model.RedeemOfferDetails
	for rows.Next() {
		d, err := scanRedeemOfferDetails(rows)
		if err != nil {
			return nil, fmt.Errorf("scan redeem offer: %w", err)
		}
		res = append(res, *d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
