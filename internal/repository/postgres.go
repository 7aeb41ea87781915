// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/storefront/internal/model"
	"github.com/mmeshcher/storefront/internal/storage"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// kvChannel задаёт канал LISTEN/NOTIFY для изменений key-value хранилища.
const kvChannel = "kv_changed"

var (
	_ storage.Store      = (*PostgresRepository)(nil)
	_ storage.Subscriber = (*PostgresRepository)(nil)
)

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
	delays := []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

	for i := 0; i <= len(delays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		if i == len(delays) || !isRetryable(err) {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delays[i]):
		}
	}
	return err
}

// isRetryable сообщает, стоит ли повторить операцию: конфликт сериализации,
// взаимоблокировка или обрыв соединения.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// Get возвращает значение из таблицы kv_store.
func (r *PostgresRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get value: %w", err)
	}
	return value, true, nil
}

// Set перезаписывает значение и уведомляет подписчиков через NOTIFY.
func (r *PostgresRepository) Set(ctx context.Context, key, value string) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		_, err = tx.Exec(ctx,
			`INSERT INTO kv_store (key, value, updated_at) VALUES ($1, $2, now())
			 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
			key, value,
		)
		if err != nil {
			return fmt.Errorf("set value: %w", err)
		}

		if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, kvChannel, key); err != nil {
			return fmt.Errorf("notify: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}

// Subscribe слушает канал kv_changed на выделенном соединении и передаёт уведомления по ключу.
func (r *PostgresRepository) Subscribe(ctx context.Context, key string) (<-chan struct{}, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire conn: %w", err)
	}

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{kvChannel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen: %w", err)
	}

	// соединение с активным LISTEN не возвращаем в пул
	listener := conn.Hijack()

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer listener.Close(context.Background())

		for {
			n, err := listener.WaitForNotification(ctx)
			if err != nil {
				return
			}
			if n.Payload != key {
				continue
			}
			select {
			case ch <- struct{}{}:
			default:
			}
		}
	}()

	return ch, nil
}

// CreateInstallment сохраняет план рассрочки вместе с графиком платежей.
func (r *PostgresRepository) CreateInstallment(ctx context.Context, inst *model.Installment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO installments (id, user_id, product_id, product_name, product_image, product_price,
		   down_payment, total_amount, monthly_payment, duration, interest_rate, paid_installments,
		   status, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		inst.ID, inst.UserID, inst.ProductID, inst.ProductName, inst.ProductImage, inst.ProductPrice,
		inst.DownPayment, inst.TotalAmount.String(), inst.MonthlyPayment.String(), inst.Duration,
		inst.InterestRate, inst.PaidInstallments, string(inst.Status), inst.CreatedAt, inst.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return fmt.Errorf("%w: %s", storage.ErrInstallmentExists, inst.ID)
		}
		return fmt.Errorf("insert installment: %w", err)
	}

	batch := &pgx.Batch{}
	for _, p := range inst.Payments {
		batch.Queue(
			`INSERT INTO installment_payments (id, installment_id, amount, due_date, status, paid_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			p.ID, inst.ID, p.Amount.String(), p.DueDate, string(p.Status), p.PaidAt,
		)
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert payments: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

const installmentColumns = `id, user_id, product_id, product_name, product_image, product_price,
	down_payment, total_amount, monthly_payment, duration, interest_rate, paid_installments,
	status, created_at, completed_at`

func scanInstallment(row pgx.Row) (model.Installment, error) {
	var (
		inst   model.Installment
		status string
	)
	err := row.Scan(&inst.ID, &inst.UserID, &inst.ProductID, &inst.ProductName, &inst.ProductImage,
		&inst.ProductPrice, &inst.DownPayment, &inst.TotalAmount, &inst.MonthlyPayment, &inst.Duration,
		&inst.InterestRate, &inst.PaidInstallments, &status, &inst.CreatedAt, &inst.CompletedAt)
	if err != nil {
		return model.Installment{}, err
	}
	inst.Status = model.InstallmentStatus(status)
	return inst, nil
}

// GetInstallment возвращает план по идентификатору.
func (r *PostgresRepository) GetInstallment(ctx context.Context, id string) (*model.Installment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+installmentColumns+` FROM installments WHERE id = $1`, id)

	inst, err := scanInstallment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, storage.ErrInstallmentNotFound
		}
		return nil, fmt.Errorf("get installment: %w", err)
	}

	list := []model.Installment{inst}
	if err := r.loadPayments(ctx, list); err != nil {
		return nil, err
	}
	return &list[0], nil
}

// GetInstallmentsByUser возвращает планы пользователя, новые первыми.
func (r *PostgresRepository) GetInstallmentsByUser(ctx context.Context, userID string) ([]model.Installment, error) {
	return r.queryInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
}

// GetActiveInstallments возвращает до limit активных планов, старые первыми.
func (r *PostgresRepository) GetActiveInstallments(ctx context.Context, limit int) ([]model.Installment, error) {
	return r.queryInstallments(ctx,
		`SELECT `+installmentColumns+` FROM installments WHERE status = $1 ORDER BY created_at LIMIT $2`,
		string(model.InstallmentStatusActive), limit,
	)
}

func (r *PostgresRepository) queryInstallments(ctx context.Context, query string, args ...any) ([]model.Installment, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select installments: %w", err)
	}
	defer rows.Close()

	var res []model.Installment
	for rows.Next() {
		inst, err := scanInstallment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan installment: %w", err)
		}
		res = append(res, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	if err := r.loadPayments(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// loadPayments заполняет графики платежей одним запросом на все планы.
func (r *PostgresRepository) loadPayments(ctx context.Context, list []model.Installment) error {
	if len(list) == 0 {
		return nil
	}

	ids := make([]string, len(list))
	index := make(map[string]int, len(list))
	for i, inst := range list {
		ids[i] = inst.ID
		index[inst.ID] = i
		list[i].Payments = []model.InstallmentPayment{}
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, installment_id, amount, due_date, status, paid_at
		 FROM installment_payments
		 WHERE installment_id = ANY($1)
		 ORDER BY installment_id, due_date`,
		ids,
	)
	if err != nil {
		return fmt.Errorf("select payments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p      model.InstallmentPayment
			status string
		)
		if err := rows.Scan(&p.ID, &p.InstallmentID, &p.Amount, &p.DueDate, &status, &p.PaidAt); err != nil {
			return fmt.Errorf("scan payment: %w", err)
		}
		p.Status = model.PaymentStatus(status)

		i := index[p.InstallmentID]
		list[i].Payments = append(list[i].Payments, p)
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

// UpdateInstallment сохраняет изменённый статус плана и его платежей.
func (r *PostgresRepository) UpdateInstallment(ctx context.Context, inst *model.Installment) error {
	return r.withRetry(ctx, func() error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer tx.Rollback(ctx)

		tag, err := tx.Exec(ctx,
			`UPDATE installments
			 SET paid_installments = $2, status = $3, completed_at = $4
			 WHERE id = $1`,
			inst.ID, inst.PaidInstallments, string(inst.Status), inst.CompletedAt,
		)
		if err != nil {
			return fmt.Errorf("update installment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrInstallmentNotFound
		}

		batch := &pgx.Batch{}
		for _, p := range inst.Payments {
			batch.Queue(
				`UPDATE installment_payments SET status = $3, paid_at = $4 WHERE id = $1 AND installment_id = $2`,
				p.ID, inst.ID, string(p.Status), p.PaidAt,
			)
		}
		if batch.Len() > 0 {
			if err := tx.SendBatch(ctx, batch).Close(); err != nil {
				return fmt.Errorf("update payments: %w", err)
			}
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		return nil
	})
}
