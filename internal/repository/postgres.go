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

	"github.com/mmeshcher/lottery-pipeline/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrPlayerNotFound возвращается, если игрок не найден.
var ErrPlayerNotFound = errors.New("player not found")

// PostgresRepository предоставляет доступ к хранилищу игроков и метрик.
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

		// Если ошибка контекста — выходим сразу
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		// Ретраи полезны для Serialization Failure или Deadlocks.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected {
				if i < len(delays) {
					time.Sleep(delays[i])
					continue
				}
			}
		}

		// Если это не pg-ошибка, но сетевая
		if isConnectionError(err) {
			if i < len(delays) {
				time.Sleep(delays[i])
				continue
			}
		}

		break
	}
	return err
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

// SaveBatch сохраняет итоги одного пакета в рамках одной транзакции:
// апсерт игроков по номеру телефона и добавление записей метрик.
// Существующие записи игроков не изменяются, метрики только добавляются.
func (r *PostgresRepository) SaveBatch(ctx context.Context, players []model.Player, metrics []model.MetricEntry) error {
	return r.withRetry(ctx, func() error {
		return r.saveBatch(ctx, players, metrics)
	})
}

func (r *PostgresRepository) saveBatch(ctx context.Context, players []model.Player, metrics []model.MetricEntry) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, p := range players {
		_, err := tx.Exec(ctx,
			`INSERT INTO players (mobile, last_name, other_names, promotional_consent, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (mobile) DO NOTHING`,
			p.Mobile, p.LastName, p.OtherNames, p.PromotionalConsent, p.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("upsert player %s: %w", p.Mobile, err)
		}
	}

	for _, m := range metrics {
		_, err := tx.Exec(ctx,
			`INSERT INTO player_metrics (mobile, draw_number, tickets_count, e_score, segment, gear, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			m.Mobile, m.DrawNumber, m.TicketsCount, m.EScore, string(m.Segment), m.Gear, m.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert metrics for %s draw %d: %w", m.Mobile, m.DrawNumber, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetPlayer возвращает запись игрока по номеру телефона.
func (r *PostgresRepository) GetPlayer(ctx context.Context, mobile string) (*model.Player, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT mobile, last_name, other_names, promotional_consent, created_at
		 FROM players WHERE mobile = $1`,
		mobile,
	)

	var p model.Player
	err := row.Scan(&p.Mobile, &p.LastName, &p.OtherNames, &p.PromotionalConsent, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("get player: %w", err)
	}

	return &p, nil
}

// GetPlayerMetrics возвращает записи метрик игрока по возрастанию номера тиража.
func (r *PostgresRepository) GetPlayerMetrics(ctx context.Context, mobile string) ([]model.MetricEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT mobile, draw_number, tickets_count, e_score, segment, gear, updated_at
		 FROM player_metrics
		 WHERE mobile = $1
		 ORDER BY draw_number, updated_at`,
		mobile,
	)
	if err != nil {
		return nil, fmt.Errorf("select metrics: %w", err)
	}
	defer rows.Close()

	var res []model.MetricEntry
	for rows.Next() {
		var (
			m       model.MetricEntry
			segment string
		)
		if err := rows.Scan(&m.Mobile, &m.DrawNumber, &m.TicketsCount, &m.EScore, &segment, &m.Gear, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		m.Segment = model.Segment(segment)
		res = append(res, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
