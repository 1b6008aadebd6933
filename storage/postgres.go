package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"drawspace/domain"
)

type PostgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresRepo(ctx context.Context, connString string) (*PostgresRepo, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, err
	}
	return &PostgresRepo{pool: pool}, nil
}

func (r *PostgresRepo) Close() {
	r.pool.Close()
}

func (r *PostgresRepo) CreateUser(ctx context.Context, username string, passwordHash string) (string, error) {
	row := r.pool.QueryRow(ctx, "INSERT INTO users(username, password_hash) VALUES($1, $2) RETURNING id", username, passwordHash)

	var id string
	err := row.Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			// "23505" is the PostgreSQL error code for unique_violation
			if pgErr.Code == "23505" {
				return "", domain.ErrDuplicateUsername
			}
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}

		return "", fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return id, nil
}

func (r *PostgresRepo) GetUserById(ctx context.Context, id string) (domain.User, error) {
	user := domain.User{Id: id}

	row := r.pool.QueryRow(ctx, "SELECT username FROM users WHERE id = $1", id)

	err := row.Scan(&user.Username)

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.User{}, domain.ErrUserNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.User{}, err
		default:
			return domain.User{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return user, nil
}

func (r *PostgresRepo) FindRoom(ctx context.Context, id string) (domain.Room, error) {
	room := domain.Room{Id: id}

	row := r.pool.QueryRow(ctx, "SELECT slug, admin_id FROM rooms WHERE id = $1", id)

	err := row.Scan(&room.Slug, &room.AdminId)

	if err != nil {
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			return domain.Room{}, domain.ErrRoomNotFound
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			return domain.Room{}, err
		default:
			return domain.Room{}, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
	}

	return room, nil
}

func (r *PostgresRepo) CreateRoom(ctx context.Context, slug, adminId string) (string, error) {
	row := r.pool.QueryRow(ctx, "INSERT INTO rooms(slug, admin_id) VALUES($1, $2) RETURNING id", slug, adminId)

	var id string
	if err := row.Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return "", domain.ErrDuplicateRoomSlug
		}
		return "", fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return id, nil
}

func (r *PostgresRepo) DeleteRoom(ctx context.Context, id string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM rooms WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return nil
}

// UpsertShape records the latest state of a shape in a room. The history is
// kept as the current shape set, so replaying it equals the live cache.
func (r *PostgresRepo) UpsertShape(ctx context.Context, roomId string, shape domain.Shape) error {
	payload, err := json.Marshal(shape)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidShape, err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO room_shapes(room_id, shape_id, payload)
		 VALUES($1, $2, $3)
		 ON CONFLICT (room_id, shape_id)
		 DO UPDATE SET payload = EXCLUDED.payload, updated_at = now()`,
		roomId, shape.ID, payload)

	if err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return nil
}

func (r *PostgresRepo) DeleteShape(ctx context.Context, roomId, shapeId string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM room_shapes WHERE room_id = $1 AND shape_id = $2", roomId, shapeId)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return nil
}

// ListShapes returns the room's shape set in first-draw order.
func (r *PostgresRepo) ListShapes(ctx context.Context, roomId string) ([]domain.Shape, error) {
	rows, err := r.pool.Query(ctx, "SELECT payload FROM room_shapes WHERE room_id = $1 ORDER BY seq", roomId)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	defer rows.Close()

	shapes := make([]domain.Shape, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
		}
		var s domain.Shape
		if err := json.Unmarshal(payload, &s); err != nil {
			// A corrupt row must not make the whole room unloadable.
			continue
		}
		shapes = append(shapes, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}

	return shapes, nil
}

func (r *PostgresRepo) DeleteRoomShapes(ctx context.Context, roomId string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM room_shapes WHERE room_id = $1", roomId)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedDatabaseError, err)
	}
	return nil
}
