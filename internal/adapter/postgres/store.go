package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskpilot/taskpilot/internal/domain/task"
	"github.com/taskpilot/taskpilot/internal/domain/user"
)

// Store implements database.Store using PostgreSQL. It holds no mutable
// state of its own; all consistency comes from the database.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Tasks ---

const taskColumns = `id, owner_id, title, description, completed, created_at, updated_at`

func scanTask(row scannable) (task.Task, error) {
	var t task.Task
	err := row.Scan(&t.ID, &t.Owner, &t.Title, &t.Description, &t.Completed, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (s *Store) CreateTask(ctx context.Context, owner, title, description string) (*task.Task, error) {
	var created task.Task
	err := withRetry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx,
			`INSERT INTO tasks (owner_id, title, description)
			 VALUES ($1, $2, $3)
			 RETURNING `+taskColumns,
			owner, title, description)
		var err error
		created, err = scanTask(row)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &created, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if err != nil {
		return nil, notFoundWrap(err, "get task %s", id)
	}
	return &t, nil
}

func (s *Store) ListTasks(ctx context.Context, owner string, filter task.StatusFilter) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`
	switch filter {
	case task.FilterPending:
		query += ` AND NOT completed`
	case task.FilterCompleted:
		query += ` AND completed`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var result []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *Store) ToggleTask(ctx context.Context, id, owner string) (*task.Task, error) {
	var toggled task.Task
	err := withRetry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx,
			`UPDATE tasks SET completed = NOT completed, updated_at = now()
			 WHERE id = $1 AND owner_id = $2
			 RETURNING `+taskColumns,
			id, owner)
		var err error
		toggled, err = scanTask(row)
		return err
	})
	if err != nil {
		return nil, notFoundWrap(err, "toggle task %s", id)
	}
	return &toggled, nil
}

func (s *Store) UpdateTask(ctx context.Context, id, owner string, req task.UpdateRequest) (*task.Task, error) {
	var updated task.Task
	err := withRetry(ctx, func(ctx context.Context) error {
		row := s.pool.QueryRow(ctx,
			`UPDATE tasks
			 SET title = COALESCE($3, title),
			     description = COALESCE($4, description),
			     updated_at = now()
			 WHERE id = $1 AND owner_id = $2
			 RETURNING `+taskColumns,
			id, owner, req.Title, req.Description)
		var err error
		updated, err = scanTask(row)
		return err
	})
	if err != nil {
		return nil, notFoundWrap(err, "update task %s", id)
	}
	return &updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, id, owner string) error {
	return withRetry(ctx, func(ctx context.Context) error {
		tag, err := s.pool.Exec(ctx,
			`DELETE FROM tasks WHERE id = $1 AND owner_id = $2`, id, owner)
		return execExpectOne(tag, err, "delete task %s", id)
	})
}

// --- Users ---

func (s *Store) CreateUser(ctx context.Context, u *user.User) error {
	err := withRetry(ctx, func(ctx context.Context) error {
		return s.pool.QueryRow(ctx,
			`INSERT INTO users (id, email, name, password_hash, enabled)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING created_at`,
			u.ID, u.Email, u.Name, u.PasswordHash, u.Enabled,
		).Scan(&u.CreatedAt)
	})
	if err != nil {
		return conflictWrap(err, "create user %s", u.Email)
	}
	return nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*user.User, error) {
	var u user.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, enabled, created_at
		 FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Enabled, &u.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get user %s", id)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, password_hash, enabled, created_at
		 FROM users WHERE email = $1`, email,
	).Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.Enabled, &u.CreatedAt)
	if err != nil {
		return nil, notFoundWrap(err, "get user by email")
	}
	return &u, nil
}
