package store

import (
	"context"

	auth "github.com/pathlight-learning/pathlight-lms/internal/auth/middleware"
)

func (s *SQL) GetUserByUsername(ctx context.Context, username string) (auth.User, error) {
	var u auth.User
	err := s.db.QueryRowContext(ctx,
		`SELECT id, username, pass_hash, role, created_at FROM users WHERE username=$1`,
		username).Scan(&u.ID, &u.Username, &u.PassHash, &u.Role, &u.CreatedAt)
	if err != nil {
		return auth.User{}, notFound(err, "user not found")
	}
	return u, nil
}

func (s *SQL) CreateUser(ctx context.Context, u auth.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, pass_hash, role, created_at)
		 VALUES ($1,$2,$3,$4,$5)
		 ON CONFLICT (username) DO UPDATE SET pass_hash=EXCLUDED.pass_hash, role=EXCLUDED.role`,
		u.ID, u.Username, u.PassHash, u.Role, u.CreatedAt)
	return err
}
