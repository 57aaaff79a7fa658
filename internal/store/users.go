package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/gdps-dev/gdps/internal/model"
)

const userColumns = "user_id, ext_id, username, stars, moons, demons, diamonds, coins, user_coins, creator_points, icon, icon_type, color1, color2, color3, special, is_banned"

func scanUser(sc rowScanner) (model.User, error) {
	var u model.User
	var banned int
	err := sc.Scan(&u.UserID, &u.ExtID, &u.Username, &u.Stars, &u.Moons, &u.Demons, &u.Diamonds,
		&u.Coins, &u.UserCoins, &u.CreatorPoints, &u.Icon, &u.IconType, &u.Color1, &u.Color2,
		&u.Color3, &u.Special, &banned)
	u.IsBanned = banned != 0
	return u, err
}

// AccountByID returns the account's credentials.
func (s *Store) AccountByID(ctx context.Context, id int) (model.Account, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return model.Account{}, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	var a model.Account
	err = s.db.QueryRowContext(ctx, s.rebind("SELECT account_id, username, gjp2 FROM accounts WHERE account_id = ?"), id).
		Scan(&a.ID, &a.Username, &a.GJP2)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Account{}, model.ErrNotFound
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("account %d: %w", id, err)
	}
	return a, nil
}

// SearchUsers matches usernames case-insensitively and returns one page plus
// the total number of matches. Banned users are excluded.
func (s *Store) SearchUsers(ctx context.Context, name string, limit, offset int) ([]model.User, int, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return nil, 0, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	pattern := "%" + name + "%"
	where := " FROM users WHERE username ILIKE ? AND is_banned = 0"

	var total int
	if err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*)"+where), pattern).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT "+userColumns+where+" ORDER BY stars DESC, user_id LIMIT ? OFFSET ?"),
		pattern, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}

// UserByAccount returns the user profile owned by an account.
func (s *Store) UserByAccount(ctx context.Context, accountID int) (model.User, error) {
	release, err := s.acquireRead(ctx)
	if err != nil {
		return model.User{}, err
	}
	defer release()

	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	u, err := scanUser(s.db.QueryRowContext(ctx,
		s.rebind("SELECT "+userColumns+" FROM users WHERE ext_id = ?"), strconv.Itoa(accountID)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, model.ErrNotFound
	}
	if err != nil {
		return model.User{}, fmt.Errorf("user for account %d: %w", accountID, err)
	}
	return u, nil
}

// InsertAccount stores an account under its own id.
func (s *Store) InsertAccount(ctx context.Context, a model.Account) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, s.rebind("INSERT INTO accounts (account_id, username, gjp2) VALUES (?, ?, ?)"),
		a.ID, a.Username, a.GJP2)
	if err != nil {
		return fmt.Errorf("insert account %d: %w", a.ID, err)
	}
	return nil
}

// InsertUser stores a user profile under its own id.
func (s *Store) InsertUser(ctx context.Context, u model.User) error {
	ctx, cancel := s.queryCtx(ctx)
	defer cancel()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO users ("+userColumns+") VALUES ("+placeholders(17)+")"),
		u.UserID, u.ExtID, u.Username, u.Stars, u.Moons, u.Demons, u.Diamonds, u.Coins, u.UserCoins,
		u.CreatorPoints, u.Icon, u.IconType, u.Color1, u.Color2, u.Color3, u.Special, boolInt(u.IsBanned))
	if err != nil {
		return fmt.Errorf("insert user %d: %w", u.UserID, err)
	}
	return nil
}
