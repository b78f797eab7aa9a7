package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"cryptogram/internal/database"
	"cryptogram/internal/models"
)

// CommunityService backs the public posts/comments/users API.
type CommunityService struct {
	db *database.DB
}

func NewCommunityService(db *database.DB) *CommunityService {
	return &CommunityService{db: db}
}

// ListPosts returns the newest posts with author names joined in.
func (s *CommunityService) ListPosts(ctx context.Context, limit, offset int) ([]models.Post, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT p.post_id, p.author_id, COALESCE(u.name, ''), p.is_ai, p.content,
		       p.created_at, p.likes_count, p.comments_count
		FROM posts p
		LEFT JOIN users u ON u.user_id = p.author_id
		ORDER BY p.created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.PostID, &p.AuthorID, &p.AuthorName, &p.IsAI, &p.Content,
			&p.CreatedAt, &p.LikesCount, &p.CommentsCount); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// GetPost returns one post by id, or sql.ErrNoRows when it does not exist.
func (s *CommunityService) GetPost(ctx context.Context, postID int64) (*models.Post, error) {
	var p models.Post
	err := s.db.QueryRowContext(ctx, `
		SELECT p.post_id, p.author_id, COALESCE(u.name, ''), p.is_ai, p.content,
		       p.created_at, p.likes_count, p.comments_count
		FROM posts p
		LEFT JOIN users u ON u.user_id = p.author_id
		WHERE p.post_id = ?
	`, postID).Scan(&p.PostID, &p.AuthorID, &p.AuthorName, &p.IsAI, &p.Content,
		&p.CreatedAt, &p.LikesCount, &p.CommentsCount)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreatePost inserts a new feed entry for the given author.
func (s *CommunityService) CreatePost(ctx context.Context, authorID int64, content string, isAI bool) (*models.Post, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("post content is required")
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO posts (author_id, is_ai, content, created_at, likes_count, comments_count)
		VALUES (?, ?, ?, ?, 0, 0)
	`, authorID, isAI, content, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read post id: %w", err)
	}

	return &models.Post{
		PostID:    id,
		AuthorID:  authorID,
		IsAI:      isAI,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// LikePost bumps the like counter. Returns the new count.
func (s *CommunityService) LikePost(ctx context.Context, postID int64) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE posts SET likes_count = likes_count + 1 WHERE post_id = ?
	`, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to like post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return 0, sql.ErrNoRows
	}

	var likes int
	if err := s.db.QueryRowContext(ctx, `SELECT likes_count FROM posts WHERE post_id = ?`, postID).Scan(&likes); err != nil {
		return 0, err
	}
	return likes, nil
}

// ListComments returns a post's comments oldest first.
func (s *CommunityService) ListComments(ctx context.Context, postID int64) ([]models.Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.comment_id, c.post_id, c.author_id, COALESCE(u.name, ''), c.is_ai, c.content, c.created_at
		FROM comments c
		LEFT JOIN users u ON u.user_id = c.author_id
		WHERE c.post_id = ?
		ORDER BY c.created_at ASC
	`, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := []models.Comment{}
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.CommentID, &c.PostID, &c.AuthorID, &c.AuthorName, &c.IsAI, &c.Content, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// AddComment inserts a comment and keeps the post's comment counter in sync.
func (s *CommunityService) AddComment(ctx context.Context, postID, authorID int64, content string, isAI bool) (*models.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("comment content is required")
	}

	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM posts WHERE post_id = ?`, postID).Scan(&exists)
	if err == sql.ErrNoRows {
		return nil, sql.ErrNoRows
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up post %d: %w", postID, err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (post_id, author_id, is_ai, content, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, postID, authorID, isAI, content, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read comment id: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE posts SET comments_count = comments_count + 1 WHERE post_id = ?
	`, postID); err != nil {
		return nil, fmt.Errorf("failed to update comment count: %w", err)
	}

	return &models.Comment{
		CommentID: id,
		PostID:    postID,
		AuthorID:  authorID,
		IsAI:      isAI,
		Content:   content,
		CreatedAt: now,
	}, nil
}

// ListUsers returns community members, newest first. Password hashes are
// never serialized.
func (s *CommunityService) ListUsers(ctx context.Context, limit int) ([]models.User, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT user_id, email, name, role, is_ai, created_at, last_login
		FROM users
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		var lastLogin sql.NullTime
		if err := rows.Scan(&u.UserID, &u.Email, &u.Name, &u.Role, &u.IsAI, &u.CreatedAt, &lastLogin); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if lastLogin.Valid {
			t := lastLogin.Time
			u.LastLogin = &t
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetUser returns one user by id, or sql.ErrNoRows.
func (s *CommunityService) GetUser(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, name, role, is_ai, created_at, last_login
		FROM users WHERE user_id = ?
	`, userID).Scan(&u.UserID, &u.Email, &u.Name, &u.Role, &u.IsAI, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// GetUserByEmail loads a user including the password hash for login checks.
func (s *CommunityService) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	var hash sql.NullString
	var lastLogin sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT user_id, email, name, password_hash, role, is_ai, created_at, last_login
		FROM users WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email))).Scan(
		&u.UserID, &u.Email, &u.Name, &hash, &u.Role, &u.IsAI, &u.CreatedAt, &lastLogin)
	if err != nil {
		return nil, err
	}
	u.PasswordHash = hash.String
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLogin = &t
	}
	return &u, nil
}

// RegisterUser creates a community account, or returns the existing account
// for that email with last_login refreshed. The second return reports whether
// a new row was created. passwordHash may be empty for accounts that never
// log in directly.
func (s *CommunityService) RegisterUser(ctx context.Context, name, email, passwordHash string) (*models.User, bool, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))
	if name == "" || email == "" {
		return nil, false, fmt.Errorf("name and email are required")
	}

	existing, err := s.GetUserByEmail(ctx, email)
	if err == nil {
		s.TouchLastLogin(ctx, existing.UserID)
		existing.PasswordHash = ""
		return existing, false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, fmt.Errorf("failed to look up user: %w", err)
	}

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash, role, is_ai, created_at, last_login)
		VALUES (?, ?, ?, 'user', FALSE, ?, ?)
	`, email, name, passwordHash, now, now)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, false, fmt.Errorf("failed to read new user id: %w", err)
	}

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("failed to load new user: %w", err)
	}
	return user, true, nil
}

// UpsertAdmin ensures a login-capable admin account exists with the given
// credentials. Existing accounts get their hash and role refreshed.
func (s *CommunityService) UpsertAdmin(ctx context.Context, email, passwordHash string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, role = 'admin' WHERE email = ?
	`, passwordHash, email)
	if err != nil {
		return fmt.Errorf("failed to update admin user: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected > 0 {
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (email, name, password_hash, role, is_ai, created_at)
		VALUES (?, 'Admin', ?, 'admin', FALSE, ?)
	`, email, passwordHash, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	return nil
}

// TouchLastLogin stamps a successful login. Best-effort.
func (s *CommunityService) TouchLastLogin(ctx context.Context, userID int64) {
	_, _ = s.db.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE user_id = ?`, time.Now().UTC(), userID)
}
