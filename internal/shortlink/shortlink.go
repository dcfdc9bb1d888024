package shortlink

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/gosimple/slug"

	"github.com/boostlyhq/boostly-golang/internal/models"
)

var (
	ErrInvalidURL   = errors.New("target must be an absolute http or https URL")
	ErrInvalidAlias = errors.New("alias contains no usable characters")
	ErrCodeTaken    = errors.New("short code already in use")
	ErrNotFound     = errors.New("short link not found")
)

// codeAlphabet avoids 0/O and 1/l/I so codes survive being read aloud.
const codeAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

const (
	codeLength    = 7
	maxCodeLength = 64
)

// Service creates and resolves short links.
type Service struct {
	db *sql.DB
}

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Create stores a short link for targetURL. A non-empty alias is
// slugified and used as the code; otherwise a random code is generated,
// retrying on the rare collision.
func (s *Service) Create(ctx context.Context, targetURL, alias string, userID *int64) (*models.ShortLink, error) {
	parsed, err := url.Parse(targetURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return nil, ErrInvalidURL
	}

	if alias != "" {
		code := slug.Make(alias)
		if code == "" {
			return nil, ErrInvalidAlias
		}
		if len(code) > maxCodeLength {
			code = code[:maxCodeLength]
		}
		link, err := s.insert(ctx, code, targetURL, userID)
		if isDuplicate(err) {
			return nil, ErrCodeTaken
		}
		return link, err
	}

	for attempt := 0; attempt < 5; attempt++ {
		code, err := randomCode(codeLength)
		if err != nil {
			return nil, err
		}
		link, err := s.insert(ctx, code, targetURL, userID)
		if isDuplicate(err) {
			continue
		}
		return link, err
	}
	return nil, errors.New("could not allocate a unique short code")
}

// Resolve returns the target URL for code and increments its click
// counter.
func (s *Service) Resolve(ctx context.Context, code string) (string, error) {
	var target string
	err := s.db.QueryRowContext(ctx,
		`SELECT target_url FROM short_links WHERE code = ?`, code,
	).Scan(&target)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolve short link: %w", err)
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE short_links SET clicks = clicks + 1 WHERE code = ?`, code); err != nil {
		return "", fmt.Errorf("count click: %w", err)
	}
	return target, nil
}

// ListForUser returns the user's links, newest first.
func (s *Service) ListForUser(ctx context.Context, userID int64) ([]models.ShortLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, code, target_url, user_id, clicks, created_at
		FROM short_links WHERE user_id = ? ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list short links: %w", err)
	}
	defer rows.Close()

	var links []models.ShortLink
	for rows.Next() {
		var l models.ShortLink
		if err := rows.Scan(&l.ID, &l.Code, &l.TargetURL, &l.UserID, &l.Clicks, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan short link: %w", err)
		}
		links = append(links, l)
	}
	return links, rows.Err()
}

func (s *Service) insert(ctx context.Context, code, targetURL string, userID *int64) (*models.ShortLink, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO short_links (code, target_url, user_id) VALUES (?, ?, ?)`,
		code, targetURL, userID)
	if err != nil {
		return nil, err
	}
	id, _ := res.LastInsertId()
	return &models.ShortLink{ID: id, Code: code, TargetURL: targetURL, UserID: userID}, nil
}

func randomCode(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate short code: %w", err)
	}
	var b strings.Builder
	for _, c := range buf {
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String(), nil
}

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}
