package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/hungpv1995/blog-api/internal/models"
)

// Dialect identifies the SQL flavour behind a PostRepository
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

const postsTable = "posts"

var postColumns = []string{"id", "title", "content", "author_first_name", "author_last_name", "created_at"}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostRepository stores posts in a SQL table
type PostRepository struct {
	db      *sql.DB
	dialect Dialect
	sb      squirrel.StatementBuilderType
}

func NewPostRepository(db *sql.DB, dialect Dialect) *PostRepository {
	placeholder := squirrel.Question
	if dialect == DialectPostgres {
		placeholder = squirrel.Dollar
	}
	return &PostRepository{
		db:      db,
		dialect: dialect,
		sb:      squirrel.StatementBuilder.PlaceholderFormat(placeholder),
	}
}

// OpenPostgres connects to PostgreSQL and applies migrations
func OpenPostgres(ctx context.Context, dsn string) (*PostRepository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(5 * time.Minute)

	return finishOpen(ctx, db, DialectPostgres)
}

// OpenSQLite opens (or creates) a SQLite database file and applies migrations
func OpenSQLite(ctx context.Context, path string) (*PostRepository, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// single writer; also keeps ":memory:" databases on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to configure sqlite: %w", ErrStoreUnavailable, err)
	}

	return finishOpen(ctx, db, DialectSQLite)
}

func finishOpen(ctx context.Context, db *sql.DB, dialect Dialect) (*PostRepository, error) {
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to connect to database: %w", ErrStoreUnavailable, err)
	}
	if err := ApplyMigrations(ctx, db, dialect); err != nil {
		db.Close()
		return nil, err
	}
	return NewPostRepository(db, dialect), nil
}

// DB returns the underlying connection pool
func (r *PostRepository) DB() *sql.DB {
	return r.db
}

// Create inserts a single post
func (r *PostRepository) Create(ctx context.Context, post *models.BlogPost) (*models.BlogPost, error) {
	newPost := prepareNew(*post, "")
	if err := r.insert(ctx, r.db, &newPost); err != nil {
		return nil, err
	}
	return &newPost, nil
}

// InsertMany inserts all posts in one transaction
func (r *PostRepository) InsertMany(ctx context.Context, posts []models.BlogPost) ([]models.BlogPost, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to begin transaction: %w", ErrStoreUnavailable, err)
	}
	defer tx.Rollback()

	created := make([]models.BlogPost, 0, len(posts))
	for _, p := range posts {
		newPost := prepareNew(p, "")
		if err := r.insert(ctx, tx, &newPost); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		created = append(created, newPost)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("%w: failed to commit transaction: %w", ErrStoreUnavailable, err)
	}

	return created, nil
}

func (r *PostRepository) insert(ctx context.Context, exec execer, post *models.BlogPost) error {
	query, args, err := r.insertQuery(post).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert: %w", err)
	}

	if _, err := exec.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert post: %w", err)
	}
	return nil
}

// FindAll returns every post, oldest first
func (r *PostRepository) FindAll(ctx context.Context) ([]models.BlogPost, error) {
	query, args, err := r.sb.Select(postColumns...).
		From(postsTable).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	posts := []models.BlogPost{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	return posts, nil
}

// FindOne returns an arbitrary post
func (r *PostRepository) FindOne(ctx context.Context) (*models.BlogPost, error) {
	query, args, err := r.sb.Select(postColumns...).From(postsTable).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	return r.queryOne(ctx, query, args...)
}

// FindByID retrieves a post by its ID
func (r *PostRepository) FindByID(ctx context.Context, id string) (*models.BlogPost, error) {
	query, args, err := r.findByIDQuery(id).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}
	return r.queryOne(ctx, query, args...)
}

func (r *PostRepository) queryOne(ctx context.Context, query string, args ...any) (*models.BlogPost, error) {
	post, err := scanPost(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, err
	}
	return post, nil
}

// Update applies a partial update to an existing post
func (r *PostRepository) Update(ctx context.Context, id string, update models.PostUpdate) error {
	if update.IsEmpty() {
		_, err := r.FindByID(ctx, id)
		return err
	}

	query, args, err := r.updateQuery(id, update).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return requireAffected(result)
}

// Delete removes a post by its ID
func (r *PostRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.deleteQuery(id).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireAffected(result)
}

// Count returns the number of stored posts
func (r *PostRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := r.sb.Select("COUNT(*)").From(postsTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count: %w", err)
	}

	var n int64
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return n, nil
}

// DropDatabase removes every post
func (r *PostRepository) DropDatabase(ctx context.Context) error {
	query, args, err := r.sb.Delete(postsTable).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to drop posts: %w", err)
	}
	return nil
}

func (r *PostRepository) insertQuery(post *models.BlogPost) squirrel.InsertBuilder {
	first, last := authorColumns(post.Author)
	return r.sb.Insert(postsTable).
		Columns(postColumns...).
		Values(post.ID, post.Title, post.Content, first, last, post.Created)
}

func (r *PostRepository) findByIDQuery(id string) squirrel.SelectBuilder {
	return r.sb.Select(postColumns...).From(postsTable).Where(squirrel.Eq{"id": id})
}

// updateQuery sets only the fields present in update
func (r *PostRepository) updateQuery(id string, update models.PostUpdate) squirrel.UpdateBuilder {
	qb := r.sb.Update(postsTable)
	if update.Title != nil {
		qb = qb.Set("title", *update.Title)
	}
	if update.Content != nil {
		qb = qb.Set("content", *update.Content)
	}
	if update.Author != nil {
		first, last := authorColumns(update.Author)
		qb = qb.Set("author_first_name", first).Set("author_last_name", last)
	}
	return qb.Where(squirrel.Eq{"id": id})
}

func (r *PostRepository) deleteQuery(id string) squirrel.DeleteBuilder {
	return r.sb.Delete(postsTable).Where(squirrel.Eq{"id": id})
}

// Ping checks the database connection
func (r *PostRepository) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return nil
}

// Close closes the connection pool
func (r *PostRepository) Close(_ context.Context) error {
	return r.db.Close()
}

func requireAffected(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrPostNotFound
	}
	return nil
}

func authorColumns(a *models.Author) (sql.NullString, sql.NullString) {
	if a == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return sql.NullString{String: a.FirstName, Valid: true}, sql.NullString{String: a.LastName, Valid: true}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*models.BlogPost, error) {
	var (
		post        models.BlogPost
		first, last sql.NullString
		created     sqlTime
	)
	if err := row.Scan(&post.ID, &post.Title, &post.Content, &first, &last, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan post: %w", err)
	}
	if first.Valid && last.Valid {
		post.Author = &models.Author{FirstName: first.String, LastName: last.String}
	}
	post.Created = created.Time
	return &post, nil
}

// sqlTime scans timestamps from drivers that return either time.Time or text
type sqlTime struct {
	time.Time
}

var sqlTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case int64:
		t.Time = time.UnixMilli(v).UTC()
		return nil
	case nil:
		t.Time = time.Time{}
		return nil
	default:
		return fmt.Errorf("unsupported timestamp type %T", src)
	}
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range sqlTimeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}
