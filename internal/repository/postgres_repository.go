package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/rongwang/bookkeeper-server/internal/models"
)

// ErrNotFound is returned when an operation targets a record that does not
// exist.
var ErrNotFound = errors.New("record not found")

// Repository interface defines the methods that any persistence adapter
// implementation must satisfy. The engine consumes accounts through this
// boundary only; field names are mapped camelCase <-> snake_case here.
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Account operations
	ListAccounts(ctx context.Context, ownerID, bookID string) ([]models.Account, error)
	CreateAccount(ctx context.Context, account *models.Account) (string, error)
	UpdateAccount(ctx context.Context, id string, patch *models.AccountPatch) error
	DeleteAccount(ctx context.Context, id string) error
	DeleteAccountsByBook(ctx context.Context, ownerID, bookID string) error

	// Book operations
	CreateBook(ctx context.Context, book *models.Book) error
	GetBook(ctx context.Context, bookID string) (*models.Book, error)
	ListBooks(ctx context.Context, ownerID string) ([]models.Book, error)
	DeleteBook(ctx context.Context, bookID string) error
	TouchBookExported(ctx context.Context, bookID string, when time.Time) error
	GetActiveBook(ctx context.Context, ownerID string) (string, error)
	SetActiveBook(ctx context.Context, ownerID, bookID string) error

	// Settings operations (opaque document, not interpreted here)
	GetSettings(ctx context.Context, ownerID string) (json.RawMessage, error)
	PutSettings(ctx context.Context, ownerID string, settings json.RawMessage) error

	// Subscribe registers onChange to be invoked whenever any account owned
	// by ownerID is inserted, updated or deleted. The returned function
	// cancels the subscription.
	Subscribe(ownerID string, onChange func()) (func(), error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db  *sqlx.DB
	dsn string // kept because pq.Listener opens its own connection
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB, dsn string) *PostgresRepository {
	return &PostgresRepository{
		db:  db,
		dsn: dsn,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, password, active_book_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, '', $5, $6)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Password, user.CreatedAt, user.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, name, password, created_at, updated_at FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, name, password, created_at, updated_at FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

// Account repository methods
func (r *PostgresRepository) ListAccounts(ctx context.Context, ownerID, bookID string) ([]models.Account, error) {
	query := `
		SELECT * FROM accounts
		WHERE owner_id = $1 AND book_id = $2
		ORDER BY created_at ASC, id ASC
	`

	var accounts []models.Account
	err := r.db.SelectContext(ctx, &accounts, query, ownerID, bookID)
	if err != nil {
		return nil, err
	}

	return accounts, nil
}

func (r *PostgresRepository) CreateAccount(ctx context.Context, account *models.Account) (string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Generate a new UUID if not provided
	if account.ID == "" {
		account.ID = uuid.New().String()
	}

	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO accounts (id, owner_id, book_id, name, description, parent_id,
			account_type, currency, color, notes, placeholder, hidden, favorite,
			balance, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err = tx.ExecContext(ctx, query,
		account.ID, account.OwnerID, account.BookID, account.Name, account.Description,
		account.ParentID, account.AccountType, account.Currency, account.Color,
		account.Notes, account.Placeholder, account.Hidden, account.Favorite,
		account.Balance, account.CreatedAt)
	if err != nil {
		return "", err
	}

	// Keep the owning book's account counter in step
	_, err = tx.ExecContext(ctx,
		`UPDATE books SET account_count = account_count + 1 WHERE id = $1`,
		account.BookID)
	if err != nil {
		return "", err
	}

	if err = tx.Commit(); err != nil {
		return "", err
	}

	return account.ID, nil
}

func (r *PostgresRepository) UpdateAccount(ctx context.Context, id string, patch *models.AccountPatch) error {
	set := make([]string, 0, 11)
	args := make([]interface{}, 0, 12)

	add := func(column string, value interface{}) {
		args = append(args, value)
		set = append(set, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if patch.Name != nil {
		add("name", *patch.Name)
	}
	if patch.Description != nil {
		add("description", *patch.Description)
	}
	if patch.ParentID != nil {
		add("parent_id", *patch.ParentID)
	}
	if patch.AccountType != nil {
		add("account_type", *patch.AccountType)
	}
	if patch.Currency != nil {
		add("currency", *patch.Currency)
	}
	if patch.Color != nil {
		add("color", *patch.Color)
	}
	if patch.Notes != nil {
		add("notes", *patch.Notes)
	}
	if patch.Placeholder != nil {
		add("placeholder", *patch.Placeholder)
	}
	if patch.Hidden != nil {
		add("hidden", *patch.Hidden)
	}
	if patch.Favorite != nil {
		add("favorite", *patch.Favorite)
	}
	if patch.Balance != nil {
		add("balance", *patch.Balance)
	}

	if len(set) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE accounts SET %s WHERE id = $%d",
		strings.Join(set, ", "), len(args))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) DeleteAccount(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	var bookID string
	err = tx.QueryRowContext(ctx,
		`DELETE FROM accounts WHERE id = $1 RETURNING book_id`, id).Scan(&bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = ErrNotFound
		}
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET account_count = account_count - 1 WHERE id = $1`, bookID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) DeleteAccountsByBook(ctx context.Context, ownerID, bookID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	_, err = tx.ExecContext(ctx,
		`DELETE FROM accounts WHERE owner_id = $1 AND book_id = $2`, ownerID, bookID)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE books SET account_count = 0 WHERE id = $1`, bookID)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// Book repository methods
func (r *PostgresRepository) CreateBook(ctx context.Context, book *models.Book) error {
	if book.ID == "" {
		book.ID = uuid.New().String()
	}
	if book.CreatedAt.IsZero() {
		book.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO books (id, owner_id, name, account_count, transaction_count, last_exported, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.ExecContext(ctx, query,
		book.ID, book.OwnerID, book.Name, book.AccountCount,
		book.TransactionCount, book.LastExported, book.CreatedAt)

	return err
}

func (r *PostgresRepository) GetBook(ctx context.Context, bookID string) (*models.Book, error) {
	query := `SELECT * FROM books WHERE id = $1`

	var book models.Book
	err := r.db.GetContext(ctx, &book, query, bookID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Book not found
		}
		return nil, err
	}

	return &book, nil
}

func (r *PostgresRepository) ListBooks(ctx context.Context, ownerID string) ([]models.Book, error) {
	query := `SELECT * FROM books WHERE owner_id = $1 ORDER BY created_at ASC`

	var books []models.Book
	err := r.db.SelectContext(ctx, &books, query, ownerID)
	if err != nil {
		return nil, err
	}

	return books, nil
}

func (r *PostgresRepository) DeleteBook(ctx context.Context, bookID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Accounts go first (self-referencing FK on accounts, FK to books)
	_, err = tx.ExecContext(ctx, `DELETE FROM accounts WHERE book_id = $1`, bookID)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, bookID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		err = ErrNotFound
		return err
	}

	return tx.Commit()
}

func (r *PostgresRepository) TouchBookExported(ctx context.Context, bookID string, when time.Time) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE books SET last_exported = $1 WHERE id = $2`, when, bookID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *PostgresRepository) GetActiveBook(ctx context.Context, ownerID string) (string, error) {
	query := `SELECT active_book_id FROM users WHERE id = $1`

	var bookID string
	err := r.db.GetContext(ctx, &bookID, query, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}

	return bookID, nil
}

func (r *PostgresRepository) SetActiveBook(ctx context.Context, ownerID, bookID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET active_book_id = $1, updated_at = $2 WHERE id = $3`,
		bookID, time.Now().UTC(), ownerID)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// Settings repository methods
func (r *PostgresRepository) GetSettings(ctx context.Context, ownerID string) (json.RawMessage, error) {
	query := `SELECT settings FROM settings WHERE owner_id = $1`

	var raw []byte
	err := r.db.GetContext(ctx, &raw, query, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return json.RawMessage(raw), nil
}

func (r *PostgresRepository) PutSettings(ctx context.Context, ownerID string, settings json.RawMessage) error {
	query := `
		INSERT INTO settings (owner_id, settings, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id) DO UPDATE SET settings = $2, updated_at = $3
	`

	_, err := r.db.ExecContext(ctx, query, ownerID, []byte(settings), time.Now().UTC())
	return err
}
