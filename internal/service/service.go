package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rongwang/bookkeeper-server/internal/models"
	"github.com/rongwang/bookkeeper-server/internal/navigation"
	"github.com/rongwang/bookkeeper-server/internal/repository"
	"github.com/rongwang/bookkeeper-server/internal/store"
	"github.com/rongwang/bookkeeper-server/internal/utils"
)

// Sentinel errors surfaced to the API layer.
var (
	ErrBookNotFound = errors.New("book not found")
	ErrNotOwner     = errors.New("book does not belong to this user")
	ErrLastBook     = errors.New("cannot delete the last remaining book")
	ErrEmailTaken   = errors.New("user with this email already exists")
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Account queries
	TopLevelAccounts(ctx context.Context, userID, bookID string) ([]*models.Account, error)
	AllAccounts(ctx context.Context, userID, bookID string) ([]*models.Account, error)
	FavoriteAccounts(ctx context.Context, userID, bookID string) ([]*models.Account, error)
	ChildAccounts(ctx context.Context, userID, bookID, accountID string) ([]*models.Account, error)

	// Account commands
	CreateAccount(ctx context.Context, userID, bookID string, req models.CreateAccountRequest) (*models.Account, error)
	UpdateAccount(ctx context.Context, userID, bookID, accountID string, req models.UpdateAccountRequest) (*models.Account, error)
	DeleteAccount(ctx context.Context, userID, bookID, accountID string) ([]string, error)
	DeleteAllAccounts(ctx context.Context, userID, bookID string) error
	ToggleFavorite(ctx context.Context, userID, bookID, accountID string) (*models.Account, error)
	ReparentAccount(ctx context.Context, userID, bookID, accountID string, req models.ReparentAccountRequest) (*models.Account, error)
	CreateDefaultAccounts(ctx context.Context, userID, bookID string) ([]*models.Account, error)

	// Book operations
	ListBooks(ctx context.Context, userID string) ([]*models.Book, string, error)
	CreateBook(ctx context.Context, userID, name string) (*models.Book, error)
	DeleteBook(ctx context.Context, userID, bookID string) error
	ActivateBook(ctx context.Context, userID, bookID string) error
	ExportBook(ctx context.Context, userID, bookID string) (*models.Book, error)

	// Settings (opaque passthrough)
	GetSettings(ctx context.Context, userID string) (json.RawMessage, error)
	PutSettings(ctx context.Context, userID string, settings json.RawMessage) error

	// Navigation
	Navigation(ctx context.Context, userID string) (navigation.State, string, error)
	DispatchNavigation(ctx context.Context, userID string, req models.DispatchRequest) (navigation.State, string, error)

	// Close cancels all change subscriptions.
	Close()
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	jwtSecret     []byte
	tokenDuration time.Duration

	mu       sync.Mutex
	stores   map[string]*store.Store        // keyed by userID + "/" + bookID
	cancels  map[string]func()              // change subscription per store
	machines map[string]*navigation.Machine // keyed by userID
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string) *DefaultService {
	return &DefaultService{
		repo:          repo,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
		stores:        make(map[string]*store.Store),
		cancels:       make(map[string]func()),
		machines:      make(map[string]*navigation.Machine),
	}
}

// Close cancels every change subscription.
func (s *DefaultService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, cancel := range s.cancels {
		cancel()
		delete(s.cancels, key)
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	// Create the user
	user := &models.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPassword),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	// Every user starts with one book and the default settings document.
	book := &models.Book{
		OwnerID: user.ID,
		Name:    "Book 1",
	}
	if err := s.repo.CreateBook(ctx, book); err != nil {
		return nil, fmt.Errorf("error creating initial book: %w", err)
	}
	if err := s.repo.SetActiveBook(ctx, user.ID, book.ID); err != nil {
		return nil, fmt.Errorf("error activating initial book: %w", err)
	}
	if err := s.repo.PutSettings(ctx, user.ID, json.RawMessage(models.DefaultSettings)); err != nil {
		return nil, fmt.Errorf("error writing default settings: %w", err)
	}

	return &models.AuthResponse{
		Status: "success",
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	// Get the user
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, errors.New("invalid email or password")
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, errors.New("invalid email or password")
	}

	// Generate JWT token
	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// storeFor returns the live account tree for (userID, bookID), creating and
// loading it on first use and wiring the change subscription that keeps it
// in sync with out-of-band mutations.
func (s *DefaultService) storeFor(ctx context.Context, userID, bookID string) (*store.Store, error) {
	if err := s.checkBook(ctx, userID, bookID); err != nil {
		return nil, err
	}

	key := userID + "/" + bookID

	s.mu.Lock()
	if st, ok := s.stores[key]; ok {
		s.mu.Unlock()
		return st, nil
	}
	s.mu.Unlock()

	st := store.New(s.repo, userID, bookID)
	if err := st.Load(ctx); err != nil {
		return nil, err
	}

	cancel, err := s.repo.Subscribe(userID, func() {
		// The tree is a cache; re-list from the source of truth.
		if err := st.Load(context.Background()); err != nil {
			utils.Logger().WithError(err).WithField("book", bookID).
				Warn("account tree resynchronization failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("error subscribing to account changes: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.stores[key]; ok {
		// Lost a construction race; keep the first store.
		cancel()
		return existing, nil
	}
	s.stores[key] = st
	s.cancels[key] = cancel
	return st, nil
}

// checkBook verifies that bookID exists and belongs to userID.
func (s *DefaultService) checkBook(ctx context.Context, userID, bookID string) error {
	book, err := s.repo.GetBook(ctx, bookID)
	if err != nil {
		return fmt.Errorf("error getting book: %w", err)
	}
	if book == nil {
		return ErrBookNotFound
	}
	if book.OwnerID != userID {
		return ErrNotOwner
	}
	return nil
}

// activeStore resolves the user's active book and returns its store.
func (s *DefaultService) activeStore(ctx context.Context, userID string) (*store.Store, error) {
	bookID, err := s.repo.GetActiveBook(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error getting active book: %w", err)
	}
	if bookID == "" {
		return nil, ErrBookNotFound
	}
	return s.storeFor(ctx, userID, bookID)
}

func (s *DefaultService) machineFor(userID string) *navigation.Machine {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m, ok := s.machines[userID]; ok {
		return m
	}
	m := navigation.NewMachine(func(id string) *models.Account {
		st, err := s.activeStore(context.Background(), userID)
		if err != nil {
			return nil
		}
		return st.Get(id)
	})
	s.machines[userID] = m
	return m
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": user.ID, // subject
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
