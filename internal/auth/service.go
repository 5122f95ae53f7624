package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mrlokans/pdflibrary/internal/accounts"
	"github.com/mrlokans/pdflibrary/internal/config"
	"github.com/mrlokans/pdflibrary/internal/entities"
	"github.com/mrlokans/pdflibrary/internal/logger"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// MaxUsernameLength matches the username column of both account tables.
const MaxUsernameLength = 64

var (
	ErrMissingCredentials  = errors.New("username and password are required")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrPendingVerification = errors.New("account is pending admin verification")
	ErrStoreUnavailable    = errors.New("unable to reach the database")

	ErrNameRequired     = errors.New("name is required")
	ErrUsernameRequired = errors.New("username is required")
	ErrEmailRequired    = errors.New("email is required")
	ErrUsernameInvalid  = errors.New("username must be at most 64 characters")
	ErrEmailInvalid     = errors.New("invalid email format")
)

var validationErrors = []error{
	ErrNameRequired,
	ErrUsernameRequired,
	ErrEmailRequired,
	ErrPasswordRequired,
	ErrPasswordTooLong,
	ErrUsernameInvalid,
	ErrEmailInvalid,
}

// IsValidationError reports whether err was caused by bad subscription input.
func IsValidationError(err error) bool {
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}

// Auditor receives authentication and account events.
type Auditor interface {
	LogAuth(username, action, ipAddr, userAgent string, err error)
	LogAccount(actor, username, action string, changed bool, err error)
}

type nopAuditor struct{}

func (nopAuditor) LogAuth(string, string, string, string, error)  {}
func (nopAuditor) LogAccount(string, string, string, bool, error) {}

// SubscribeInput is a premium subscription request as submitted by a user.
type SubscribeInput struct {
	Name     string `json:"name" form:"name"`
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
	Email    string `json:"email" form:"email"`
	TxnRef   string `json:"txn_ref" form:"txn_ref"`
}

// Service combines the credential store with the session manager.
type Service struct {
	store      accounts.Store
	sessions   *SessionManager
	auditor    Auditor
	guard      *LoginGuard
	bcryptCost int
	log        *logger.Logger
}

// NewService creates the authentication facade. auditor and log may be nil.
func NewService(store accounts.Store, sessions *SessionManager, auditor Auditor, cfg config.Auth, log *logger.Logger) *Service {
	if auditor == nil {
		auditor = nopAuditor{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		store:      store,
		sessions:   sessions,
		auditor:    auditor,
		guard:      NewLoginGuard(cfg),
		bcryptCost: cfg.BcryptCost,
		log:        log,
	}
}

// Sessions returns the session manager used by the service.
func (s *Service) Sessions() *SessionManager {
	return s.sessions
}

// Login verifies the credentials and starts a session. Repeated wrong
// passwords from one address lock that address out of the account for a
// while; Login then fails with a *LockoutError.
func (s *Service) Login(ctx context.Context, username, password string) (*entities.Account, error) {
	username = accounts.NormalizeUsername(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	client := clientInfoFrom(ctx)

	if err := s.guard.Check(client.IP, username); err != nil {
		s.auditor.LogAuth(username, "login", client.IP, client.UserAgent, err)
		return nil, err
	}

	acc, err := s.authenticate(ctx, username, password, client)
	if s.guard.Observe(client.IP, username, err) {
		s.log.Warn().
			Str("username", username).
			Str("ip", client.IP).
			Msg("login locked out after repeated failures")
	}
	return acc, err
}

func (s *Service) authenticate(ctx context.Context, username, password string, client ClientInfo) (*entities.Account, error) {
	acc, err := s.store.FindAccount(ctx, username)
	if err != nil {
		s.log.Err(err).Str("username", username).Msg("account lookup failed")
		s.auditor.LogAuth(username, "login", client.IP, client.UserAgent, ErrStoreUnavailable)
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	if acc == nil {
		s.auditor.LogAuth(username, "login", client.IP, client.UserAgent, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if err := CheckPassword(password, acc.PasswordHash); err != nil {
		if !errors.Is(err, ErrInvalidPassword) {
			s.log.Warn().Err(err).Str("username", username).Msg("stored password hash is unusable")
		}
		s.auditor.LogAuth(username, "login", client.IP, client.UserAgent, ErrInvalidCredentials)
		return nil, ErrInvalidCredentials
	}

	if !acc.Verified {
		s.auditor.LogAuth(username, "login", client.IP, client.UserAgent, ErrPendingVerification)
		return nil, ErrPendingVerification
	}

	if _, err := s.sessions.Start(ctx, acc); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}

	s.auditor.LogAuth(username, "login", client.IP, client.UserAgent, nil)
	return acc, nil
}

// Logout ends the session and returns the local path to navigate to.
func (s *Service) Logout(ctx context.Context, redirectTarget string) (string, error) {
	if sess := s.sessions.Current(ctx); sess != nil {
		client := clientInfoFrom(ctx)
		s.auditor.LogAuth(sess.Username, "logout", client.IP, client.UserAgent, nil)
	}
	if err := s.sessions.End(ctx); err != nil {
		return "", err
	}
	return sanitizeRedirectPath(redirectTarget), nil
}

// Subscribe validates the request, hashes the password and files a pending
// request. Duplicates are reported as accounts.ErrDuplicateUsername or
// accounts.ErrPendingDuplicate.
func (s *Service) Subscribe(ctx context.Context, in SubscribeInput) error {
	req, err := s.validateSubscription(in)
	if err != nil {
		return err
	}

	err = s.store.SubmitRequest(ctx, req)
	switch {
	case err == nil:
		s.auditor.LogAccount(req.Username, req.Username, "subscribe", true, nil)
		return nil
	case errors.Is(err, accounts.ErrDuplicateUsername):
		s.auditor.LogAccount(req.Username, req.Username, "subscribe", false, err)
		return err
	default:
		s.log.Err(err).Str("username", req.Username).Msg("subscription request failed")
		s.auditor.LogAccount(req.Username, req.Username, "subscribe", false, ErrStoreUnavailable)
		return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
}

func (s *Service) validateSubscription(in SubscribeInput) (accounts.Request, error) {
	req := accounts.Request{
		Name:     in.Name,
		Username: in.Username,
		Email:    in.Email,
		TxnRef:   in.TxnRef,
	}.Normalize()

	switch {
	case req.Name == "":
		return req, ErrNameRequired
	case req.Username == "":
		return req, ErrUsernameRequired
	case in.Password == "":
		return req, ErrPasswordRequired
	case req.Email == "":
		return req, ErrEmailRequired
	case utf8.RuneCountInString(req.Username) > MaxUsernameLength:
		return req, ErrUsernameInvalid
	case len(req.Email) > 254 || !emailPattern.MatchString(req.Email):
		return req, ErrEmailInvalid
	}

	hash, err := HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return req, err
	}
	req.PasswordHash = hash
	return req, nil
}

// Approve moves a pending request into the verified accounts.
func (s *Service) Approve(ctx context.Context, actor, username string) (bool, error) {
	return s.decide(ctx, actor, username, "approve", s.store.Approve)
}

// Reject deletes a pending request.
func (s *Service) Reject(ctx context.Context, actor, username string) (bool, error) {
	return s.decide(ctx, actor, username, "reject", s.store.Reject)
}

// Revoke deletes a verified non-admin account.
func (s *Service) Revoke(ctx context.Context, actor, username string) (bool, error) {
	return s.decide(ctx, actor, username, "revoke", s.store.Revoke)
}

func (s *Service) decide(ctx context.Context, actor, username, action string, op func(context.Context, string) (bool, error)) (bool, error) {
	username = accounts.NormalizeUsername(username)
	ok, err := op(ctx, username)
	if err != nil {
		s.log.Err(err).Str("username", username).Str("action", action).Msg("account decision failed")
		s.auditor.LogAccount(actor, username, action, false, ErrStoreUnavailable)
		return false, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	s.auditor.LogAccount(actor, username, action, ok, nil)
	return ok, nil
}

func (s *Service) ListAccounts(ctx context.Context) ([]entities.Account, error) {
	list, err := s.store.ListAccounts(ctx)
	if err != nil {
		s.log.Err(err).Msg("listing accounts failed")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return list, nil
}

func (s *Service) ListPending(ctx context.Context) ([]entities.PendingAccount, error) {
	list, err := s.store.ListPending(ctx)
	if err != nil {
		s.log.Err(err).Msg("listing pending requests failed")
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	return list, nil
}

// ClientInfo identifies the caller for the audit trail.
type ClientInfo struct {
	IP        string
	UserAgent string
}

type clientInfoKey struct{}

// WithClientInfo attaches the caller's address and user agent to ctx.
func WithClientInfo(ctx context.Context, info ClientInfo) context.Context {
	return context.WithValue(ctx, clientInfoKey{}, info)
}

func clientInfoFrom(ctx context.Context) ClientInfo {
	info, _ := ctx.Value(clientInfoKey{}).(ClientInfo)
	return info
}

// isLocalPath reports whether path is safe to redirect to: a local path
// that cannot be turned into an external URL.
func isLocalPath(path string) bool {
	if path == "" || !strings.HasPrefix(path, "/") {
		return false
	}
	// protocol-relative URLs (//evil.com)
	if strings.HasPrefix(path, "//") {
		return false
	}
	if strings.Contains(path, "://") || strings.Contains(path, "\\") {
		return false
	}
	return true
}

// sanitizeRedirectPath returns a safe redirect path, defaulting to "/" if invalid.
func sanitizeRedirectPath(path string) string {
	if isLocalPath(path) {
		return path
	}
	return "/"
}
