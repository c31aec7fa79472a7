// Package auth tracks adapter identity and application login, including the
// simulated biometric scan flow.
//
// Two layers compose: the adapter-level identity (anonymous or token sign-in
// against the remote store) and the application-level logged-in flag (flipped
// by credential submission or a completed biometric scan). Synchronization
// must not start until both exist; the gate is exposed as Ready.
package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pulsehq/socialpulse/internal/apperr"
	"github.com/pulsehq/socialpulse/internal/store"
)

// Manager owns the auth session state.
//
// The credential check is intentionally a non-empty test only, and the
// biometric flow is a fixed-delay simulation; neither verifies anything
// against a backend.
type Manager struct {
	idp    store.IdentityProvider
	logger *slog.Logger

	mu             sync.Mutex
	identity       *store.Identity
	loggedIn       bool
	email          string
	name           string
	agency         string
	biometric      map[Modality]bool
	onChange       []func()
	teardown       func()
	cancelIdentity func()

	scanner     *Scanner
	scannerOpts []ScannerOption
}

// Option configures a Manager.
type Option func(*Manager)

// WithScannerOptions forwards options to the embedded biometric scanner.
func WithScannerOptions(opts ...ScannerOption) Option {
	return func(m *Manager) { m.scannerOpts = opts }
}

// NewManager builds a manager over the adapter's identity surface. Both
// biometric modalities start enabled.
func NewManager(idp store.IdentityProvider, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		idp:    idp,
		logger: logger,
		biometric: map[Modality]bool{
			ModalityFingerprint: true,
			ModalityFace:        true,
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.scanner = NewScanner(m.biometricVerified, m.scannerOpts...)
	return m
}

// Start signs in against the adapter: with the token when one is supplied by
// the environment, anonymously otherwise. It also subscribes to identity
// changes. A sign-in failure is surfaced and leaves the session
// unauthenticated; no fallback is retried automatically.
func (m *Manager) Start(ctx context.Context, token string) error {
	cancel := m.idp.OnIdentityChange(func(id store.Identity) {
		m.mu.Lock()
		m.identity = &id
		m.mu.Unlock()
		m.logger.Info("auth: identity changed",
			slog.String("uid", id.UID),
			slog.Bool("anonymous", id.Anonymous))
		m.notify()
	})
	m.mu.Lock()
	m.cancelIdentity = cancel
	m.mu.Unlock()

	var err error
	if token != "" {
		_, err = m.idp.SignInWithToken(ctx, token)
	} else {
		_, err = m.idp.SignInAnonymously(ctx)
	}
	if err != nil {
		m.logger.Error("auth: sign-in failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// Identity returns the current adapter identity, if any.
func (m *Manager) Identity() (store.Identity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.identity == nil {
		return store.Identity{}, false
	}
	return *m.identity, true
}

// LoggedIn reports the application-level flag.
func (m *Manager) LoggedIn() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loggedIn
}

// Ready reports whether synchronization may start: an adapter identity
// exists and the user is logged in.
func (m *Manager) Ready() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity != nil && m.loggedIn
}

// SubmitCredentials logs the user in when both fields are non-empty. No
// backend verification happens at this layer.
func (m *Manager) SubmitCredentials(email, password string) error {
	if email == "" || password == "" {
		return apperr.NewAuthError("credentials", errors.New("email and password are required"))
	}
	m.mu.Lock()
	m.email = email
	m.loggedIn = true
	m.mu.Unlock()
	m.logger.Info("auth: credential login", slog.String("email", email))
	m.notify()
	return nil
}

// SetProfile stores the sign-up profile fields.
func (m *Manager) SetProfile(name, agency string) {
	m.mu.Lock()
	m.name = name
	m.agency = agency
	m.mu.Unlock()
}

// Profile returns the stored profile fields.
func (m *Manager) Profile() (name, agency string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.name, m.agency
}

// SetBiometric enables or disables a modality.
func (m *Manager) SetBiometric(mod Modality, enabled bool) error {
	if !ValidModality(mod) {
		return apperr.NewValidationError("modality", string(mod))
	}
	m.mu.Lock()
	m.biometric[mod] = enabled
	m.mu.Unlock()
	return nil
}

// BiometricEnabled reports whether a modality may be used for login.
func (m *Manager) BiometricEnabled(mod Modality) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.biometric[mod]
}

// RequestScan starts (or restarts) a biometric scan.
func (m *Manager) RequestScan(mod Modality) error {
	if !ValidModality(mod) {
		return apperr.NewValidationError("modality", string(mod))
	}
	if !m.BiometricEnabled(mod) {
		return apperr.ErrModalityDisabled
	}
	m.scanner.Request(mod)
	return nil
}

// CancelScan aborts an in-flight scanning phase.
func (m *Manager) CancelScan() { m.scanner.Cancel() }

// ScanState returns the current biometric scan state.
func (m *Manager) ScanState() ScanState { return m.scanner.State() }

// biometricVerified is the scanner's completion callback.
func (m *Manager) biometricVerified(mod Modality) {
	m.mu.Lock()
	m.loggedIn = true
	m.mu.Unlock()
	m.logger.Info("auth: biometric login", slog.String("modality", string(mod)))
	m.notify()
}

// SetTeardown registers the subscription-teardown hook run synchronously
// inside Logout.
func (m *Manager) SetTeardown(fn func()) {
	m.mu.Lock()
	m.teardown = fn
	m.mu.Unlock()
}

// OnChange registers a callback fired after every auth state change.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = append(m.onChange, fn)
	m.mu.Unlock()
}

// Logout clears the application login and all in-memory credential and
// profile fields, then runs the teardown hook. All active collection
// subscriptions are gone before Logout returns.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.loggedIn = false
	m.email = ""
	m.name = ""
	m.agency = ""
	teardown := m.teardown
	m.mu.Unlock()

	if teardown != nil {
		teardown()
	}
	m.logger.Info("auth: logged out")
	m.notify()
}

// Close stops the scanner and the identity subscription.
func (m *Manager) Close() {
	m.mu.Lock()
	cancel := m.cancelIdentity
	m.cancelIdentity = nil
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	m.scanner.Close()
}

func (m *Manager) notify() {
	m.mu.Lock()
	cbs := make([]func(), len(m.onChange))
	copy(cbs, m.onChange)
	m.mu.Unlock()
	for _, cb := range cbs {
		cb()
	}
}
