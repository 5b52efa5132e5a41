package services

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"resumematch/scanner-web/internal/models"
)

// AuthState is the state of an AuthContext.
//
//	REHYDRATING ──► UNAUTHENTICATED ◄──► AUTHENTICATED
//	     │                                     ▲
//	     └─────────────────────────────────────┘
//
// Logout is allowed from every state and always lands in UNAUTHENTICATED.
type AuthState string

const (
	StateRehydrating     AuthState = "rehydrating"
	StateUnauthenticated AuthState = "unauthenticated"
	StateAuthenticated   AuthState = "authenticated"
)

const (
	loginPath = "/api/auth/login"
	mePath    = "/api/auth/me"
)

// validTransitions lists every allowed (from → to) pair.
var validTransitions = map[AuthState][]AuthState{
	StateRehydrating:     {StateUnauthenticated, StateAuthenticated},
	StateUnauthenticated: {StateUnauthenticated, StateAuthenticated},
	StateAuthenticated:   {StateAuthenticated, StateUnauthenticated},
}

// IsTransitionAllowed returns true when moving from → to is permitted.
func IsTransitionAllowed(from, to AuthState) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Snapshot is an immutable view of an AuthContext.
type Snapshot struct {
	State AuthState
	Token string
	User  *models.User
}

func (s Snapshot) IsAuthenticated() bool {
	return s.State == StateAuthenticated
}

type AuthContext struct {
	store    SessionStore
	pipeline RequestPipeline

	mu          sync.Mutex
	state       AuthState
	token       string
	user        *models.User
	subscribers map[int]func(Snapshot)
	nextSubID   int

	// loginMu serializes Login calls on one context.
	loginMu sync.Mutex
	// sessionMu is held while the store and the state change together.
	// Subscribers must not call back into Login, Logout, Rehydrate or Sync.
	sessionMu sync.Mutex
}

func NewAuthContext(store SessionStore, pipeline RequestPipeline) *AuthContext {
	return &AuthContext{
		store:       store,
		pipeline:    pipeline,
		state:       StateRehydrating,
		subscribers: make(map[int]func(Snapshot)),
	}
}

func (a *AuthContext) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *AuthContext) State() AuthState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *AuthContext) snapshotLocked() Snapshot {
	snap := Snapshot{State: a.state, Token: a.token}
	if a.user != nil {
		u := *a.user
		snap.User = &u
	}
	return snap
}

// Subscribe registers fn to be called after every change. The returned
// function removes the subscription.
func (a *AuthContext) Subscribe(fn func(Snapshot)) func() {
	a.mu.Lock()
	id := a.nextSubID
	a.nextSubID++
	a.subscribers[id] = fn
	a.mu.Unlock()

	return func() {
		a.mu.Lock()
		delete(a.subscribers, id)
		a.mu.Unlock()
	}
}

// update applies a change under the lock and notifies subscribers outside it.
func (a *AuthContext) update(fn func()) {
	a.mu.Lock()
	fn()
	snap := a.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(a.subscribers))
	for _, s := range a.subscribers {
		subs = append(subs, s)
	}
	a.mu.Unlock()

	for _, s := range subs {
		s(snap)
	}
}

func (a *AuthContext) transition(to AuthState, token string, user *models.User) {
	a.update(func() {
		if !IsTransitionAllowed(a.state, to) {
			log.Printf("⚠️  auth transition %s → %s not allowed\n", a.state, to)
			return
		}
		a.state = to
		a.token = token
		a.user = user
	})
}

// Rehydrate restores the session from the store. It transitions out of
// rehydrating exactly once; later calls do nothing. On a storage error the
// context stays in rehydrating and the error is returned.
func (a *AuthContext) Rehydrate(ctx context.Context) error {
	if a.State() != StateRehydrating {
		return nil
	}

	a.loginMu.Lock()
	defer a.loginMu.Unlock()
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	if a.State() != StateRehydrating {
		return nil
	}

	session, err := a.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to rehydrate session: %w", err)
	}

	if session.HasToken() {
		a.transition(StateAuthenticated, session.Token, session.User)
	} else {
		a.transition(StateUnauthenticated, "", nil)
	}
	return nil
}

// Sync checks an authenticated context against the store and logs it out
// when the stored token is gone or replaced, as after an idle purge. It
// reports whether the context was logged out.
func (a *AuthContext) Sync(ctx context.Context) (bool, error) {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	snap := a.Snapshot()
	if snap.State != StateAuthenticated {
		return false, nil
	}

	token, err := a.store.Token(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to sync session: %w", err)
	}
	if token == snap.Token {
		return false, nil
	}

	if err := a.store.Clear(ctx); err != nil {
		log.Printf("⚠️  failed to clear session storage: %v\n", err)
	}
	a.update(func() {
		a.state = StateUnauthenticated
		a.token = ""
		a.user = nil
	})
	log.Println("⌛ Session expired from storage, signed out")
	return true, nil
}

// Login exchanges credentials for a token. A failed login leaves the store
// and the state untouched. The profile fetch after a successful login is best
// effort: on failure the user record holds only the submitted username.
func (a *AuthContext) Login(ctx context.Context, username, password string) error {
	creds := models.Credentials{
		Username: strings.TrimSpace(username),
		Password: password,
	}
	if creds.Username == "" {
		return newValidationError("username", "username is required")
	}
	if creds.Password == "" {
		return newValidationError("password", "password is required")
	}

	a.loginMu.Lock()
	defer a.loginMu.Unlock()

	var payload any
	if err := a.pipeline.DoJSON(ctx, http.MethodPost, loginPath, creds, &payload); err != nil {
		return err
	}

	token, ok := ExtractToken(payload)
	if !ok {
		return &APIError{Kind: ErrAuth, Message: "No token returned"}
	}

	if err := a.storeSession(ctx, token); err != nil {
		return err
	}

	user := &models.User{Username: creds.Username}
	var me any
	if err := a.pipeline.DoJSON(ctx, http.MethodGet, mePath, nil, &me); err != nil {
		log.Printf("⚠️  profile fetch failed for %s: %v\n", creds.Username, err)
	} else {
		user.ID = ExtractUserID(me)
	}

	if !a.storeUser(ctx, token, user) {
		log.Printf("⚠️  session for %s ended before its profile was stored\n", creds.Username)
		return nil
	}

	log.Printf("🔐 %s signed in\n", creds.Username)
	return nil
}

func (a *AuthContext) storeSession(ctx context.Context, token string) error {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	if err := a.store.Set(ctx, token, nil); err != nil {
		return err
	}
	a.transition(StateAuthenticated, token, nil)
	return nil
}

// storeUser caches user only while the session that fetched it is current.
func (a *AuthContext) storeUser(ctx context.Context, token string, user *models.User) bool {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	snap := a.Snapshot()
	if snap.State != StateAuthenticated || snap.Token != token {
		return false
	}

	if err := a.store.SetUser(ctx, user); err != nil {
		log.Printf("⚠️  failed to cache profile for %s: %v\n", user.Username, err)
	}
	a.update(func() {
		a.user = user
	})
	return true
}

// Logout clears the session from any state. It never fails.
func (a *AuthContext) Logout(ctx context.Context) {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	if err := a.store.Clear(ctx); err != nil {
		log.Printf("⚠️  failed to clear session storage: %v\n", err)
	}
	a.update(func() {
		a.state = StateUnauthenticated
		a.token = ""
		a.user = nil
	})
}
