package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"myworld-planner/internal/gateway"
	"myworld-planner/internal/model"
)

type memPersister struct {
	mu      sync.Mutex
	rec     *model.SessionRecord
	saves   int
	deletes int
	loadErr error
	saveErr error
}

func (p *memPersister) Load(context.Context) (*model.SessionRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.loadErr != nil {
		return nil, p.loadErr
	}
	if p.rec == nil {
		return nil, nil
	}
	rec := *p.rec
	return &rec, nil
}

func (p *memPersister) Save(_ context.Context, rec model.SessionRecord) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.saveErr != nil {
		return p.saveErr
	}
	p.rec = &rec
	p.saves++
	return nil
}

func (p *memPersister) Delete(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rec = nil
	p.deletes++
	return nil
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestSignInPersistsAndRestores(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	user := model.User{ID: "u1", Email: "a@b.co", Role: model.RoleClient}

	s := NewStore(p, nil)
	require.NoError(t, s.SignIn(ctx, user, "tok"))
	assert.True(t, s.IsAuthenticated())
	require.NotNil(t, p.rec)
	assert.Equal(t, "tok", p.rec.AccessToken)

	restored := NewStore(p, nil)
	assert.False(t, restored.IsAuthenticated())
	require.NoError(t, restored.Restore(ctx))
	got, ok := restored.User()
	assert.True(t, ok)
	assert.Equal(t, user, got)
	assert.Equal(t, "tok", restored.AccessToken())
}

func TestRestoreWithoutRecord(t *testing.T) {
	s := NewStore(&memPersister{}, nil)
	require.NoError(t, s.Restore(context.Background()))
	assert.False(t, s.IsAuthenticated())

	failing := NewStore(&memPersister{loadErr: errors.New("disk")}, nil)
	assert.Error(t, failing.Restore(context.Background()))
}

func TestSignInRejectsEmptyToken(t *testing.T) {
	s := NewStore(&memPersister{}, nil)
	assert.Error(t, s.SignIn(context.Background(), model.User{ID: "u1"}, ""))
	assert.False(t, s.IsAuthenticated())
}

func TestSignOutClearsEverything(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	s := NewStore(p, nil)

	var events []EventType
	s.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	require.NoError(t, s.SignIn(ctx, model.User{ID: "u1"}, "tok"))
	require.NoError(t, s.SignOut(ctx))

	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, p.rec)
	assert.Equal(t, []EventType{SignedIn, SignedOut}, events)
}

func TestUpdateTokenRequiresSession(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	s := NewStore(p, nil)
	assert.Error(t, s.UpdateToken(ctx, "new"))

	var events []EventType
	s.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	require.NoError(t, s.SignIn(ctx, model.User{ID: "u1"}, "old"))
	require.NoError(t, s.UpdateToken(ctx, "new"))
	assert.Equal(t, "new", s.AccessToken())
	assert.Equal(t, "new", p.rec.AccessToken)
	assert.Equal(t, []EventType{SignedIn, Refreshed}, events)
}

func TestUpdateUserKeepsToken(t *testing.T) {
	ctx := context.Background()
	p := &memPersister{}
	s := NewStore(p, nil)
	require.NoError(t, s.SignIn(ctx, model.User{ID: "u1"}, "tok"))

	require.NoError(t, s.UpdateUser(ctx, model.User{ID: "u1", EmailVerified: true}))
	user, _ := s.User()
	assert.True(t, user.EmailVerified)
	assert.True(t, p.rec.User.EmailVerified)
	assert.Equal(t, "tok", p.rec.AccessToken)
}

func TestFailedSaveLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	diskFull := errors.New("disk full")
	p := &memPersister{saveErr: diskFull}
	s := NewStore(p, nil)

	var events []EventType
	s.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	err := s.SignIn(ctx, model.User{ID: "u1"}, "tok")
	assert.ErrorIs(t, err, diskFull)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.AccessToken())
	assert.Empty(t, events)

	p.saveErr = nil
	require.NoError(t, s.SignIn(ctx, model.User{ID: "u1"}, "old"))
	p.saveErr = diskFull

	assert.ErrorIs(t, s.UpdateToken(ctx, "new"), diskFull)
	assert.Equal(t, "old", s.AccessToken())
	assert.Equal(t, "old", p.rec.AccessToken)

	assert.ErrorIs(t, s.UpdateUser(ctx, model.User{ID: "u1", EmailVerified: true}), diskFull)
	user, ok := s.User()
	assert.True(t, ok)
	assert.False(t, user.EmailVerified)
	assert.Equal(t, []EventType{SignedIn}, events)
}

func TestExpiresAt(t *testing.T) {
	ctx := context.Background()
	exp := time.Now().Add(10 * time.Minute).Truncate(time.Second)

	s := NewStore(nil, nil)
	_, err := s.ExpiresAt()
	assert.Error(t, err)

	require.NoError(t, s.SignIn(ctx, model.User{ID: "u1"}, signedToken(t, exp)))
	got, err := s.ExpiresAt()
	require.NoError(t, err)
	assert.True(t, exp.Equal(got))

	require.NoError(t, s.UpdateToken(ctx, "opaque-token"))
	_, err = s.ExpiresAt()
	assert.ErrorIs(t, err, ErrNoExpiry)
}

func TestGatewayUnauthorizedInvalidatesStore(t *testing.T) {
	ctx := context.Background()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	p := &memPersister{}
	s := NewStore(p, nil)
	require.NoError(t, s.SignIn(ctx, model.User{ID: "u1"}, "tok"))

	var events []EventType
	s.Subscribe(func(ev Event) { events = append(events, ev.Type) })

	gw, err := gateway.New(gateway.Config{BaseURL: server.URL}, gateway.WithSession(s))
	require.NoError(t, err)

	err = gw.Get(ctx, "/auth/me", nil, nil)
	require.True(t, gateway.IsUnauthorized(err))

	assert.False(t, s.IsAuthenticated())
	assert.Nil(t, p.rec)
	assert.Equal(t, 1, p.deletes)
	assert.Equal(t, []EventType{Expired}, events)
}
