package auth_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"faceattend/internal/auth"
	"faceattend/internal/queue"
)

type fakeAccounts struct {
	admins    map[string]auth.Account
	students  map[string]auth.Account
	passwords map[string]string // role+":"+id -> hash
}

func newFakeAccounts() *fakeAccounts {
	return &fakeAccounts{
		admins:    make(map[string]auth.Account),
		students:  make(map[string]auth.Account),
		passwords: make(map[string]string),
	}
}

func (f *fakeAccounts) AdminByUsername(_ context.Context, username string) (auth.Account, error) {
	a, ok := f.admins[username]
	if !ok {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccounts) StudentByRoll(_ context.Context, roll string) (auth.Account, error) {
	a, ok := f.students[roll]
	if !ok {
		return auth.Account{}, auth.ErrAccountNotFound
	}
	return a, nil
}

func (f *fakeAccounts) SetPassword(_ context.Context, role, id, hash string) error {
	f.passwords[role+":"+id] = hash
	return nil
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func newAuthService(t *testing.T, accounts auth.Accounts, codes auth.CodeStore, q queue.Queue) *auth.Service {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return auth.NewService(accounts, codes, q, "faceattend-test", "test-signing-key", time.Hour, 15*time.Minute, logger)
}

func TestLogin(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.admins["admin"] = auth.Account{ID: "a1", Name: "Admin", PasswordHash: mustHash(t, "admin123")}
	accounts.students["R-101"] = auth.Account{ID: "s1", Name: "Ada", PasswordHash: mustHash(t, "secret")}
	svc := newAuthService(t, accounts, auth.NewMemoryCodeStore(), queue.NewInMemory(4))

	tok, err := svc.Login(context.Background(), "admin", "admin123", auth.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, tok.Role)
	assert.NotEmpty(t, tok.AccessToken)

	claims, err := auth.Parse(tok.AccessToken, "test-signing-key", "faceattend-test")
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.Subject)
	assert.Equal(t, auth.RoleAdmin, claims.Role)

	tok, err = svc.Login(context.Background(), "R-101", "secret", auth.RoleStudent)
	require.NoError(t, err)
	claims, err = auth.Parse(tok.AccessToken, "test-signing-key", "faceattend-test")
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.Subject)
	assert.Equal(t, auth.RoleStudent, claims.Role)
}

func TestLogin_Rejections(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.admins["admin"] = auth.Account{ID: "a1", PasswordHash: mustHash(t, "admin123")}
	svc := newAuthService(t, accounts, auth.NewMemoryCodeStore(), queue.NewInMemory(4))

	// Wrong password and unknown identity are indistinguishable to callers.
	_, err := svc.Login(context.Background(), "admin", "nope", auth.RoleAdmin)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "ghost", "admin123", auth.RoleAdmin)
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestResetFlow(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.students["R-101"] = auth.Account{ID: "s1", Name: "Ada", PasswordHash: mustHash(t, "old")}
	codes := auth.NewMemoryCodeStore()
	q := queue.NewInMemory(4)
	svc := newAuthService(t, accounts, codes, q)

	require.NoError(t, svc.RequestReset(context.Background(), "R-101", auth.RoleStudent))

	// The code goes to the delivery queue, never to the caller.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)
	msg := <-msgs
	assert.Equal(t, "reset_code", msg.Type)

	var n auth.ResetNotification
	require.NoError(t, json.Unmarshal(msg.Body, &n))
	assert.Equal(t, "R-101", n.Identifier)
	assert.Equal(t, "Ada", n.Name)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), n.Code)

	// A wrong code changes nothing.
	err = svc.ResetPassword(context.Background(), "R-101", auth.RoleStudent, "000000", "brand-new")
	if n.Code != "000000" {
		assert.ErrorIs(t, err, auth.ErrInvalidResetCode)
	}

	require.NoError(t, svc.ResetPassword(context.Background(), "R-101", auth.RoleStudent, n.Code, "brand-new"))
	hash := accounts.passwords[auth.RoleStudent+":s1"]
	require.NotEmpty(t, hash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("brand-new")))

	// Codes are single use.
	err = svc.ResetPassword(context.Background(), "R-101", auth.RoleStudent, n.Code, "again")
	assert.ErrorIs(t, err, auth.ErrInvalidResetCode)
}

func TestResetFlow_SameIdentifierAcrossRoles(t *testing.T) {
	// An admin username and a student roll number may collide; each role
	// keeps its own code and neither request clobbers the other.
	accounts := newFakeAccounts()
	accounts.admins["alex"] = auth.Account{ID: "a1", Name: "Alex A"}
	accounts.students["alex"] = auth.Account{ID: "s1", Name: "Alex S"}
	q := queue.NewInMemory(4)
	svc := newAuthService(t, accounts, auth.NewMemoryCodeStore(), q)

	require.NoError(t, svc.RequestReset(context.Background(), "alex", auth.RoleAdmin))
	require.NoError(t, svc.RequestReset(context.Background(), "alex", auth.RoleStudent))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	msgs, err := q.Consume(ctx)
	require.NoError(t, err)

	codes := map[string]string{}
	for i := 0; i < 2; i++ {
		var n auth.ResetNotification
		require.NoError(t, json.Unmarshal((<-msgs).Body, &n))
		codes[n.Role] = n.Code
	}
	require.Len(t, codes, 2)

	// The admin code is not valid on the student path.
	err = svc.ResetPassword(context.Background(), "alex", auth.RoleStudent, codes[auth.RoleAdmin], "pw-student")
	if codes[auth.RoleAdmin] != codes[auth.RoleStudent] {
		assert.ErrorIs(t, err, auth.ErrInvalidResetCode)
	}

	require.NoError(t, svc.ResetPassword(context.Background(), "alex", auth.RoleAdmin, codes[auth.RoleAdmin], "pw-admin"))
	require.NoError(t, svc.ResetPassword(context.Background(), "alex", auth.RoleStudent, codes[auth.RoleStudent], "pw-student"))

	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(accounts.passwords[auth.RoleAdmin+":a1"]), []byte("pw-admin")))
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(accounts.passwords[auth.RoleStudent+":s1"]), []byte("pw-student")))
}

func TestResetPassword_ExpiredCode(t *testing.T) {
	accounts := newFakeAccounts()
	accounts.students["R-101"] = auth.Account{ID: "s1"}
	codes := auth.NewMemoryCodeStore()
	svc := newAuthService(t, accounts, codes, queue.NewInMemory(4))

	expired := auth.ResetCode{
		Code: "123456", Role: auth.RoleStudent, UserID: "s1",
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	require.NoError(t, codes.Put(context.Background(), auth.RoleStudent+":R-101", expired, time.Minute))

	err := svc.ResetPassword(context.Background(), "R-101", auth.RoleStudent, "123456", "new")
	assert.ErrorIs(t, err, auth.ErrInvalidResetCode)
	assert.Empty(t, accounts.passwords)
}

func TestRequestReset_UnknownAccount(t *testing.T) {
	svc := newAuthService(t, newFakeAccounts(), auth.NewMemoryCodeStore(), queue.NewInMemory(4))
	err := svc.RequestReset(context.Background(), "ghost", auth.RoleStudent)
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}

func TestMemoryCodeStore_LazyExpiry(t *testing.T) {
	codes := auth.NewMemoryCodeStore()
	ctx := context.Background()

	live := auth.ResetCode{Code: "111111", ExpiresAt: time.Now().Add(time.Minute)}
	require.NoError(t, codes.Put(ctx, "a", live, time.Minute))

	got, ok, err := codes.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "111111", got.Code)

	expired := auth.ResetCode{Code: "222222", ExpiresAt: time.Now().Add(-time.Second)}
	require.NoError(t, codes.Put(ctx, "b", expired, time.Minute))

	_, ok, err = codes.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	// The expired entry was removed on read, not just hidden.
	_, ok, err = codes.Get(ctx, "b")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, codes.Delete(ctx, "a"))
	_, ok, err = codes.Get(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIssueParse(t *testing.T) {
	token, exp, err := auth.Issue("s1", auth.RoleStudent, "iss", "key", time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := auth.Parse(token, "key", "iss")
	require.NoError(t, err)
	assert.Equal(t, "s1", claims.Subject)

	_, err = auth.Parse(token, "wrong-key", "iss")
	assert.Error(t, err)

	_, err = auth.Parse(token, "key", "other-issuer")
	assert.Error(t, err)
}
