package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"central-illustration/internal/database"
	"central-illustration/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openDB(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()
	db, err := database.Open(ctx, database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	require.NoError(t, db.Migrate(ctx))
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr[T any](v T) *T { return &v }

func TestDemoVisibilityFiltersList(t *testing.T) {
	ctx := context.Background()
	demos := &DemoService{DB: openDB(t)}

	a, err := demos.Create(ctx, models.DemonstrationCreate{Title: "Demo A", FolderName: "demo-a", IsVisible: ptr(true)}, uuid.Nil)
	require.NoError(t, err)
	assert.True(t, a.IsVisible)
	assert.Nil(t, a.CreatedBy)

	all, err := demos.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	visible, err := demos.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, visible, 1)

	_, err = demos.Update(ctx, a.ID, models.DemonstrationUpdate{IsVisible: ptr(false)})
	require.NoError(t, err)

	visible, err = demos.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, visible)

	all, err = demos.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestDemoCreateDefaultsAndDuplicates(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	users := &UserService{DB: db}
	demos := &DemoService{DB: db}

	admin, err := users.Create(ctx, "admin", "admin@example.com", "pw", models.RoleAdmin)
	require.NoError(t, err)

	d, err := demos.Create(ctx, models.DemonstrationCreate{Title: "T", FolderName: "tqm", Description: ptr("desc")}, admin.ID)
	require.NoError(t, err)
	assert.True(t, d.IsVisible)
	require.NotNil(t, d.Description)
	assert.Equal(t, "desc", *d.Description)
	require.NotNil(t, d.CreatedBy)
	assert.Equal(t, admin.ID.String(), *d.CreatedBy)
	assert.WithinDuration(t, time.Now(), d.CreatedAt, time.Minute)

	_, err = demos.Create(ctx, models.DemonstrationCreate{Title: "Other", FolderName: "tqm"}, admin.ID)
	assert.ErrorIs(t, err, ErrFolderExists)
}

func TestConcurrentCreateSameFolder(t *testing.T) {
	ctx := context.Background()
	demos := &DemoService{DB: openDB(t)}

	const n = 8
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = demos.Create(ctx, models.DemonstrationCreate{Title: "T", FolderName: "shared"}, uuid.Nil)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, ErrFolderExists)
	}
	assert.Equal(t, 1, created)

	list, err := demos.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestDemoUpdatePartialAndDelete(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	demos := &DemoService{DB: db}

	d, err := demos.Create(ctx, models.DemonstrationCreate{Title: "Old", FolderName: "x", URL: ptr("https://example.com")}, uuid.Nil)
	require.NoError(t, err)

	u, err := demos.Update(ctx, d.ID, models.DemonstrationUpdate{Title: ptr("New")})
	require.NoError(t, err)
	assert.Equal(t, "New", u.Title)
	assert.Equal(t, "x", u.FolderName)
	require.NotNil(t, u.URL)
	assert.Equal(t, "https://example.com", *u.URL)

	_, err = demos.Update(ctx, 999, models.DemonstrationUpdate{Title: ptr("nope")})
	assert.ErrorIs(t, err, ErrDemoNotFound)

	require.NoError(t, demos.Delete(ctx, d.ID))
	_, err = demos.Get(ctx, d.ID)
	assert.ErrorIs(t, err, ErrDemoNotFound)
	assert.ErrorIs(t, demos.Delete(ctx, d.ID), ErrDemoNotFound)
}

func TestCommentsAppendInOrderAndCascade(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	users := &UserService{DB: db}
	demos := &DemoService{DB: db}
	comments := &CommentService{DB: db, Demos: demos}

	alice, err := users.Create(ctx, "alice", "alice@example.com", "pw", models.RoleUser)
	require.NoError(t, err)
	d, err := demos.Create(ctx, models.DemonstrationCreate{Title: "D", FolderName: "d"}, uuid.Nil)
	require.NoError(t, err)

	_, err = comments.Create(ctx, models.CommentCreate{DemoID: d.ID, Content: "first"}, alice)
	require.NoError(t, err)
	c2, err := comments.Create(ctx, models.CommentCreate{DemoID: d.ID, Content: "second"}, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", *c2.AuthorUsername)

	list, err := comments.List(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Content)
	assert.Equal(t, "second", list[1].Content)
	assert.Equal(t, "alice", *list[1].AuthorUsername)

	_, err = comments.Create(ctx, models.CommentCreate{DemoID: 42, Content: "x"}, alice)
	assert.ErrorIs(t, err, ErrDemoNotFound)

	require.NoError(t, demos.Delete(ctx, d.ID))
	_, err = comments.List(ctx, d.ID)
	assert.ErrorIs(t, err, ErrDemoNotFound)
}

func TestAuthLoginAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := &UserService{DB: openDB(t)}
	auth := &AuthService{Users: users, SecretKey: []byte("test-secret"), TTL: time.Minute}

	created, err := users.EnsureAdmin(ctx, "admin", "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.True(t, created)
	created, err = users.EnsureAdmin(ctx, "admin", "admin@example.com", "admin123")
	require.NoError(t, err)
	assert.False(t, created)

	_, err = auth.Login(ctx, "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = auth.Login(ctx, "ghost", "admin123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	tok, err := auth.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	assert.Equal(t, "bearer", tok.TokenType)

	u, err := auth.Authenticate(ctx, tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Username)
	assert.True(t, u.IsAdmin())

	_, err = auth.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other := &AuthService{Users: users, SecretKey: []byte("other"), TTL: time.Minute}
	_, err = other.Authenticate(ctx, tok.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := &AuthService{Users: users, SecretKey: []byte("test-secret"), TTL: -time.Minute}
	old, err := expired.Login(ctx, "admin", "admin123")
	require.NoError(t, err)
	_, err = auth.Authenticate(ctx, old.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestUserCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	users := &UserService{DB: openDB(t)}
	_, err := users.Create(ctx, "bob", "bob@example.com", "pw", models.RoleUser)
	require.NoError(t, err)
	_, err = users.Create(ctx, "bob", "bob2@example.com", "pw", models.RoleUser)
	assert.ErrorIs(t, err, ErrUserExists)
}
