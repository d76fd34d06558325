package repo

import (
	"context"
	"testing"
	"time"

	"DriveKeeper/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedSession(t *testing.T, db *gorm.DB, userID uuid.UUID) *model.Session {
	t.Helper()
	s := &model.Session{ID: uuid.New(), UserID: userID}
	require.NoError(t, NewSessionRepository(db).Create(context.Background(), s))
	return s
}

func TestRefreshTokenRepository_RevokeChain(t *testing.T) {
	db := newTestDB(t)
	r := NewRefreshTokenRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db)
	session := seedSession(t, db, owner.ID)

	old := &model.RefreshToken{
		ID: uuid.New(), UserID: owner.ID, SessionID: session.ID,
		TokenHash: "hash-old", ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, r.Create(ctx, old))
	newer := &model.RefreshToken{
		ID: uuid.New(), UserID: owner.ID, SessionID: session.ID,
		TokenHash: "hash-new", ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, r.Create(ctx, newer))

	// дубликат хеша — нарушение уникальности
	err := r.Create(ctx, &model.RefreshToken{
		ID: uuid.New(), UserID: owner.ID, SessionID: session.ID,
		TokenHash: "hash-old", ExpiresAt: time.Now().Add(time.Hour),
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	// ротация: старый указывает на сменивший его токен
	require.NoError(t, r.Revoke(ctx, old.ID, time.Now(), &newer.ID))

	got, err := r.GetByHash(ctx, "hash-old")
	require.NoError(t, err)
	assert.True(t, got.IsRevoked())
	require.NotNil(t, got.RevokedID)
	assert.Equal(t, newer.ID, *got.RevokedID)

	got, err = r.GetByHash(ctx, "hash-new")
	require.NoError(t, err)
	assert.False(t, got.IsRevoked())
}

func TestRefreshTokenRepository_RevokeAllForUser(t *testing.T) {
	db := newTestDB(t)
	r := NewRefreshTokenRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db)
	other := seedUser(t, db)
	s1 := seedSession(t, db, owner.ID)
	s2 := seedSession(t, db, other.ID)

	for i, hash := range []string{"h1", "h2", "h3"} {
		tok := &model.RefreshToken{
			ID: uuid.New(), UserID: owner.ID, SessionID: s1.ID,
			TokenHash: hash, ExpiresAt: time.Now().Add(time.Hour),
		}
		require.NoError(t, r.Create(ctx, tok))
		if i == 0 {
			// один уже отозван — повторный отзыв его не трогает
			require.NoError(t, r.Revoke(ctx, tok.ID, time.Now(), nil))
		}
	}
	foreign := &model.RefreshToken{
		ID: uuid.New(), UserID: other.ID, SessionID: s2.ID,
		TokenHash: "foreign", ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, r.Create(ctx, foreign))

	revoked, err := r.RevokeAllForUser(ctx, owner.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), revoked)

	tokens, err := r.ListByUser(ctx, owner.ID)
	require.NoError(t, err)
	for _, tok := range tokens {
		assert.True(t, tok.IsRevoked())
	}

	// чужой токен остался активным
	got, err := r.GetByHash(ctx, "foreign")
	require.NoError(t, err)
	assert.False(t, got.IsRevoked())
}

func TestRefreshTokenRepository_RevokeAllForSession(t *testing.T) {
	db := newTestDB(t)
	r := NewRefreshTokenRepository(db)
	sessions := NewSessionRepository(db)
	ctx := context.Background()
	owner := seedUser(t, db)
	s1 := seedSession(t, db, owner.ID)
	s2 := seedSession(t, db, owner.ID)

	require.NoError(t, r.Create(ctx, &model.RefreshToken{
		ID: uuid.New(), UserID: owner.ID, SessionID: s1.ID,
		TokenHash: "s1-token", ExpiresAt: time.Now().Add(time.Hour),
	}))
	require.NoError(t, r.Create(ctx, &model.RefreshToken{
		ID: uuid.New(), UserID: owner.ID, SessionID: s2.ID,
		TokenHash: "s2-token", ExpiresAt: time.Now().Add(time.Hour),
	}))

	revoked, err := r.RevokeAllForSession(ctx, s1.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), revoked)

	// токен другой сессии того же пользователя не тронут
	got, err := r.GetByHash(ctx, "s2-token")
	require.NoError(t, err)
	assert.False(t, got.IsRevoked())

	// завершение сессии идемпотентно
	now := time.Now()
	require.NoError(t, sessions.End(ctx, s1.ID, now))
	require.NoError(t, sessions.End(ctx, s1.ID, now.Add(time.Minute)))
	gotS, err := sessions.GetByID(ctx, s1.ID)
	require.NoError(t, err)
	require.NotNil(t, gotS.EndedAt)
	assert.WithinDuration(t, now, *gotS.EndedAt, time.Second)
}
