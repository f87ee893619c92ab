package servicecontext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/firegate/firegate/internal/broker"
)

func TestWithIdentityAndGetIdentity(t *testing.T) {
	t.Run("set and retrieve identity", func(t *testing.T) {
		ctx := context.Background()

		ctx = WithIdentity(ctx, &broker.Identity{
			Subject:      "broker-uid",
			Email:        "user@example.com",
			GoogleUserID: "108123456789",
		})

		identity, ok := GetIdentity(ctx)
		assert.True(t, ok)
		assert.Equal(t, "broker-uid", identity.Subject)
		assert.Equal(t, "108123456789", identity.GoogleUserID)
	})

	t.Run("get identity when not set", func(t *testing.T) {
		identity, ok := GetIdentity(context.Background())
		assert.False(t, ok)
		assert.Nil(t, identity)
	})
}

func TestGetGoogleUserID(t *testing.T) {
	t.Run("present", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &broker.Identity{GoogleUserID: "108123456789"})

		id, ok := GetGoogleUserID(ctx)
		assert.True(t, ok)
		assert.Equal(t, "108123456789", id)
	})

	t.Run("identity without google account", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &broker.Identity{Subject: "broker-uid"})

		_, ok := GetGoogleUserID(ctx)
		assert.False(t, ok)
	})

	t.Run("no identity", func(t *testing.T) {
		_, ok := GetGoogleUserID(context.Background())
		assert.False(t, ok)
	})
}
