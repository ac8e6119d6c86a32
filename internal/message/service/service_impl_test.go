package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/message/domain"
	"github.com/smallbiznis/tilegrid/internal/testkit"
	"github.com/smallbiznis/tilegrid/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func firstTile(t *testing.T, env *testkit.Env, gridID snowflake.ID) snowflake.ID {
	t.Helper()
	tiles := env.TilesOf(t, gridID)
	require.NotEmpty(t, tiles)
	return tiles[0].ID
}

func TestPostRequiresView(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	viewer := env.User(t, "viewer@example.com")
	stranger := env.User(t, "stranger@example.com")
	gridID := env.Grid(t, owner.ID, "Team")
	env.Share(t, owner.ID, gridID, viewer.Email, "view")
	tileID := firstTile(t, env, gridID)

	msg, err := env.Messages.Post(ctx, viewer.ID, tileID, domain.PostRequest{Ciphertext: "b64:abc"})
	require.NoError(t, err)
	assert.Equal(t, viewer.ID.String(), msg.AuthorID)
	assert.Equal(t, tileID.String(), msg.TileID)

	_, err = env.Messages.Post(ctx, stranger.ID, tileID, domain.PostRequest{Ciphertext: "b64:abc"})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = env.Messages.List(ctx, stranger.ID, tileID, domain.ListRequest{})
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// Unknown tiles look exactly like foreign ones.
	_, err = env.Messages.Post(ctx, owner.ID, env.Node.Generate(), domain.PostRequest{Ciphertext: "x"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestPostValidatesCiphertext(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	tileID := firstTile(t, env, env.Grid(t, owner.ID, "Team"))

	_, err := env.Messages.Post(ctx, owner.ID, tileID, domain.PostRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidCiphertext)

	huge := strings.Repeat("a", env.Limits.Get().MaxMessageBytes+1)
	_, err = env.Messages.Post(ctx, owner.ID, tileID, domain.PostRequest{Ciphertext: huge})
	assert.ErrorIs(t, err, domain.ErrInvalidCiphertext)

	_, err = env.Messages.Post(ctx, 0, tileID, domain.PostRequest{Ciphertext: "x"})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestListPagesOldestFirst(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	tileID := firstTile(t, env, env.Grid(t, owner.ID, "Team"))

	var posted []string
	for i := 0; i < 5; i++ {
		msg, err := env.Messages.Post(ctx, owner.ID, tileID, domain.PostRequest{Ciphertext: "m"})
		require.NoError(t, err)
		posted = append(posted, msg.ID)
		env.Clock.Advance(time.Second)
	}

	var (
		got   []string
		token string
	)
	for pages := 0; pages < 10; pages++ {
		res, err := env.Messages.List(ctx, owner.ID, tileID, domain.ListRequest{
			Pagination: pagination.Pagination{PageToken: token, PageSize: 2},
		})
		require.NoError(t, err)
		for _, m := range res.Messages {
			got = append(got, m.ID)
		}
		if !res.HasMore {
			break
		}
		token = res.NextPageToken
	}
	assert.Equal(t, posted, got)
}

func TestListRejectsBadToken(t *testing.T) {
	env := testkit.New(t)
	owner := env.User(t, "owner@example.com")
	tileID := firstTile(t, env, env.Grid(t, owner.ID, "Team"))

	_, err := env.Messages.List(context.Background(), owner.ID, tileID, domain.ListRequest{
		Pagination: pagination.Pagination{PageToken: "not-a-token"},
	})
	assert.ErrorIs(t, err, domain.ErrInvalidPageToken)
}
