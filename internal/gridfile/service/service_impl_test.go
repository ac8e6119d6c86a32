package service_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tilegrid/internal/gridfile/domain"
	"github.com/smallbiznis/tilegrid/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterRequiresEdit(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	editor := env.User(t, "editor@example.com")
	viewer := env.User(t, "viewer@example.com")
	gridID := env.Grid(t, owner.ID, "Team")
	env.Share(t, owner.ID, gridID, editor.Email, "edit")
	env.Share(t, owner.ID, gridID, viewer.Email, "view")

	req := domain.RegisterRequest{Name: "plan.pdf", ContentType: "application/pdf; charset=binary", SizeBytes: 1024}

	file, err := env.Files.Register(ctx, editor.ID, gridID, req)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, strings.HasPrefix(file.UploadURL, "memory://blobs/"))

	_, err = env.Files.Register(ctx, viewer.ID, gridID, req)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	files, err := env.Files.List(ctx, viewer.ID, gridID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Empty(t, files[0].UploadURL)

	fileID, err := snowflake.ParseString(file.ID)
	require.NoError(t, err)
	got, err := env.Files.Get(ctx, viewer.ID, fileID)
	require.NoError(t, err)
	assert.Contains(t, got.DownloadURL, "method=GET")

	assert.ErrorIs(t, env.Files.Delete(ctx, viewer.ID, fileID), domain.ErrForbidden)
}

func TestDeleteRemovesBlob(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Team")

	file, err := env.Files.Register(ctx, owner.ID, gridID, domain.RegisterRequest{Name: "a.txt", SizeBytes: 3})
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", file.ContentType)
	fileID, err := snowflake.ParseString(file.ID)
	require.NoError(t, err)

	var row domain.GridFile
	require.NoError(t, env.DB.First(&row, "id = ?", fileID).Error)
	assert.True(t, strings.HasPrefix(row.ObjectKey, "grids/"+gridID.String()+"/"))
	assert.True(t, env.Blobs.Has(row.ObjectKey))

	require.NoError(t, env.Files.Delete(ctx, owner.ID, fileID))
	assert.False(t, env.Blobs.Has(row.ObjectKey))

	_, err = env.Files.Get(ctx, owner.ID, fileID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestRegisterValidation(t *testing.T) {
	env := testkit.New(t)
	ctx := context.Background()
	owner := env.User(t, "owner@example.com")
	gridID := env.Grid(t, owner.ID, "Team")

	cases := []struct {
		name string
		req  domain.RegisterRequest
		want error
	}{
		{"blank name", domain.RegisterRequest{Name: " ", SizeBytes: 1}, domain.ErrInvalidName},
		{"path in name", domain.RegisterRequest{Name: "../etc/passwd", SizeBytes: 1}, domain.ErrInvalidName},
		{"bad content type", domain.RegisterRequest{Name: "a", ContentType: "///", SizeBytes: 1}, domain.ErrInvalidContentType},
		{"empty", domain.RegisterRequest{Name: "a"}, domain.ErrInvalidSize},
		{"too large", domain.RegisterRequest{Name: "a", SizeBytes: env.Limits.Get().MaxFileBytes + 1}, domain.ErrInvalidSize},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := env.Files.Register(ctx, owner.ID, gridID, tc.req)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}
