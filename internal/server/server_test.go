package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tilegrid/internal/auth"
	"github.com/smallbiznis/tilegrid/internal/config"
	"github.com/smallbiznis/tilegrid/internal/observability"
	"github.com/smallbiznis/tilegrid/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "server-test-secret"
	testIssuer = "tilegrid-test"
)

type testServer struct {
	env    *testkit.Env
	engine *gin.Engine
	signer *auth.Signer
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *errorPayload   `json:"error"`
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	env := testkit.New(t)
	verifier, err := auth.NewJWTVerifier(testSecret, testIssuer)
	require.NoError(t, err)

	cfg := config.Config{}
	engine := NewEngine(cfg, observability.Config{LogLevel: "info"}, nil)
	NewServer(ServerParams{
		Gin:        engine,
		Cfg:        cfg,
		Verifier:   verifier,
		Resolver:   env.Resolver,
		UserSvc:    env.Users,
		GridSvc:    env.Grids,
		TileSvc:    env.Tiles,
		ChannelSvc: env.Channels,
		MessageSvc: env.Messages,
		FileSvc:    env.Files,
		AuditSvc:   env.Audit,
	})

	return &testServer{
		env:    env,
		engine: engine,
		signer: auth.NewSigner(testSecret, testIssuer),
	}
}

func (ts *testServer) token(t *testing.T, id snowflake.ID, email string) string {
	t.Helper()
	token, err := ts.signer.Sign(auth.Identity{UserID: id, Email: email}, time.Hour)
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestRequestsWithoutTokenAreRejected(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "unauthorized", env.Error.Type)

	rec, _ = ts.do(t, http.MethodGet, "/v1/me", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	expired, err := ts.signer.Sign(auth.Identity{UserID: ts.env.Node.Generate(), Email: "late@example.com"}, -time.Hour)
	require.NoError(t, err)
	rec, _ = ts.do(t, http.MethodGet, "/v1/me", expired, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProvisionMeIsIdempotent(t *testing.T) {
	ts := newTestServer(t)
	id := ts.env.Node.Generate()
	token := ts.token(t, id, "ada@example.com")

	rec, env := ts.do(t, http.MethodPost, "/v1/me", token, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decodeData[struct {
		Created bool `json:"created"`
	}](t, env)
	assert.True(t, first.Created)

	rec, env = ts.do(t, http.MethodPost, "/v1/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	second := decodeData[struct {
		Created bool `json:"created"`
	}](t, env)
	assert.False(t, second.Created)

	rec, env = ts.do(t, http.MethodGet, "/v1/grids", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	grids := decodeData[[]map[string]any](t, env)
	assert.Len(t, grids, 1)
}

func TestSharedGridAccessOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	ownerToken := ts.token(t, ts.env.Node.Generate(), "owner@example.com")
	viewerToken := ts.token(t, ts.env.Node.Generate(), "viewer@example.com")
	outsiderToken := ts.token(t, ts.env.Node.Generate(), "outsider@example.com")

	rec, env := ts.do(t, http.MethodPost, "/v1/grids", ownerToken, gin.H{"name": "Launch"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	grid := decodeData[struct {
		ID         string `json:"id"`
		Permission string `json:"permission"`
	}](t, env)
	assert.Equal(t, "edit", grid.Permission)

	// The viewer must exist before they can be shared with.
	rec, _ = ts.do(t, http.MethodPost, "/v1/me", viewerToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/v1/grids/"+grid.ID+"/shares", ownerToken, gin.H{
		"email":      "viewer@example.com",
		"permission": "view",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, env = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/permission", viewerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	perm := decodeData[map[string]string](t, env)
	assert.Equal(t, "view", perm["permission"])

	rec, env = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/permission", outsiderToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	perm = decodeData[map[string]string](t, env)
	assert.Equal(t, "none", perm["permission"])

	rec, env = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/tiles", viewerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tiles := decodeData[[]struct {
		ID string `json:"id"`
	}](t, env)
	require.NotEmpty(t, tiles)
	tileID := tiles[0].ID

	rec, env = ts.do(t, http.MethodPost, "/v1/tiles/"+tileID+"/hide", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "forbidden", env.Error.Type)

	rec, _ = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/tiles", outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = ts.do(t, http.MethodPost, "/v1/tiles/"+tileID+"/hide", ownerToken, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/tiles", viewerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	visible := decodeData[[]map[string]any](t, env)
	assert.Len(t, visible, len(tiles)-1)

	rec, env = ts.do(t, http.MethodPost, "/v1/grids/"+grid.ID+"/tiles/restore", ownerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	restored := decodeData[[]map[string]any](t, env)
	assert.Len(t, restored, 1)

	rec, _ = ts.do(t, http.MethodDelete, "/v1/grids/"+grid.ID+"/shares/not-an-id", ownerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMessagesOverHTTP(t *testing.T) {
	ts := newTestServer(t)
	token := ts.token(t, ts.env.Node.Generate(), "writer@example.com")

	rec, env := ts.do(t, http.MethodPost, "/v1/grids", token, gin.H{"name": "Chat"})
	require.Equal(t, http.StatusCreated, rec.Code)
	grid := decodeData[struct {
		ID string `json:"id"`
	}](t, env)

	rec, env = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/tiles", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tiles := decodeData[[]struct {
		ID string `json:"id"`
	}](t, env)
	require.NotEmpty(t, tiles)
	path := "/v1/tiles/" + tiles[0].ID + "/messages"

	rec, _ = ts.do(t, http.MethodPost, path, token, gin.H{"ciphertext": "b3BhcXVl"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec, env = ts.do(t, http.MethodPost, path, token, gin.H{"ciphertext": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, env.Error)
	require.Len(t, env.Error.Errors, 1)
	assert.Equal(t, "invalid_ciphertext", env.Error.Errors[0].Code)

	rec, env = ts.do(t, http.MethodGet, path+"?page_size=10", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decodeData[struct {
		HasMore  bool             `json:"has_more"`
		Messages []map[string]any `json:"messages"`
	}](t, env)
	assert.False(t, page.HasMore)
	assert.Len(t, page.Messages, 1)

	rec, _ = ts.do(t, http.MethodGet, path+"?page_token=not-a-cursor!", token, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	ts := newTestServer(t)

	rec, env := ts.do(t, http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, "not_found", env.Error.Type)
}

func TestMapErrorKeepsTokenFailuresUnauthorized(t *testing.T) {
	status, payload := mapError(auth.ErrInvalidToken)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", payload.Type)

	errType, code := classifyErrorForLog(auth.ErrTokenExpired)
	assert.Equal(t, "unauthorized", errType)
	assert.Equal(t, "token_expired", code)

	status, _ = mapError(ErrRateLimited)
	assert.Equal(t, http.StatusTooManyRequests, status)
}

func TestCountEmailsInBodyRestoresBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{"emails":["a@x.io","b@x.io","c@x.io"]}`))

	n, err := countEmailsInBody(c)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	var body addChannelMembersRequest
	require.NoError(t, c.ShouldBindJSON(&body))
	assert.Len(t, body.Emails, 3)
}

func TestShareUpgradeLetsViewerHideAndRestore(t *testing.T) {
	ts := newTestServer(t)
	aToken := ts.token(t, ts.env.Node.Generate(), "a@example.com")
	bToken := ts.token(t, ts.env.Node.Generate(), "b@example.com")

	rec, env := ts.do(t, http.MethodPost, "/v1/grids", aToken, gin.H{"name": "G"})
	require.Equal(t, http.StatusCreated, rec.Code)
	grid := decodeData[struct {
		ID string `json:"id"`
	}](t, env)

	rec, env = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/tiles", aToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	type tileView struct {
		ID     string `json:"id"`
		Type   string `json:"type"`
		X      int    `json:"x"`
		Y      int    `json:"y"`
		W      int    `json:"w"`
		H      int    `json:"h"`
		Hidden bool   `json:"hidden"`
	}
	tiles := decodeData[[]tileView](t, env)
	require.Len(t, tiles, 2)
	assert.Equal(t, tileView{ID: tiles[0].ID, Type: "notes", X: 0, Y: 0, W: 4, H: 3}, tiles[0])
	assert.Equal(t, tileView{ID: tiles[1].ID, Type: "dm", X: 4, Y: 0, W: 4, H: 3}, tiles[1])

	rec, _ = ts.do(t, http.MethodPost, "/v1/me", bToken, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	share := func(permission string) {
		rec, _ := ts.do(t, http.MethodPost, "/v1/grids/"+grid.ID+"/shares", aToken, gin.H{
			"email":      "b@example.com",
			"permission": permission,
		})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	share("view")
	hidePath := "/v1/tiles/" + tiles[0].ID + "/hide"
	rec, _ = ts.do(t, http.MethodPost, hidePath, bToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	share("edit")
	rec, _ = ts.do(t, http.MethodPost, hidePath, bToken, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec, env = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/tiles?include_hidden=true", bToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	for _, tile := range decodeData[[]tileView](t, env) {
		assert.Equal(t, tile.ID == tiles[0].ID, tile.Hidden)
	}

	rec, env = ts.do(t, http.MethodPost, "/v1/grids/"+grid.ID+"/tiles/restore", bToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	restored := decodeData[[]tileView](t, env)
	require.Len(t, restored, 1)
	assert.Equal(t, tiles[0].ID, restored[0].ID)
	assert.False(t, restored[0].Hidden)

	rec, env = ts.do(t, http.MethodGet, "/v1/grids/"+grid.ID+"/shares", aToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	shares := decodeData[[]map[string]any](t, env)
	require.Len(t, shares, 1)
	assert.Equal(t, "edit", shares[0]["permission"])
}
