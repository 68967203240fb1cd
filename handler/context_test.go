package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/hostelkit/handler"
)

func TestContextValue(t *testing.T) {
	t.Parallel()

	viewerKey := handler.NewContextKey("viewer")
	assert.Equal(t, "viewer", viewerKey.String())

	ctx := context.WithValue(context.Background(), viewerKey, "owner-1")
	assert.Equal(t, "owner-1", handler.ContextValue[string](ctx, viewerKey))
	assert.Zero(t, handler.ContextValue[int](ctx, viewerKey))

	v, ok := handler.ContextValueOK[string](ctx, viewerKey)
	assert.True(t, ok)
	assert.Equal(t, "owner-1", v)

	_, ok = handler.ContextValueOK[string](context.Background(), viewerKey)
	assert.False(t, ok)

	other := handler.NewContextKey("viewer")
	_, ok = handler.ContextValueOK[string](ctx, other)
	assert.False(t, ok, "keys with the same name must not collide")
}

func TestNewContext(t *testing.T) {
	t.Parallel()

	key := handler.NewContextKey("k")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), key, 42))
	w := httptest.NewRecorder()

	ctx := handler.NewContext(w, req)
	assert.Same(t, req, ctx.Request())
	assert.Equal(t, w, ctx.ResponseWriter())
	assert.Equal(t, 42, ctx.Value(key))
	assert.NoError(t, ctx.Err())
}
