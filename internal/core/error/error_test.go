package errx

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

func TestAppErrorMessage(t *testing.T) {
	base := errors.New("boom")

	assert.Equal(t, "redis operation failed: boom", New(base, http.StatusBadGateway, RedisErrorMessage).Error())
	assert.Equal(t, "boom", BadRequest(base).Error())
	assert.Equal(t, "word_count must be between 200 and 2000", Validation("word_count must be between 200 and 2000").Error())
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("boom")
	wrapped := fmt.Errorf("run: %w", Upstream(base, "tavily"))

	assert.ErrorIs(t, wrapped, base)

	var appErr *AppError
	assert.ErrorAs(t, wrapped, &appErr)
	assert.Equal(t, http.StatusBadGateway, appErr.Status)
	assert.Equal(t, "tavily request failed: boom", appErr.Error())
}

func TestWrapRedis(t *testing.T) {
	assert.NoError(t, WrapRedis(nil))
	assert.Equal(t, http.StatusNotFound, StatusOf(WrapRedis(redis.Nil)))
	assert.Equal(t, http.StatusBadGateway, StatusOf(WrapRedis(errors.New("conn refused"))))
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("plain")))
	assert.Equal(t, http.StatusUnprocessableEntity, StatusOf(Validation("bad")))
	assert.Equal(t, http.StatusNotFound, StatusOf(fmt.Errorf("x: %w", NotFound(errors.New("gone"), "no transcript"))))
	assert.Nil(t, Upstream(nil, "llm"))
	assert.Equal(t, "", MessageOf(nil))
}
