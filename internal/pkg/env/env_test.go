package env_test

import (
	"testing"
	"time"

	"github.com/KUMMERSPEC/Linguist-Diary-sub001/internal/pkg/env"
	"github.com/stretchr/testify/assert"
)

func TestRequireString(t *testing.T) {
	t.Setenv("TEST_REQUIRED_STRING", "required_value")
	assert.Equal(t, "required_value", env.RequireString("TEST_REQUIRED_STRING"))
}

func TestRequireString_Panic(t *testing.T) {
	assert.Panics(t, func() {
		env.RequireString("NON_EXISTENT_REQUIRED_STRING")
	})
}

func TestRequireString_BlankPanics(t *testing.T) {
	t.Setenv("TEST_BLANK_STRING", "   ")
	assert.Panics(t, func() {
		env.RequireString("TEST_BLANK_STRING")
	})
}

func TestString(t *testing.T) {
	t.Setenv("TEST_STRING", " hello ")
	assert.Equal(t, "hello", env.String("TEST_STRING", "default"))
	assert.Equal(t, "default", env.String("NON_EXISTENT_STRING", "default"))
}

func TestInt(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_INT_BAD", "forty-two")
	assert.Equal(t, 42, env.Int("TEST_INT", 100))
	assert.Equal(t, 100, env.Int("TEST_INT_BAD", 100))
	assert.Equal(t, 100, env.Int("NON_EXISTENT_INT", 100))
}

func TestInt64(t *testing.T) {
	t.Setenv("TEST_INT64", "4200")
	assert.Equal(t, int64(4200), env.Int64("TEST_INT64", 1000))
	assert.Equal(t, int64(1000), env.Int64("NON_EXISTENT_INT64", 1000))
}

func TestBool(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	t.Setenv("TEST_BOOL_1", "1")
	t.Setenv("TEST_BOOL_NO", "no")
	assert.True(t, env.Bool("TEST_BOOL", false))
	assert.True(t, env.Bool("TEST_BOOL_1", false))
	assert.False(t, env.Bool("TEST_BOOL_NO", true))
	assert.False(t, env.Bool("NON_EXISTENT_BOOL", false))
}

func TestDuration(t *testing.T) {
	t.Setenv("TEST_DURATION", "2h45m")
	assert.Equal(t, 2*time.Hour+45*time.Minute, env.Duration("TEST_DURATION", time.Minute))
	assert.Equal(t, time.Minute, env.Duration("NON_EXISTENT_DURATION", time.Minute))
}

func TestList(t *testing.T) {
	t.Setenv("TEST_LIST", "en, ja,,fr ")
	t.Setenv("TEST_LIST_EMPTY", " , ")
	assert.Equal(t, []string{"en", "ja", "fr"}, env.List("TEST_LIST", nil))
	assert.Equal(t, []string{"de"}, env.List("TEST_LIST_EMPTY", []string{"de"}))
	assert.Equal(t, []string{"de"}, env.List("NON_EXISTENT_LIST", []string{"de"}))
}
