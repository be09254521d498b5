package env

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGetters(t *testing.T) {
	t.Setenv("MW_STRING", "value")
	t.Setenv("MW_INT", "12")
	t.Setenv("MW_BAD_INT", "twelve")
	t.Setenv("MW_INT64", "26214400")
	t.Setenv("MW_BOOL", "true")
	t.Setenv("MW_DURATION", "90s")

	assert.Equal(t, "value", GetString("MW_STRING", "fallback"))
	assert.Equal(t, "fallback", GetString("MW_MISSING", "fallback"))
	assert.Equal(t, 12, GetInt("MW_INT", 1))
	assert.Equal(t, 1, GetInt("MW_BAD_INT", 1))
	assert.Equal(t, int64(26214400), GetInt64("MW_INT64", 0))
	assert.True(t, GetBool("MW_BOOL", false))
	assert.False(t, GetBool("MW_MISSING", false))
	assert.Equal(t, 90*time.Second, GetDuration("MW_DURATION", time.Minute))
	assert.Equal(t, time.Minute, GetDuration("MW_MISSING", time.Minute))
}
