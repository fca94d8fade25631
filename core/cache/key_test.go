package cache_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/oppwatch/gateway/core/cache"
)

func TestKey_ParameterOrderIndependent(t *testing.T) {
	t.Parallel()

	a := url.Values{}
	a.Set("naics", "721110")
	a.Set("days", "30")

	b := url.Values{}
	b.Set("days", "30")
	b.Set("naics", "721110")

	assert.Equal(t, cache.Key("/search", a), cache.Key("/search", b))
}

func TestKey_Normalization(t *testing.T) {
	t.Parallel()

	t.Run("parameter names are case-insensitive", func(t *testing.T) {
		t.Parallel()
		a := url.Values{"NAICS": {"721110"}}
		b := url.Values{"naics": {"721110"}}
		assert.Equal(t, cache.Key("/search", a), cache.Key("/search", b))
	})

	t.Run("values are trimmed", func(t *testing.T) {
		t.Parallel()
		a := url.Values{"naics": {"  721110 "}}
		b := url.Values{"naics": {"721110"}}
		assert.Equal(t, cache.Key("/search", a), cache.Key("/search", b))
	})

	t.Run("empty values are dropped", func(t *testing.T) {
		t.Parallel()
		a := url.Values{"naics": {"721110"}, "q": {""}}
		b := url.Values{"naics": {"721110"}}
		assert.Equal(t, cache.Key("/search", a), cache.Key("/search", b))
	})

	t.Run("multi-value order does not matter", func(t *testing.T) {
		t.Parallel()
		a := url.Values{"naics": {"721110", "721120"}}
		b := url.Values{"naics": {"721120", "721110"}}
		assert.Equal(t, cache.Key("/search", a), cache.Key("/search", b))
	})

	t.Run("different paths produce different keys", func(t *testing.T) {
		t.Parallel()
		params := url.Values{"id": {"abc"}}
		assert.NotEqual(t, cache.Key("/search", params), cache.Key("/detail", params))
	})

	t.Run("different values produce different keys", func(t *testing.T) {
		t.Parallel()
		a := url.Values{"days": {"30"}}
		b := url.Values{"days": {"60"}}
		assert.NotEqual(t, cache.Key("/search", a), cache.Key("/search", b))
	})
}

func TestCanonical(t *testing.T) {
	t.Parallel()

	params := url.Values{}
	params.Set("Days", "30")
	params.Set("naics", " 721110")

	assert.Equal(t, "/search?days=30&naics=721110", cache.Canonical("/search/", params))
}
