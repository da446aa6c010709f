package secret_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dsjson/internal/secret"
)

func TestEnvStore(t *testing.T) {
	env := map[string]string{
		"DSJSON_DB_PASSWORD":               "fallback",
		"DSJSON_DB_PASSWORD_DB_EXAMPLE_COM": "specific",
	}
	s := &secret.EnvStore{Lookup: func(k string) (string, bool) { v, ok := env[k]; return v, ok }}

	v, err := s.Get(secret.Key("postgres", "me", "db.example.com"))
	require.NoError(t, err)
	assert.Equal(t, "specific", string(v))

	v, err = s.Get(secret.Key("mysql", "", "other"))
	require.NoError(t, err)
	assert.Equal(t, "fallback", string(v))
}

type fixed string

func (f fixed) Get(string) ([]byte, error) { return []byte(f), nil }

func TestChain(t *testing.T) {
	v, err := secret.Chain{fixed(""), fixed("second")}.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "second", string(v))

	v, err = secret.Chain{}.Get("k")
	require.NoError(t, err)
	assert.Empty(t, v)
}
