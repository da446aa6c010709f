package secret

import (
	"os"
	"runtime"
	"strings"
)

// SecretStore provides database passwords that are not part of a location.
type SecretStore interface {
	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)
}

// Key names the secret of a database host, e.g. "postgres://me@db.local".
func Key(driver, user, host string) string {
	if user == "" {
		return driver + "://" + host
	}
	return driver + "://" + user + "@" + host
}

// EnvStore reads passwords from the environment: DSJSON_DB_PASSWORD_<HOST>
// first, then DSJSON_DB_PASSWORD.
type EnvStore struct {
	Lookup func(string) (string, bool)
}

// NewEnvStore creates an EnvStore over the process environment.
func NewEnvStore() *EnvStore {
	return &EnvStore{Lookup: os.LookupEnv}
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	if v, ok := e.Lookup(envName(hostOf(key))); ok {
		return []byte(v), nil
	}
	if v, ok := e.Lookup("DSJSON_DB_PASSWORD"); ok {
		return []byte(v), nil
	}
	return nil, nil
}

// hostOf strips the driver and user parts of a Key.
func hostOf(key string) string {
	if i := strings.Index(key, "://"); i != -1 {
		key = key[i+3:]
	}
	if i := strings.LastIndex(key, "@"); i != -1 {
		key = key[i+1:]
	}
	return key
}

func envName(host string) string {
	var b strings.Builder
	b.WriteString("DSJSON_DB_PASSWORD_")
	for _, r := range strings.ToUpper(host) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	return b.String()
}

// Chain asks each store in turn and returns the first non-empty secret.
type Chain []SecretStore

func (c Chain) Get(key string) ([]byte, error) {
	for _, s := range c {
		v, err := s.Get(key)
		if err != nil {
			return nil, err
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, nil
}

// Default is the environment, then the macOS Keychain where available.
func Default() SecretStore {
	if runtime.GOOS == "darwin" {
		return Chain{NewEnvStore(), NewKeychainStore()}
	}
	return Chain{NewEnvStore()}
}
