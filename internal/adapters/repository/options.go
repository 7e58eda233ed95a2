package repository

// Supported backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)

const (
	defaultTable    = "publish_ledger"
	defaultMaxConns = 4
)

type settings struct {
	table    string
	maxConns int32
}

func newSettings(opts []Option) settings {
	s := settings{table: defaultTable, maxConns: defaultMaxConns}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// Option applies a configuration option to SQL-backed stores.
type Option func(*settings)

// WithTable sets the ledger table name.
func WithTable(name string) Option {
	return func(s *settings) {
		if validIdentifier(name) {
			s.table = name
		}
	}
}

// WithMaxConns caps the postgres pool size.
func WithMaxConns(n int32) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
