package constants

type ContextKey string

const (
	LoggerKey    ContextKey = "logger"
	PoolKey      ContextKey = "pool"
	TxKey        ContextKey = "tx"
	ScopeKey     ContextKey = "scope"
	ParamsKey    ContextKey = "params"
	RequestStart ContextKey = "requestStart"
)
