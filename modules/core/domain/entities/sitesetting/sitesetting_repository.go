package sitesetting

import "context"

// Repository reads and writes the site_settings table of whichever tenant
// schema is bound to the calling context. Implementations must never accept a
// schema name as an argument; the binding comes from the request scope alone.
type Repository interface {
	List(ctx context.Context) ([]*Setting, error)
	Get(ctx context.Context, key string) (*Setting, error)
	// Set inserts the key or overwrites its value.
	Set(ctx context.Context, key, value string) (*Setting, error)
	Delete(ctx context.Context, key string) error
}
