package storage

import "fmt"

type OpenOptions struct {
	Backend   string
	LocalDir  string
	URLPrefix string
	Supabase  SupabaseConfig
}

// Open returns the BlobStore for the configured backend.
func Open(o OpenOptions) (BlobStore, error) {
	switch o.Backend {
	case "", "local":
		return NewLocal(o.LocalDir, o.URLPrefix)
	case "supabase":
		return NewSupabase(o.Supabase)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", o.Backend)
	}
}
