package backend

// StoreType selects which LedgerStore implementation the factory builds.
type StoreType string

const (
	MemoryStore StoreType = "memory"
	SQLiteStore StoreType = "sqlite"
	MongoStore  StoreType = "mongo"
)

func (st StoreType) String() string {
	return string(st)
}

// IsValid returns true if the store type is known.
func (st StoreType) IsValid() bool {
	switch st {
	case MemoryStore, SQLiteStore, MongoStore:
		return true
	default:
		return false
	}
}

// Config holds configuration for store creation.
type Config struct {
	Type StoreType

	// SQLite specific
	SQLiteDBPath string

	// Mongo specific
	MongoURI      string
	MongoDatabase string
}
