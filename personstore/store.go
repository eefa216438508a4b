package personstore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bluesky-social/fedperson/models"

	"github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("personstore")

// Settings describe the local network: where local profiles live.
type Settings struct {
	Hostname   string
	TLSEnabled bool
}

func (s *Settings) ProtocolAndHostname() string {
	scheme := "https"
	if !s.TLSEnabled {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s", scheme, s.Hostname)
}

type StoreConfig struct {
	Settings Settings

	// size of the in-process cache of persons by external identifier; zero disables the cache
	CacheSize int
}

func DefaultStoreConfig() *StoreConfig {
	return &StoreConfig{
		Settings: Settings{
			Hostname:   "localhost:8536",
			TLSEnabled: false,
		},
		CacheSize: 100_000,
	}
}

// ContentCleaner removes content authored by a person from inside the purge transaction, so that
// aggregate counters of other persons stay consistent.
type ContentCleaner interface {
	PurgeCreator(tx *gorm.DB, creatorID models.PersonID) error
}

type Store struct {
	db     *gorm.DB
	Logger *slog.Logger
	Config StoreConfig

	// optional; without it Purge only removes rows owned by the person store
	Content ContentCleaner

	// current-time source, for timestamps written by this store
	Clock func() time.Time

	// person ids by ap_id; rows are always re-read. nil when disabled
	apIDCache *lru.Cache[string, models.PersonID]
}

func NewStore(db *gorm.DB, config *StoreConfig) (*Store, error) {
	if config == nil {
		config = DefaultStoreConfig()
	}

	s := &Store{
		db:     db,
		Logger: slog.Default().With("system", "personstore"),
		Config: *config,
		Clock:  time.Now,
	}

	if config.CacheSize > 0 {
		c, err := lru.New[string, models.PersonID](config.CacheSize)
		if err != nil {
			return nil, err
		}
		s.apIDCache = c
	}

	if err := s.MigrateDatabase(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) MigrateDatabase() error {
	for _, m := range []any{
		models.Instance{},
		models.Person{},
		models.LocalUser{},
		models.PersonActions{},
		models.Community{},
		models.Post{},
		models.Comment{},
		models.PostLike{},
		models.CommentLike{},
	} {
		if err := s.db.AutoMigrate(m); err != nil {
			return translateError(err)
		}
	}
	return nil
}

// simple check of connection to database
func (s *Store) Healthcheck(ctx context.Context) error {
	return translateError(s.db.WithContext(ctx).Exec("SELECT 1").Error)
}

// timestamp truncates to microseconds, which is what postgres keeps
func (s *Store) timestamp() time.Time {
	return s.Clock().UTC().Truncate(time.Microsecond)
}

func (s *Store) evict(apIDs ...string) {
	if s.apIDCache == nil {
		return
	}
	for _, id := range apIDs {
		s.apIDCache.Remove(id)
	}
}
