package personstore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var personsCreated = promauto.NewCounter(prometheus.CounterOpts{
	Name: "personstore_persons_created",
	Help: "The total number of persons inserted with create",
})

var personsUpserted = promauto.NewCounter(prometheus.CounterOpts{
	Name: "personstore_persons_upserted",
	Help: "The total number of person snapshots applied with upsert",
})

var personsDeleted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "personstore_persons_deleted",
	Help: "The total number of person deletions, by kind (soft, purge)",
}, []string{"kind"})

var followsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "personstore_follows_applied",
	Help: "The total number of follow edges written",
}, []string{"state"})

var unfollowsApplied = promauto.NewCounter(prometheus.CounterOpts{
	Name: "personstore_unfollows_applied",
	Help: "The total number of unfollows that touched an edge",
})

var externalIDCacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "personstore_external_id_cache",
	Help: "Lookups by external identifier, by cache result",
}, []string{"result"})
