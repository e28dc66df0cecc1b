package httpapi

import (
	"database/sql"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/ledger"
	"github.com/wageattest/attestation-engine/internal/registry"
	"github.com/wageattest/attestation-engine/internal/storage/mysqlstore"
	"github.com/wageattest/attestation-engine/internal/validator"
	"github.com/wageattest/attestation-engine/pkg/replay"
)

// Deps bundles the collaborators NewRouter wires onto the demo HTTP
// transport. ReplayStore and Durable may be nil (durability write-through
// disabled).
type Deps struct {
	Registry    *registry.Registry
	Validator   *validator.Validator
	Ledger      *ledger.Ledger
	Clock       clock.Clock
	ReplayStore replay.Store
	Durable     *mysqlstore.Store
	DB          *sql.DB
	Redis       *redis.Client
	Logger      *zap.Logger
}

// NewRouter builds the gin engine, matching the teacher's setupRouter shape:
// global middleware, health endpoints, then a versioned route group.
func NewRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(Logger(d.Logger))

	health := NewHealthHandler(d.DB, d.Redis)
	router.GET("/health", health.Live)
	router.GET("/ready", health.Ready)

	v1 := router.Group("/api/v1")
	{
		NewEmployerHandler(d.Registry).RegisterRoutes(v1)
		NewAttestationHandler(d.Registry, d.Validator, d.Ledger, d.Clock, d.ReplayStore, d.Durable, d.Logger).RegisterRoutes(v1)
	}

	return router
}
