// Package devserver is a development backend implementing the REST
// contract the admin client consumes: collection CRUD with pagination and
// search, toggle and hard-delete endpoints, system parameters, an OpenID
// Connect style token endpoint and a websocket change feed. It exists so
// the client core can be exercised end-to-end without the production
// backend.
package devserver

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/patidost/pati_admin_v1/internal/config"
	"github.com/patidost/pati_admin_v1/internal/devserver/store"
)

// DictionaryCollections are served as bare arrays: they are small enough
// to fetch in full, unpaginated.
var DictionaryCollections = []string{
	"colors", "sizes", "genders", "age-groups",
	"source-types", "training-categories", "proficiency-levels",
}

// EntityCollections are served with the pagination envelope.
var EntityCollections = []string{"animals", "species", "breeds", "shelters"}

type Server struct {
	store         store.Store
	tokens        tokenIssuerConfig
	changes       *ChangeHub
	windowSeconds int
	dictionaries  map[string]struct{}
}

func New(cfg *config.Config, st store.Store) *Server {
	s := &Server{
		store: st,
		tokens: tokenIssuerConfig{
			accessSecret:  cfg.JWTSecret,
			refreshSecret: cfg.RefreshJWTSecret,
			accessTTL:     time.Duration(cfg.AccessTokenTTLMinutes) * time.Minute,
			refreshTTL:    time.Duration(cfg.RefreshTokenTTLDays) * 24 * time.Hour,
		},
		changes:       NewChangeHub(),
		windowSeconds: cfg.HardDeleteWindowSeconds,
		dictionaries:  map[string]struct{}{},
	}
	for _, col := range DictionaryCollections {
		s.dictionaries[col] = struct{}{}
	}
	go s.changes.Run()
	return s
}

func (s *Server) isDictionary(collection string) bool {
	_, ok := s.dictionaries[collection]
	return ok
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	// Identity provider surface
	r.POST("/realms/:realm/protocol/openid-connect/token", s.tokenEndpoint)

	// Change feed authents itself (browsers cannot set headers on dials)
	r.GET("/api/ws/changes", s.changesHandler)

	api := r.Group("/api", s.authMiddleware())
	api.GET("/system-parameters", s.systemParameters)

	writes := requireRoles("admin")
	for _, col := range append(append([]string{}, DictionaryCollections...), EntityCollections...) {
		col := col
		g := api.Group("/" + col)
		g.GET("", s.listCollection(col))
		g.GET("/search", s.searchCollection(col))
		g.GET("/:key", s.getOne(col))
		g.POST("", writes, s.createRecord(col))
		g.PUT("/:key", writes, s.updateRecord(col))
		g.PATCH("/:key", writes, s.toggleRecord(col))
		g.PATCH("/:key/toggle", writes, s.toggleRecord(col))
		g.DELETE("/:key/hard-delete", writes, s.hardDeleteRecord(col))
	}
	return r
}
