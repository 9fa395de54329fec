// Package devserver is an in-memory stand-in for the production backend,
// used by integration tests and local development. It speaks the same REST
// surface the real backend does, including its {status, detail} error
// payloads, and can inject failures on demand.
package devserver

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/LexForumLab/lexforum/client/internal/identity"
	"github.com/LexForumLab/lexforum/client/internal/resource"
)

// Dependencies configures the development server.
type Dependencies struct {
	Logger *zap.Logger
	Clock  func() time.Time
}

// Server holds per-kind entity tables behind an HTTP handler.
type Server struct {
	logger *zap.Logger
	clock  func() time.Time

	mu     sync.Mutex
	tables map[resource.Kind]map[identity.EntityID]resource.Entity
	nextID int64

	failNext *failure
}

type failure struct {
	status int
	detail string
}

type errorPayload struct {
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

// NewServer returns an empty development server.
func NewServer(deps Dependencies) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Server{
		logger: logger,
		clock:  clock,
		tables: make(map[resource.Kind]map[identity.EntityID]resource.Entity),
	}
}

// FailNext makes the next mutating request fail with the given status and
// detail, then clears. List requests are unaffected.
func (s *Server) FailNext(status int, detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = &failure{status: status, detail: detail}
}

// Seed inserts an entity directly into the table, bypassing the HTTP
// surface. Test setup only.
func (s *Server) Seed(entity resource.Entity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table(entity.Kind())[entity.ID()] = entity
	if raw := entity.ID().Int64(); raw >= s.nextID {
		s.nextID = raw
	}
}

// Handler builds the gin router over the server's tables.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	api := router.Group("/api")
	api.GET("/:kind", s.handleList)
	api.POST("/:kind", s.handleCreate)
	api.PUT("/:kind/:id", s.handleUpdate)
	api.DELETE("/:kind/:id", s.handleDelete)
	return router
}

func (s *Server) table(kind resource.Kind) map[identity.EntityID]resource.Entity {
	entities, ok := s.tables[kind]
	if !ok {
		entities = make(map[identity.EntityID]resource.Entity)
		s.tables[kind] = entities
	}
	return entities
}

func (s *Server) takeFailure() *failure {
	s.mu.Lock()
	defer s.mu.Unlock()
	taken := s.failNext
	s.failNext = nil
	return taken
}

func parseKindParam(c *gin.Context) (resource.Kind, bool) {
	kind, err := resource.ParseKind(c.Param("kind"))
	if err != nil {
		c.JSON(http.StatusNotFound, errorPayload{Status: http.StatusNotFound, Detail: "unknown resource"})
		return "", false
	}
	return kind, true
}

func parseIDParam(c *gin.Context) (identity.EntityID, bool) {
	raw, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Status: http.StatusBadRequest, Detail: "invalid identifier"})
		return 0, false
	}
	id, err := identity.NewServerID(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Status: http.StatusBadRequest, Detail: "invalid identifier"})
		return 0, false
	}
	return id, true
}

func (s *Server) handleList(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}

	s.mu.Lock()
	entities := make([]resource.Entity, 0, len(s.table(kind)))
	for _, entity := range s.table(kind) {
		entities = append(entities, entity)
	}
	s.mu.Unlock()

	less := resource.Less(kind)
	sort.SliceStable(entities, func(i, j int) bool { return less(entities[i], entities[j]) })

	items := make([]json.RawMessage, 0, len(entities))
	for _, entity := range entities {
		encoded, err := resource.EncodeEntity(entity)
		if err != nil {
			s.logger.Error("encode entity", zap.Error(err))
			c.JSON(http.StatusInternalServerError, errorPayload{Status: http.StatusInternalServerError, Detail: "encoding failure"})
			return
		}
		items = append(items, encoded)
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

func (s *Server) handleCreate(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	if injected := s.takeFailure(); injected != nil {
		c.JSON(injected.status, errorPayload{Status: injected.status, Detail: injected.detail})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Status: http.StatusBadRequest, Detail: "unreadable body"})
		return
	}
	payload, err := resource.DecodePayload(kind, body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorPayload{Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return
	}

	s.mu.Lock()
	s.nextID++
	id := identity.EntityID(s.nextID)
	entity, err := resource.Materialize(payload, id, s.clock().UTC().Unix())
	if err == nil {
		s.table(kind)[id] = entity
	}
	s.mu.Unlock()
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorPayload{Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return
	}

	s.respondEntity(c, http.StatusCreated, entity)
}

func (s *Server) handleUpdate(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if injected := s.takeFailure(); injected != nil {
		c.JSON(injected.status, errorPayload{Status: injected.status, Detail: injected.detail})
		return
	}

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, errorPayload{Status: http.StatusBadRequest, Detail: "unreadable body"})
		return
	}
	payload, err := resource.DecodePayload(kind, body)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorPayload{Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return
	}

	s.mu.Lock()
	existing, found := s.table(kind)[id]
	var amended resource.Entity
	if found {
		amended, err = resource.Amend(existing, payload)
		if err == nil {
			s.table(kind)[id] = amended
		}
	}
	s.mu.Unlock()

	if !found {
		c.JSON(http.StatusNotFound, errorPayload{Status: http.StatusNotFound, Detail: "entity not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, errorPayload{Status: http.StatusUnprocessableEntity, Detail: err.Error()})
		return
	}
	s.respondEntity(c, http.StatusOK, amended)
}

func (s *Server) handleDelete(c *gin.Context) {
	kind, ok := parseKindParam(c)
	if !ok {
		return
	}
	id, ok := parseIDParam(c)
	if !ok {
		return
	}
	if injected := s.takeFailure(); injected != nil {
		c.JSON(injected.status, errorPayload{Status: injected.status, Detail: injected.detail})
		return
	}

	s.mu.Lock()
	_, found := s.table(kind)[id]
	delete(s.table(kind), id)
	s.mu.Unlock()

	if !found {
		c.JSON(http.StatusNotFound, errorPayload{Status: http.StatusNotFound, Detail: "entity not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) respondEntity(c *gin.Context, status int, entity resource.Entity) {
	encoded, err := resource.EncodeEntity(entity)
	if err != nil {
		s.logger.Error("encode entity", zap.Error(err))
		c.JSON(http.StatusInternalServerError, errorPayload{Status: http.StatusInternalServerError, Detail: "encoding failure"})
		return
	}
	c.Data(status, "application/json", encoded)
}
