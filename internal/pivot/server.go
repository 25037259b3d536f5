package pivot

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ozon-reports/pkg/logger"
)

const (
	defaultSampleSize = 200
	defaultPeekLimit  = 50
	defaultQueryLimit = 5000
)

// Service answers pivot queries against a fixed allow-list of collections.
type Service struct {
	db      *mongo.Database
	allowed []string
}

// NewService builds the query service. Only the named collections are
// reachable through the API.
func NewService(db *mongo.Database, allowed []string) *Service {
	return &Service{db: db, allowed: allowed}
}

func (s *Service) collection(name string) (*mongo.Collection, error) {
	for _, a := range s.allowed {
		if a == name {
			return s.db.Collection(name), nil
		}
	}
	return nil, fmt.Errorf("collection %s not allowed", name)
}

// NewRouter wires the query routes. An empty origin list or a "*" entry
// leaves CORS open; otherwise only the named origins are allowed.
func NewRouter(s *Service, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
		MaxAge:       12 * time.Hour,
	}
	allowAll := len(allowedOrigins) == 0
	for _, o := range allowedOrigins {
		if strings.TrimSpace(o) == "*" {
			allowAll = true
		}
	}
	if allowAll {
		corsConfig.AllowOriginFunc = func(string) bool { return true }
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/api/collections", s.getCollections)
	router.GET("/api/fields", s.getFields)
	router.GET("/api/peek", s.getPeek)
	router.POST("/api/query", s.postQuery)

	return router
}

func (s *Service) getCollections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"collections": s.allowed})
}

func (s *Service) getFields(c *gin.Context) {
	name := c.Query("collection")
	sample := intQuery(c, "sample", defaultSampleSize)

	coll, err := s.collection(name)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := s.fetch(c, coll, bson.M{}, nil, 0, int64(sample))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"collection": name, "fields": FieldTypes(docs)})
}

func (s *Service) getPeek(c *gin.Context) {
	name := c.Query("collection")
	limit := intQuery(c, "limit", defaultPeekLimit)

	coll, err := s.collection(name)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := s.fetch(c, coll, bson.M{}, bson.M{"_id": 0}, 0, int64(limit))
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	rows := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, FlattenDoc(doc))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "rows": rows})
}

// QueryRequest is the filtered query body. Filters pass through to the
// find predicate as-is; the allow-list is the only access control.
type QueryRequest struct {
	Collection string         `json:"collection" binding:"required"`
	Filters    map[string]any `json:"filters"`
	Projection map[string]any `json:"projection"`
	Skip       int64          `json:"skip"`
	Limit      int64          `json:"limit"`
}

func (s *Service) postQuery(c *gin.Context) {
	var req QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorResponse(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}
	if req.Limit <= 0 {
		req.Limit = defaultQueryLimit
	}
	if req.Filters == nil {
		req.Filters = map[string]any{}
	}
	projection := req.Projection
	if projection == nil {
		projection = map[string]any{"_id": 0}
	}

	coll, err := s.collection(req.Collection)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	docs, err := s.fetch(c, coll, req.Filters, projection, req.Skip, req.Limit)
	if err != nil {
		errorResponse(c, http.StatusInternalServerError, err.Error())
		return
	}
	rows := make([]map[string]any, 0, len(docs))
	for _, doc := range docs {
		rows = append(rows, FlattenDoc(doc))
	}
	c.JSON(http.StatusOK, gin.H{"count": len(rows), "rows": rows})
}

func (s *Service) fetch(c *gin.Context, coll *mongo.Collection, filter any, projection any, skip, limit int64) ([]map[string]any, error) {
	opts := options.Find().SetSkip(skip).SetLimit(limit)
	if projection != nil {
		opts.SetProjection(projection)
	}
	cur, err := coll.Find(c.Request.Context(), filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(c.Request.Context())

	var docs []map[string]any
	if err := cur.All(c.Request.Context(), &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func intQuery(c *gin.Context, key string, fallback int) int {
	raw := c.Query(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	logger.Log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
