package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samsungplay/CS559-IP3/internal/logging"
	"github.com/samsungplay/CS559-IP3/internal/middleware"
	"github.com/samsungplay/CS559-IP3/internal/vec"
	"github.com/samsungplay/CS559-IP3/internal/world"
	"github.com/samsungplay/CS559-IP3/internal/world/block"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// WorldRunner выполняет функцию в горутине мира (app.Engine)
type WorldRunner interface {
	Do(ctx context.Context, fn func(w *world.World)) error
}

// RestServer административный REST API мира
type RestServer struct {
	router     *gin.Engine
	httpServer *http.Server
	runner     WorldRunner
	registry   *block.Registry
	metrics    *ServerMetrics
	logger     *logging.Logger
	timeout    time.Duration
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string               // адрес для запуска сервера, например ":8088"
	Runner      WorldRunner          // доступ к миру
	Registry    *block.Registry      // таблица блоков для имен и проверки id
	Prometheus  *prometheus.Registry // реестр метрик, который отдает /metrics
	Logger      *logging.Logger
	ServiceName string
	Timeout     time.Duration // ожидание горутины мира на запрос
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) (*RestServer, error) {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "voxel_api"
	}
	if config.Timeout <= 0 {
		config.Timeout = 2 * time.Second
	}
	if config.Logger == nil {
		config.Logger = logging.GetAPILogger()
	}
	if config.Prometheus == nil {
		config.Prometheus = prometheus.NewRegistry()
	}

	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))
	router.Use(middleware.NewRequestLogger(config.Logger, "/health", "/metrics").Handler())

	promMw, err := middleware.NewPrometheusMiddleware(config.ServiceName, config.Prometheus)
	if err != nil {
		return nil, err
	}
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	rs := &RestServer{
		router:   router,
		runner:   config.Runner,
		registry: config.Registry,
		metrics:  NewServerMetrics(),
		logger:   config.Logger,
		timeout:  config.Timeout,
	}
	rs.httpServer = &http.Server{
		Addr:              config.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	rs.setupRoutes()
	return rs, nil
}

// Handler корневой http.Handler (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	rs.router.GET("/health", rs.handleHealth)

	api := rs.router.Group("/api")
	{
		api.GET("/stats", rs.handleStats)
		api.GET("/blocks", rs.handleBlockCatalogue)
		api.GET("/block", rs.handleGetBlock)
		api.POST("/block", rs.handleSetBlock)
		api.POST("/place", rs.handlePlace)
		api.POST("/break", rs.handleBreak)
		api.POST("/explode", rs.handleExplode)
		api.GET("/chunks", rs.handleChunks)
	}
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// BlockInfo состояние ячейки мира
type BlockInfo struct {
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Z      int    `json:"z"`
	ID     uint8  `json:"id"`
	Name   string `json:"name"`
	Meta   uint8  `json:"meta"`
	Loaded bool   `json:"loaded"`
}

// SetBlockRequest запрос POST /api/block
type SetBlockRequest struct {
	X    *int   `json:"x" binding:"required"`
	Y    *int   `json:"y" binding:"required"`
	Z    *int   `json:"z" binding:"required"`
	ID   *int   `json:"id" binding:"required"`
	Meta *uint8 `json:"meta"`
}

// PlaceRequest запрос POST /api/place; support задает опору факела
type PlaceRequest struct {
	X       *int      `json:"x" binding:"required"`
	Y       *int      `json:"y" binding:"required"`
	Z       *int      `json:"z" binding:"required"`
	ID      *int      `json:"id" binding:"required"`
	Support *vec.Vec3 `json:"support"`
}

// PosRequest запрос с координатами блока
type PosRequest struct {
	X *int `json:"x" binding:"required"`
	Y *int `json:"y" binding:"required"`
	Z *int `json:"z" binding:"required"`
}

// ExplodeRequest запрос POST /api/explode
type ExplodeRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Radius float64 `json:"radius" binding:"required,gt=0,lte=16"`
}

func (rs *RestServer) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, GenericResponse{Success: false, Message: msg})
}

// run выполняет fn в мире с таймаутом запроса; ошибку пишет в ответ
func (rs *RestServer) run(c *gin.Context, fn func(w *world.World)) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), rs.timeout)
	defer cancel()

	err := rs.runner.Do(ctx, fn)
	if err == nil {
		return true
	}
	status := http.StatusServiceUnavailable
	if errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	rs.logger.Warn("Запрос %s к миру не выполнен: %v", c.FullPath(), err)
	c.JSON(status, GenericResponse{Success: false, Message: "Мир недоступен: " + err.Error()})
	return false
}

func (rs *RestServer) blockID(raw int) (block.BlockID, bool) {
	if raw < 0 || raw > 255 {
		return 0, false
	}
	id := block.BlockID(raw)
	return id, rs.registry.IsValidBlockID(id)
}

func (rs *RestServer) blockName(id block.BlockID) string {
	if def, ok := rs.registry.Get(id); ok {
		return def.Name
	}
	return "unknown"
}

// handleHealth проверка состояния сервера
func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"time":   time.Now().Unix(),
	})
}

// handleStats статистика мира и процесса
func (rs *RestServer) handleStats(c *gin.Context) {
	var stats world.Stats
	if !rs.run(c, func(w *world.World) { stats = w.Stats() }) {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Статистика получена",
		Data: gin.H{
			"world":   stats,
			"process": rs.metrics.Snapshot(),
		},
	})
}

// handleBlockCatalogue список зарегистрированных блоков
func (rs *RestServer) handleBlockCatalogue(c *gin.Context) {
	defs := rs.registry.Definitions()
	out := make([]gin.H, 0, len(defs))
	for _, d := range defs {
		out = append(out, gin.H{"id": d.ID, "name": d.Name, "kind": block.KindName(d.Kind)})
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Таблица блоков", Data: out})
}

func queryInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Query(name))
	return v, err == nil
}

// handleGetBlock GET /api/block?x=&y=&z=
func (rs *RestServer) handleGetBlock(c *gin.Context) {
	x, okX := queryInt(c, "x")
	y, okY := queryInt(c, "y")
	z, okZ := queryInt(c, "z")
	if !okX || !okY || !okZ {
		rs.badRequest(c, "Параметры x, y, z обязательны и должны быть целыми")
		return
	}

	info := BlockInfo{X: x, Y: y, Z: z}
	if !rs.run(c, func(w *world.World) {
		info.Loaded = w.IsLoaded(x, z)
		id := w.GetBlockWorld(x, y, z)
		info.ID = uint8(id)
		info.Meta = w.GetMetaWorld(x, y, z)
	}) {
		return
	}
	info.Name = rs.blockName(block.BlockID(info.ID))

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок", Data: info})
}

// handleSetBlock POST /api/block: прямая запись блока со всеми побочными эффектами
func (rs *RestServer) handleSetBlock(c *gin.Context) {
	var req SetBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	id, ok := rs.blockID(*req.ID)
	if !ok {
		rs.badRequest(c, "Неизвестный id блока")
		return
	}

	x, y, z := *req.X, *req.Y, *req.Z
	loaded := false
	if !rs.run(c, func(w *world.World) {
		loaded = w.IsLoaded(x, z)
		if !loaded {
			return
		}
		if req.Meta != nil {
			w.SetBlockWorldWithMeta(x, y, z, id, *req.Meta)
		} else {
			w.SetBlockWorld(x, y, z, id)
		}
	}) {
		return
	}
	if !loaded {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: "Чанк не загружен"})
		return
	}

	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок установлен"})
}

// handlePlace POST /api/place: установка блока по правилам игрока
func (rs *RestServer) handlePlace(c *gin.Context) {
	var req PlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}
	id, ok := rs.blockID(*req.ID)
	if !ok || id == block.AirBlockID {
		rs.badRequest(c, "Неизвестный id блока")
		return
	}

	pos := vec.Vec3{X: *req.X, Y: *req.Y, Z: *req.Z}
	placed := false
	if !rs.run(c, func(w *world.World) { placed = w.PlaceBlock(pos, id, req.Support) }) {
		return
	}
	if !placed {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: "Ячейка занята или не загружена"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{Success: true, Message: "Блок поставлен"})
}

// handleBreak POST /api/break
func (rs *RestServer) handleBreak(c *gin.Context) {
	var req PosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}

	pos := vec.Vec3{X: *req.X, Y: *req.Y, Z: *req.Z}
	var old block.BlockID
	broken := false
	if !rs.run(c, func(w *world.World) { old, broken = w.BreakBlock(pos) }) {
		return
	}
	if !broken {
		c.JSON(http.StatusConflict, GenericResponse{Success: false, Message: "Блок нельзя разрушить"})
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Блок разрушен",
		Data:    gin.H{"id": old, "name": rs.blockName(old)},
	})
}

// handleExplode POST /api/explode
func (rs *RestServer) handleExplode(c *gin.Context) {
	var req ExplodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		rs.badRequest(c, "Неверный формат запроса: "+err.Error())
		return
	}

	destroyed := 0
	if !rs.run(c, func(w *world.World) { destroyed = w.Explode(req.X, req.Y, req.Z, req.Radius) }) {
		return
	}
	rs.logger.Info("💥 Взрыв (%.1f,%.1f,%.1f) r=%.1f: %d блоков", req.X, req.Y, req.Z, req.Radius, destroyed)
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Взрыв выполнен",
		Data:    gin.H{"destroyed": destroyed},
	})
}

// handleChunks GET /api/chunks
func (rs *RestServer) handleChunks(c *gin.Context) {
	var keys []vec.ChunkPos
	if !rs.run(c, func(w *world.World) { keys = w.LoadedChunks() }) {
		return
	}
	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Загруженные чанки",
		Data:    gin.H{"chunks": keys, "total": len(keys)},
	})
}

// Start запускает REST сервер; блокирует до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.httpServer.Addr)
	if err := rs.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop корректно останавливает REST сервер
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.httpServer.Shutdown(ctx)
}
