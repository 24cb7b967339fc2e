package server

import (
	"log"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	v1 "github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/api/v1"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/config"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/session"
	"github.com/VitoYang1026/Mortgagee-Pricing-Tool/internal/store"
)

// Server HTTP服务器
type Server struct {
	router  *gin.Engine
	store   *store.Store
	manager *session.Manager
	v1      *v1.Handler
}

// NewServer 创建服务器
func NewServer(cfg *config.AppConfig) *Server {
	if !cfg.Server.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}

	// 初始化 SQLite Store；失败时降级为纯内存会话
	var sqliteStore *store.Store
	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		dataDir = cfg.Data.DataDir
	}
	dbPath := filepath.Join(dataDir, "pricing.db")

	sqliteStore, err = store.New(dbPath)
	if err != nil {
		log.Printf("初始化数据库失败，会话将不持久化: %v", err)
		sqliteStore = nil
	}

	manager := session.NewManager(sqliteStore)
	v1Handler := v1.NewHandler(cfg, manager, sqliteStore)

	s := &Server{
		router:  gin.Default(),
		store:   sqliteStore,
		manager: manager,
		v1:      v1Handler,
	}

	s.setupRoutes()

	return s
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() {
	// CORS
	s.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// V1 API 路由
	api := s.router.Group("/api/v1")
	{
		s.v1.RegisterRoutes(api)
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Run 启动服务器
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Close 关闭服务器持有的资源
func (s *Server) Close() error {
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// GetStore 获取存储（用于测试）
func (s *Server) GetStore() *store.Store {
	return s.store
}
