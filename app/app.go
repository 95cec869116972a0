package app

import (
	"context"
	"log"
	"os"
	"strconv"
	"time"

	"unilib/db"
	"unilib/lending"
	"unilib/session"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// 简化别名，便于 handlers 调用
type Ctx = gin.Context
type H = gin.H

// App 聚合各依赖
type App struct {
	Router *gin.Engine
	DB     *gorm.DB
	RDB    *redis.Client
	Config Config

	tokens *session.TokenStore
}

// Config 从环境变量读取；借阅限额统一装进 lending.Policy，
// 业务代码只拿注入的 Policy，不直接读环境。
type Config struct {
	RedisAddr      string
	RedisPwd       string
	WebOrigin      string
	SessionTTL     time.Duration
	RequestTimeout time.Duration

	BootstrapEmail    string
	BootstrapPassword string

	Policy lending.Policy
}

func (a *App) Tokens() *session.TokenStore { return a.tokens }

func MustNew() *App {
	cfg := loadConfig()

	// --- DB: Postgres ---
	dbConn := db.ConnectDB()

	// --- Redis ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPwd, DB: 0})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis: %v", err)
	}

	// --- Gin ---
	r := gin.Default()
	useCORS(r, cfg.WebOrigin)
	a := &App{
		Router: r, DB: dbConn, RDB: rdb, Config: cfg,
		tokens: session.NewTokenStore(rdb, cfg.SessionTTL),
	}
	return a
}

func (a *App) Close() { _ = a.RDB.Close() }

func loadConfig() Config {
	get := func(k, def string) string {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		return v
	}
	getInt := func(k string, def int) int {
		if n, err := strconv.Atoi(os.Getenv(k)); err == nil && n >= 0 {
			return n
		}
		return def
	}

	ttl := 24 * time.Hour
	if sec := getInt("SESSION_TTL_SECONDS", 0); sec > 0 {
		ttl = time.Duration(sec) * time.Second
	}

	reqTimeout := 10 * time.Second
	if sec := getInt("REQUEST_TIMEOUT_SECONDS", 0); sec > 0 {
		reqTimeout = time.Duration(sec) * time.Second
	}

	pol := lending.DefaultPolicy()
	pol.MaxBooksPerUser = getInt("MAX_BOOKS_PER_USER", pol.MaxBooksPerUser)
	pol.LoanPeriodDays = getInt("LOAN_PERIOD_DAYS", pol.LoanPeriodDays)
	pol.MaxRenewals = getInt("MAX_RENEWALS", pol.MaxRenewals)
	pol.LateFeeCentsPerDay = int64(getInt("LATE_FEE_CENTS_PER_DAY", 0))

	return Config{
		RedisAddr:         get("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPwd:          os.Getenv("REDIS_PASSWORD"),
		WebOrigin:         get("WEB_ORIGIN", "http://localhost:5173"),
		SessionTTL:        ttl,
		RequestTimeout:    reqTimeout,
		BootstrapEmail:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
		BootstrapPassword: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		Policy:            pol,
	}
}
