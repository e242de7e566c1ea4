package database

import (
	"os"
	"sync"
	"time"

	"taskboard-backend/pkg/logs"
)

// 数据库连接单例管理
// 在 serverless 环境下，冷启动之间复用同一个连接池，避免每次请求重建连接。
var (
	globalDatabase DatabaseInterface
	globalConfig   DatabaseConfig
	globalCreated  time.Time
	globalMu       sync.Mutex
)

// maxConnectionAge 连接池最大存活时间，超过后强制重建
const maxConnectionAge = 30 * time.Minute

// GetDatabase 获取数据库连接（进程内单例）
// 配置不变且连接健康时复用现有实例，否则重建。
func GetDatabase(config DatabaseConfig) DatabaseInterface {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalDatabase != nil && configEquals(globalConfig, config) {
		// 过期或不健康时重建
		if time.Since(globalCreated) < maxConnectionAge && globalDatabase.HealthCheck() == nil {
			return globalDatabase
		}
		logs.Logger.Warn("database connection stale or unhealthy, recreating")
		_ = globalDatabase.Close()
		globalDatabase = nil
	}

	if globalDatabase != nil {
		// 配置变化，关闭旧连接
		_ = globalDatabase.Close()
	}

	globalDatabase = NewDatabase(config)
	globalConfig = config
	globalCreated = time.Now()
	return globalDatabase
}

// CloseDatabase 关闭全局连接（测试和优雅退出用）
func CloseDatabase() {
	globalMu.Lock()
	defer globalMu.Unlock()

	if globalDatabase != nil {
		_ = globalDatabase.Close()
		globalDatabase = nil
	}
}

// configEquals 判断两份配置是否指向同一个数据库
func configEquals(a, b DatabaseConfig) bool {
	return a.UseLocalDB == b.UseLocalDB && a.PostgresDSN == b.PostgresDSN
}

// ConnectionStats 连接池状态（调试接口用）
type ConnectionStats struct {
	Connected  bool      `json:"connected"`
	UseLocalDB bool      `json:"use_local_db"`
	CreatedAt  time.Time `json:"created_at"`
	AgeSeconds float64   `json:"age_seconds"`
	Serverless bool      `json:"serverless"`
}

// GetConnectionStats 返回当前连接池状态
func GetConnectionStats() ConnectionStats {
	globalMu.Lock()
	defer globalMu.Unlock()

	stats := ConnectionStats{
		Connected:  globalDatabase != nil,
		UseLocalDB: globalConfig.UseLocalDB,
		Serverless: IsServerless(),
	}
	if globalDatabase != nil {
		stats.CreatedAt = globalCreated
		stats.AgeSeconds = time.Since(globalCreated).Seconds()
	}
	return stats
}

// IsServerless 检测是否运行在 serverless 平台
func IsServerless() bool {
	return os.Getenv("VERCEL") != "" || os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != ""
}
