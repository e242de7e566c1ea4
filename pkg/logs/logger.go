package logs

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger 全局应用日志器（通过 Init 初始化；未初始化时使用默认配置）
var Logger = logrus.New()

var initOnce sync.Once

// Options 日志初始化参数
type Options struct {
	Level  string // trace|debug|info|warning|error|fatal
	Format string // text|json
}

// Init 按配置初始化全局日志器（幂等，只生效一次）
func Init(opts Options) {
	initOnce.Do(func() {
		level, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			level = logrus.InfoLevel
		}
		Logger.SetLevel(level)

		if opts.Format == "json" {
			Logger.SetFormatter(&logrus.JSONFormatter{})
		} else {
			Logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
		}

		Logger.SetOutput(os.Stdout)
	})
}
