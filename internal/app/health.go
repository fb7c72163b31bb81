package app

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taoyao-code/rf-gateway/internal/health"
	"github.com/taoyao-code/rf-gateway/internal/protocol/oria"
	"github.com/taoyao-code/rf-gateway/internal/tcpserver"
)

// NewHealthAggregator 创建健康检查聚合器，启动就绪标记与解码器检查器始终存在
func NewHealthAggregator(ready *health.Readiness, dec *oria.Decoder) *health.Aggregator {
	return health.NewAggregator(ready, health.NewDecoderChecker(dec.Table()))
}

// RegisterHealthRoutes 注册健康检查HTTP路由
func RegisterHealthRoutes(r *gin.Engine, aggregator *health.Aggregator) {
	health.RegisterHTTPRoutes(r, aggregator)
}

// AddDatabaseChecker 添加数据库检查器
func AddDatabaseChecker(aggregator *health.Aggregator, pool *pgxpool.Pool) {
	if pool != nil {
		aggregator.AddChecker(health.NewDatabaseChecker(pool))
	}
}

// AddMQTTChecker 添加MQTT检查器
func AddMQTTChecker(aggregator *health.Aggregator, client health.Connector, broker string) {
	if client != nil {
		aggregator.AddChecker(health.NewMQTTChecker(client, broker))
	}
}

// AddTCPChecker 添加TCP检查器到聚合器
func AddTCPChecker(aggregator *health.Aggregator, tcpServer *tcpserver.Server) {
	aggregator.AddChecker(health.NewTCPChecker(tcpServer))
}
