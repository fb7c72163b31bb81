package api

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/taoyao-code/rf-gateway/docs"
)

// RegisterSwagger 注册 Swagger UI（/swagger/index.html），文档由 swag init 生成到 docs 包
func RegisterSwagger(r gin.IRouter) {
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
