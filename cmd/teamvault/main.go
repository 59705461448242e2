// Package main 启动应用程序
package main

import (
	"os"

	"github.com/yeisme/teamvault/pkg/cmd"
)

//	@title			TeamVault API
//	@version		1.0
//	@description	TeamVault 是一个多租户团队文件空间，提供用户注册登录、工作区与成员邀请、文件上传和活动日志等功能。
//	@BasePath		/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

//	@securityDefinitions.apikey	AdminToken
//	@in							header
//	@name						X-Admin-Token

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@contact.name	yeisme
//	@contact.email	yefun2004@gmail.com.

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
