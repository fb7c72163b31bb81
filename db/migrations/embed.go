// Package migrations 内嵌 SQL 迁移文件，命名规则 <version>_<name>_up.sql
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
