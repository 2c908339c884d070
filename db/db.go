package db

import "embed"

//go:embed migrations/*.sql
var Migrations embed.FS

//go:embed seed/*.yaml
var SeedFiles embed.FS
