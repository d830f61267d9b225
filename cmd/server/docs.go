package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           ShopSync API
// @version         0.1.0
// @description     TikTok Shop order/product mirror with checkpointed sync and dashboard KPIs.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
