package main

//go:generate swag init -g cmd/server/main.go -o docs

// @title           Calendar Sync API
// @version         0.1.0
// @description     Bidirectional appointment reconciliation against a remote calendar provider.
// @host            localhost:8080
// @BasePath        /
// @schemes         http
