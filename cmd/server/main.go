package main

import "eventboard/cmd/server/cmd"

// @title Eventboard API
// @version 1.0
// @description Event management API: create, list, update, delete and join events, with realtime change notifications on /ws.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cmd.Execute()
}
