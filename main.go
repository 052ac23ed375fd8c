package main

import (
	"log"

	_ "crm-connect/docs"
	"crm-connect/internal/app"
)

// @title crm-connect API
// @version 1.0
// @description Google and RingCentral connections for CRM users: OAuth connect flow, token lifecycle and provider features.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := app.Run(); err != nil {
		log.Fatal(err)
	}
}
