package main

import (
	"fmt"
	"os"

	"github.com/noah-isme/pe-space-master/internal/cli"
)

// @title PE Space Master API
// @version 1.0.0
// @description Allocates PE lessons from a rotating staff timetable to sports facilities.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
