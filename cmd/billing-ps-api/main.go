// Package main is the billing-ps-api entry point (HTTP + WebSocket).
package main

import (
	"log"

	"github.com/ayung21/billing-ps-api-sub000/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
