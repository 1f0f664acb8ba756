package main

import (
	"context"
	"log"

	"github.com/Apurer/go-gin-shipment-server/internal/app/api"
)

func main() {
	if err := api.Run(context.Background()); err != nil {
		log.Fatalf("shipments api: %v", err)
	}
}
