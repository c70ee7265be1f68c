// One-shot bootstrap for the Google Sheets mirror: verifies the service
// account can reach the spreadsheet and creates the current year's report
// sheets with header rows. Run it once before starting qboard-worker.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	gsheet "qboard/internal/mirror/google"
)

func main() {
	_ = godotenv.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := gsheet.NewFromEnv(ctx)
	if err != nil {
		log.Fatalf("mirror client: %v", err)
	}

	year := time.Now().Year()
	if err := client.EnsureSheets(ctx, year); err != nil {
		log.Fatalf("ensure sheets: %v", err)
	}

	fmt.Printf("Mirror sheets ready for %d\n", year)
}
