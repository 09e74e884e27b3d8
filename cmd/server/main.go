package main

import (
	"fmt"
	"os"

	"ticketdesk/internal/app"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintln(os.Stderr, "ticketdesk:", err)
		os.Exit(1)
	}
	if err := application.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "ticketdesk:", err)
		os.Exit(1)
	}
}
