package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ytget/tg-harvest/cmd"
	"github.com/ytget/tg-harvest/internal/config"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if errors.Is(err, config.ErrMissingCredentials) {
			fmt.Fprintln(os.Stderr, "Error:", err)
			fmt.Fprintln(os.Stderr, `Create a config.json next to the binary:
{
  "api_id": 123456,
  "api_hash": "your_api_hash",
  "phone": "+15550100"
}`)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}
