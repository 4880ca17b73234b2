package main

import (
	"log"
	"os"

	"github.com/thiagokokada/gde-go/cmd"
	"github.com/thiagokokada/gde-go/internal/extract"
)

func main() {
	if err := cmd.Run(); err != nil {
		if extract.IsHardResetFailure(err) {
			log.Printf("gde-go: %v", err)
			log.Print("gde-go: the working tree was left modified, manual intervention required")
			os.Exit(2)
		}
		log.Fatalf("gde-go: %v", err)
	}
}
