package main

import (
	"context"

	"github.com/JakeFAU/leadhunter-enricher/cmd"
)

func main() {
	cmd.Execute(context.Background())
}
