package main

import (
	"context"

	"github.com/grafeo-db/grafeo/cmd/grafeoctl/app"
)

func main() {
	app.MustExecute(context.Background())
}
