package main

import (
	"context"
	"os"

	"github.com/yarlson/ralph-loop/cmd"
)

func main() {
	os.Exit(cmd.Execute(context.Background()))
}
