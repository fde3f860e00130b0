package main

import (
	"os"

	"github.com/mplewis/ssmkv/internal/cli"
)

func main() {
	os.Exit(cli.InitParam(cli.DefaultEnv(), os.Args[1:]))
}
