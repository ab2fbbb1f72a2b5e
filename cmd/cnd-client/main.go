package main

import "github.com/clearance-networks/cnd-service/internal/cli"

func main() {
	cli.Execute()
}
