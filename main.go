package main

import (
	"github.com/foomo/sitepress/cmd"
)

func main() {
	cmd.Execute()
}
