package main

import (
	ddns "github.com/seawhite/aws-r53-ip-updater/pkg/cmd"
)

func main() {
	ddns.Start()
}
