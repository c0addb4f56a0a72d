package main

import "github.com/edgeflare/graphstreams/cmd/graphstreams"

func main() {
	graphstreams.Main()
}
