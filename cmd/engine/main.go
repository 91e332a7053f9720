package main

import "browser-agent-engine/internal/bootstrap"

func main() {
	bootstrap.NewApp().Run()
}
