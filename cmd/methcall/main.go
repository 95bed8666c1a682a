// cmd/methcall/main.go
package main

import (
	"methcall/internal/app"
	"methcall/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
