package main

import "artisan-marketplace/cmd"

func main() {
	cmd.Execute()
}
