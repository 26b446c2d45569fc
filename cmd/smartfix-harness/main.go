package main

import harness "smartfix-harness/internal/app"

func main() {
	harness.Run()
}
