// Command callflow serves the call-flow dispatcher and manages its data directory.
package main

func main() {
	Execute()
}
