// Package main is the entry point for crudkit, which serves CRUD endpoints
// for the models declared in its configuration.
package main

func main() {
	Execute()
}
