// Command orgctl is the operator tool for the orgstructure database:
// schema migrations, superuser bootstrap and integrity checks.
package main

func main() {
	Execute()
}
