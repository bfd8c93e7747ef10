// Command stm analyses a Git repository's technology stack and writes a
// JSON report under stm_reports/ in the project directory.
package main

func main() {
	Execute()
}
