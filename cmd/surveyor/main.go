// Command surveyor imports, prices and exports FIEBDC-3 construction budgets.
package main

import "github.com/papapumpkin/surveyor/cmd"

func main() {
	cmd.Execute()
}
