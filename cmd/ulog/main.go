// Command ulog inspects scheduler user logs: it checks single logs for
// pending or failed jobs and summarizes the run attempts of many logs
// by site and machine.
package main

import (
	"os"

	"github.com/mongodb/grip"
)

func main() {
	if err := buildApp().Run(os.Args); err != nil {
		grip.Error(err)
		os.Exit(1)
	}
}
