// Command auditctl inspects and verifies the tender audit ledger offline.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/AnTengye/bettertender/backend/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if !errors.Is(err, service.ErrIntegrityViolation) {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
		os.Exit(1)
	}
}
