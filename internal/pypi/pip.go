package pypi

import (
	"os/exec"

	"github.com/deploykit/resource-mirror/internal/utils/logger"
)

// Runner invokes the external package installer with the given
// arguments. Success is reported via exit status only.
type Runner func(args ...string) error

func runPip(args ...string) error {
	log := logger.Logger()
	cmd := exec.Command("pip", args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		if len(output) > 0 {
			log.Infof("%s", output)
		}
		return err
	}
	if len(output) > 0 {
		log.Debugf("%s", output)
	}
	return nil
}
