package testutil

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logs are only written when tests run with -v.
func init() {
	logrus.SetLevel(logrus.TraceLevel)
	if !isVerbose(os.Args[1:]) {
		logrus.SetOutput(io.Discard)
	}
}

func isVerbose(args []string) bool {
	for _, arg := range args {
		switch {
		case arg == "-test.v", arg == "-test.v=true":
			return true
		case strings.HasPrefix(arg, "-test.v=test2json"):
			return true
		}
	}
	return false
}
