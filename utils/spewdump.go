package utils

import (
	"bytes"
	"fmt"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

var spewConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true
	spewConfig.DisablePointerAddresses = true
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

func Dump(a ...interface{}) {
	fmt.Println(SDump(a...))
}

func LogDump(a ...interface{}) {
	logrus.Debug(SDump(a...))
}

// DumpToOneLineString renders a byte block with non-printable bytes
// escaped, for log context on malformed chunks.
func DumpToOneLineString(buf []byte) string {
	var out bytes.Buffer
	for _, b := range buf {
		if b >= 0x20 && b <= 0x7f {
			out.WriteRune(rune(b))
		} else {
			out.WriteString(fmt.Sprintf("\\x%.2x", b))
		}
	}
	return out.String()
}
