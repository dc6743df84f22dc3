package compile

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.trai.ch/kiln/internal/core/domain"
)

// Fingerprint hashes everything besides the sources that affects compiler output: the classpath, with
// build-local paths rebased so that the value survives moving the build, and the resolved arguments.
func Fingerprint(rebaser domain.PathRebaser, classpath, args []string) string {
	h := xxhash.New()
	write := func(section string, values []string) {
		_, _ = h.WriteString(section)
		_, _ = h.Write([]byte{0})
		for _, v := range values {
			_, _ = h.WriteString(v)
			_, _ = h.Write([]byte{0})
		}
	}
	write("classpath", rebaser.RebaseAll(classpath))
	write("args", args)
	return fmt.Sprintf("%016x", h.Sum64())
}
