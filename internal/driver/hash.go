package driver

import (
	"crypto/sha256"
	"fmt"
	"io"

	"forget/internal/config"
	"forget/internal/pipeline"
)

// Digest is a SHA-256 cache key.
type Digest [32]byte

// unitKey digests everything that determines the output of one file:
// the content, the features, the registry and the pass list.
func unitKey(content [32]byte, cfg config.Config, passes []pipeline.Pass) Digest {
	h := sha256.New()
	_, _ = h.Write(content[:])
	_, _ = io.WriteString(h, cfg.Features.String())
	for _, e := range cfg.Registry.Entries() {
		memo := "-"
		if e.Memo != nil {
			memo = fmt.Sprintf("%d/%d", e.Memo.Callback, e.Memo.Deps)
		}
		_, _ = fmt.Fprintf(h, "\x00%s|%s|%s|%d|%s", e.Name, e.Kind, e.Effect, e.Arity, memo)
	}
	for _, p := range passes {
		_, _ = io.WriteString(h, "\x00"+p.Name)
	}
	var out Digest
	copy(out[:], h.Sum(nil))
	return out
}
