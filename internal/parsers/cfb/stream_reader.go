package cfb

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/deploymenttheory/go-msi/internal/types"
)

// ReadStream assembles the content of a stream entry. Streams below the mini stream
// cutoff come from the mini stream, everything else from regular sectors. The result
// is a copy bounded by the declared size; on a short or broken chain the prefix read
// so far is returned together with the error.
func (c *Container) ReadStream(entry types.DirectoryEntry) ([]byte, error) {
	if entry.Type != types.ObjectTypeStream && entry.Type != types.ObjectTypeRoot {
		return nil, fmt.Errorf("entry %q is a %s, not a stream", entry.Path, entry.Type)
	}

	reader := c.regular
	if entry.Type == types.ObjectTypeStream && entry.Size < types.MiniStreamCutoff {
		reader = c.mini
	}

	data, err := reader.ReadChain(entry.StartSector, entry.Size)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"stream": entry.Path,
			"read":   len(data),
			"size":   entry.Size,
		}).Warnf("stream assembly stopped early: %v", err)
		return data, fmt.Errorf("failed to read stream %q: %w", entry.Path, err)
	}
	return data, nil
}

// ReadStreamByPath resolves a path and reads the stream it names
func (c *Container) ReadStreamByPath(path ...string) ([]byte, error) {
	entry, err := c.Lookup(path...)
	if err != nil {
		return nil, err
	}
	return c.ReadStream(entry)
}
