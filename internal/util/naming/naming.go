package naming

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// artifactTimeFormat sorts lexically in time order.
const artifactTimeFormat = "20060102-150405"

// Backup returns the backup path for a remote file written at t.
func Backup(path string, t time.Time) string {
	return path + ".bak." + strconv.FormatInt(t.Unix(), 10)
}

// ArtifactKey returns the object key for an archive pushed at t.
func ArtifactKey(archivePath string, t time.Time) string {
	base := filepath.Base(archivePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return fmt.Sprintf("%s/%s-%s%s", stem, stem, t.UTC().Format(artifactTimeFormat), ext)
}
